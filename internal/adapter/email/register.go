package email

import (
	"strconv"
	"strings"

	"github.com/arbiterhq/arbiter/internal/port/notifier"
)

func init() {
	notifier.Register(providerName, func(config map[string]string) (notifier.Notifier, error) {
		port := 587
		if p, err := strconv.Atoi(config["port"]); err == nil && p > 0 {
			port = p
		}
		var to []string
		for _, addr := range strings.Split(config["to"], ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				to = append(to, addr)
			}
		}
		return NewNotifier(SMTPConfig{
			Host:     config["host"],
			Port:     port,
			From:     config["from"],
			Password: config["password"],
			To:       to,
		}), nil
	})
}
