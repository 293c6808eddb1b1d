package discord

import "github.com/arbiterhq/arbiter/internal/port/notifier"

func init() {
	notifier.Register(providerName, func(config map[string]string) (notifier.Notifier, error) {
		return NewNotifier(Config{
			WebhookURL: config["webhook_url"],
			Username:   config["username"],
		}), nil
	})
}
