// Package discord implements a notifier.Notifier for Discord webhooks.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/arbiterhq/arbiter/internal/port/notifier"
)

const providerName = "discord"

// sendTimeout bounds one webhook POST so a hung endpoint surfaces as a
// breaker failure instead of holding a fan-out permit.
const sendTimeout = 10 * time.Second

// Config holds the provider settings from the notify section.
type Config struct {
	WebhookURL string
	Username   string // optional display name override for the webhook bot
}

// Notifier sends embed messages to a Discord incoming webhook.
type Notifier struct {
	cfg        Config
	httpClient *http.Client
}

// NewNotifier creates a Discord notifier.
func NewNotifier(cfg Config) *Notifier {
	return &Notifier{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: sendTimeout},
	}
}

func (n *Notifier) Name() string { return providerName }

func (n *Notifier) Capabilities() notifier.Capabilities {
	return notifier.Capabilities{
		RichFormatting: true,
		Threads:        true,
	}
}

// discordWebhook is the webhook payload with embeds.
type discordWebhook struct {
	Username string         `json:"username,omitempty"`
	Embeds   []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Color       int            `json:"color"`
	Timestamp   string         `json:"timestamp,omitempty"`
	Fields      []discordField `json:"fields,omitempty"`
	Footer      *discordFooter `json:"footer,omitempty"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordFooter struct {
	Text string `json:"text"`
}

func (n *Notifier) Send(ctx context.Context, notification notifier.Notification) error {
	if n.cfg.WebhookURL == "" {
		return notifier.ErrNotConfigured
	}

	msg := discordWebhook{
		Username: n.cfg.Username,
		Embeds:   []discordEmbed{buildEmbed(notification)},
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("discord marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req) //nolint:gosec // webhook URL from trusted config
	if err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Discord returns 204 on success
	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("discord API %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// buildEmbed renders one embed per notification. Decision references become
// inline fields so reviewers can scan a channel for the id.
func buildEmbed(nt notifier.Notification) discordEmbed {
	embed := discordEmbed{
		Title:       nt.Title,
		Description: nt.Message,
		Color:       levelColor(nt.Level),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	if nt.DecisionID != "" {
		embed.Fields = append(embed.Fields, discordField{Name: "Decision", Value: nt.DecisionID, Inline: true})
	}
	if nt.ReviewLevel != "" {
		embed.Fields = append(embed.Fields, discordField{Name: "Review level", Value: nt.ReviewLevel, Inline: true})
	}
	if nt.Event != "" {
		embed.Footer = &discordFooter{Text: nt.Event}
	}
	return embed
}

// levelColor returns Discord embed color integers for notification levels.
func levelColor(level string) int {
	switch level {
	case notifier.LevelSuccess:
		return 0x2ECC71 // green
	case notifier.LevelError:
		return 0xE74C3C // red
	case notifier.LevelWarning:
		return 0xF39C12 // orange
	default:
		return 0x3498DB // blue (info)
	}
}
