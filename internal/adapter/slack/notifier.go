// Package slack implements a notifier.Notifier for Slack incoming webhooks.
package slack

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

const providerName = "slack"

// sendTimeout bounds one webhook POST. A hung endpoint then counts as a
// breaker failure instead of pinning a fan-out permit indefinitely.
const sendTimeout = 10 * time.Second

// Config holds the provider settings from the notify section.
type Config struct {
	WebhookURL string
	Channel    string // optional channel override, honored by legacy webhooks
}

// Notifier posts Block Kit messages to a Slack incoming webhook.
type Notifier struct {
	cfg        Config
	httpClient *http.Client
}

// NewNotifier creates a Slack notifier.
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
		Threads:        false,
	}
}

// slackMessage is the Block Kit payload.
type slackMessage struct {
	Channel string       `json:"channel,omitempty"`
	Blocks  []slackBlock `json:"blocks"`
}

// slackBlock covers the three block shapes used here: header and section
// carry Text, context carries Elements.
type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (n *Notifier) Send(ctx context.Context, notification notifier.Notification) error {
	if n.cfg.WebhookURL == "" {
		return notifier.ErrNotConfigured
	}

	msg := slackMessage{
		Channel: n.cfg.Channel,
		Blocks:  buildBlocks(notification),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req) //nolint:gosec // webhook URL from trusted config
	if err != nil {
		return fmt.Errorf("slack send: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("slack API %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// buildBlocks renders the header, the message body, and the decision
// reference footer when the notification carries one.
func buildBlocks(nt notifier.Notification) []slackBlock {
	blocks := []slackBlock{
		{Type: "header", Text: &slackText{Type: "plain_text", Text: levelEmoji(nt.Level) + " " + nt.Title}},
		{Type: "section", Text: &slackText{Type: "mrkdwn", Text: nt.Message}},
	}
	if footer := contextLine(nt); footer != "" {
		blocks = append(blocks, slackBlock{
			Type:     "context",
			Elements: []slackText{{Type: "mrkdwn", Text: footer}},
		})
	}
	return blocks
}

// contextLine renders the decision reference footer shown under the message.
func contextLine(n notifier.Notification) string {
	switch {
	case n.DecisionID != "" && n.ReviewLevel != "":
		return fmt.Sprintf("_Decision `%s` · review level: %s_", n.DecisionID, n.ReviewLevel)
	case n.DecisionID != "":
		return fmt.Sprintf("_Decision `%s`_", n.DecisionID)
	case n.Event != "":
		return fmt.Sprintf("_Event: %s_", n.Event)
	}
	return ""
}

func levelEmoji(level string) string {
	switch level {
	case notifier.LevelSuccess:
		return ":white_check_mark:"
	case notifier.LevelError:
		return ":rotating_light:"
	case notifier.LevelWarning:
		return ":warning:"
	default:
		return ":information_source:"
	}
}
