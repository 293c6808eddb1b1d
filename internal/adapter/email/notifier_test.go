package email

import (
	"context"
	"net/smtp"
	"strings"
	"testing"

	"github.com/arbiterhq/arbiter/internal/port/notifier"
)

// Compile-time interface check.
var _ notifier.Notifier = (*Notifier)(nil)

func TestSendNotConfigured(t *testing.T) {
	n := NewNotifier(SMTPConfig{})
	err := n.Send(context.Background(), notifier.Notification{Title: "test"})
	if err != notifier.ErrNotConfigured {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestSendBuildsMessage(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	n := NewNotifier(SMTPConfig{
		Host: "smtp.example.com",
		Port: 2525,
		From: "arbiter@example.com",
		To:   []string{"reviews@example.com", "audit@example.com"},
	})
	n.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	err := n.Send(context.Background(), notifier.Notification{
		Title:       "Decision escalated",
		Message:     "A value_adjustment decision was escalated to director approval.",
		Level:       "warning",
		DecisionID:  "dec-7",
		ReviewLevel: "director_approval",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if gotAddr != "smtp.example.com:2525" {
		t.Fatalf("unexpected addr %q", gotAddr)
	}
	if gotFrom != "arbiter@example.com" {
		t.Fatalf("unexpected from %q", gotFrom)
	}
	if len(gotTo) != 2 {
		t.Fatalf("expected 2 recipients, got %v", gotTo)
	}
	body := string(gotMsg)
	if !strings.Contains(body, "Subject: Decision escalated") {
		t.Fatalf("missing subject in %q", body)
	}
	if !strings.Contains(body, "dec-7") || !strings.Contains(body, "director_approval") {
		t.Fatalf("missing decision reference in %q", body)
	}
}

func TestRegisterFactory(t *testing.T) {
	n, err := notifier.New("email", map[string]string{
		"host": "smtp.example.com",
		"from": "arbiter@example.com",
		"to":   "a@example.com, b@example.com",
	})
	if err != nil {
		t.Fatalf("notifier.New: %v", err)
	}
	if n.Name() != "email" {
		t.Fatalf("expected email notifier, got %q", n.Name())
	}
	if n.Capabilities().RichFormatting {
		t.Fatal("email should not claim rich formatting")
	}
}
