package discord

import (
	"botwatch/clients/notifier"
	"botwatch/config"
	"testing"

	"go.uber.org/zap"
)

func TestNewDiscordClientWithoutToken(t *testing.T) {
	cfg := config.Defaults()
	dc := NewDiscordClient(zap.NewNop(), cfg)

	if dc.session != nil {
		t.Error("expected nil session without token")
	}

	// Must not panic without a session.
	dc.Notify(notifier.Alert{Priority: notifier.PriorityCritical, Message: "drawdown"})
	if err := dc.Close(); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}
}

func TestChannelIDSelection(t *testing.T) {
	cfg := config.Defaults()
	cfg.Discord.ProdChannelID = "prod-chan"
	cfg.Discord.BetaChannelID = "beta-chan"

	dc := NewDiscordClient(zap.NewNop(), cfg)
	if dc.channelID != "beta-chan" {
		t.Errorf("expected beta channel for non-prod, got %s", dc.channelID)
	}

	cfg.IsProd = true
	dc = NewDiscordClient(zap.NewNop(), cfg)
	if dc.channelID != "prod-chan" {
		t.Errorf("expected prod channel, got %s", dc.channelID)
	}
}

func TestEmbedColor(t *testing.T) {
	tests := []struct {
		alert    notifier.Alert
		expected int
	}{
		{notifier.Alert{Priority: notifier.PriorityCritical}, 0xE74C3C},
		{notifier.Alert{Priority: notifier.PriorityHigh, Type: notifier.TypeDanger}, 0xE74C3C},
		{notifier.Alert{Priority: notifier.PriorityHigh, Type: notifier.TypeSignal}, 0x3498DB},
		{notifier.Alert{Priority: notifier.PriorityHigh, Type: notifier.TypeWarning}, 0xF39C12},
	}
	for i, tt := range tests {
		if got := embedColor(tt.alert); got != tt.expected {
			t.Errorf("case %d: expected %#x, got %#x", i, tt.expected, got)
		}
	}
}
