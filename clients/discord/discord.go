package discord

import (
	"botwatch/clients/notifier"
	"botwatch/config"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// DiscordClient pushes high and critical alerts to a Discord channel.
// Implements notifier.Notifier interface.
type DiscordClient struct {
	logger    *zap.Logger
	session   *discordgo.Session
	channelID string
	isProd    bool
}

func NewDiscordClient(logger *zap.Logger, cfg *config.Config) *DiscordClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	channelID := cfg.Discord.BetaChannelID
	if cfg.IsProd {
		channelID = cfg.Discord.ProdChannelID
	}

	token := cfg.Discord.BotToken
	if token == "" {
		logger.Warn("DISCORD_BOT_TOKEN not set, Discord alerts disabled")
		return &DiscordClient{
			logger:    logger,
			channelID: channelID,
			isProd:    cfg.IsProd,
		}
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		logger.Error("failed to create discord session", zap.Error(err))
		return &DiscordClient{
			logger:    logger,
			channelID: channelID,
			isProd:    cfg.IsProd,
		}
	}

	logger.Info("discord bot initialized",
		zap.Bool("isProd", cfg.IsProd),
		zap.String("channelID", channelID),
	)

	return &DiscordClient{
		logger:    logger,
		session:   session,
		channelID: channelID,
		isProd:    cfg.IsProd,
	}
}

// Notify pushes the alert as an embed. Only high and critical priorities are
// forwarded.
func (dc *DiscordClient) Notify(alert notifier.Alert) {
	if alert.Priority != notifier.PriorityHigh && alert.Priority != notifier.PriorityCritical {
		return
	}
	if dc.session == nil || dc.channelID == "" {
		return
	}

	embed := &discordgo.MessageEmbed{
		Title:       embedTitle(alert),
		Description: alert.Message,
		Color:       embedColor(alert),
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("%s / %s", alert.Type, alert.Priority),
		},
		Timestamp: alert.Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
	}

	if _, err := dc.session.ChannelMessageSendEmbed(dc.channelID, embed); err != nil {
		dc.logger.Error("failed to send discord alert", zap.Error(err))
		return
	}

	dc.logger.Info("sent discord alert",
		zap.String("type", alert.Type),
		zap.String("priority", string(alert.Priority)),
	)
}

func embedTitle(alert notifier.Alert) string {
	if alert.Priority == notifier.PriorityCritical {
		return "🚨 Critical Trading Alert"
	}
	return "⚠️ Trading Alert"
}

func embedColor(alert notifier.Alert) int {
	switch {
	case alert.Priority == notifier.PriorityCritical, alert.Type == notifier.TypeDanger:
		return 0xE74C3C // red
	case alert.Type == notifier.TypeSignal:
		return 0x3498DB // blue
	default:
		return 0xF39C12 // amber
	}
}

// Close shuts down the Discord session.
func (dc *DiscordClient) Close() error {
	if dc.session == nil {
		return nil
	}
	return dc.session.Close()
}
