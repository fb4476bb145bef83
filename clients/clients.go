package clients

import (
	"botwatch/clients/botstream"
	"botwatch/clients/discord"
	"botwatch/clients/notifier"
	"botwatch/clients/telegram"
	"botwatch/config"

	"go.uber.org/zap"
)

type Clients struct {
	Logger *zap.Logger

	Stream   *botstream.Client
	Telegram *telegram.TelegramClient
	Discord  *discord.DiscordClient
	Sound    *notifier.SoundNotifier
	Notifier notifier.Notifier // Combined notifier for all channels
}

// NewClients wires the stream client and every alert channel. soundEnabled is
// consulted per alert so the preference toggle applies without restart.
func NewClients(logger *zap.Logger, cfg *config.Config, soundEnabled func() bool) *Clients {
	if logger == nil {
		logger = zap.NewNop()
	}

	telegramClient := telegram.NewTelegramClient(logger, cfg)
	discordClient := discord.NewDiscordClient(logger, cfg)

	var player notifier.Player
	if p, err := notifier.NewBeepPlayer(logger); err != nil {
		// Headless hosts have no audio device; alerts still display.
		logger.Warn("audio device unavailable, alert sounds disabled", zap.Error(err))
	} else {
		player = p
	}
	soundNotifier := notifier.NewSoundNotifier(logger, player, soundEnabled)

	streamCfg := botstream.Config{
		URL:                cfg.Stream.URL,
		HeartbeatInterval:  cfg.Stream.HeartbeatInterval,
		ConnectTimeout:     cfg.Stream.ConnectTimeout,
		ReconnectBaseDelay: cfg.Stream.ReconnectBaseDelay,
		ReconnectMaxDelay:  cfg.Stream.ReconnectMaxDelay,
	}

	return &Clients{
		Logger:   logger,
		Stream:   botstream.NewClient(logger, streamCfg),
		Telegram: telegramClient,
		Discord:  discordClient,
		Sound:    soundNotifier,
		Notifier: notifier.NewMultiNotifier(soundNotifier, telegramClient, discordClient),
	}
}
