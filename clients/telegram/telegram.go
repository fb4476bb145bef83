package telegram

import (
	"botwatch/clients/notifier"
	"botwatch/config"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const telegramAPIURL = "https://api.telegram.org/bot%s/%s"

// TelegramClient pushes high and critical alerts to Telegram.
// Implements notifier.Notifier interface.
type TelegramClient struct {
	logger   *zap.Logger
	botToken string
	chatID   string
	isProd   bool
	client   *http.Client
}

func NewTelegramClient(logger *zap.Logger, cfg *config.Config) *TelegramClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	chatID := cfg.Telegram.BetaChatID
	if cfg.IsProd {
		chatID = cfg.Telegram.ProdChatID
	}

	token := cfg.Telegram.BotToken
	if token == "" {
		logger.Warn("TELEGRAM_BOT_KEY not set, Telegram alerts disabled")
		return &TelegramClient{
			logger: logger,
			chatID: chatID,
			isProd: cfg.IsProd,
		}
	}

	logger.Info("telegram bot initialized",
		zap.Bool("isProd", cfg.IsProd),
		zap.String("chatID", chatID),
	)

	return &TelegramClient{
		logger:   logger,
		botToken: token,
		chatID:   chatID,
		isProd:   cfg.IsProd,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify pushes the alert to the configured chat. Only high and critical
// priorities are forwarded; everything else stays local to the dashboard.
func (tc *TelegramClient) Notify(alert notifier.Alert) {
	if alert.Priority != notifier.PriorityHigh && alert.Priority != notifier.PriorityCritical {
		return
	}
	if tc.botToken == "" || tc.chatID == "" {
		return
	}

	if err := tc.sendMessage(buildAlertMessage(alert)); err != nil {
		tc.logger.Error("failed to send telegram message", zap.Error(err))
		return
	}

	tc.logger.Info("sent telegram alert",
		zap.String("type", alert.Type),
		zap.String("priority", string(alert.Priority)),
	)
}

func buildAlertMessage(alert notifier.Alert) string {
	var sb strings.Builder

	header := "Trading Alert"
	if alert.Priority == notifier.PriorityCritical {
		header = "CRITICAL Trading Alert"
	}
	sb.WriteString(fmt.Sprintf("*%s*\n\n", escapeMarkdown(header)))
	sb.WriteString(escapeMarkdown(alert.Message))
	sb.WriteString(fmt.Sprintf("\n\n_%s / %s_\n", escapeMarkdown(alert.Type), escapeMarkdown(string(alert.Priority))))
	sb.WriteString(fmt.Sprintf("Time: %s", alert.Timestamp.UTC().Format("2006-01-02 15:04:05")))

	return sb.String()
}

func (tc *TelegramClient) sendMessage(text string) error {
	url := fmt.Sprintf(telegramAPIURL, tc.botToken, "sendMessage")

	payload := map[string]any{
		"chat_id":    tc.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	resp, err := tc.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram api returned status %d", resp.StatusCode)
	}
	return nil
}

// Close implements notifier.Notifier. Nothing to clean up.
func (tc *TelegramClient) Close() error {
	return nil
}

func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"`", "\\`",
	)
	return replacer.Replace(s)
}
