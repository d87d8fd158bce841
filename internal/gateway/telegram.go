package gateway

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/rahul/aiops/internal/agent"
	"github.com/rahul/aiops/internal/observability"
)

// botAPI is the subset of *tgbotapi.BotAPI the gateway uses.
type botAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	StopReceivingUpdates()
}

// TelegramGateway runs every incoming chat message as a task and replies
// with the verified result.
type TelegramGateway struct {
	Bot            botAPI
	Runner         Runner
	Logger         *zap.Logger
	RequestTimeout time.Duration
}

func NewTelegramGateway(token string, runner Runner, logger *zap.Logger, timeout time.Duration) (*TelegramGateway, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	logger.Info("telegram authorized", zap.String("account", bot.Self.UserName))

	return &TelegramGateway{
		Bot:            bot,
		Runner:         runner,
		Logger:         logger,
		RequestTimeout: timeout,
	}, nil
}

// Start handles updates one at a time until ctx is done.
func (tg *TelegramGateway) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := tg.Bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || strings.TrimSpace(update.Message.Text) == "" {
				continue
			}
			tg.handle(ctx, update.Message)
		}
	}
}

func (tg *TelegramGateway) handle(ctx context.Context, m *tgbotapi.Message) {
	var user string
	if m.From != nil {
		user = m.From.UserName
	}
	tg.Logger.Info("telegram message",
		zap.String("user", user),
		zap.Int64("chat_id", m.Chat.ID),
		zap.String("text", m.Text))

	ctx = observability.WithTaskID(ctx, fmt.Sprintf("tg-%d-%d", m.Chat.ID, m.MessageID))
	if tg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, tg.RequestTimeout)
		defer cancel()
	}

	result := tg.Runner.Run(ctx, m.Text)

	msg := tgbotapi.NewMessage(m.Chat.ID, FormatReply(result))
	msg.ReplyToMessageID = m.MessageID
	if _, err := tg.Bot.Send(msg); err != nil {
		tg.Logger.Warn("telegram reply failed", zap.Int64("chat_id", m.Chat.ID), zap.Error(err))
	}
}

func (tg *TelegramGateway) Send(chatID string, text string) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil || id == 0 {
		return fmt.Errorf("invalid chat ID: %s", chatID)
	}

	_, err = tg.Bot.Send(tgbotapi.NewMessage(id, text))
	return err
}

func (tg *TelegramGateway) Stop() error {
	tg.Bot.StopReceivingUpdates()
	return nil
}

// FormatReply renders a result as plain chat text.
func FormatReply(r agent.CombinedResult) string {
	if r.Failed() {
		return "Sorry, I could not complete that task: " + r.Error
	}

	var b strings.Builder
	if r.Verification != nil {
		b.WriteString(r.Verification.Result)
	}

	var failed int
	for _, s := range r.Execution {
		if s.Status == agent.StatusFailed {
			failed++
		}
	}
	if failed > 0 {
		fmt.Fprintf(&b, "\n\n%d of %d steps failed.", failed, len(r.Execution))
	}

	if r.Verification != nil && len(r.Verification.Sources) > 0 {
		b.WriteString("\n\nSources: ")
		b.WriteString(strings.Join(r.Verification.Sources, ", "))
	}
	return b.String()
}
