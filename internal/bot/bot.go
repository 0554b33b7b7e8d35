// Package bot содержит главный модуль бота — polling, фильтры и маршрутизацию.
// bot.go получает апдейты от Telegram и передаёт сообщения в ledger уважения.
package bot

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/respect-bot/internal/bot/filters"
	"serotonyl.ru/respect-bot/internal/bot/middleware"
	"serotonyl.ru/respect-bot/internal/config"
	"serotonyl.ru/respect-bot/internal/features/respect"
	"serotonyl.ru/respect-bot/internal/metrics"
)

// MessageHandler — обработчик сообщений чата (реализуется *respect.Handler).
type MessageHandler interface {
	HandleMessage(ctx context.Context, ev respect.Event, replyTo int) ([]respect.Response, error)
	Register(ctx context.Context, ev respect.Event) error
}

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	api *tgbotapi.BotAPI
	cfg *config.Config

	chatFilter *filters.ChatFilter
	limiter    middleware.Limiter
	handler    MessageHandler
	metrics    *metrics.Metrics

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
	wg       sync.WaitGroup
}

// New создаёт новый экземпляр бота со всеми зависимостями.
func New(
	api *tgbotapi.BotAPI,
	cfg *config.Config,
	handler MessageHandler,
	chatFilter *filters.ChatFilter,
	limiter middleware.Limiter,
	m *metrics.Metrics,
) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	return &Bot{
		api:        api,
		cfg:        cfg,
		chatFilter: chatFilter,
		limiter:    limiter,
		handler:    handler,
		metrics:    m,
		inflight:   make(chan struct{}, maxInFlight),
	}
}

// Start запускает polling обновлений от Telegram.
// Возвращается после отмены ctx, дождавшись обработки уже принятых апдейтов.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.BotUpdateTimeoutSeconds
	u.AllowedUpdates = []string{"message"}

	updates := b.api.GetUpdatesChan(u)

	log.WithFields(log.Fields{
		"max_inflight": cap(b.inflight),
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	defer b.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			b.api.StopReceivingUpdates()
			return

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				return
			}

			// лимит параллелизма
			if !b.acquire(ctx) {
				log.Info("Бот останавливается, необработанные апдейты отброшены")
				b.api.StopReceivingUpdates()
				return
			}
			b.wg.Add(1)
			go func(upd tgbotapi.Update) {
				defer func() {
					<-b.inflight
					b.wg.Done()
				}()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// acquire занимает слот обработки. false — контекст отменён раньше,
// чем освободился слот.
func (b *Bot) acquire(ctx context.Context) bool {
	select {
	case b.inflight <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer middleware.RecoverFromPanic(update.UpdateID, func(any) { b.metrics.Panic() })

	message := update.Message
	if message == nil {
		return
	}

	middleware.LogMessage(message)

	// Только группы (и ALLOWED_CHAT_IDS, если задан)
	if !b.chatFilter.CheckAccess(message) {
		return
	}

	b.dispatch(ctx, EventFromMessage(message), message.MessageID)
}

// dispatch применяет лимит к командам и передаёт событие обработчику.
// Обычные сообщения лимитом не режутся: они только регистрируют автора.
func (b *Bot) dispatch(ctx context.Context, ev respect.Event, messageID int) {
	cmd := respect.ParseCommand(ev.Text)

	if cmd != respect.CommandNone && !b.limiter.Allow(ctx, ev.ActorID) {
		log.WithFields(log.Fields{
			"user_id": ev.ActorID,
			"command": cmd.String(),
		}).Debug("rate limited")
		b.metrics.Throttled()
		if err := b.handler.Register(ctx, ev); err != nil {
			b.metrics.Error()
		}
		return
	}

	start := time.Now()
	responses, err := b.handler.HandleMessage(ctx, ev, messageID)
	if cmd == respect.CommandNone {
		if err != nil {
			b.metrics.Error()
		}
		return
	}

	kinds := make([]string, 0, len(responses))
	for _, r := range responses {
		kinds = append(kinds, r.Kind.String())
	}
	b.metrics.ObserveCommand(cmd.String(), time.Since(start), kinds, err)
}

// EventFromMessage переводит сообщение Telegram в событие ledger.
func EventFromMessage(message *tgbotapi.Message) respect.Event {
	ev := respect.Event{
		Text: message.Text,
	}
	if message.Chat != nil {
		ev.ChatID = message.Chat.ID
	}
	if message.From != nil {
		ev.ActorID = message.From.ID
		ev.ActorName = DisplayName(message.From)
	}
	if reply := message.ReplyToMessage; reply != nil && reply.From != nil {
		ev.ReplyTo = &respect.Participant{
			ID:   reply.From.ID,
			Name: DisplayName(reply.From),
		}
	}
	return ev
}

// DisplayName — @username, иначе имя и фамилия, иначе числовой ID.
func DisplayName(user *tgbotapi.User) string {
	if user.UserName != "" {
		return "@" + user.UserName
	}
	if name := strings.TrimSpace(user.FirstName + " " + user.LastName); name != "" {
		return name
	}
	return strconv.FormatInt(user.ID, 10)
}
