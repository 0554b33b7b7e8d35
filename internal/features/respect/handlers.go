// Package respect — handlers.go превращает ответы интерпретатора в сообщения Telegram.
// Все фразы живут здесь; Service про текст ничего не знает.
package respect

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/respect-bot/internal/common"
)

const (
	filledSegment = "█"
	emptySegment  = "░"
)

// Sender отправляет сообщения в Telegram (реализуется *tgbotapi.BotAPI).
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Message — готовое к отправке сообщение.
type Message struct {
	Text           string
	ParseMode      string // "" — обычный текст
	DisablePreview bool
}

// Handler обрабатывает команды уважения и отправляет ответы.
type Handler struct {
	service *Service
	bot     Sender
}

// NewHandler создаёт обработчик уважения.
func NewHandler(service *Service, bot Sender) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleMessage обрабатывает сообщение и отвечает на него (replyTo — ID исходного сообщения).
// Возвращает ответы и ошибку интерпретатора — для логов и метрик вызывающего.
func (h *Handler) HandleMessage(ctx context.Context, ev Event, replyTo int) ([]Response, error) {
	responses, err := h.service.Handle(ctx, ev)
	if err != nil {
		logger := log.WithError(err).WithFields(log.Fields{
			"chat_id": ev.ChatID,
			"user_id": ev.ActorID,
		})
		switch {
		case errors.Is(err, common.ErrInvalidEvent):
			logger.Warn("Некорректное событие")
		case ParseCommand(ev.Text) != CommandNone:
			logger.Error("Ошибка выполнения команды уважения")
			h.send(ev.ChatID, replyTo, Message{Text: "❌ Не удалось выполнить команду, попробуйте позже."})
		default:
			logger.Error("Ошибка регистрации участника")
		}
		return nil, err
	}

	for _, resp := range responses {
		h.send(ev.ChatID, replyTo, Render(resp))
	}
	return responses, nil
}

// Register запоминает автора без выполнения команды (команда отброшена лимитом).
func (h *Handler) Register(ctx context.Context, ev Event) error {
	if err := h.service.Register(ctx, ev); err != nil {
		log.WithError(err).WithField("chat_id", ev.ChatID).Warn("Не удалось зарегистрировать участника")
		return err
	}
	return nil
}

// Render собирает текст ответа.
func Render(resp Response) Message {
	switch resp.Kind {
	case KindMentionAll:
		mentions := make([]string, 0, len(resp.Mentions))
		for _, m := range resp.Mentions {
			mentions = append(mentions, MentionLink(m))
		}
		return Message{
			Text:           "🔔 Призыв всем участникам:\n" + strings.Join(mentions, " "),
			ParseMode:      tgbotapi.ModeMarkdown,
			DisablePreview: true,
		}
	case KindNobodyToMention:
		return Message{Text: "В группе пока некому отправить упоминание."}
	case KindBonusClaimed:
		return Message{
			Text: fmt.Sprintf("🎁 %s, вы забрали ежедневный бонус уважения!\n%s",
				escape(resp.Subject.Name), Scale(resp.Standing)),
			ParseMode: tgbotapi.ModeMarkdown,
		}
	case KindBonusCooldown:
		return Message{
			Text: fmt.Sprintf("⏳ %s, бонус уже был получен сегодня. Попробуйте позже.\n%s",
				escape(resp.Subject.Name), Scale(resp.Standing)),
			ParseMode: tgbotapi.ModeMarkdown,
		}
	case KindRespectGiven:
		return Message{
			Text:      fmt.Sprintf("✅ Уважение оказано: %s\n%s", escape(resp.Subject.Name), Scale(resp.Standing)),
			ParseMode: tgbotapi.ModeMarkdown,
		}
	case KindRespectTaken:
		return Message{
			Text:      fmt.Sprintf("➖ Уважение уменьшено: %s\n%s", escape(resp.Subject.Name), Scale(resp.Standing)),
			ParseMode: tgbotapi.ModeMarkdown,
		}
	case KindSelfTarget:
		return Message{Text: "Нельзя изменять уважение самому себе."}
	case KindReplyRequired:
		return Message{Text: "Эту команду нужно отправлять ответом на сообщение пользователя."}
	case KindLevelUp:
		return Message{Text: fmt.Sprintf("🏆 %s достиг %d уровня уважения!", resp.Subject.Name, resp.Level)}
	}
	return Message{}
}

// Scale рисует счёт, шкалу из 10 делений и уровень (Markdown).
//
// Пример для счёта 13:
//
//	`13`
//	`[██░░░░░░░░]`
//	Уровень: *2*
func Scale(s Standing) string {
	return fmt.Sprintf("`%d`\n`[%s%s]`\nУровень: *%d*",
		s.Score,
		strings.Repeat(filledSegment, s.Filled),
		strings.Repeat(emptySegment, s.Empty),
		s.Level,
	)
}

// MentionLink — кликабельное упоминание участника (Markdown).
// Внутри текста ссылки Telegram не понимает экранирование \, поэтому
// квадратные скобки заменяются круглыми, а остальное идёт как есть.
func MentionLink(m Mention) string {
	name := linkTextReplacer.Replace(m.DisplayName)
	if name == "" {
		name = strconv.FormatInt(m.MemberID, 10)
	}
	return fmt.Sprintf("[%s](tg://user?id=%d)", name, m.MemberID)
}

var linkTextReplacer = strings.NewReplacer("[", "(", "]", ")")

func escape(text string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, text)
}

func (h *Handler) send(chatID int64, replyTo int, m Message) {
	if m.Text == "" {
		return
	}
	msg := tgbotapi.NewMessage(chatID, m.Text)
	msg.ParseMode = m.ParseMode
	msg.DisableWebPagePreview = m.DisablePreview
	msg.ReplyToMessageID = replyTo
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
