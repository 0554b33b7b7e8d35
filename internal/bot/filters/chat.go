// Package filters решает, какие сообщения доходят до обработчиков.
package filters

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// ChatFilter пропускает только сообщения людей из групповых чатов.
// Если список разрешённых чатов не пуст, пропускаются только они.
type ChatFilter struct {
	allowed func(chatID int64) bool
}

// NewChatFilter создаёт фильтр. allowed == nil — разрешены все группы.
func NewChatFilter(allowed func(chatID int64) bool) *ChatFilter {
	if allowed == nil {
		allowed = func(int64) bool { return true }
	}
	return &ChatFilter{allowed: allowed}
}

func (f *ChatFilter) CheckAccess(message *tgbotapi.Message) bool {
	if message == nil || message.Chat == nil {
		log.WithField("component", "ChatFilter").Warn("nil message/chat")
		return false
	}

	logger := log.WithFields(log.Fields{
		"component": "ChatFilter",
		"chat_id":   message.Chat.ID,
		"chat_type": message.Chat.Type,
	})

	if message.From == nil {
		logger.Debug("deny: nil message.From (service/channel message?)")
		return false
	}

	// 1) Только группы: в личке и каналах уважать некого
	if !message.Chat.IsGroup() && !message.Chat.IsSuperGroup() {
		logger.Debug("deny: not a group chat")
		return false
	}

	// 2) Список разрешённых чатов
	if !f.allowed(message.Chat.ID) {
		logger.Info("deny: chat is not in ALLOWED_CHAT_IDS")
		return false
	}

	return true
}
