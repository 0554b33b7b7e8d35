package filters

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
)

func message(chatID int64, chatType string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From: &tgbotapi.User{ID: 1},
		Chat: &tgbotapi.Chat{ID: chatID, Type: chatType},
	}
}

func TestChatFilterGroupsOnly(t *testing.T) {
	f := NewChatFilter(nil)

	assert.True(t, f.CheckAccess(message(-1, "group")))
	assert.True(t, f.CheckAccess(message(-100, "supergroup")))
	assert.False(t, f.CheckAccess(message(5, "private")))
	assert.False(t, f.CheckAccess(message(-200, "channel")))
	assert.False(t, f.CheckAccess(nil))

	noSender := message(-1, "group")
	noSender.From = nil
	assert.False(t, f.CheckAccess(noSender))
}

func TestChatFilterAllowList(t *testing.T) {
	f := NewChatFilter(func(chatID int64) bool { return chatID == -100 })

	assert.True(t, f.CheckAccess(message(-100, "supergroup")))
	assert.False(t, f.CheckAccess(message(-101, "supergroup")))
}
