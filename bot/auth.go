package bot

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// isAdmin checks the fixed administrator set loaded at startup.
func (b *Bot) isAdmin(userID int64) bool {
	_, ok := b.admins[userID]
	return ok
}

// admin runs h only for administrators. Everyone else gets told they
// have no permission and nothing happens.
func (b *Bot) admin(msg *tgbotapi.Message, h func(*tgbotapi.Message)) {
	if !b.isAdmin(msg.From.ID) {
		b.reply(msg.Chat.ID, msgNoPermission)
		return
	}

	h(msg)
}
