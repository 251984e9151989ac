package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// isSubscribed reports channel membership. Fail-open on purpose: any
// failure of the membership call is logged and counts as "not
// subscribed", and callers only ever use the result to nudge — never to
// block the action the user asked for.
func (b *Bot) isSubscribed(userID int64) bool {
	member, err := b.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			SuperGroupUsername: b.channel,
			UserID:             userID,
		},
	})
	if err != nil {
		zap.L().Error("Subscription check failed", zap.Int64("userID", userID), zap.Error(err))
		return false
	}

	switch member.Status {
	case "creator", "administrator", "member":
		return true
	}

	return false
}

func (b *Bot) nudgeSubscription(chatID, userID int64) {
	if b.isSubscribed(userID) {
		return
	}

	b.reply(chatID, fmt.Sprintf(msgSubscribe, b.channel))
}
