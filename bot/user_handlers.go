package bot

import (
	"errors"
	"fmt"
	"strings"

	"keydrop/exchange-bot/model"
	"keydrop/exchange-bot/registry"
	"keydrop/exchange-bot/session"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Tokens per listing message, mirrors the export row size
const listChunkSize = 10

func (b *Bot) handleStart(msg *tgbotapi.Message) {
	err := b.registry.EnsureUser(msg.From.ID, msg.Time())
	if err != nil {
		zap.L().Error("Failed to record user", zap.Int64("userID", msg.From.ID), zap.Error(err))
	}

	greeting := tgbotapi.NewMessage(msg.Chat.ID, msgGreeting)
	greeting.ReplyMarkup = tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnListTokens),
			tgbotapi.NewKeyboardButton(btnDeleteToken),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnChannel),
		),
	)

	if _, err := b.api.Send(greeting); err != nil {
		zap.L().Error("Failed to send greeting", zap.Int64("chatID", msg.Chat.ID), zap.Error(err))
	}

	if b.isAdmin(msg.From.ID) {
		b.reply(msg.Chat.ID, msgAdminGreeting)
	}
}

func (b *Bot) handleChannelInfo(msg *tgbotapi.Message) {
	b.reply(msg.Chat.ID, fmt.Sprintf(msgChannelInfo, b.channel))
}

func (b *Bot) handleListTokens(msg *tgbotapi.Message) {
	if !b.limiter.Allow(msg.From.ID, b.now()) {
		b.reply(msg.Chat.ID, fmt.Sprintf(msgRateLimited, int(b.cooldown.Seconds())))
		return
	}

	tokens, err := b.registry.ListByOwner(msg.From.ID)
	if err != nil {
		zap.L().Error("Failed to list tokens", zap.Int64("userID", msg.From.ID), zap.Error(err))
		b.reply(msg.Chat.ID, msgInternalErr)
		return
	}

	if len(tokens) == 0 {
		b.reply(msg.Chat.ID, msgNoTokens)
		return
	}

	lines := make([]string, 0, len(tokens))
	for _, t := range tokens {
		lines = append(lines, fmt.Sprintf(msgTokenLine, t.Token, t.Views))
	}

	for i := 0; i < len(lines); i += listChunkSize {
		chunk := lines[i:min(i+listChunkSize, len(lines))]
		b.replyMarkdown(msg.Chat.ID, strings.Join(chunk, "\n"))
	}
}

func (b *Bot) handleBeginOwnedDelete(msg *tgbotapi.Message) {
	b.sessions.Begin(msg.From.ID, session.AwaitingUserDeleteToken)
	b.reply(msg.Chat.ID, msgDeletePrompt)
}

func (b *Bot) processOwnedDelete(msg *tgbotapi.Message) {
	token := strings.TrimSpace(msg.Text)

	deleted, err := b.registry.DeleteOwned(token, msg.From.ID)
	if err != nil {
		zap.L().Error("Failed to delete token", zap.Int64("userID", msg.From.ID), zap.Error(err))
		b.reply(msg.Chat.ID, msgInternalErr)
		return
	}

	if !deleted {
		b.reply(msg.Chat.ID, msgDeleteMissed)
		return
	}

	b.reply(msg.Chat.ID, fmt.Sprintf(msgDeleted, token))
}

func (b *Bot) handleUpload(msg *tgbotapi.Message, fileID string, kind model.MediaKind) {
	b.nudgeSubscription(msg.Chat.ID, msg.From.ID)

	f, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		zap.L().Error("Failed to resolve uploaded file", zap.Int64("userID", msg.From.ID), zap.Error(err))
		b.reply(msg.Chat.ID, msgInternalErr)
		return
	}

	rec, err := b.registry.Create(msg.From.ID, fileID, f.Link(b.token), kind, b.now())
	if err != nil {
		if errors.Is(err, registry.ErrTokenSpaceExhausted) {
			zap.L().Error("Token space exhausted, check the random source", zap.Error(err))
		} else {
			zap.L().Error("Failed to store file record", zap.Int64("userID", msg.From.ID), zap.Error(err))
		}

		b.reply(msg.Chat.ID, msgInternalErr)
		return
	}

	b.replyMarkdown(msg.Chat.ID, fmt.Sprintf(savedMessage(kind), rec.Token))
}

func savedMessage(kind model.MediaKind) string {
	switch kind {
	case model.KindPhoto:
		return msgPhotoSaved
	case model.KindVideo:
		return msgVideoSaved
	default:
		return msgDocSaved
	}
}

func (b *Bot) handleLookup(msg *tgbotapi.Message, token string) {
	rec, err := b.registry.Lookup(token)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			b.reply(msg.Chat.ID, msgTokenNotFound)
			return
		}

		zap.L().Error("Failed to lookup token", zap.Error(err))
		b.reply(msg.Chat.ID, msgInternalErr)
		return
	}

	b.nudgeSubscription(msg.Chat.ID, msg.From.ID)

	// Owners resolving their own token don't count as viewers. A failed
	// registration is logged but never stops the delivery
	if msg.From.ID != rec.OwnerID {
		err = b.registry.RegisterViewer(rec.Token, msg.From.ID)
		if err != nil {
			zap.L().Error("Failed to register viewer", zap.String("token", rec.Token), zap.Error(err))
		}
	}

	b.deliver(msg.Chat.ID, rec)
}

// deliver sends the stored file by its Telegram reference. When the
// reference has gone stale the durable URL recorded at upload time is
// sent instead, with a notice.
func (b *Bot) deliver(chatID int64, f *model.File) {
	var media tgbotapi.Chattable

	switch f.Kind {
	case model.KindPhoto:
		media = tgbotapi.NewPhoto(chatID, tgbotapi.FileID(f.FileID))
	case model.KindVideo:
		media = tgbotapi.NewVideo(chatID, tgbotapi.FileID(f.FileID))
	default:
		media = tgbotapi.NewDocument(chatID, tgbotapi.FileID(f.FileID))
	}

	_, err := b.api.Send(media)
	if err != nil {
		zap.L().Error("Failed to send file by file_id", zap.String("token", f.Token), zap.Error(err))
		b.reply(chatID, msgStaleFile)
		b.reply(chatID, f.FileURL)
	}
}
