package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"keydrop/exchange-bot/registry"
	"keydrop/exchange-bot/session"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func (b *Bot) handleUserCount(msg *tgbotapi.Message) {
	n, err := b.stats.UserCount()
	if err != nil {
		zap.L().Error("Failed to count users", zap.Error(err))
		b.reply(msg.Chat.ID, msgInternalErr)
		return
	}

	b.reply(msg.Chat.ID, fmt.Sprintf(msgUserCount, n))
}

func (b *Bot) handleTopTokens(msg *tgbotapi.Message) {
	n := b.topN

	// A non-numeric argument falls back to the default, same as no
	// argument at all
	parts := strings.Fields(msg.Text)
	if len(parts) > 1 {
		if parsed, err := strconv.Atoi(parts[1]); err == nil {
			if parsed <= 0 {
				b.reply(msg.Chat.ID, msgTopUsage)
				return
			}

			n = parsed
		}
	}

	top, err := b.stats.TopTokensByViews(n)
	if err != nil {
		zap.L().Error("Failed to aggregate top tokens", zap.Error(err))
		b.reply(msg.Chat.ID, msgInternalErr)
		return
	}

	if len(top) == 0 {
		b.reply(msg.Chat.ID, msgTopEmpty)
		return
	}

	var sb strings.Builder
	sb.WriteString(msgTopHeader)
	for _, t := range top {
		sb.WriteString(fmt.Sprintf(msgTopLine, t.Token, t.Views))
	}

	b.replyMarkdown(msg.Chat.ID, sb.String())
}

func (b *Bot) handleBeginTokenStats(msg *tgbotapi.Message) {
	b.sessions.Begin(msg.From.ID, session.AwaitingStatsToken)
	b.reply(msg.Chat.ID, msgStatsPrompt)
}

func (b *Bot) processTokenStats(msg *tgbotapi.Message) {
	token := strings.TrimSpace(msg.Text)

	n, err := b.stats.TokenViewCount(token)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			b.reply(msg.Chat.ID, msgStatsNotFound)
			return
		}

		zap.L().Error("Failed to count viewers", zap.Error(err))
		b.reply(msg.Chat.ID, msgInternalErr)
		return
	}

	b.replyMarkdown(msg.Chat.ID, fmt.Sprintf(msgStatsResult, token, n))
}

func (b *Bot) handleBeginBulkDelete(msg *tgbotapi.Message) {
	b.sessions.Begin(msg.From.ID, session.AwaitingDeleteTokens)
	b.reply(msg.Chat.ID, msgBulkPrompt)
}

func (b *Bot) processBulkDelete(msg *tgbotapi.Message) {
	tokens := strings.Fields(msg.Text)
	if len(tokens) == 0 {
		b.reply(msg.Chat.ID, msgBulkEmpty)
		return
	}

	n, err := b.registry.DeleteMany(tokens)
	if err != nil {
		zap.L().Error("Failed to bulk delete tokens", zap.Error(err))
		b.reply(msg.Chat.ID, msgInternalErr)
		return
	}

	if n == 0 {
		b.reply(msg.Chat.ID, msgBulkNoneFound)
		return
	}

	b.reply(msg.Chat.ID, fmt.Sprintf(msgBulkDeleted, n))
}

// handleExportRecent sends every token uploaded inside the configured
// window as a text document, ten tokens per row. The artifact only
// exists in memory and is gone once sent.
func (b *Bot) handleExportRecent(msg *tgbotapi.Message) {
	tokens, err := b.registry.ListUploadedSince(b.now().Add(-b.window))
	if err != nil {
		zap.L().Error("Failed to collect recent tokens", zap.Error(err))
		b.reply(msg.Chat.ID, msgInternalErr)
		return
	}

	if len(tokens) == 0 {
		b.reply(msg.Chat.ID, msgExportEmpty)
		return
	}

	doc := tgbotapi.NewDocument(msg.Chat.ID, tgbotapi.FileBytes{
		Name:  exportDocumentName,
		Bytes: []byte(registry.FormatTokenRows(tokens)),
	})

	_, err = b.api.Send(doc)
	if err != nil {
		zap.L().Error("Failed to send export document", zap.Error(err))
		b.reply(msg.Chat.ID, msgInternalErr)
	}
}
