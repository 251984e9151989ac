// Package bot wires inbound Telegram updates to the exchange registry
package bot

import (
	"strings"
	"time"

	"keydrop/exchange-bot/config"
	"keydrop/exchange-bot/model"
	"keydrop/exchange-bot/ratelimit"
	"keydrop/exchange-bot/registry"
	"keydrop/exchange-bot/session"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TelegramAPI is the slice of *tgbotapi.BotAPI the handlers actually
// use, so tests can swap in a recorder.
type TelegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFile(cfg tgbotapi.FileConfig) (tgbotapi.File, error)
	GetChatMember(cfg tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

type Bot struct {
	api TelegramAPI

	// Raw bot token, needed to build durable file URLs
	token string

	channel  string
	admins   map[int64]struct{}
	registry *registry.Registry
	stats    *registry.Analytics
	limiter  *ratelimit.Limiter
	sessions *session.Store
	topN     int
	window   time.Duration
	cooldown time.Duration
	now      func() time.Time
}

func New(api *tgbotapi.BotAPI, db *gorm.DB) *Bot {
	admins := make(map[int64]struct{})
	for _, id := range config.AdminIDs() {
		admins[id] = struct{}{}
	}

	return &Bot{
		api:      api,
		token:    api.Token,
		channel:  viper.GetString("bot.channel"),
		admins:   admins,
		registry: registry.New(db),
		stats:    registry.NewAnalytics(db),
		limiter:  ratelimit.New(config.Cooldown()),
		sessions: session.NewStore(),
		topN:     viper.GetInt("admin.top_n"),
		window:   config.ExportWindow(),
		cooldown: config.Cooldown(),
		now:      time.Now,
	}
}

// Poll consumes updates until the channel closes. Telegram already
// serializes updates per chat, so a single consumer goroutine keeps
// each user's messages in arrival order.
func (b *Bot) Poll(api *tgbotapi.BotAPI) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	for update := range api.GetUpdatesChan(u) {
		b.HandleUpdate(update)
	}
}

// HandleUpdate routes one inbound update.
func (b *Bot) HandleUpdate(u tgbotapi.Update) {
	msg := u.Message
	if msg == nil || msg.From == nil {
		return
	}

	// A pending two-step command consumes the next message no matter
	// what it contains, media included. A photo sent mid-step is the
	// step's answer, not an upload
	switch b.sessions.Take(msg.From.ID) {
	case session.AwaitingUserDeleteToken:
		b.processOwnedDelete(msg)
		return
	case session.AwaitingStatsToken:
		b.processTokenStats(msg)
		return
	case session.AwaitingDeleteTokens:
		b.processBulkDelete(msg)
		return
	}

	switch {
	case msg.Document != nil:
		b.handleUpload(msg, msg.Document.FileID, model.KindDocument)
	case len(msg.Photo) > 0:
		// Telegram sends every resolution of a compressed photo, the
		// last entry is the largest
		b.handleUpload(msg, msg.Photo[len(msg.Photo)-1].FileID, model.KindPhoto)
	case msg.Video != nil:
		b.handleUpload(msg, msg.Video.FileID, model.KindVideo)
	case msg.Text != "":
		b.handleText(msg)
	}
}

func (b *Bot) handleText(msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)

	switch text {
	case "/start":
		b.handleStart(msg)
	case btnListTokens:
		b.handleListTokens(msg)
	case btnDeleteToken:
		b.handleBeginOwnedDelete(msg)
	case btnChannel:
		b.handleChannelInfo(msg)
	case "/user_count":
		b.admin(msg, b.handleUserCount)
	case "/token_stats":
		b.admin(msg, b.handleBeginTokenStats)
	case "/delete_tokens":
		b.admin(msg, b.handleBeginBulkDelete)
	case "/tokens_last24h":
		b.admin(msg, b.handleExportRecent)
	default:
		if strings.HasPrefix(text, "/top_tokens") {
			b.admin(msg, b.handleTopTokens)
			return
		}

		b.handleLookup(msg, text)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	_, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		zap.L().Error("Failed to send message", zap.Int64("chatID", chatID), zap.Error(err))
	}
}

func (b *Bot) replyMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	_, err := b.api.Send(msg)
	if err != nil {
		zap.L().Error("Failed to send message", zap.Int64("chatID", chatID), zap.Error(err))
	}
}
