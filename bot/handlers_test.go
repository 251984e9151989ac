package bot

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"keydrop/exchange-bot/model"
	"keydrop/exchange-bot/ratelimit"
	"keydrop/exchange-bot/registry"
	"keydrop/exchange-bot/session"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	adminID int64 = 99
	userID  int64 = 7
)

var baseTime = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

// fakeAPI records every chattable instead of talking to Telegram.
type fakeAPI struct {
	sent      []tgbotapi.Chattable
	mediaErr  error
	fileErr   error
	memberErr error
	status    string
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)

	if _, isText := c.(tgbotapi.MessageConfig); !isText && f.mediaErr != nil {
		return tgbotapi.Message{}, f.mediaErr
	}

	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) GetFile(cfg tgbotapi.FileConfig) (tgbotapi.File, error) {
	if f.fileErr != nil {
		return tgbotapi.File{}, f.fileErr
	}

	return tgbotapi.File{FileID: cfg.FileID, FilePath: "documents/" + cfg.FileID}, nil
}

func (f *fakeAPI) GetChatMember(cfg tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	if f.memberErr != nil {
		return tgbotapi.ChatMember{}, f.memberErr
	}

	return tgbotapi.ChatMember{Status: f.status}, nil
}

// texts returns every plain message text sent so far.
func (f *fakeAPI) texts() []string {
	var out []string
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m.Text)
		}
	}

	return out
}

func (f *fakeAPI) lastText(t *testing.T) string {
	t.Helper()

	texts := f.texts()
	if len(texts) == 0 {
		t.Fatal("no messages were sent")
	}

	return texts[len(texts)-1]
}

func newTestBot(t *testing.T) (*Bot, *fakeAPI, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(model.User{}, model.File{}, model.FileViewer{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	f := &fakeAPI{status: "member"}

	b := &Bot{
		api:      f,
		token:    "TESTTOKEN",
		channel:  "@testchannel",
		admins:   map[int64]struct{}{adminID: {}},
		registry: registry.New(db),
		stats:    registry.NewAnalytics(db),
		limiter:  ratelimit.New(120 * time.Second),
		sessions: session.NewStore(),
		topN:     10,
		window:   24 * time.Hour,
		cooldown: 120 * time.Second,
		now:      func() time.Time { return baseTime },
	}

	return b, f, db
}

func textUpdate(from int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: from},
		Chat: &tgbotapi.Chat{ID: from},
		Date: int(baseTime.Unix()),
		Text: text,
	}}
}

func TestStartRecordsUserAndSendsKeyboard(t *testing.T) {
	b, f, _ := newTestBot(t)

	b.HandleUpdate(textUpdate(userID, "/start"))

	n, err := b.stats.UserCount()
	if err != nil {
		t.Fatalf("UserCount failed: %v", err)
	}
	if n != 1 {
		t.Errorf("UserCount = %d, want 1", n)
	}

	greeting, ok := f.sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("first send is %T, want MessageConfig", f.sent[0])
	}
	if greeting.Text != msgGreeting {
		t.Errorf("greeting = %q", greeting.Text)
	}
	if _, ok := greeting.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup); !ok {
		t.Errorf("greeting has no reply keyboard: %T", greeting.ReplyMarkup)
	}

	// Restarting must not create a second record
	b.HandleUpdate(textUpdate(userID, "/start"))

	n, _ = b.stats.UserCount()
	if n != 1 {
		t.Errorf("UserCount after second /start = %d, want 1", n)
	}
}

func TestUploadIssuesToken(t *testing.T) {
	b, f, _ := newTestBot(t)

	b.HandleUpdate(tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: userID},
		Chat:     &tgbotapi.Chat{ID: userID},
		Date:     int(baseTime.Unix()),
		Document: &tgbotapi.Document{FileID: "doc-1", FileName: "report.pdf"},
	}})

	list, err := b.registry.ListByOwner(userID)
	if err != nil {
		t.Fatalf("ListByOwner failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d records, want 1", len(list))
	}

	reply := f.lastText(t)
	if !strings.Contains(reply, list[0].Token) {
		t.Errorf("reply %q doesn't contain the issued token", reply)
	}

	rec, err := b.registry.Lookup(list[0].Token)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if rec.Kind != model.KindDocument || rec.FileID != "doc-1" {
		t.Errorf("stored record = %+v", rec)
	}
	if !strings.Contains(rec.FileURL, "documents/doc-1") {
		t.Errorf("FileURL = %q, want the durable link", rec.FileURL)
	}
}

func TestUploadPicksLargestPhoto(t *testing.T) {
	b, _, _ := newTestBot(t)

	b.HandleUpdate(tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: userID},
		Date: int(baseTime.Unix()),
		Photo: []tgbotapi.PhotoSize{
			{FileID: "small", Width: 90},
			{FileID: "large", Width: 1280},
		},
	}})

	list, err := b.registry.ListByOwner(userID)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListByOwner = %v, %v", list, err)
	}

	rec, _ := b.registry.Lookup(list[0].Token)
	if rec.FileID != "large" || rec.Kind != model.KindPhoto {
		t.Errorf("stored record = %+v, want the largest photo", rec)
	}
}

func TestSubscriptionGateFailsOpen(t *testing.T) {
	b, f, _ := newTestBot(t)
	f.memberErr = errors.New("membership service down")

	b.HandleUpdate(tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: userID},
		Chat:     &tgbotapi.Chat{ID: userID},
		Date:     int(baseTime.Unix()),
		Document: &tgbotapi.Document{FileID: "doc-1"},
	}})

	// The nudge fires, the upload still goes through
	nudged := false
	for _, text := range f.texts() {
		if text == fmt.Sprintf(msgSubscribe, b.channel) {
			nudged = true
		}
	}
	if !nudged {
		t.Error("no subscription nudge was sent")
	}

	list, err := b.registry.ListByOwner(userID)
	if err != nil || len(list) != 1 {
		t.Errorf("upload was blocked by the advisory gate: %v, %v", list, err)
	}
}

func TestLookupUnknownToken(t *testing.T) {
	b, f, _ := newTestBot(t)

	b.HandleUpdate(textUpdate(userID, "no-such-token"))

	if got := f.lastText(t); got != msgTokenNotFound {
		t.Errorf("reply = %q, want %q", got, msgTokenNotFound)
	}
}

func TestLookupDeliversAndRegistersViewer(t *testing.T) {
	b, f, _ := newTestBot(t)

	rec, err := b.registry.Create(userID, "doc-1", "https://files.example/doc-1", model.KindDocument, baseTime)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	const viewer int64 = 8
	b.HandleUpdate(textUpdate(viewer, rec.Token))

	delivered := false
	for _, c := range f.sent {
		if _, ok := c.(tgbotapi.DocumentConfig); ok {
			delivered = true
		}
	}
	if !delivered {
		t.Error("no document was sent")
	}

	n, err := b.stats.TokenViewCount(rec.Token)
	if err != nil {
		t.Fatalf("TokenViewCount failed: %v", err)
	}
	if n != 1 {
		t.Errorf("viewer count = %d, want 1", n)
	}

	// Resolving twice stays at one viewer
	b.HandleUpdate(textUpdate(viewer, rec.Token))
	if n, _ := b.stats.TokenViewCount(rec.Token); n != 1 {
		t.Errorf("viewer count after repeat lookup = %d, want 1", n)
	}
}

func TestOwnerLookupDoesNotCountAsView(t *testing.T) {
	b, _, _ := newTestBot(t)

	rec, err := b.registry.Create(userID, "doc-1", "u", model.KindDocument, baseTime)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	b.HandleUpdate(textUpdate(userID, rec.Token))

	if n, _ := b.stats.TokenViewCount(rec.Token); n != 0 {
		t.Errorf("owner lookup registered a view: %d", n)
	}
}

func TestLookupFallsBackToURLWhenStale(t *testing.T) {
	b, f, _ := newTestBot(t)

	rec, err := b.registry.Create(userID, "doc-1", "https://files.example/doc-1", model.KindDocument, baseTime)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	f.mediaErr = errors.New("wrong file_id")

	b.HandleUpdate(textUpdate(8, rec.Token))

	texts := f.texts()
	if len(texts) < 2 {
		t.Fatalf("got %d messages, want stale notice and URL", len(texts))
	}
	if texts[len(texts)-2] != msgStaleFile {
		t.Errorf("notice = %q, want %q", texts[len(texts)-2], msgStaleFile)
	}
	if texts[len(texts)-1] != rec.FileURL {
		t.Errorf("fallback = %q, want the durable URL", texts[len(texts)-1])
	}
}

func TestListTokensRateLimit(t *testing.T) {
	b, f, _ := newTestBot(t)

	now := baseTime
	b.now = func() time.Time { return now }

	b.HandleUpdate(textUpdate(userID, btnListTokens))
	if got := f.lastText(t); got != msgNoTokens {
		t.Errorf("first listing = %q, want %q", got, msgNoTokens)
	}

	// The wait message states the configured cooldown
	now = now.Add(time.Second)
	b.HandleUpdate(textUpdate(userID, btnListTokens))
	if got := f.lastText(t); got != fmt.Sprintf(msgRateLimited, 120) {
		t.Errorf("second listing = %q, want the rate limit notice", got)
	}

	now = baseTime.Add(120 * time.Second)
	b.HandleUpdate(textUpdate(userID, btnListTokens))
	if got := f.lastText(t); got != msgNoTokens {
		t.Errorf("listing after cooldown = %q, want %q", got, msgNoTokens)
	}
}

func TestListTokensChunksOfTen(t *testing.T) {
	b, f, db := newTestBot(t)

	for i := 0; i < 12; i++ {
		err := db.Create(&model.File{
			Token:      fmt.Sprintf("token-%02d", i),
			OwnerID:    userID,
			Kind:       model.KindDocument,
			UploadedAt: baseTime,
		}).Error
		if err != nil {
			t.Fatalf("failed to seed file: %v", err)
		}
	}

	b.HandleUpdate(textUpdate(userID, btnListTokens))

	texts := f.texts()
	if len(texts) != 2 {
		t.Fatalf("got %d messages, want 2 chunks", len(texts))
	}
	if n := len(strings.Split(texts[0], "\n")); n != 10 {
		t.Errorf("first chunk has %d lines, want 10", n)
	}
	if n := len(strings.Split(texts[1], "\n")); n != 2 {
		t.Errorf("second chunk has %d lines, want 2", n)
	}
}

func TestOwnedDeleteFlow(t *testing.T) {
	b, f, _ := newTestBot(t)

	rec, err := b.registry.Create(userID, "doc-1", "u", model.KindDocument, baseTime)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	b.HandleUpdate(textUpdate(userID, btnDeleteToken))
	if got := f.lastText(t); got != msgDeletePrompt {
		t.Errorf("prompt = %q, want %q", got, msgDeletePrompt)
	}

	b.HandleUpdate(textUpdate(userID, rec.Token))
	if got := f.lastText(t); got != fmt.Sprintf(msgDeleted, rec.Token) {
		t.Errorf("reply = %q, want deletion confirmation", got)
	}

	if _, err := b.registry.Lookup(rec.Token); !errors.Is(err, registry.ErrNotFound) {
		t.Errorf("record still present after delete: %v", err)
	}
}

func TestSessionConsumedEvenOnInvalidInput(t *testing.T) {
	b, f, _ := newTestBot(t)

	b.HandleUpdate(textUpdate(userID, btnDeleteToken))

	// Invalid token: the step is consumed anyway
	b.HandleUpdate(textUpdate(userID, "bogus"))
	if got := f.lastText(t); got != msgDeleteMissed {
		t.Errorf("reply = %q, want %q", got, msgDeleteMissed)
	}

	// Without re-issuing the trigger the same text is a plain lookup
	b.HandleUpdate(textUpdate(userID, "bogus"))
	if got := f.lastText(t); got != msgTokenNotFound {
		t.Errorf("reply = %q, want %q", got, msgTokenNotFound)
	}
}

func TestMediaMessageConsumesPendingStep(t *testing.T) {
	b, f, _ := newTestBot(t)

	rec, err := b.registry.Create(userID, "doc-1", "u", model.KindDocument, baseTime)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	b.HandleUpdate(textUpdate(userID, btnDeleteToken))

	// A photo arrives while the delete step is armed: it is consumed as
	// the step's answer, not stored as an upload
	b.HandleUpdate(tgbotapi.Update{Message: &tgbotapi.Message{
		From:  &tgbotapi.User{ID: userID},
		Chat:  &tgbotapi.Chat{ID: userID},
		Date:  int(baseTime.Unix()),
		Photo: []tgbotapi.PhotoSize{{FileID: "pic", Width: 90}},
	}})
	if got := f.lastText(t); got != msgDeleteMissed {
		t.Errorf("reply = %q, want %q", got, msgDeleteMissed)
	}

	list, err := b.registry.ListByOwner(userID)
	if err != nil {
		t.Fatalf("ListByOwner failed: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("got %d records, the mid-step photo must not be stored", len(list))
	}

	// The step is gone, so the token text is a plain lookup and the
	// record survives
	b.HandleUpdate(textUpdate(userID, rec.Token))

	if _, err := b.registry.Lookup(rec.Token); err != nil {
		t.Errorf("record was deleted after the step was consumed: %v", err)
	}
}

func TestNonOwnerDeleteLooksLikeMissingToken(t *testing.T) {
	b, f, _ := newTestBot(t)

	rec, err := b.registry.Create(userID, "doc-1", "u", model.KindDocument, baseTime)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	const stranger int64 = 8
	b.HandleUpdate(textUpdate(stranger, btnDeleteToken))
	b.HandleUpdate(textUpdate(stranger, rec.Token))

	if got := f.lastText(t); got != msgDeleteMissed {
		t.Errorf("reply = %q, want %q", got, msgDeleteMissed)
	}

	if _, err := b.registry.Lookup(rec.Token); err != nil {
		t.Errorf("record was deleted by a non-owner: %v", err)
	}
}
