// Package registry implements the token-indexed file exchange registry
// and the admin aggregations on top of it
package registry

import (
	"errors"
	"fmt"
	"time"

	"keydrop/exchange-bot/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotFound is returned when no record carries the given token
	ErrNotFound = errors.New("token not found")

	// ErrTokenSpaceExhausted means every generated token collided with an
	// existing one. With 128-bit tokens this only happens if the random
	// source is broken
	ErrTokenSpaceExhausted = errors.New("could not generate a unique token")
)

const createAttempts = 5

// TokenViews pairs a token with the size of its viewer set.
type TokenViews struct {
	Token string
	Views int64
}

type Registry struct {
	db *gorm.DB

	// Swappable for tests that need to force collisions
	gen func() (string, error)
}

func New(db *gorm.DB) *Registry {
	return &Registry{db: db, gen: NewToken}
}

// EnsureUser records first contact with a user. Reinserting a known id
// is a no-op.
func (r *Registry) EnsureUser(userID int64, joinedAt time.Time) error {
	err := r.db.
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.User{TelegramID: userID, JoinedAt: joinedAt}).
		Error
	if err != nil {
		return fmt.Errorf("failed to record user, %w", err)
	}

	return nil
}

// Create persists a new file record under a freshly generated token.
// The unique index on the token column is the source of truth for
// uniqueness; on a collision a new token is drawn and the insert is
// retried a bounded number of times.
func (r *Registry) Create(ownerID int64, fileID, fileURL string, kind model.MediaKind, uploadedAt time.Time) (*model.File, error) {
	for attempt := 0; attempt < createAttempts; attempt++ {
		token, err := r.gen()
		if err != nil {
			return nil, fmt.Errorf("failed to generate token, %w", err)
		}

		f := &model.File{
			Token:      token,
			FileID:     fileID,
			FileURL:    fileURL,
			OwnerID:    ownerID,
			Kind:       kind,
			UploadedAt: uploadedAt,
		}

		err = r.db.Create(f).Error
		if err == nil {
			return f, nil
		}

		if errors.Is(err, gorm.ErrDuplicatedKey) {
			zap.L().Warn("Generated token collided, retrying", zap.String("token", token))
			continue
		}

		return nil, fmt.Errorf("failed to insert file record, %w", err)
	}

	return nil, ErrTokenSpaceExhausted
}

// Lookup returns the record stored under token, or ErrNotFound.
func (r *Registry) Lookup(token string) (*model.File, error) {
	var f model.File

	err := r.db.
		Where("token = ?", token).
		First(&f).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to lookup token, %w", err)
	}

	return &f, nil
}

// RegisterViewer adds userID to the token's viewer set. The insert is a
// single statement selecting from the files row, so repeat viewers and
// concurrent callers collapse to one row and a delete racing with the
// insert can't leave a viewer row without its file behind.
func (r *Registry) RegisterViewer(token string, userID int64) error {
	res := r.db.Exec(
		"INSERT INTO file_viewers (token, viewer_id) SELECT token, ? FROM files WHERE token = ? ON CONFLICT DO NOTHING",
		userID, token,
	)
	if res.Error != nil {
		return fmt.Errorf("failed to register viewer, %w", res.Error)
	}

	if res.RowsAffected > 0 {
		return nil
	}

	// Zero rows inserted: either the viewer is already recorded or the
	// token doesn't exist
	var n int64

	err := r.db.
		Model(model.File{}).
		Where("token = ?", token).
		Count(&n).
		Error
	if err != nil {
		return fmt.Errorf("failed to check token, %w", err)
	}

	if n == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteOwned deletes the record only when ownerID matches. A missing
// token and someone else's token report the same outcome so the reply
// can't be used to probe which tokens exist.
func (r *Registry) DeleteOwned(token string, ownerID int64) (bool, error) {
	var deleted bool

	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.
			Where("token = ? AND owner_id = ?", token, ownerID).
			Delete(model.File{})
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			return nil
		}

		deleted = true

		return tx.
			Where("token = ?", token).
			Delete(model.FileViewer{}).
			Error
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete owned token, %w", err)
	}

	return deleted, nil
}

// DeleteMany removes every listed token without an ownership check and
// returns how many records were actually deleted.
func (r *Registry) DeleteMany(tokens []string) (int64, error) {
	if len(tokens) == 0 {
		return 0, nil
	}

	var count int64

	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.
			Where("token IN ?", tokens).
			Delete(model.File{})
		if res.Error != nil {
			return res.Error
		}

		count = res.RowsAffected

		return tx.
			Where("token IN ?", tokens).
			Delete(model.FileViewer{}).
			Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to bulk delete tokens, %w", err)
	}

	return count, nil
}

// ListByOwner returns the owner's tokens with their viewer counts,
// ordered by token so one call is always stable.
func (r *Registry) ListByOwner(ownerID int64) ([]TokenViews, error) {
	var out []TokenViews

	err := r.db.
		Model(model.File{}).
		Select("files.token, COUNT(file_viewers.viewer_id) AS views").
		Joins("LEFT JOIN file_viewers ON file_viewers.token = files.token").
		Where("files.owner_id = ?", ownerID).
		Group("files.token").
		Order("files.token").
		Scan(&out).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens, %w", err)
	}

	return out, nil
}

// ListUploadedSince returns tokens uploaded at or after cutoff.
func (r *Registry) ListUploadedSince(cutoff time.Time) ([]string, error) {
	var tokens []string

	err := r.db.
		Model(model.File{}).
		Where("uploaded_at >= ?", cutoff).
		Order("uploaded_at").
		Pluck("token", &tokens).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent tokens, %w", err)
	}

	return tokens, nil
}
