package registry

import (
	"fmt"
	"strings"

	"keydrop/exchange-bot/model"

	"gorm.io/gorm"
)

// Tokens per line in the recent-tokens export
const exportRowSize = 10

// Analytics serves the read-only admin aggregations. It never mutates
// the registry.
type Analytics struct {
	db *gorm.DB
}

func NewAnalytics(db *gorm.DB) *Analytics {
	return &Analytics{db: db}
}

// UserCount returns the total number of users that ever contacted the
// bot.
func (a *Analytics) UserCount() (int64, error) {
	var n int64

	err := a.db.
		Model(model.User{}).
		Count(&n).
		Error
	if err != nil {
		return 0, fmt.Errorf("failed to count users, %w", err)
	}

	return n, nil
}

// TopTokensByViews returns the n most viewed tokens. Ties are broken by
// token order so the result is deterministic for a fixed snapshot.
func (a *Analytics) TopTokensByViews(n int) ([]TokenViews, error) {
	var out []TokenViews

	err := a.db.
		Model(model.File{}).
		Select("files.token, COUNT(file_viewers.viewer_id) AS views").
		Joins("LEFT JOIN file_viewers ON file_viewers.token = files.token").
		Group("files.token").
		Order("views DESC, files.token ASC").
		Limit(n).
		Scan(&out).
		Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate top tokens, %w", err)
	}

	return out, nil
}

// TokenViewCount returns the size of the token's viewer set, or
// ErrNotFound when the token doesn't exist.
func (a *Analytics) TokenViewCount(token string) (int64, error) {
	var exists int64

	err := a.db.
		Model(model.File{}).
		Where("token = ?", token).
		Count(&exists).
		Error
	if err != nil {
		return 0, fmt.Errorf("failed to check token, %w", err)
	}

	if exists == 0 {
		return 0, ErrNotFound
	}

	var n int64

	err = a.db.
		Model(model.FileViewer{}).
		Where("token = ?", token).
		Count(&n).
		Error
	if err != nil {
		return 0, fmt.Errorf("failed to count viewers, %w", err)
	}

	return n, nil
}

// FormatTokenRows lays tokens out ten per line, space separated. This is
// the export artifact operators download.
func FormatTokenRows(tokens []string) string {
	lines := make([]string, 0, (len(tokens)+exportRowSize-1)/exportRowSize)
	for i := 0; i < len(tokens); i += exportRowSize {
		lines = append(lines, strings.Join(tokens[i:min(i+exportRowSize, len(tokens))], " "))
	}

	return strings.Join(lines, "\n")
}
