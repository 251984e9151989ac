package model

// FileViewer marks that a user resolved a token at least once. The
// composite primary key gives the viewer list set semantics: inserting
// the same pair twice is a single-statement no-op.
type FileViewer struct {
	Token    string `gorm:"primaryKey"`
	ViewerID int64  `gorm:"primaryKey;autoIncrement:false"`
}
