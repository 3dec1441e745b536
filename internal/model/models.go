package model

import (
	"time"
)

// ConversionRun is one batch conversion, from the CLI or the HTTP server.
type ConversionRun struct {
	ID        uint   `gorm:"primaryKey"`
	RunID     string `gorm:"uniqueIndex"`
	Format    string `gorm:"index"`
	Source    string // "cli", "http", or a configured source name
	Succeeded int
	Failed    int
	// Duplicates counts successes that pointed at an endpoint already
	// converted in the same run.
	Duplicates int
	CreatedAt  time.Time `gorm:"index"`

	Failures []LinkFailure `gorm:"foreignKey:RunID;references:RunID"`
}

type LinkFailure struct {
	ID       uint   `gorm:"primaryKey"`
	RunID    string `gorm:"index"`
	Position int
	Link     string
	Kind     string `gorm:"index"` // link.Kind, or "render" / "other"
	Message  string
}
