package domain

import "context"

// DoiSequence 每个自然年一行，counter 只增不减
type DoiSequence struct {
	Year    int   `gorm:"primaryKey" json:"year"`
	Counter int64 `gorm:"not null;default:0" json:"counter"`
}

func (DoiSequence) TableName() string { return "doi_sequences" }

type DoiSequenceRepository interface {
	// Next atomically increments the counter for year (creating the row
	// on first use) and returns the new value. Two concurrent callers
	// never observe the same serial.
	Next(ctx context.Context, year int) (int64, error)
}
