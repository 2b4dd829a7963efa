package storage

import (
	"context"

	"github.com/iudanet/shiftsync/internal/models"
)

//go:generate moq -out roster_mock.go . RosterStorage

// RosterStorage defines interface for durable roster persistence.
// Коллекция — это полный снимок расписания за один учетный период
// (ISO-неделя). Хранилище не знает про версии и конфликты: оно хранит
// и отдает снимки как есть, сверкой занимается Persistence Bridge.
type RosterStorage interface {
	// Load retrieves the full snapshot for a schedule period.
	// Returns ErrCollectionNotFound if the period was never saved.
	Load(ctx context.Context, period string) ([]*models.Employee, error)

	// Save replaces the stored snapshot for a schedule period.
	// The write is atomic: readers never observe a partial snapshot.
	Save(ctx context.Context, period string, snapshot []*models.Employee) error

	// Collections lists all persisted schedule periods in lexical order.
	// Returns empty slice if nothing has been saved yet.
	Collections(ctx context.Context) ([]string, error)
}
