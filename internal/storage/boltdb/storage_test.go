package boltdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"github.com/iudanet/shiftsync/internal/models"
	"github.com/iudanet/shiftsync/internal/storage"
)

func TestNew_Success(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "rosters.db")

	ctx := context.Background()
	store, err := New(ctx, dbPath)
	require.NoError(t, err)
	require.NotNil(t, store)
	defer func() {
		require.NoError(t, store.Close())
	}()

	// Проверяем что файл БД действительно создан
	info, err := os.Stat(dbPath)
	require.NoError(t, err)
	assert.False(t, info.IsDir())

	// Проверяем, что корневой bucket существует
	err = store.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketRosters) == nil {
			return os.ErrNotExist
		}
		return nil
	})
	require.NoError(t, err)
}

func TestStorage_SaveLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := setupTestStorage(t)

	snapshot := []*models.Employee{
		testEmployee("2026-W35", "Anna", "cashier"),
		testEmployee("2026-W35", "Boris", "cook"),
	}

	require.NoError(t, store.Save(ctx, "2026-W35", snapshot))

	loaded, err := store.Load(ctx, "2026-W35")
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	for _, emp := range loaded {
		original := findByID(snapshot, emp.ID)
		require.NotNil(t, original)
		assert.Equal(t, original.Name, emp.Name)
		assert.Equal(t, original.Role, emp.Role)
		assert.Equal(t, original.Version, emp.Version)
		assert.True(t, original.UpdatedAt.Equal(emp.UpdatedAt))
	}
}

func TestStorage_Load_UnknownPeriod(t *testing.T) {
	ctx := context.Background()
	store := setupTestStorage(t)

	_, err := store.Load(ctx, "2026-W01")
	require.ErrorIs(t, err, storage.ErrCollectionNotFound)
}

func TestStorage_Save_ReplacesSnapshot(t *testing.T) {
	ctx := context.Background()
	store := setupTestStorage(t)

	first := testEmployee("2026-W35", "Anna", "cashier")
	second := testEmployee("2026-W35", "Boris", "cook")
	require.NoError(t, store.Save(ctx, "2026-W35", []*models.Employee{first, second}))

	require.NoError(t, store.Save(ctx, "2026-W35", []*models.Employee{first}))

	loaded, err := store.Load(ctx, "2026-W35")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, first.ID, loaded[0].ID)
}

func TestStorage_Save_EmptySnapshotIsStillSaved(t *testing.T) {
	ctx := context.Background()
	store := setupTestStorage(t)

	require.NoError(t, store.Save(ctx, "2026-W36", []*models.Employee{}))

	loaded, err := store.Load(ctx, "2026-W36")
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestStorage_Collections(t *testing.T) {
	ctx := context.Background()
	store := setupTestStorage(t)

	periods, err := store.Collections(ctx)
	require.NoError(t, err)
	assert.Empty(t, periods)

	require.NoError(t, store.Save(ctx, "2026-W36", nil))
	require.NoError(t, store.Save(ctx, "2026-W35", nil))

	periods, err = store.Collections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-W35", "2026-W36"}, periods)
}

// Helper functions

func setupTestStorage(t *testing.T) *Storage {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "rosters.db")

	store, err := New(context.Background(), dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

func testEmployee(period, name, role string) *models.Employee {
	now := time.Now().UTC()
	return &models.Employee{
		ID:             uuid.New().String(),
		Name:           name,
		Role:           role,
		EmploymentType: models.EmploymentPartTime,
		Period:         period,
		WeeklyHours:    20,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func findByID(snapshot []*models.Employee, id string) *models.Employee {
	for _, emp := range snapshot {
		if emp.ID == id {
			return emp
		}
	}
	return nil
}
