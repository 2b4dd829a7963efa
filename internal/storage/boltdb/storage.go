package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/shiftsync/internal/models"
	"github.com/iudanet/shiftsync/internal/storage"
)

// bucketRosters — корневой bucket; внутри него по вложенному bucket
// на каждый учетный период, ключ — id сотрудника, значение — JSON
var bucketRosters = []byte("rosters")

// Storage represents BoltDB roster storage implementation.
// Альтернатива SQLite для односерверных инсталляций без внешних
// зависимостей от CGO и миграций.
type Storage struct {
	db *bbolt.DB
}

// New creates a new BoltDB storage instance
// dbPath is the path to the BoltDB database file
func New(ctx context.Context, dbPath string) (*Storage, error) {
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	s := &Storage{db: db}

	if err := s.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// initBuckets создает корневой bucket если он не существует
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketRosters); err != nil {
			return fmt.Errorf("failed to create rosters bucket: %w", err)
		}
		return nil
	})
}

// Load retrieves the full snapshot for a schedule period.
// Returns storage.ErrCollectionNotFound if the period was never saved.
func (s *Storage) Load(_ context.Context, period string) ([]*models.Employee, error) {
	if period == "" {
		return nil, storage.ErrEmptyPeriod
	}

	snapshot := []*models.Employee{}

	err := s.db.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketRosters)
		collection := root.Bucket([]byte(period))
		if collection == nil {
			return storage.ErrCollectionNotFound
		}

		return collection.ForEach(func(_, v []byte) error {
			emp := &models.Employee{}
			if err := json.Unmarshal(v, emp); err != nil {
				return fmt.Errorf("failed to unmarshal employee: %w", err)
			}
			snapshot = append(snapshot, emp)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return snapshot, nil
}

// Save replaces the stored snapshot for a schedule period.
// Вложенный bucket периода пересоздается целиком внутри одной
// write-транзакции bbolt, так что снимок заменяется атомарно.
func (s *Storage) Save(_ context.Context, period string, snapshot []*models.Employee) error {
	if period == "" {
		return storage.ErrEmptyPeriod
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketRosters)
		key := []byte(period)

		if root.Bucket(key) != nil {
			if err := root.DeleteBucket(key); err != nil {
				return fmt.Errorf("failed to clear period: %w", err)
			}
		}

		collection, err := root.CreateBucket(key)
		if err != nil {
			return fmt.Errorf("failed to create period bucket: %w", err)
		}

		for _, emp := range snapshot {
			data, err := json.Marshal(emp)
			if err != nil {
				return fmt.Errorf("failed to marshal employee %s: %w", emp.ID, err)
			}
			if err := collection.Put([]byte(emp.ID), data); err != nil {
				return fmt.Errorf("failed to put employee %s: %w", emp.ID, err)
			}
		}

		return nil
	})
}

// Collections lists all persisted schedule periods in lexical order.
func (s *Storage) Collections(_ context.Context) ([]string, error) {
	periods := []string{}

	err := s.db.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketRosters)
		// bbolt хранит ключи отсортированными, порядок уже лексический
		return root.ForEachBucket(func(name []byte) error {
			periods = append(periods, string(name))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list periods: %w", err)
	}

	return periods, nil
}
