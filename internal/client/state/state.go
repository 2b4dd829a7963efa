// Package state хранит локальное зеркало ростера клиента в bbolt:
// снимки записей по id и последнюю подтвержденную глобальную версию
// журнала. Зеркало дает офлайн list/get и точку отсчета since_version
// для догоняющей синхронизации после переподключения.
package state

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/shiftsync/pkg/api"
)

var (
	bucketEmployees = []byte("employees")
	bucketMeta      = []byte("meta")
)

const keyLastVersion = "last_version"

// ErrNotFound возвращается, когда записи нет в локальном зеркале
var ErrNotFound = errors.New("employee not found in local mirror")

// Mirror — локальная копия ростера одного клиента
type Mirror struct {
	db *bbolt.DB
}

// Open открывает (или создает) файл зеркала и инициализирует bucket-ы
func Open(path string) (*Mirror, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open mirror database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketEmployees); err != nil {
			return fmt.Errorf("failed to create employees bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists(bucketMeta); err != nil {
			return fmt.Errorf("failed to create meta bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Mirror{db: db}, nil
}

// Close закрывает файл зеркала
func (m *Mirror) Close() error {
	if m.db == nil {
		return nil
	}
	return m.db.Close()
}

// Upsert сохраняет снимок записи, перезаписывая прежний
func (m *Mirror) Upsert(e api.Employee) error {
	if e.ID == "" {
		return fmt.Errorf("employee id is empty")
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal employee: %w", err)
	}

	return m.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketEmployees).Put([]byte(e.ID), data); err != nil {
			return fmt.Errorf("failed to save employee %s: %w", e.ID, err)
		}
		return nil
	})
}

// Delete удаляет запись из зеркала. Отсутствующая запись не ошибка:
// удаление могло прийти и дельтой журнала, и широковещательным событием.
func (m *Mirror) Delete(id string) error {
	return m.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketEmployees).Delete([]byte(id)); err != nil {
			return fmt.Errorf("failed to delete employee %s: %w", id, err)
		}
		return nil
	})
}

// Get возвращает снимок записи по id
func (m *Mirror) Get(id string) (*api.Employee, error) {
	var e api.Employee

	err := m.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketEmployees).Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		if err := json.Unmarshal(data, &e); err != nil {
			return fmt.Errorf("failed to unmarshal employee %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &e, nil
}

// List возвращает записи зеркала, отсортированные по id.
// Непустой period оставляет только записи этого учетного периода.
func (m *Mirror) List(period string) ([]api.Employee, error) {
	var out []api.Employee

	err := m.db.View(func(tx *bbolt.Tx) error {
		// Ключи bbolt упорядочены, порядок по id получается сам собой
		return tx.Bucket(bucketEmployees).ForEach(func(_, data []byte) error {
			var e api.Employee
			if err := json.Unmarshal(data, &e); err != nil {
				return fmt.Errorf("failed to unmarshal employee: %w", err)
			}
			if period == "" || e.Period == period {
				out = append(out, e)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// ReplaceAll замещает содержимое зеркала снимком bootstrap-ответа.
// Старые записи уходят вместе с bucket-ом: снимок авторитетен целиком.
func (m *Mirror) ReplaceAll(employees []api.Employee) error {
	return m.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketEmployees); err != nil {
			return fmt.Errorf("failed to drop employees bucket: %w", err)
		}
		bucket, err := tx.CreateBucket(bucketEmployees)
		if err != nil {
			return fmt.Errorf("failed to recreate employees bucket: %w", err)
		}

		for _, e := range employees {
			data, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("failed to marshal employee %s: %w", e.ID, err)
			}
			if err := bucket.Put([]byte(e.ID), data); err != nil {
				return fmt.Errorf("failed to save employee %s: %w", e.ID, err)
			}
		}
		return nil
	})
}

// ApplyChange накатывает одну запись дельты журнала на зеркало
func (m *Mirror) ApplyChange(change api.ChangeEvent) error {
	switch change.Op {
	case api.OpCreate, api.OpUpdate:
		if change.Employee == nil {
			return fmt.Errorf("change %s for %s has no employee snapshot", change.Op, change.EntityID)
		}
		return m.Upsert(*change.Employee)
	case api.OpDelete:
		return m.Delete(change.EntityID)
	default:
		return fmt.Errorf("unknown change op %q", change.Op)
	}
}

// LastVersion возвращает последнюю подтвержденную глобальную версию.
// Ноль означает, что синхронизация еще не выполнялась.
func (m *Mirror) LastVersion() (int64, error) {
	var version int64

	err := m.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get([]byte(keyLastVersion))
		if data == nil {
			return nil
		}
		version = int64(binary.BigEndian.Uint64(data))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get last version: %w", err)
	}

	return version, nil
}

// SetLastVersion сохраняет подтвержденную глобальную версию
func (m *Mirror) SetLastVersion(version int64) error {
	data := make([]byte, 8)
	binary.BigEndian.PutUint64(data, uint64(version))

	return m.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketMeta).Put([]byte(keyLastVersion), data); err != nil {
			return fmt.Errorf("failed to save last version: %w", err)
		}
		return nil
	})
}
