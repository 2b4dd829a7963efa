package store

import "github.com/iudanet/shiftsync/internal/models"

// changeLog хранит последние изменения ростера в кольцевом буфере
// фиксированной емкости. Старейшие записи вытесняются первыми.
// Журнал служит для catch-up переподключившихся клиентов, это не
// долговременный аудит. Записи добавляются в порядке возрастания
// глобальной версии, поэтому порядок хранения совпадает с порядком версий.
type changeLog struct {
	entries []*models.ChangeEntry
	head    int // индекс старейшей записи
	size    int // количество заполненных слотов
}

func newChangeLog(capacity int) *changeLog {
	return &changeLog{
		entries: make([]*models.ChangeEntry, capacity),
	}
}

// append добавляет запись, вытесняя старейшую при заполненном буфере.
func (l *changeLog) append(entry *models.ChangeEntry) {
	if len(l.entries) == 0 {
		return
	}
	if l.size == len(l.entries) {
		l.entries[l.head] = entry
		l.head = (l.head + 1) % len(l.entries)
		return
	}
	l.entries[(l.head+l.size)%len(l.entries)] = entry
	l.size++
}

// since возвращает записи с глобальной версией строго больше version,
// в порядке возрастания версий.
func (l *changeLog) since(version int64) []*models.ChangeEntry {
	var out []*models.ChangeEntry
	for i := 0; i < l.size; i++ {
		entry := l.entries[(l.head+i)%len(l.entries)]
		if entry.Version > version {
			out = append(out, entry.Clone())
		}
	}
	return out
}

// oldestVersion возвращает версию старейшей удержанной записи, 0 для пустого журнала.
func (l *changeLog) oldestVersion() int64 {
	if l.size == 0 {
		return 0
	}
	return l.entries[l.head].Version
}
