package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"

	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/world"
)

// ErrWorldNotFound слот сохранения не существует
var ErrWorldNotFound = errors.New("storage: world not found")

const slotPrefix = "slot:"

// SlotMeta описание слота сохранения
type SlotMeta struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Seed         int64     `json:"seed"`
	SavedAt      time.Time `json:"saved_at"`
	SizeX        int       `json:"size_x"`
	SizeZ        int       `json:"size_z"`
	HeightChunks int       `json:"height_chunks"`
	ChunkSize    int       `json:"chunk_size"`
	Bytes        int       `json:"bytes"`
}

// WorldStorage архив сохранённых миров в BadgerDB.
// Каждый слот: сжатый мир и JSON с метаданными под одним UUID.
type WorldStorage struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool
	logger  *logging.Logger
}

// NewWorldStorage открывает архив в каталоге dataPath/worlds
func NewWorldStorage(dataPath string) (*WorldStorage, error) {
	dbPath := filepath.Join(dataPath, "worlds")
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil // Отключаем логирование BadgerDB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	return &WorldStorage{
		db:      db,
		dbPath:  dbPath,
		isReady: true,
		logger:  logging.GetStorageLogger(),
	}, nil
}

// Close закрывает хранилище данных
func (ws *WorldStorage) Close() error {
	ws.mutex.Lock()
	defer ws.mutex.Unlock()

	if !ws.isReady {
		return nil
	}

	ws.isReady = false
	return ws.db.Close()
}

func metaKey(id string) []byte { return []byte(slotPrefix + id + ":meta") }
func dataKey(id string) []byte { return []byte(slotPrefix + id + ":data") }

// SaveSlot сохраняет мир в новый слот
func (ws *WorldStorage) SaveSlot(name string, seed int64, g *world.Grid, pose Pose) (SlotMeta, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return SlotMeta{}, fmt.Errorf("хранилище не готово")
	}

	payload, err := Compress(g, pose)
	if err != nil {
		return SlotMeta{}, fmt.Errorf("ошибка сериализации мира: %w", err)
	}

	d := g.Dimensions()
	meta := SlotMeta{
		ID:           uuid.NewString(),
		Name:         name,
		Seed:         seed,
		SavedAt:      time.Now().UTC(),
		SizeX:        d.SizeX,
		SizeZ:        d.SizeZ,
		HeightChunks: d.HeightChunks,
		ChunkSize:    d.ChunkSize,
		Bytes:        len(payload),
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return SlotMeta{}, fmt.Errorf("ошибка сериализации метаданных: %w", err)
	}

	err = ws.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(dataKey(meta.ID), payload); err != nil {
			return err
		}
		return txn.Set(metaKey(meta.ID), metaJSON)
	})
	if err != nil {
		return SlotMeta{}, fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}

	ws.logger.Info("Слот %s (%s) сохранён: %d байт", meta.ID, meta.Name, meta.Bytes)
	return meta, nil
}

// LoadSlot загружает мир из слота. Размер мира берётся из метаданных слота.
func (ws *WorldStorage) LoadSlot(id string) (*world.Grid, Pose, SlotMeta, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return nil, Pose{}, SlotMeta{}, fmt.Errorf("хранилище не готово")
	}

	var (
		meta SlotMeta
		data []byte
	)
	err := ws.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(metaKey(id))
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		}); err != nil {
			return err
		}

		item, err = txn.Get(dataKey(id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, Pose{}, SlotMeta{}, fmt.Errorf("%w: %s", ErrWorldNotFound, id)
	}
	if err != nil {
		return nil, Pose{}, SlotMeta{}, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	g, pose, err := DecodeAuto(data, meta.HeightChunks, meta.ChunkSize)
	if err != nil {
		return nil, Pose{}, meta, fmt.Errorf("слот %s: %w", id, err)
	}
	return g, pose, meta, nil
}

// ListSlots все слоты, новые первыми
func (ws *WorldStorage) ListSlots() ([]SlotMeta, error) {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return nil, fmt.Errorf("хранилище не готово")
	}

	var slots []SlotMeta
	err := ws.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(slotPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			if !strings.HasSuffix(string(item.Key()), ":meta") {
				continue
			}
			var meta SlotMeta
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			}); err != nil {
				return err
			}
			slots = append(slots, meta)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	sort.Slice(slots, func(i, j int) bool {
		return slots[i].SavedAt.After(slots[j].SavedAt)
	})
	return slots, nil
}

// DeleteSlot удаляет слот
func (ws *WorldStorage) DeleteSlot(id string) error {
	ws.mutex.RLock()
	defer ws.mutex.RUnlock()

	if !ws.isReady {
		return fmt.Errorf("хранилище не готово")
	}

	return ws.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(metaKey(id)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", ErrWorldNotFound, id)
			}
			return err
		}
		if err := txn.Delete(metaKey(id)); err != nil {
			return err
		}
		return txn.Delete(dataKey(id))
	})
}
