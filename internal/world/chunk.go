package world

import (
	"github.com/annel0/blockverse/internal/vec"
)

// ChunkStatus состояние чанка для внешнего цикла перерисовки.
// Это единственный канал связи ядра с рендером.
type ChunkStatus uint8

const (
	NotReady      ChunkStatus = iota // ещё не было меша
	NeedsRedraw                      // косметика: сменилась стадия трещин
	NeedsRecreate                    // структура: блок разрушен или поставлен
	Ready                            // меш актуален
)

func (s ChunkStatus) String() string {
	switch s {
	case NotReady:
		return "not_ready"
	case NeedsRedraw:
		return "needs_redraw"
	case NeedsRecreate:
		return "needs_recreate"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// Dirty true, если чанку нужен новый меш
func (s ChunkStatus) Dirty() bool {
	return s != Ready
}

// ChunkRecord метаданные одного чанка
type ChunkRecord struct {
	Coord  vec.Vec3    // Координата чанка
	Origin vec.Vec3    // Мировая координата угла чанка
	Status ChunkStatus // Состояние меша
}

// mergeStatus повышает статус чанка, не понижая уже запрошенное пересоздание.
func mergeStatus(current, requested ChunkStatus) ChunkStatus {
	switch requested {
	case NeedsRecreate:
		return NeedsRecreate
	case NeedsRedraw:
		if current == NeedsRecreate || current == NotReady {
			return current
		}
		return NeedsRedraw
	default:
		return requested
	}
}
