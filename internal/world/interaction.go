package world

import (
	"fmt"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// HitResult итог удара по блоку
type HitResult struct {
	Position     vec.Vec3        `json:"position"`
	Type         block.BlockType `json:"-"`
	TypeName     string          `json:"type"`
	HP           uint8           `json:"hp"`
	HealthLevel  uint8           `json:"health_level"`
	Destroyed    bool            `json:"destroyed"`
	LevelChanged bool            `json:"level_changed"`
}

// Hit наносит блоку урон. При нуле здоровья блок разрушается: его грани
// очищаются, соседи открываются в сторону пустой клетки, чанк помечается
// NeedsRecreate. Смена стадии трещин без разрушения помечает NeedsRedraw.
func (g *Grid) Hit(p vec.Vec3, damage uint8) (HitResult, error) {
	if !g.InBounds(p) {
		return HitResult{}, fmt.Errorf("%w: %s", ErrOutOfBounds, p)
	}
	b := g.at(p.X, p.Y, p.Z)
	res := HitResult{Position: p, Type: b.Type, TypeName: b.Type.String()}

	if b.Type == block.Air {
		return res, fmt.Errorf("%w: %s", ErrNothingToDestroy, p)
	}
	if !b.Type.IsDestructible() {
		res.HP, res.HealthLevel = b.HP, b.HealthLevel
		return res, fmt.Errorf("%w: %s at %s", ErrNotDestructible, b.Type, p)
	}

	if damage >= b.HP {
		*b = Block{}
		g.MarkBlockChunk(p, NeedsRecreate)
		g.refreshNeighbours(p.X, p.Y, p.Z)
		res.Destroyed = true
		return res, nil
	}

	b.HP -= damage
	level := HealthLevelFor(b.Type, b.HP)
	if level != b.HealthLevel {
		b.HealthLevel = level
		res.LevelChanged = true
		g.MarkBlockChunk(p, NeedsRedraw)
	}
	res.HP, res.HealthLevel = b.HP, b.HealthLevel
	return res, nil
}

// Build ставит блок типа t в пустую клетку. Новый блок получает грани по
// текущим соседям, соседи закрывают грани, смотрящие на него.
func (g *Grid) Build(p vec.Vec3, t block.BlockType) (Block, error) {
	if !g.InBounds(p) {
		return Block{}, fmt.Errorf("%w: %s", ErrOutOfBounds, p)
	}
	if t == block.Air || !block.IsValid(t) {
		return Block{}, fmt.Errorf("%w: invalid block type %d", ErrNotBuildable, t)
	}
	b := g.at(p.X, p.Y, p.Z)
	if b.Type != block.Air {
		return Block{}, fmt.Errorf("%w: %s occupied by %s", ErrNotBuildable, p, b.Type)
	}

	*b = NewBlock(t)
	b.Faces = g.computeFaces(p.X, p.Y, p.Z, t)
	g.MarkBlockChunk(p, NeedsRecreate)
	g.refreshNeighbours(p.X, p.Y, p.Z)
	return *b, nil
}
