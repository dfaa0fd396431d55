package world

import (
	"github.com/annel0/blockverse/internal/taskqueue"
	"github.com/annel0/blockverse/internal/world/block"
)

// faceVisible правило видимости одной грани блока в (x, y, z).
//
// Твёрдый блок открыт в сторону воздуха, воды и границы мира (все шесть
// границ). Вода рисует только верх: над ней воздух или небо.
// Воздух не рисуется.
func (g *Grid) faceVisible(x, y, z int, t block.BlockType, f block.Face) bool {
	switch {
	case t == block.Air:
		return false
	case t == block.Water:
		if f != block.Top {
			return false
		}
		if y+1 >= g.height {
			return true
		}
		return g.at(x, y+1, z).Type == block.Air
	}

	o := f.Offset()
	nx, ny, nz := x+o.X, y+o.Y, z+o.Z
	if !g.inBounds(nx, ny, nz) {
		return true
	}
	return g.at(nx, ny, nz).Type.IsTransparent()
}

// computeFaces полный набор граней блока по текущим соседям
func (g *Grid) computeFaces(x, y, z int, t block.BlockType) block.Faces {
	var fs block.Faces
	if t == block.Air {
		return fs
	}
	for _, f := range block.AllFaces {
		if g.faceVisible(x, y, z, t, f) {
			fs = fs.With(f)
		}
	}
	return fs
}

// RecomputeFaces пересчитывает грани всех блоков мира
func (g *Grid) RecomputeFaces() {
	for x := 0; x < g.width; x++ {
		g.recomputeSlab(x)
	}
}

// RecomputeFacesParallel то же, что RecomputeFaces, по задаче на срез X.
// Каждая задача пишет только свои блоки и лишь читает типы соседей.
func (g *Grid) RecomputeFacesParallel(q *taskqueue.Queue) error {
	slabs := make([]int, g.width)
	for x := range slabs {
		slabs[x] = x
	}
	if err := taskqueue.Submit(q, slabs, func(x int) error {
		g.recomputeSlab(x)
		return nil
	}); err != nil {
		return err
	}
	return q.Run()
}

func (g *Grid) recomputeSlab(x int) {
	for z := 0; z < g.depth; z++ {
		for y := 0; y < g.height; y++ {
			b := g.at(x, y, z)
			b.Faces = g.computeFaces(x, y, z, b.Type)
		}
	}
}

// FacesAt грани блока, которые получились бы при полном пересчёте
func (g *Grid) FacesAt(x, y, z int) block.Faces {
	if !g.inBounds(x, y, z) {
		return 0
	}
	return g.computeFaces(x, y, z, g.at(x, y, z).Type)
}

// refreshFaceBit пересчитывает одну грань соседа после изменения клетки.
// Если бит изменился, чанк соседа требует пересоздания меша.
func (g *Grid) refreshFaceBit(x, y, z int, f block.Face) {
	b := g.at(x, y, z)
	if b.Type == block.Air {
		return
	}
	visible := g.faceVisible(x, y, z, b.Type, f)
	if visible == b.Faces.Has(f) {
		return
	}
	if visible {
		b.Faces = b.Faces.With(f)
	} else {
		b.Faces = b.Faces.Without(f)
	}
	g.chunks[g.chunkIndexOfBlock(x, y, z)].Status = NeedsRecreate
}

// refreshNeighbours обновляет у шести соседей грань, смотрящую на (x, y, z)
func (g *Grid) refreshNeighbours(x, y, z int) {
	for _, f := range block.AllFaces {
		o := f.Offset()
		nx, ny, nz := x+o.X, y+o.Y, z+o.Z
		if !g.inBounds(nx, ny, nz) {
			continue
		}
		g.refreshFaceBit(nx, ny, nz, f.Opposite())
	}
}

func (g *Grid) chunkIndexOfBlock(x, y, z int) int {
	cs := g.dims.ChunkSize
	return ((x/cs)*g.dims.SizeZ+z/cs)*g.dims.HeightChunks + y/cs
}
