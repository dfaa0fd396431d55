package world

import (
	"errors"
	"fmt"

	"github.com/annel0/blockverse/internal/vec"
)

var (
	ErrOutOfBounds       = errors.New("world: position out of bounds")
	ErrNotBuildable      = errors.New("world: cannot build here")
	ErrInvalidDimensions = errors.New("world: invalid dimensions")
	ErrNotDestructible   = errors.New("world: block is indestructible")
	ErrNothingToDestroy  = errors.New("world: no block at position")
)

// Dimensions размер мира в чанках и длина ребра чанка
type Dimensions struct {
	SizeX        int // чанков по X
	SizeZ        int // чанков по Z
	HeightChunks int // чанков по Y
	ChunkSize    int // блоков в ребре чанка
}

// Validate проверяет, что все размеры положительны
func (d Dimensions) Validate() error {
	if d.SizeX <= 0 || d.SizeZ <= 0 || d.HeightChunks <= 0 || d.ChunkSize <= 0 {
		return fmt.Errorf("%w: %+v", ErrInvalidDimensions, d)
	}
	return nil
}

// Width ширина мира в блоках (X)
func (d Dimensions) Width() int { return d.SizeX * d.ChunkSize }

// Height высота мира в блоках (Y)
func (d Dimensions) Height() int { return d.HeightChunks * d.ChunkSize }

// Depth глубина мира в блоках (Z)
func (d Dimensions) Depth() int { return d.SizeZ * d.ChunkSize }

// Grid плотная трёхмерная сетка блоков и чанков всего мира.
//
// Блоки лежат в одном буфере в порядке (x, z, y): колонка по Y непрерывна.
// Чанки лежат в том же порядке. Grid не потокобезопасен; параллельные
// фазы генерации пишут только в непересекающиеся колонки.
type Grid struct {
	dims   Dimensions
	width  int
	height int
	depth  int
	blocks []Block
	chunks []ChunkRecord
}

// NewGrid выделяет сетку. Все блоки: воздух, все чанки NotReady.
func NewGrid(dims Dimensions) (*Grid, error) {
	if err := dims.Validate(); err != nil {
		return nil, err
	}
	g := &Grid{
		dims:   dims,
		width:  dims.Width(),
		height: dims.Height(),
		depth:  dims.Depth(),
	}
	g.blocks = make([]Block, g.width*g.height*g.depth)
	g.chunks = make([]ChunkRecord, dims.SizeX*dims.SizeZ*dims.HeightChunks)

	for cx := 0; cx < dims.SizeX; cx++ {
		for cz := 0; cz < dims.SizeZ; cz++ {
			for cy := 0; cy < dims.HeightChunks; cy++ {
				c := vec.Vec3{X: cx, Y: cy, Z: cz}
				g.chunks[g.chunkIndex(c)] = ChunkRecord{
					Coord:  c,
					Origin: c.Scale(dims.ChunkSize),
					Status: NotReady,
				}
			}
		}
	}
	return g, nil
}

// Dimensions размеры сетки
func (g *Grid) Dimensions() Dimensions { return g.dims }

// Width ширина в блоках
func (g *Grid) Width() int { return g.width }

// Height высота в блоках
func (g *Grid) Height() int { return g.height }

// Depth глубина в блоках
func (g *Grid) Depth() int { return g.depth }

// ChunkSize длина ребра чанка
func (g *Grid) ChunkSize() int { return g.dims.ChunkSize }

// Index плоский индекс блока (x, y, z). Координаты не проверяются.
func (g *Grid) Index(x, y, z int) int {
	return (x*g.depth+z)*g.height + y
}

// Coord обратное преобразование плоского индекса
func (g *Grid) Coord(i int) vec.Vec3 {
	y := i % g.height
	r := i / g.height
	return vec.Vec3{X: r / g.depth, Y: y, Z: r % g.depth}
}

// InBounds проверяет, что позиция внутри мира
func (g *Grid) InBounds(p vec.Vec3) bool {
	return g.inBounds(p.X, p.Y, p.Z)
}

func (g *Grid) inBounds(x, y, z int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height && z >= 0 && z < g.depth
}

// Get возвращает блок; ok == false за пределами мира
func (g *Grid) Get(p vec.Vec3) (Block, bool) {
	if !g.InBounds(p) {
		return Block{}, false
	}
	return g.blocks[g.Index(p.X, p.Y, p.Z)], true
}

// Set записывает блок
func (g *Grid) Set(p vec.Vec3, b Block) error {
	if !g.InBounds(p) {
		return fmt.Errorf("%w: %s", ErrOutOfBounds, p)
	}
	g.blocks[g.Index(p.X, p.Y, p.Z)] = b
	return nil
}

// at указатель на блок без проверки границ
func (g *Grid) at(x, y, z int) *Block {
	return &g.blocks[g.Index(x, y, z)]
}

// Blocks весь буфер блоков в порядке (x, z, y). Срез общий с сеткой.
func (g *Grid) Blocks() []Block { return g.blocks }

// ChunkRecords все чанки в порядке (x, z, y). Срез общий с сеткой.
func (g *Grid) ChunkRecords() []ChunkRecord { return g.chunks }

func (g *Grid) chunkIndex(c vec.Vec3) int {
	return (c.X*g.dims.SizeZ+c.Z)*g.dims.HeightChunks + c.Y
}

// ChunkInBounds проверяет координату чанка
func (g *Grid) ChunkInBounds(c vec.Vec3) bool {
	return c.X >= 0 && c.X < g.dims.SizeX &&
		c.Y >= 0 && c.Y < g.dims.HeightChunks &&
		c.Z >= 0 && c.Z < g.dims.SizeZ
}

// Chunk возвращает запись чанка
func (g *Grid) Chunk(c vec.Vec3) (ChunkRecord, bool) {
	if !g.ChunkInBounds(c) {
		return ChunkRecord{}, false
	}
	return g.chunks[g.chunkIndex(c)], true
}

// ChunkOf координата чанка, которому принадлежит блок
func (g *Grid) ChunkOf(p vec.Vec3) vec.Vec3 {
	return p.ToChunk(g.dims.ChunkSize)
}

// SetChunkStatus безусловно выставляет статус чанка
func (g *Grid) SetChunkStatus(c vec.Vec3, s ChunkStatus) {
	if g.ChunkInBounds(c) {
		g.chunks[g.chunkIndex(c)].Status = s
	}
}

// MarkChunk повышает статус чанка. NeedsRecreate не понижается до NeedsRedraw.
func (g *Grid) MarkChunk(c vec.Vec3, s ChunkStatus) {
	if !g.ChunkInBounds(c) {
		return
	}
	rec := &g.chunks[g.chunkIndex(c)]
	rec.Status = mergeStatus(rec.Status, s)
}

// MarkBlockChunk помечает чанк, содержащий блок
func (g *Grid) MarkBlockChunk(p vec.Vec3, s ChunkStatus) {
	g.MarkChunk(g.ChunkOf(p), s)
}

// SetAllChunks выставляет один статус всем чанкам
func (g *Grid) SetAllChunks(s ChunkStatus) {
	for i := range g.chunks {
		g.chunks[i].Status = s
	}
}

// DirtyChunks чанки, которым нужен новый меш
func (g *Grid) DirtyChunks() []ChunkRecord {
	var dirty []ChunkRecord
	for _, rec := range g.chunks {
		if rec.Status.Dirty() {
			dirty = append(dirty, rec)
		}
	}
	return dirty
}

// Clone глубокая копия сетки
func (g *Grid) Clone() *Grid {
	c := *g
	c.blocks = append([]Block(nil), g.blocks...)
	c.chunks = append([]ChunkRecord(nil), g.chunks...)
	return &c
}
