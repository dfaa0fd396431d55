package world

import (
	"fmt"
	"strings"
	"time"

	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/taskqueue"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// TreeDensity плотность деревьев
type TreeDensity string

const (
	TreesNone TreeDensity = "none"
	TreesSome TreeDensity = "some"
	TreesLots TreeDensity = "lots"
)

// Пороги шума для принятия дерева
const (
	treesSomeThreshold = 0.36
	treesLotsThreshold = 0.42
)

// ParseTreeDensity разбирает строку конфигурации
func ParseTreeDensity(s string) (TreeDensity, error) {
	switch d := TreeDensity(strings.ToLower(strings.TrimSpace(s))); d {
	case TreesNone, TreesSome, TreesLots:
		return d, nil
	case "":
		return TreesSome, nil
	default:
		return "", fmt.Errorf("unknown tree density %q", s)
	}
}

// Threshold порог шума; 0 отключает деревья
func (d TreeDensity) Threshold() float64 {
	switch d {
	case TreesSome:
		return treesSomeThreshold
	case TreesLots:
		return treesLotsThreshold
	default:
		return 0
	}
}

// GenerateOptions параметры одного прохода генерации
type GenerateOptions struct {
	WaterLevel int
	Trees      TreeDensity
	// Queue включает параллельные фазы; nil означает последовательную генерацию
	Queue *taskqueue.Queue
}

// Report сводка по фазам генерации
type Report struct {
	Columns     time.Duration
	Water       time.Duration
	Trees       time.Duration
	Faces       time.Duration
	WaterBlocks int
	TreeCount   int
}

// Total суммарное время
func (r Report) Total() time.Duration {
	return r.Columns + r.Water + r.Trees + r.Faces
}

// Generator заполняет сетку по классификатору
type Generator struct {
	classifier Classifier
	logger     *logging.Logger
}

// NewGenerator создаёт генератор
func NewGenerator(c Classifier) *Generator {
	return &Generator{
		classifier: c,
		logger:     logging.GetWorldgenLogger(),
	}
}

// Generate строит мир целиком. Фазы строго последовательны:
// колонки, вода, деревья, грани. Ошибка любой фазы проваливает генерацию.
func (gen *Generator) Generate(g *Grid, opts GenerateOptions) (Report, error) {
	var rep Report
	mode := "sequential"
	if opts.Queue != nil {
		mode = fmt.Sprintf("parallel/%d", opts.Queue.Workers())
	}
	gen.logger.Info("Генерация мира %dx%dx%d (%s)", g.Width(), g.Height(), g.Depth(), mode)

	start := time.Now()
	if err := gen.populate(g, opts.Queue); err != nil {
		return rep, fmt.Errorf("populate columns: %w", err)
	}
	rep.Columns = time.Since(start)
	gen.logger.Debug("Колонки готовы за %v", rep.Columns)

	start = time.Now()
	rep.WaterBlocks = AddWater(g, opts.WaterLevel)
	rep.Water = time.Since(start)
	gen.logger.Debug("Вода: %d блоков за %v", rep.WaterBlocks, rep.Water)

	start = time.Now()
	trees, err := gen.addTrees(g, opts.Trees, opts.Queue)
	if err != nil {
		return rep, fmt.Errorf("add trees: %w", err)
	}
	rep.TreeCount = trees
	rep.Trees = time.Since(start)
	gen.logger.Debug("Деревья: %d за %v", rep.TreeCount, rep.Trees)

	start = time.Now()
	if opts.Queue != nil {
		if err := g.RecomputeFacesParallel(opts.Queue); err != nil {
			return rep, fmt.Errorf("compute faces: %w", err)
		}
	} else {
		g.RecomputeFaces()
	}
	rep.Faces = time.Since(start)

	g.SetAllChunks(NotReady)
	gen.logger.Info("Мир сгенерирован за %v", rep.Total())
	return rep, nil
}

// chunkColumns координаты всех колонок чанков (y = 0)
func chunkColumns(g *Grid) []vec.Vec3 {
	d := g.Dimensions()
	cols := make([]vec.Vec3, 0, d.SizeX*d.SizeZ)
	for cx := 0; cx < d.SizeX; cx++ {
		for cz := 0; cz < d.SizeZ; cz++ {
			cols = append(cols, vec.Vec3{X: cx, Z: cz})
		}
	}
	return cols
}

// Populate последовательно классифицирует все колонки мира
func (gen *Generator) Populate(g *Grid) {
	for x := 0; x < g.width; x++ {
		for z := 0; z < g.depth; z++ {
			gen.fillColumn(g, x, z)
		}
	}
}

func (gen *Generator) populate(g *Grid, q *taskqueue.Queue) error {
	if q == nil {
		gen.Populate(g)
		return nil
	}
	cs := g.ChunkSize()
	if err := taskqueue.Submit(q, chunkColumns(g), func(c vec.Vec3) error {
		for x := c.X * cs; x < (c.X+1)*cs; x++ {
			for z := c.Z * cs; z < (c.Z+1)*cs; z++ {
				gen.fillColumn(g, x, z)
			}
		}
		return nil
	}); err != nil {
		return err
	}
	return q.Run()
}

// fillColumn классифицирует колонку до её верхнего порога, выше: воздух
func (gen *Generator) fillColumn(g *Grid, x, z int) {
	h := gen.classifier.ColumnHeights(x, z)
	top := h.Max()
	if top > g.height-1 {
		top = g.height - 1
	}
	base := g.Index(x, 0, z)
	for y := 0; y <= top; y++ {
		t := gen.classifier.BlockTypeAt(x, y, z, h)
		if t == block.Air {
			g.blocks[base+y] = Block{}
			continue
		}
		g.blocks[base+y] = NewBlock(t)
	}
	clear(g.blocks[base+top+1 : base+g.height])
}
