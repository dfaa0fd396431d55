package world

import (
	"sync/atomic"

	"github.com/annel0/blockverse/internal/taskqueue"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world/block"
)

// Шаблон дерева над травой на высоте g: основание на g+1, ствол на g+2..g+3,
// кольцо листвы вокруг ствола на g+3, полный слой 3x3 на g+4, верхушка на g+5.
const treeHeight = 5

// lateral восемь соседей колонки
var lateral = [8][2]int{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// AddTrees последовательно сажает деревья.
// Стволы ставятся только во внутренние колонки чанка, так что вдоль
// границ чанков (x или z кратно cs либо равно cs-1 по модулю cs) деревьев
// нет: на ландшафте видна сетка полос шириной в два блока без стволов.
func (gen *Generator) AddTrees(g *Grid, density TreeDensity) int {
	n, _ := gen.addTrees(g, density, nil)
	return n
}

// addTrees сажает деревья по задаче на колонку чанков.
// Ствол ставится только во внутренние колонки чанка [1, cs-2], поэтому
// дерево целиком лежит в своём чанке и задачи пишут в непересекающиеся
// области. Это же исключает колонки на краю мира.
func (gen *Generator) addTrees(g *Grid, density TreeDensity, q *taskqueue.Queue) (int, error) {
	threshold := density.Threshold()
	cs := g.ChunkSize()
	if threshold <= 0 || cs < 3 || g.height <= treeHeight {
		return 0, nil
	}

	var planted atomic.Int64
	plantChunk := func(c vec.Vec3) error {
		n := 0
		for x := c.X*cs + 1; x <= c.X*cs+cs-2; x++ {
			for z := c.Z*cs + 1; z <= c.Z*cs+cs-2; z++ {
				if gen.tryTree(g, x, z, threshold) {
					n++
				}
			}
		}
		planted.Add(int64(n))
		return nil
	}

	cols := chunkColumns(g)
	if q == nil {
		for _, c := range cols {
			_ = plantChunk(c)
		}
		return int(planted.Load()), nil
	}
	if err := taskqueue.Submit(q, cols, plantChunk); err != nil {
		return 0, err
	}
	if err := q.Run(); err != nil {
		return 0, err
	}
	return int(planted.Load()), nil
}

// surface высота первого непустого блока сверху, -1 для пустой колонки
func surface(g *Grid, x, z int) int {
	for y := g.height - 1; y >= 0; y-- {
		if g.at(x, y, z).Type != block.Air {
			return y
		}
	}
	return -1
}

// canPlaceTree проверяет свободный объём над травой
func canPlaceTree(g *Grid, x, ground, z int) bool {
	if ground+treeHeight >= g.height {
		return false
	}
	for y := ground + 1; y <= ground+treeHeight; y++ {
		if g.at(x, y, z).Type != block.Air {
			return false
		}
	}
	for _, y := range [2]int{ground + 3, ground + 4} {
		for _, d := range lateral {
			nx, nz := x+d[0], z+d[1]
			if !g.inBounds(nx, y, nz) || g.at(nx, y, nz).Type != block.Air {
				return false
			}
		}
	}
	return true
}

func (gen *Generator) tryTree(g *Grid, x, z int, threshold float64) bool {
	ground := surface(g, x, z)
	if ground < 0 || g.at(x, ground, z).Type != block.Grass {
		return false
	}
	if !canPlaceTree(g, x, ground, z) {
		return false
	}
	if gen.classifier.TreeDensity(x, z) >= threshold {
		return false
	}
	placeTree(g, x, ground, z)
	return true
}

func placeTree(g *Grid, x, ground, z int) {
	*g.at(x, ground+1, z) = NewBlock(block.Woodbase)
	*g.at(x, ground+2, z) = NewBlock(block.Wood)
	*g.at(x, ground+3, z) = NewBlock(block.Wood)
	for _, d := range lateral {
		*g.at(x+d[0], ground+3, z+d[1]) = NewBlock(block.Leaves)
		*g.at(x+d[0], ground+4, z+d[1]) = NewBlock(block.Leaves)
	}
	*g.at(x, ground+4, z) = NewBlock(block.Leaves)
	*g.at(x, ground+5, z) = NewBlock(block.Leaves)
}
