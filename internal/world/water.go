package world

import (
	"github.com/annel0/blockverse/internal/world/block"
)

// AddWater заливает мир водой до уровня level и возвращает число новых
// блоков воды. Весь воздух на уровне level становится водой, вода
// опускается вниз по слоям и растекается по каждому слою, пока слой
// ниже получает хотя бы один новый блок.
//
// Это не симуляция жидкости: вода заполняет котловины, связанные с
// поверхностью, и не проходит сквозь твёрдые стенки.
func AddWater(g *Grid, level int) int {
	if level < 1 || level >= g.height {
		return 0
	}

	total := 0
	seededBelow := 0
	for x := 0; x < g.width; x++ {
		for z := 0; z < g.depth; z++ {
			b := g.at(x, level, z)
			if b.Type != block.Air {
				continue
			}
			*b = NewBlock(block.Water)
			total++
			if below := g.at(x, level-1, z); below.Type == block.Air {
				*below = NewBlock(block.Water)
				seededBelow++
			}
		}
	}
	total += seededBelow
	total += spreadLayer(g, level)

	for y := level - 1; y >= 1; y-- {
		converted := 0
		for x := 0; x < g.width; x++ {
			for z := 0; z < g.depth; z++ {
				b := g.at(x, y, z)
				if b.Type == block.Air && g.at(x, y+1, z).Type == block.Water {
					*b = NewBlock(block.Water)
					converted++
				}
			}
		}
		if converted == 0 && !(y == level-1 && seededBelow > 0) {
			break
		}
		total += converted
		total += spreadLayer(g, y)
	}
	return total
}

// spreadLayer растекание воды по слою y. Сначала четыре прохода по осям,
// затем проверка четырёх соседей до неподвижной точки: проходы в одну
// сторону не видят карманы, открытые только назад.
func spreadLayer(g *Grid, y int) int {
	n := 0
	water := func(x, z int) bool { return g.at(x, y, z).Type == block.Water }
	fill := func(x, z int) bool {
		b := g.at(x, y, z)
		if b.Type != block.Air {
			return false
		}
		*b = NewBlock(block.Water)
		n++
		return true
	}

	for z := 0; z < g.depth; z++ {
		for x := 1; x < g.width; x++ {
			if water(x-1, z) {
				fill(x, z)
			}
		}
		for x := g.width - 2; x >= 0; x-- {
			if water(x+1, z) {
				fill(x, z)
			}
		}
	}
	for x := 0; x < g.width; x++ {
		for z := 1; z < g.depth; z++ {
			if water(x, z-1) {
				fill(x, z)
			}
		}
		for z := g.depth - 2; z >= 0; z-- {
			if water(x, z+1) {
				fill(x, z)
			}
		}
	}

	for {
		changed := false
		for x := 0; x < g.width; x++ {
			for z := 0; z < g.depth; z++ {
				if g.at(x, y, z).Type != block.Air {
					continue
				}
				if (x > 0 && water(x-1, z)) || (x+1 < g.width && water(x+1, z)) ||
					(z > 0 && water(x, z-1)) || (z+1 < g.depth && water(x, z+1)) {
					fill(x, z)
					changed = true
				}
			}
		}
		if !changed {
			return n
		}
	}
}
