package mesh

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/annel0/blockverse/internal/world/block"
)

// AtlasTiles число плиток по стороне атласа текстур
const AtlasTiles = 16

const tileSize = float32(1) / AtlasTiles

// Tile позиция плитки в атласе: столбец и строка от левого нижнего угла
type Tile struct {
	Col int
	Row int
}

// Rect четыре угла плитки в порядке uv00, uv10, uv01, uv11
type Rect [4]mgl32.Vec2

// Rect углы плитки в UV-пространстве атласа
func (t Tile) Rect() Rect {
	u0 := float32(t.Col) * tileSize
	v0 := float32(t.Row) * tileSize
	u1 := u0 + tileSize
	v1 := v0 + tileSize
	return Rect{
		{u0, v0},
		{u1, v0},
		{u0, v1},
		{u1, v1},
	}
}

// quad UV для четырёх вершин грани: uv11, uv01, uv00, uv10
func (r Rect) quad() [4]mgl32.Vec2 {
	return [4]mgl32.Vec2{r[3], r[2], r[0], r[1]}
}

// Плитки атласа
var (
	tileGrassTop  = Tile{Col: 2, Row: 6}
	tileGrassSide = Tile{Col: 3, Row: 15}
	tileDirt      = Tile{Col: 2, Row: 15}
	tileStone     = Tile{Col: 0, Row: 14}
	tileDiamond   = Tile{Col: 2, Row: 12}
	tileBedrock   = Tile{Col: 5, Row: 13}
	tileRedstone  = Tile{Col: 3, Row: 12}
	tileSand      = Tile{Col: 2, Row: 14}
	tileLeaves    = Tile{Col: 4, Row: 12}
	tileWood      = Tile{Col: 4, Row: 14}
	tileWoodbase  = Tile{Col: 5, Row: 14}
	tileWater     = Tile{Col: 15, Row: 3}
)

var blockTiles = map[block.BlockType]Tile{
	block.Dirt:     tileDirt,
	block.Stone:    tileStone,
	block.Diamond:  tileDiamond,
	block.Bedrock:  tileBedrock,
	block.Redstone: tileRedstone,
	block.Sand:     tileSand,
	block.Leaves:   tileLeaves,
	block.Wood:     tileWood,
	block.Woodbase: tileWoodbase,
	block.Water:    tileWater,
	block.Grass:    tileGrassSide,
}

// crackRow строка атласа с полосой трещин: стадия i лежит в столбце i
const crackRow = 0

// TileFor плитка для грани блока. У травы верх, низ и бока разные,
// остальные типы используют одну плитку на все грани.
func TileFor(t block.BlockType, f block.Face) Tile {
	if t == block.Grass {
		switch f {
		case block.Top:
			return tileGrassTop
		case block.Bottom:
			return tileDirt
		default:
			return tileGrassSide
		}
	}
	return blockTiles[t]
}

// CrackTile плитка трещин для стадии повреждения
func CrackTile(level uint8) Tile {
	if int(level) >= block.CrackLevels {
		level = block.CrackLevels - 1
	}
	return Tile{Col: int(level), Row: crackRow}
}

// precomputed UV четвёрки: [тип][грань] и [стадия]
var (
	faceUVs  [256][block.NumFaces][4]mgl32.Vec2
	crackUVs [block.CrackLevels][4]mgl32.Vec2
)

func init() {
	for t := 0; t < block.Count(); t++ {
		for _, f := range block.AllFaces {
			faceUVs[t][f] = TileFor(block.BlockType(t), f).Rect().quad()
		}
	}
	for l := 0; l < block.CrackLevels; l++ {
		crackUVs[l] = CrackTile(uint8(l)).Rect().quad()
	}
}
