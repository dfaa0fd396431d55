package world

import (
	"github.com/annel0/blockverse/internal/util"
	"github.com/annel0/blockverse/internal/world/block"
)

// LayerParams параметры шума для одного слоя высот
type LayerParams struct {
	MaxHeight   int     `yaml:"max_height"`
	Smoothing   float64 `yaml:"smoothing"`
	Octaves     int     `yaml:"octaves"`
	Persistence float64 `yaml:"persistence"`
}

// ProbeParams параметры трёхмерной пробы (пещеры, руды).
// Проба срабатывает, когда шум меньше Probability. MaxHeight == 0 снимает
// ограничение по высоте.
type ProbeParams struct {
	Probability float64 `yaml:"probability"`
	Smoothing   float64 `yaml:"smoothing"`
	Octaves     int     `yaml:"octaves"`
	MaxHeight   int     `yaml:"max_height"`
}

// TreeNoiseParams параметры шума плотности деревьев
type TreeNoiseParams struct {
	Smoothing   float64 `yaml:"smoothing"`
	Octaves     int     `yaml:"octaves"`
	Persistence float64 `yaml:"persistence"`
}

// TerrainParams все константы классификации
type TerrainParams struct {
	Dirt     LayerParams     `yaml:"dirt"`
	Stone    LayerParams     `yaml:"stone"`
	Bedrock  LayerParams     `yaml:"bedrock"`
	Caves    ProbeParams     `yaml:"caves"`
	Diamond  ProbeParams     `yaml:"diamond"`
	Redstone ProbeParams     `yaml:"redstone"`
	Trees    TreeNoiseParams `yaml:"trees"`
}

// probePersistence persistence для трёхмерных проб
const probePersistence = 0.5

// DefaultTerrainParams константы по умолчанию
func DefaultTerrainParams() TerrainParams {
	return TerrainParams{
		Dirt:     LayerParams{MaxHeight: 90, Smoothing: 0.01, Octaves: 4, Persistence: 0.5},
		Stone:    LayerParams{MaxHeight: 80, Smoothing: 0.02, Octaves: 5, Persistence: 0.5},
		Bedrock:  LayerParams{MaxHeight: 4, Smoothing: 0.05, Octaves: 1, Persistence: 0.5},
		Caves:    ProbeParams{Probability: 0.42, Smoothing: 0.1, Octaves: 3},
		Diamond:  ProbeParams{Probability: 0.40, Smoothing: 0.01, Octaves: 2, MaxHeight: 40},
		Redstone: ProbeParams{Probability: 0.41, Smoothing: 0.03, Octaves: 3, MaxHeight: 20},
		Trees:    TreeNoiseParams{Smoothing: 0.3, Octaves: 2, Persistence: 0.5},
	}
}

// Heights пороги высот одной колонки (включительно)
type Heights struct {
	Bedrock int
	Stone   int
	Dirt    int
}

// Max наибольший из трёх порогов
func (h Heights) Max() int {
	m := h.Bedrock
	if h.Stone > m {
		m = h.Stone
	}
	if h.Dirt > m {
		m = h.Dirt
	}
	return m
}

// Classifier решает, какой блок стоит в точке мира.
// Реализации обязаны быть чистыми функциями координат.
type Classifier interface {
	ColumnHeights(x, z int) Heights
	BlockTypeAt(x, y, z int, h Heights) block.BlockType
	TreeDensity(x, z int) float64
}

// NoiseClassifier классификатор на фрактальном шуме
type NoiseClassifier struct {
	noise  *util.NoiseField
	params TerrainParams
}

// NewNoiseClassifier создаёт классификатор для сида
func NewNoiseClassifier(seed int64, params TerrainParams) *NoiseClassifier {
	return &NoiseClassifier{
		noise:  util.NewNoiseField(seed),
		params: params,
	}
}

// Params константы классификатора
func (c *NoiseClassifier) Params() TerrainParams {
	return c.params
}

func (c *NoiseClassifier) layerHeight(x, z int, p LayerParams) int {
	v := c.noise.Sample(float64(x)*p.Smoothing, float64(z)*p.Smoothing, p.Octaves, p.Persistence)
	return util.MapRange(v, p.MaxHeight)
}

func (c *NoiseClassifier) probe(x, y, z int, p ProbeParams) bool {
	if p.MaxHeight > 0 && y >= p.MaxHeight {
		return false
	}
	s := p.Smoothing
	v := c.noise.Sample3D(float64(x)*s, float64(y)*s, float64(z)*s, p.Octaves, probePersistence)
	return v < p.Probability
}

// ColumnHeights пороги колонки (x, z)
func (c *NoiseClassifier) ColumnHeights(x, z int) Heights {
	return Heights{
		Bedrock: c.layerHeight(x, z, c.params.Bedrock),
		Stone:   c.layerHeight(x, z, c.params.Stone),
		Dirt:    c.layerHeight(x, z, c.params.Dirt),
	}
}

// BlockTypeAt тип блока в точке. Порядок проверок определяет мир,
// менять его нельзя.
func (c *NoiseClassifier) BlockTypeAt(x, y, z int, h Heights) block.BlockType {
	if y == 0 {
		return block.Bedrock
	}
	if y > h.Max() {
		return block.Air
	}
	if c.probe(x, y, z, c.params.Caves) {
		return block.Air
	}
	if y <= h.Bedrock {
		return block.Bedrock
	}
	if y <= h.Stone {
		if c.probe(x, y, z, c.params.Diamond) {
			return block.Diamond
		}
		if c.probe(x, y, z, c.params.Redstone) {
			return block.Redstone
		}
		return block.Stone
	}
	if y == h.Dirt {
		return block.Grass
	}
	return block.Dirt
}

// TreeDensity значение шума плотности деревьев в колонке
func (c *NoiseClassifier) TreeDensity(x, z int) float64 {
	p := c.params.Trees
	return c.noise.Sample(float64(x)*p.Smoothing, float64(z)*p.Smoothing, p.Octaves, p.Persistence)
}
