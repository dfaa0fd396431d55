package util

import (
	"github.com/aquilax/go-perlin"
)

// Параметры базового шума Перлина. Октавы суммируются в NoiseField.Sample,
// поэтому сам генератор работает с одной октавой.
const (
	perlinAlpha = 2.0
	perlinBeta  = 2.0
	perlinN     = int32(1)
)

// NoiseField детерминированный фрактальный шум. Чистая функция от
// (seed, x, z): один и тот же сид всегда даёт тот же мир.
// Безопасен для одновременного чтения из нескольких горутин.
type NoiseField struct {
	seed   int64
	offset float64
	perlin *perlin.Perlin
}

// NewNoiseField создаёт поле шума для указанного сида
func NewNoiseField(seed int64) *NoiseField {
	return &NoiseField{
		seed:   seed,
		offset: float64(seed),
		perlin: perlin.NewPerlin(perlinAlpha, perlinBeta, perlinN, seed),
	}
}

// Seed возвращает сид поля
func (n *NoiseField) Seed() int64 {
	return n.seed
}

// Noise2D значение базового шума, переведённое из [-1,1] в [0,1]
func (n *NoiseField) Noise2D(x, y float64) float64 {
	v := (n.perlin.Noise2D(x, y) + 1.0) / 2.0
	return clamp01(v)
}

// Sample фрактальная сумма октав:
// Σ noise((x+seed)·2^i, (z+seed)·2^i) · persistence^i, нормированная на сумму амплитуд.
// Координаты уже должны быть умножены на коэффициент сглаживания.
func (n *NoiseField) Sample(x, z float64, octaves int, persistence float64) float64 {
	if octaves < 1 {
		octaves = 1
	}
	total := 0.0
	frequency := 1.0
	amplitude := 1.0
	maxValue := 0.0
	for i := 0; i < octaves; i++ {
		total += n.Noise2D((x+n.offset)*frequency, (z+n.offset)*frequency) * amplitude
		maxValue += amplitude
		amplitude *= persistence
		frequency *= 2
	}
	if maxValue == 0 {
		return 0
	}
	return total / maxValue
}

// Sample3D приближение трёхмерного шума: среднее шести двумерных выборок по
// плоскостям XY, YZ, XZ и их транспозициям. Стоит 6 вызовов Sample,
// поэтому вызывающие держат число октав небольшим.
func (n *NoiseField) Sample3D(x, y, z float64, octaves int, persistence float64) float64 {
	xy := n.Sample(x, y, octaves, persistence)
	yz := n.Sample(y, z, octaves, persistence)
	xz := n.Sample(x, z, octaves, persistence)
	yx := n.Sample(y, x, octaves, persistence)
	zy := n.Sample(z, y, octaves, persistence)
	zx := n.Sample(z, x, octaves, persistence)
	return (xy + yz + xz + yx + zy + zx) / 6.0
}

// MapRange переводит значение из [0,1] в целое [0,max]
func MapRange(value float64, max int) int {
	return int(float64(max) * clamp01(value))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
