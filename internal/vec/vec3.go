package vec

import "fmt"

// Vec3 представляет трехмерный вектор с целочисленными координатами.
// Используется для мировых координат блоков, координат чанков и
// локальных координат блока внутри чанка.
type Vec3 struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

// String возвращает "(x,y,z)"
func (v Vec3) String() string {
	return fmt.Sprintf("(%d,%d,%d)", v.X, v.Y, v.Z)
}

// Equals проверяет равенство векторов
func (v Vec3) Equals(other Vec3) bool {
	return v.X == other.X && v.Y == other.Y && v.Z == other.Z
}

// Add складывает два вектора
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

// Scale умножает все компоненты на k
func (v Vec3) Scale(k int) Vec3 {
	return Vec3{X: v.X * k, Y: v.Y * k, Z: v.Z * k}
}

// Div выполняет целочисленное деление с округлением вниз (для отрицательных тоже),
// так что ToChunk корректен и за пределами сетки.
func (v Vec3) Div(k int) Vec3 {
	return Vec3{X: floorDiv(v.X, k), Y: floorDiv(v.Y, k), Z: floorDiv(v.Z, k)}
}

// Mod возвращает неотрицательный остаток от деления каждой компоненты на k
func (v Vec3) Mod(k int) Vec3 {
	return Vec3{X: floorMod(v.X, k), Y: floorMod(v.Y, k), Z: floorMod(v.Z, k)}
}

// ToChunk переводит мировую координату блока в координату чанка
func (v Vec3) ToChunk(chunkSize int) Vec3 {
	return v.Div(chunkSize)
}

// LocalInChunk возвращает координату блока внутри его чанка
func (v Vec3) LocalInChunk(chunkSize int) Vec3 {
	return v.Mod(chunkSize)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
