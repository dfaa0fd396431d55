package block

import (
	"math/bits"
	"strings"

	"github.com/annel0/blockverse/internal/vec"
)

// Face одна из шести граней куба. Порядок перечисления фиксирован и
// совпадает с порядком вывода граней в меш.
type Face uint8

const (
	Right  Face = iota // +X
	Left               // -X
	Top                // +Y
	Bottom             // -Y
	Front              // +Z
	Back               // -Z

	NumFaces
)

// AllFaces грани в порядке перечисления
var AllFaces = [NumFaces]Face{Right, Left, Top, Bottom, Front, Back}

var faceNames = [NumFaces]string{"right", "left", "top", "bottom", "front", "back"}

var faceOffsets = [NumFaces]vec.Vec3{
	Right:  {X: 1},
	Left:   {X: -1},
	Top:    {Y: 1},
	Bottom: {Y: -1},
	Front:  {Z: 1},
	Back:   {Z: -1},
}

func (f Face) String() string {
	if f < NumFaces {
		return faceNames[f]
	}
	return "invalid"
}

// Offset единичный шаг к соседу через эту грань
func (f Face) Offset() vec.Vec3 {
	return faceOffsets[f]
}

// Opposite грань соседа, смотрящая обратно на этот блок
func (f Face) Opposite() Face {
	return f ^ 1
}

// Bit маска грани в наборе Faces
func (f Face) Bit() Faces {
	return Faces(1) << f
}

// Faces 6-битный набор открытых граней.
type Faces uint8

// AllFacesMask все шесть граней
const AllFacesMask Faces = 1<<NumFaces - 1

// Has проверяет наличие грани
func (fs Faces) Has(f Face) bool {
	return fs&f.Bit() != 0
}

// With возвращает набор с добавленной гранью
func (fs Faces) With(f Face) Faces {
	return fs | f.Bit()
}

// Without возвращает набор без грани
func (fs Faces) Without(f Face) Faces {
	return fs &^ f.Bit()
}

// Count количество открытых граней
func (fs Faces) Count() int {
	return bits.OnesCount8(uint8(fs & AllFacesMask))
}

// Empty true, если ни одна грань не открыта
func (fs Faces) Empty() bool {
	return fs&AllFacesMask == 0
}

func (fs Faces) String() string {
	if fs.Empty() {
		return "none"
	}
	parts := make([]string, 0, NumFaces)
	for _, f := range AllFaces {
		if fs.Has(f) {
			parts = append(parts, f.String())
		}
	}
	return strings.Join(parts, "|")
}
