// Package mesh строит геометрию чанков по граням блоков.
package mesh

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/annel0/blockverse/internal/vec"
)

// Mesh буферы одного меша. Четыре вершины и шесть индексов на грань.
type Mesh struct {
	Vertices []mgl32.Vec3
	Normals  []mgl32.Vec3
	UVs      []mgl32.Vec2
	CrackUVs []mgl32.Vec2
	Indices  []uint32
}

func newMesh(faces int) Mesh {
	return Mesh{
		Vertices: make([]mgl32.Vec3, 0, faces*4),
		Normals:  make([]mgl32.Vec3, 0, faces*4),
		UVs:      make([]mgl32.Vec2, 0, faces*4),
		CrackUVs: make([]mgl32.Vec2, 0, faces*4),
		Indices:  make([]uint32, 0, faces*6),
	}
}

// FaceCount число граней в меше
func (m Mesh) FaceCount() int {
	return len(m.Vertices) / 4
}

// Empty true для меша без геометрии
func (m Mesh) Empty() bool {
	return len(m.Vertices) == 0
}

// ChunkMesh непрозрачная земля и вода одного чанка. Вода рисуется с
// альфа-смешиванием, поэтому это отдельная цель отрисовки.
type ChunkMesh struct {
	Coord   vec.Vec3
	Origin  vec.Vec3
	Terrain Mesh
	Water   Mesh
}
