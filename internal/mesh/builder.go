package mesh

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
)

// Углы единичного куба вокруг центра блока
var (
	p0 = mgl32.Vec3{-0.5, -0.5, 0.5}
	p1 = mgl32.Vec3{0.5, -0.5, 0.5}
	p2 = mgl32.Vec3{0.5, -0.5, -0.5}
	p3 = mgl32.Vec3{-0.5, -0.5, -0.5}
	p4 = mgl32.Vec3{-0.5, 0.5, 0.5}
	p5 = mgl32.Vec3{0.5, 0.5, 0.5}
	p6 = mgl32.Vec3{0.5, 0.5, -0.5}
	p7 = mgl32.Vec3{-0.5, 0.5, -0.5}
)

// faceCorners вершины квада каждой грани в порядке обхода
var faceCorners = [block.NumFaces][4]mgl32.Vec3{
	block.Right:  {p5, p6, p2, p1},
	block.Left:   {p7, p4, p0, p3},
	block.Top:    {p7, p6, p5, p4},
	block.Bottom: {p0, p1, p2, p3},
	block.Front:  {p4, p5, p1, p0},
	block.Back:   {p6, p7, p3, p2},
}

var faceNormals = [block.NumFaces]mgl32.Vec3{
	block.Right:  {1, 0, 0},
	block.Left:   {-1, 0, 0},
	block.Top:    {0, 1, 0},
	block.Bottom: {0, -1, 0},
	block.Front:  {0, 0, 1},
	block.Back:   {0, 0, -1},
}

// quadIndices локальные индексы двух треугольников квада
var quadIndices = [6]uint32{3, 1, 0, 3, 2, 1}

// Part какие меши чанка строить
type Part uint8

const (
	PartTerrain Part = 1 << iota
	PartWater

	PartAll = PartTerrain | PartWater
)

// Build строит оба меша чанка
func Build(g *world.Grid, chunk vec.Vec3) (ChunkMesh, error) {
	return BuildParts(g, chunk, PartAll)
}

// BuildParts строит указанные меши чанка. Границы мира не проверяются:
// видимость граней уже учитывает их.
//
// Первый проход считает грани, второй заполняет буферы точного размера.
func BuildParts(g *world.Grid, chunk vec.Vec3, parts Part) (ChunkMesh, error) {
	rec, ok := g.Chunk(chunk)
	if !ok {
		return ChunkMesh{}, fmt.Errorf("build mesh: %w: chunk %s", world.ErrOutOfBounds, chunk)
	}
	cm := ChunkMesh{Coord: rec.Coord, Origin: rec.Origin}

	terrainFaces, waterFaces := CountFaces(g, chunk)
	if parts&PartTerrain != 0 {
		cm.Terrain = newMesh(terrainFaces)
	}
	if parts&PartWater != 0 {
		cm.Water = newMesh(waterFaces)
	}

	blocks := g.Blocks()
	cs := g.ChunkSize()
	o := rec.Origin
	for lx := 0; lx < cs; lx++ {
		for lz := 0; lz < cs; lz++ {
			base := g.Index(o.X+lx, o.Y, o.Z+lz)
			for ly := 0; ly < cs; ly++ {
				b := blocks[base+ly]
				if b.Type == block.Air || b.Faces.Empty() {
					continue
				}
				var m *Mesh
				if b.Type == block.Water {
					if parts&PartWater == 0 {
						continue
					}
					m = &cm.Water
				} else {
					if parts&PartTerrain == 0 {
						continue
					}
					m = &cm.Terrain
				}
				pos := mgl32.Vec3{float32(lx), float32(ly), float32(lz)}
				for _, f := range block.AllFaces {
					if b.Faces.Has(f) {
						m.appendQuad(pos, b, f)
					}
				}
			}
		}
	}
	return cm, nil
}

// CountFaces число открытых граней земли и воды в чанке
func CountFaces(g *world.Grid, chunk vec.Vec3) (terrain, water int) {
	rec, ok := g.Chunk(chunk)
	if !ok {
		return 0, 0
	}
	blocks := g.Blocks()
	cs := g.ChunkSize()
	o := rec.Origin
	for lx := 0; lx < cs; lx++ {
		for lz := 0; lz < cs; lz++ {
			base := g.Index(o.X+lx, o.Y, o.Z+lz)
			for ly := 0; ly < cs; ly++ {
				b := blocks[base+ly]
				switch b.Type {
				case block.Air:
				case block.Water:
					water += b.Faces.Count()
				default:
					terrain += b.Faces.Count()
				}
			}
		}
	}
	return terrain, water
}

func (m *Mesh) appendQuad(pos mgl32.Vec3, b world.Block, f block.Face) {
	start := uint32(len(m.Vertices))
	uvs := &faceUVs[b.Type][f]
	level := b.HealthLevel
	if int(level) >= block.CrackLevels {
		level = block.CrackLevels - 1
	}
	cracks := &crackUVs[level]
	normal := faceNormals[f]
	for i, corner := range faceCorners[f] {
		m.Vertices = append(m.Vertices, pos.Add(corner))
		m.Normals = append(m.Normals, normal)
		m.UVs = append(m.UVs, uvs[i])
		m.CrackUVs = append(m.CrackUVs, cracks[i])
	}
	for _, idx := range quadIndices {
		m.Indices = append(m.Indices, start+idx)
	}
}
