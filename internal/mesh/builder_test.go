package mesh

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
)

func newGrid(t *testing.T, sizeX, heightChunks, chunkSize int) *world.Grid {
	t.Helper()
	g, err := world.NewGrid(world.Dimensions{SizeX: sizeX, SizeZ: 1, HeightChunks: heightChunks, ChunkSize: chunkSize})
	require.NoError(t, err)
	return g
}

func TestBuildSingleBlock(t *testing.T) {
	g := newGrid(t, 1, 1, 4)
	require.NoError(t, g.Set(vec.Vec3{X: 1, Y: 1, Z: 1}, world.NewBlock(block.Stone)))
	g.RecomputeFaces()

	cm, err := Build(g, vec.Vec3{})
	require.NoError(t, err)
	assert.Equal(t, 6, cm.Terrain.FaceCount())
	assert.Len(t, cm.Terrain.Vertices, 24)
	assert.Len(t, cm.Terrain.Normals, 24)
	assert.Len(t, cm.Terrain.UVs, 24)
	assert.Len(t, cm.Terrain.CrackUVs, 24)
	assert.Len(t, cm.Terrain.Indices, 36)
	assert.True(t, cm.Water.Empty())

	// первая грань Right: квад на x = 1.5, нормаль +X
	for i := 0; i < 4; i++ {
		assert.Equal(t, float32(1.5), cm.Terrain.Vertices[i].X())
		assert.Equal(t, mgl32.Vec3{1, 0, 0}, cm.Terrain.Normals[i])
	}
	assert.Equal(t, []uint32{3, 1, 0, 3, 2, 1}, cm.Terrain.Indices[:6])
	assert.Equal(t, []uint32{7, 5, 4, 7, 6, 5}, cm.Terrain.Indices[6:12])
}

func TestBuildBuffersExactlySized(t *testing.T) {
	g := newGrid(t, 2, 2, 4)
	gen := world.NewGenerator(world.NewNoiseClassifier(32000, smallParams()))
	_, err := gen.Generate(g, world.GenerateOptions{WaterLevel: 4, Trees: world.TreesSome})
	require.NoError(t, err)

	for _, rec := range g.ChunkRecords() {
		terrain, water := CountFaces(g, rec.Coord)
		cm, err := Build(g, rec.Coord)
		require.NoError(t, err)

		assert.Len(t, cm.Terrain.Vertices, 4*terrain)
		assert.Len(t, cm.Terrain.Indices, 6*terrain)
		assert.Equal(t, 4*terrain, cap(cm.Terrain.Vertices), "лишних слотов быть не должно")
		assert.Equal(t, 6*terrain, cap(cm.Terrain.Indices))
		assert.Len(t, cm.Water.Vertices, 4*water)
		assert.Equal(t, 6*water, cap(cm.Water.Indices))

		for _, n := range cm.Water.Normals {
			assert.Equal(t, mgl32.Vec3{0, 1, 0}, n, "вода рисует только верх")
		}
		for _, v := range cm.Terrain.Vertices {
			require.True(t, v.X() >= -0.5 && v.X() <= 3.5, "вершина %v вне чанка", v)
			require.True(t, v.Y() >= -0.5 && v.Y() <= 3.5, "вершина %v вне чанка", v)
		}
	}
}

func TestBuildPartsTerrainOnly(t *testing.T) {
	g := newGrid(t, 1, 1, 4)
	require.NoError(t, g.Set(vec.Vec3{}, world.NewBlock(block.Stone)))
	require.NoError(t, g.Set(vec.Vec3{X: 2}, world.NewBlock(block.Water)))
	g.RecomputeFaces()

	all, err := Build(g, vec.Vec3{})
	require.NoError(t, err)
	assert.Equal(t, 1, all.Water.FaceCount())

	cm, err := BuildParts(g, vec.Vec3{}, PartTerrain)
	require.NoError(t, err)
	assert.Equal(t, all.Terrain, cm.Terrain)
	assert.True(t, cm.Water.Empty())
}

func TestBuildOutOfBoundsChunk(t *testing.T) {
	g := newGrid(t, 1, 1, 4)
	_, err := Build(g, vec.Vec3{X: 3})
	assert.ErrorIs(t, err, world.ErrOutOfBounds)
}

func TestGrassUsesThreeTiles(t *testing.T) {
	g := newGrid(t, 1, 1, 4)
	require.NoError(t, g.Set(vec.Vec3{X: 1, Y: 1, Z: 1}, world.NewBlock(block.Grass)))
	g.RecomputeFaces()

	cm, err := Build(g, vec.Vec3{})
	require.NoError(t, err)
	require.Equal(t, 6, cm.Terrain.FaceCount())

	quadUVs := func(face block.Face) [4]mgl32.Vec2 {
		var q [4]mgl32.Vec2
		copy(q[:], cm.Terrain.UVs[int(face)*4:int(face)*4+4])
		return q
	}
	assert.Equal(t, tileGrassTop.Rect().quad(), quadUVs(block.Top))
	assert.Equal(t, tileDirt.Rect().quad(), quadUVs(block.Bottom))
	for _, f := range []block.Face{block.Right, block.Left, block.Front, block.Back} {
		assert.Equal(t, tileGrassSide.Rect().quad(), quadUVs(f), "грань %s", f)
	}
}

func TestSingleTileForOtherTypes(t *testing.T) {
	for _, bt := range []block.BlockType{block.Stone, block.Dirt, block.Wood, block.Leaves} {
		top := TileFor(bt, block.Top)
		for _, f := range block.AllFaces {
			assert.Equal(t, top, TileFor(bt, f), "%s/%s", bt, f)
		}
	}
}

func TestCrackUVsFollowHealthLevel(t *testing.T) {
	g := newGrid(t, 1, 1, 4)
	require.NoError(t, g.Set(vec.Vec3{}, world.NewBlock(block.Dirt)))
	g.RecomputeFaces()

	_, err := g.Hit(vec.Vec3{}, 3)
	require.NoError(t, err)
	b, _ := g.Get(vec.Vec3{})
	require.Equal(t, uint8(5), b.HealthLevel)

	cm, err := Build(g, vec.Vec3{})
	require.NoError(t, err)
	want := CrackTile(5).Rect().quad()
	for q := 0; q < cm.Terrain.FaceCount(); q++ {
		for i := 0; i < 4; i++ {
			assert.Equal(t, want[i], cm.Terrain.CrackUVs[q*4+i])
		}
	}
}

func TestTileRect(t *testing.T) {
	r := Tile{Col: 1, Row: 2}.Rect()
	assert.Equal(t, mgl32.Vec2{1.0 / 16, 2.0 / 16}, r[0])
	assert.Equal(t, mgl32.Vec2{2.0 / 16, 3.0 / 16}, r[3])
	assert.Equal(t, CrackTile(10), CrackTile(200))
}

func smallParams() world.TerrainParams {
	p := world.DefaultTerrainParams()
	p.Dirt.MaxHeight = 7
	p.Stone.MaxHeight = 5
	p.Bedrock.MaxHeight = 2
	return p
}
