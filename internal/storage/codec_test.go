package storage

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
)

func generatedGrid(t *testing.T) *world.Grid {
	t.Helper()
	g, err := world.NewGrid(world.Dimensions{SizeX: 2, SizeZ: 3, HeightChunks: 2, ChunkSize: 4})
	require.NoError(t, err)

	p := world.DefaultTerrainParams()
	p.Dirt.MaxHeight = 6
	p.Stone.MaxHeight = 4
	p.Bedrock.MaxHeight = 1
	_, err = world.NewGenerator(world.NewNoiseClassifier(32000, p)).Generate(g, world.GenerateOptions{WaterLevel: 3, Trees: world.TreesNone})
	require.NoError(t, err)

	// немного повреждений, чтобы hp и стадии отличались от значений по умолчанию
	for x := 0; x < g.Width(); x++ {
		_, _ = g.Hit(vec.Vec3{X: x, Y: 1, Z: 1}, 3)
	}
	g.SetAllChunks(world.Ready)
	return g
}

func TestEncodeLayout(t *testing.T) {
	g, err := world.NewGrid(world.Dimensions{SizeX: 1, SizeZ: 1, HeightChunks: 1, ChunkSize: 2})
	require.NoError(t, err)
	b := world.NewBlock(block.Grass)
	b.Faces = block.Faces(0).With(block.Top)
	require.NoError(t, g.Set(vec.Vec3{X: 0, Y: 1, Z: 0}, b))

	var buf bytes.Buffer
	pose := Pose{Position: mgl32.Vec3{1, 0, 0}, Rotation: mgl32.Vec3{0, 0, -1}}
	require.NoError(t, Encode(&buf, g, pose))

	data := buf.Bytes()
	require.Len(t, data, EncodedSize(g.Dimensions()))
	require.Len(t, data, 26+24+8*4)

	// 1.0f и -1.0f в little-endian
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3f}, data[0:4])
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0xbf}, data[20:24])
	assert.Equal(t, []byte{1, 1}, data[24:26])
	// единственный чанк: координата и угол нулевые
	assert.Equal(t, make([]byte, 24), data[26:50])
	// блок (0,1,0) второй по порядку (x, z, y)
	assert.Equal(t, []byte{uint8(block.Top.Bit()), uint8(block.Grass), 6, 0}, data[54:58])
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	g := generatedGrid(t)
	pose := Pose{Position: mgl32.Vec3{3.5, 20, -7.25}, Rotation: mgl32.Vec3{0, 90, 0}}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, g, pose))

	loaded, loadedPose, err := Decode(&buf, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, pose, loadedPose)
	assert.Equal(t, g.Dimensions(), loaded.Dimensions())
	assert.Equal(t, g.Blocks(), loaded.Blocks())

	for i, rec := range loaded.ChunkRecords() {
		assert.Equal(t, g.ChunkRecords()[i].Coord, rec.Coord)
		assert.Equal(t, g.ChunkRecords()[i].Origin, rec.Origin)
		assert.Equal(t, world.NeedsRedraw, rec.Status, "после загрузки чанк требует перерисовки")
	}
}

func TestDecodeRejectsTruncated(t *testing.T) {
	g := generatedGrid(t)
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, g, Pose{}))
	data := buf.Bytes()

	_, _, err := DecodeBytes(data[:10], 2, 4)
	assert.ErrorIs(t, err, ErrTruncated)

	_, _, err = DecodeBytes(data[:len(data)-1], 2, 4)
	assert.ErrorIs(t, err, ErrTruncated)

	_, _, err = DecodeBytes(append(append([]byte(nil), data...), 0), 2, 4)
	assert.ErrorIs(t, err, ErrLayoutMismatch)

	// другая высота мира даёт другой размер
	_, _, err = DecodeBytes(data, 3, 4)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestDecodeRejectsUnknownBlockType(t *testing.T) {
	g := generatedGrid(t)
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, g, Pose{}))
	data := buf.Bytes()

	data[len(data)-3] = 200
	_, _, err := DecodeBytes(data, 2, 4)
	assert.ErrorIs(t, err, ErrLayoutMismatch)
}

// chunkAt смещение записи i-го чанка
func chunkAt(i int) int { return headerSize + i*chunkRecordSize }

func TestDecodeRejectsCorruptedRecords(t *testing.T) {
	g := generatedGrid(t)
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, g, Pose{}))
	clean := buf.Bytes()
	blocksAt := chunkAt(len(g.ChunkRecords()))

	tests := []struct {
		name    string
		corrupt func(data []byte)
	}{
		{"угол чанка за пределами мира", func(data []byte) {
			binary.LittleEndian.PutUint32(data[chunkAt(0)+12:], 1000)
		}},
		{"угол чанка указывает на соседний чанк", func(data []byte) {
			copy(data[chunkAt(0)+12:chunkAt(0)+24], data[chunkAt(1)+12:chunkAt(1)+24])
		}},
		{"отрицательный угол чанка", func(data []byte) {
			binary.LittleEndian.PutUint32(data[chunkAt(2)+16:], uint32(0xFFFFFFFF))
		}},
		{"координата чанка не по порядку", func(data []byte) {
			copy(data[chunkAt(1):chunkAt(1)+12], data[chunkAt(0):chunkAt(0)+12])
		}},
		{"неизвестный тип блока", func(data []byte) {
			data[blocksAt+1] = 200
		}},
		{"нулевой размер мира", func(data []byte) {
			data[24] = 0
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := append([]byte(nil), clean...)
			tt.corrupt(data)
			loaded, _, err := DecodeBytes(data, 2, 4)
			assert.ErrorIs(t, err, ErrLayoutMismatch)
			assert.Nil(t, loaded)

			// сжатый файл проверяется так же
			enc, err := zstd.NewWriter(nil)
			require.NoError(t, err)
			packed := enc.EncodeAll(data, nil)
			require.NoError(t, enc.Close())
			_, _, err = DecodeAuto(packed, 2, 4)
			assert.ErrorIs(t, err, ErrLayoutMismatch)
		})
	}
}

func TestDecodeAutoStopsAtLayoutSize(t *testing.T) {
	g, err := world.NewGrid(world.Dimensions{SizeX: 1, SizeZ: 1, HeightChunks: 1, ChunkSize: 2})
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, g, Pose{}))

	// мир на 82 байта и 64 МБ нулей следом, сжимается в несколько килобайт
	raw := append(buf.Bytes(), make([]byte, 64<<20)...)
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	packed := enc.EncodeAll(raw, nil)
	require.NoError(t, enc.Close())
	require.Less(t, len(packed), 1<<20)

	_, _, err = DecodeAuto(packed, 1, 2)
	assert.ErrorIs(t, err, ErrLayoutMismatch)
	assert.Contains(t, err.Error(), "1 trailing bytes")

	_, _, err = DecodeAuto(packed[:8], 1, 2)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestSaveLoadFile(t *testing.T) {
	g := generatedGrid(t)
	pose := Pose{Position: mgl32.Vec3{1, 2, 3}}

	for _, compress := range []bool{false, true} {
		path := filepath.Join(t.TempDir(), "saves", "world.dat")
		require.NoError(t, SaveFile(path, g, pose, compress))

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, compress, bytes.HasPrefix(raw, zstdMagic))
		if compress {
			assert.Less(t, len(raw), EncodedSize(g.Dimensions()))
		}

		loaded, loadedPose, err := LoadFile(path, 2, 4)
		require.NoError(t, err)
		assert.Equal(t, pose, loadedPose)
		assert.Equal(t, g.Blocks(), loaded.Blocks())
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, _, err := LoadFile(filepath.Join(t.TempDir(), "none.dat"), 1, 4)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
