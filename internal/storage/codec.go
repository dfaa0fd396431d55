package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
)

var (
	// ErrTruncated файл короче, чем требует его заголовок
	ErrTruncated = errors.New("storage: truncated world data")
	// ErrLayoutMismatch данные не соответствуют ожидаемой раскладке
	ErrLayoutMismatch = errors.New("storage: world layout mismatch")
)

// Размеры записей раскладки
const (
	headerSize      = 6*4 + 2
	chunkRecordSize = 6 * 4
	blockRecordSize = 4
)

// Pose положение и поворот игрока
type Pose struct {
	Position mgl32.Vec3 `json:"position"`
	Rotation mgl32.Vec3 `json:"rotation"`
}

// EncodedSize размер сериализованного мира в байтах
func EncodedSize(d world.Dimensions) int {
	chunks := d.SizeX * d.SizeZ * d.HeightChunks
	blocks := d.Width() * d.Height() * d.Depth()
	return headerSize + chunks*chunkRecordSize + blocks*blockRecordSize
}

// Encode сериализует мир в плоскую little-endian раскладку без рамок:
// поза игрока, размер мира в чанках, записи чанков, затем блоки.
// Чанки и блоки идут в порядке (x, z, y).
func Encode(w io.Writer, g *world.Grid, pose Pose) error {
	d := g.Dimensions()
	if d.SizeX > math.MaxUint8 || d.SizeZ > math.MaxUint8 {
		return fmt.Errorf("%w: world size %dx%d does not fit in a byte", ErrLayoutMismatch, d.SizeX, d.SizeZ)
	}
	buf := make([]byte, 0, EncodedSize(d))
	buf = appendVec3(buf, pose.Position)
	buf = appendVec3(buf, pose.Rotation)
	buf = append(buf, uint8(d.SizeX), uint8(d.SizeZ))

	for _, rec := range g.ChunkRecords() {
		buf = appendIVec3(buf, rec.Coord)
		buf = appendIVec3(buf, rec.Origin)
	}
	for _, b := range g.Blocks() {
		buf = append(buf, uint8(b.Faces), uint8(b.Type), b.HP, b.HealthLevel)
	}

	_, err := w.Write(buf)
	return err
}

// Decode читает мир. Высота мира в чанках и размер чанка в файл не
// пишутся и должны совпадать с теми, что были при записи.
// Сетка создаётся заново, при ошибке ничего не возвращается. Все чанки
// после загрузки в состоянии NeedsRedraw.
func Decode(r io.Reader, heightChunks, chunkSize int) (*world.Grid, Pose, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, Pose{}, fmt.Errorf("read world data: %w", err)
	}
	return DecodeBytes(data, heightChunks, chunkSize)
}

// DecodeBytes то же, что Decode, для буфера в памяти
func DecodeBytes(data []byte, heightChunks, chunkSize int) (*world.Grid, Pose, error) {
	var pose Pose
	dims, err := headerLayout(data, heightChunks, chunkSize)
	if err != nil {
		return nil, pose, err
	}
	pose.Position = readVec3(data[0:12])
	pose.Rotation = readVec3(data[12:24])

	want := EncodedSize(dims)
	switch {
	case len(data) < want:
		return nil, pose, fmt.Errorf("%w: %d bytes, %+v needs %d", ErrTruncated, len(data), dims, want)
	case len(data) > want:
		return nil, pose, fmt.Errorf("%w: %d trailing bytes for %+v", ErrLayoutMismatch, len(data)-want, dims)
	}

	g, err := world.NewGrid(dims)
	if err != nil {
		return nil, pose, fmt.Errorf("%w: %v", ErrLayoutMismatch, err)
	}

	off := headerSize
	chunks := g.ChunkRecords()
	for i := range chunks {
		coord := readIVec3(data[off : off+12])
		origin := readIVec3(data[off+12 : off+24])
		if coord != chunks[i].Coord {
			return nil, pose, fmt.Errorf("%w: chunk %d has coord %s, expected %s", ErrLayoutMismatch, i, coord, chunks[i].Coord)
		}
		if origin != chunks[i].Origin {
			return nil, pose, fmt.Errorf("%w: chunk %s has origin %s, expected %s", ErrLayoutMismatch, coord, origin, chunks[i].Origin)
		}
		chunks[i].Status = world.NeedsRedraw
		off += chunkRecordSize
	}

	blocks := g.Blocks()
	for i := range blocks {
		rec := data[off : off+blockRecordSize]
		t := block.BlockType(rec[1])
		if !block.IsValid(t) {
			return nil, pose, fmt.Errorf("%w: unknown block type %d at %s", ErrLayoutMismatch, rec[1], g.Coord(i))
		}
		blocks[i] = world.Block{
			Faces:       block.Faces(rec[0]) & block.AllFacesMask,
			Type:        t,
			HP:          rec[2],
			HealthLevel: rec[3],
		}
		off += blockRecordSize
	}
	return g, pose, nil
}

// headerLayout размеры мира из заголовка
func headerLayout(data []byte, heightChunks, chunkSize int) (world.Dimensions, error) {
	if len(data) < headerSize {
		return world.Dimensions{}, fmt.Errorf("%w: %d bytes, header needs %d", ErrTruncated, len(data), headerSize)
	}
	dims := world.Dimensions{
		SizeX:        int(data[24]),
		SizeZ:        int(data[25]),
		HeightChunks: heightChunks,
		ChunkSize:    chunkSize,
	}
	if err := dims.Validate(); err != nil {
		return dims, fmt.Errorf("%w: %v", ErrLayoutMismatch, err)
	}
	return dims, nil
}

func appendVec3(buf []byte, v mgl32.Vec3) []byte {
	for _, c := range v {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(c))
	}
	return buf
}

func readVec3(b []byte) mgl32.Vec3 {
	return mgl32.Vec3{
		math.Float32frombits(binary.LittleEndian.Uint32(b[0:4])),
		math.Float32frombits(binary.LittleEndian.Uint32(b[4:8])),
		math.Float32frombits(binary.LittleEndian.Uint32(b[8:12])),
	}
}

func appendIVec3(buf []byte, v vec.Vec3) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(int32(v.X)))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(int32(v.Y)))
	return binary.LittleEndian.AppendUint32(buf, uint32(int32(v.Z)))
}

func readIVec3(b []byte) vec.Vec3 {
	return vec.Vec3{
		X: int(int32(binary.LittleEndian.Uint32(b[0:4]))),
		Y: int(int32(binary.LittleEndian.Uint32(b[4:8]))),
		Z: int(int32(binary.LittleEndian.Uint32(b[8:12]))),
	}
}
