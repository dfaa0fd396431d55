package storage

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/world"
)

// zstdMagic первые байты кадра zstd
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// SaveFile пишет мир в файл. С compress содержимое упаковывается в поток
// zstd; формат при чтении определяется автоматически.
func SaveFile(path string, g *world.Grid, pose Pose, compress bool) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create save dir: %w", err)
		}
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open save file: %w", err)
	}

	if err := writeWorld(f, g, pose, compress); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close save file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace save file: %w", err)
	}

	logging.GetStorageLogger().Info("Мир сохранён в %s (compress=%v)", path, compress)
	return nil
}

func writeWorld(w io.Writer, g *world.Grid, pose Pose, compress bool) error {
	if !compress {
		bw := bufio.NewWriterSize(w, 256*1024)
		if err := Encode(bw, g, pose); err != nil {
			return fmt.Errorf("encode world: %w", err)
		}
		return bw.Flush()
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}
	if err := Encode(enc, g, pose); err != nil {
		enc.Close()
		return fmt.Errorf("encode world: %w", err)
	}
	return enc.Close()
}

// LoadFile читает мир из файла, сжатого или нет
func LoadFile(path string, heightChunks, chunkSize int) (*world.Grid, Pose, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Pose{}, fmt.Errorf("read save file: %w", err)
	}
	g, pose, err := DecodeAuto(data, heightChunks, chunkSize)
	if err != nil {
		return nil, Pose{}, fmt.Errorf("load %s: %w", path, err)
	}
	logging.GetStorageLogger().Info("Мир загружен из %s: %dx%d чанков", path, g.Dimensions().SizeX, g.Dimensions().SizeZ)
	return g, pose, nil
}

// Compress упаковывает сериализованный мир в кадр zstd
func Compress(g *world.Grid, pose Pose) ([]byte, error) {
	var raw bytes.Buffer
	if err := Encode(&raw, g, pose); err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(raw.Bytes(), nil), nil
}

// DecodeAuto распаковывает zstd, если данные начинаются с его сигнатуры.
// Распаковывается не больше, чем требует заголовок мира, плюс один байт
// для обнаружения лишних данных.
func DecodeAuto(data []byte, heightChunks, chunkSize int) (*world.Grid, Pose, error) {
	if !bytes.HasPrefix(data, zstdMagic) {
		return DecodeBytes(data, heightChunks, chunkSize)
	}

	dec, err := zstd.NewReader(bytes.NewReader(data), zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, Pose{}, fmt.Errorf("%w: zstd: %v", ErrTruncated, err)
	}
	defer dec.Close()

	header := make([]byte, headerSize)
	if _, err := io.ReadFull(dec, header); err != nil {
		return nil, Pose{}, fmt.Errorf("%w: zstd header: %v", ErrTruncated, err)
	}
	dims, err := headerLayout(header, heightChunks, chunkSize)
	if err != nil {
		return nil, Pose{}, err
	}

	limit := int64(EncodedSize(dims) - headerSize + 1)
	rest, err := io.ReadAll(io.LimitReader(dec, limit))
	if err != nil {
		return nil, Pose{}, fmt.Errorf("%w: zstd: %v", ErrTruncated, err)
	}
	return DecodeBytes(append(header, rest...), heightChunks, chunkSize)
}
