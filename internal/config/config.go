package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/annel0/blockverse/internal/world"
)

// ErrInvalidConfig конфигурация отклонена до начала генерации
var ErrInvalidConfig = errors.New("invalid config")

// Config корневая структура конфигурации приложения.
type Config struct {
	World      WorldConfig         `yaml:"world"`
	Terrain    world.TerrainParams `yaml:"terrain"`
	Generation GenerationConfig    `yaml:"generation"`
	Save       SaveConfig          `yaml:"save"`
	Server     ServerConfig        `yaml:"server"`
	Logging    LoggingConfig       `yaml:"logging"`
}

type WorldConfig struct {
	Seed         int64  `yaml:"seed"`
	SizeX        int    `yaml:"size_x"`
	SizeZ        int    `yaml:"size_z"`
	HeightChunks int    `yaml:"height_chunks"`
	ChunkSize    int    `yaml:"chunk_size"`
	WaterLevel   int    `yaml:"water_level"`
	TreeDensity  string `yaml:"tree_density"`
}

type GenerationConfig struct {
	Parallel bool `yaml:"parallel"`
	Workers  int  `yaml:"workers"` // 0: по числу логических процессоров
}

type SaveConfig struct {
	Path     string `yaml:"path"`
	Compress bool   `yaml:"compress"`
	StoreDir string `yaml:"store_dir"` // каталог архива слотов, пусто: архив отключён
}

type ServerConfig struct {
	RESTPort    int           `yaml:"rest_port"`
	MetricsPort int           `yaml:"metrics_port"`
	Tracing     TracingConfig `yaml:"tracing"`
}

type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  bool   `yaml:"file"`
}

// Default конфигурация по умолчанию
func Default() *Config {
	return &Config{
		World: WorldConfig{
			Seed:         32000,
			SizeX:        4,
			SizeZ:        4,
			HeightChunks: 8,
			ChunkSize:    16,
			WaterLevel:   50,
			TreeDensity:  string(world.TreesSome),
		},
		Terrain: world.DefaultTerrainParams(),
		Generation: GenerationConfig{
			Parallel: true,
		},
		Save: SaveConfig{
			Path:     "saves/world.dat",
			Compress: true,
			StoreDir: "data",
		},
		Server: ServerConfig{
			Tracing: TracingConfig{
				Endpoint:    "localhost:4318",
				ServiceName: "blockverse",
			},
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "BLOCKVERSE_REST_PORT", 8088)
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "BLOCKVERSE_METRICS_PORT", 2112)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	// Если порт задан в конфиге и больше 0, используем его
	if configPort > 0 {
		return configPort
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", используется ENV BLOCKVERSE_CONFIG, а без него: Default().
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("BLOCKVERSE_CONFIG")
		if path == "" {
			return Default(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse разбирает YAML и проверяет результат
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Dimensions размеры мира
func (c *Config) Dimensions() world.Dimensions {
	return world.Dimensions{
		SizeX:        c.World.SizeX,
		SizeZ:        c.World.SizeZ,
		HeightChunks: c.World.HeightChunks,
		ChunkSize:    c.World.ChunkSize,
	}
}

// TreeDensity плотность деревьев; ошибки отсекает Validate
func (c *Config) TreeDensity() world.TreeDensity {
	d, err := world.ParseTreeDensity(c.World.TreeDensity)
	if err != nil {
		return world.TreesNone
	}
	return d
}

// Validate отклоняет некорректные размеры и параметры шума.
// Возвращает все найденные проблемы сразу.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalidConfig}, args...)...))
	}

	w := c.World
	if w.SizeX <= 0 || w.SizeX > math.MaxUint8 {
		fail("world.size_x must be in 1..255, got %d", w.SizeX)
	}
	if w.SizeZ <= 0 || w.SizeZ > math.MaxUint8 {
		fail("world.size_z must be in 1..255, got %d", w.SizeZ)
	}
	if w.HeightChunks <= 0 {
		fail("world.height_chunks must be positive, got %d", w.HeightChunks)
	}
	if w.ChunkSize <= 0 {
		fail("world.chunk_size must be positive, got %d", w.ChunkSize)
	}
	if height := w.HeightChunks * w.ChunkSize; w.WaterLevel < 0 || (height > 0 && w.WaterLevel >= height) {
		fail("world.water_level %d outside world height %d", w.WaterLevel, height)
	}
	if _, err := world.ParseTreeDensity(w.TreeDensity); err != nil {
		fail("world.tree_density: %v", err)
	}

	layers := []struct {
		name string
		world.LayerParams
	}{
		{"dirt", c.Terrain.Dirt},
		{"stone", c.Terrain.Stone},
		{"bedrock", c.Terrain.Bedrock},
	}
	for _, l := range layers {
		if l.Octaves <= 0 {
			fail("terrain.%s.octaves must be positive, got %d", l.name, l.Octaves)
		}
		if l.MaxHeight < 0 {
			fail("terrain.%s.max_height must not be negative, got %d", l.name, l.MaxHeight)
		}
	}
	probes := []struct {
		name string
		world.ProbeParams
	}{
		{"caves", c.Terrain.Caves},
		{"diamond", c.Terrain.Diamond},
		{"redstone", c.Terrain.Redstone},
	}
	for _, p := range probes {
		if p.Octaves <= 0 {
			fail("terrain.%s.octaves must be positive, got %d", p.name, p.Octaves)
		}
	}
	if c.Terrain.Trees.Octaves <= 0 {
		fail("terrain.trees.octaves must be positive, got %d", c.Terrain.Trees.Octaves)
	}
	if c.Generation.Workers < 0 {
		fail("generation.workers must not be negative, got %d", c.Generation.Workers)
	}

	return errors.Join(errs...)
}
