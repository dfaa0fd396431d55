// Package app сессия мира: владеет сеткой, мешами чанков и хранилищами,
// сериализует генерацию, удары, постройки и сохранения.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/blockverse/internal/config"
	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/mesh"
	"github.com/annel0/blockverse/internal/metrics"
	"github.com/annel0/blockverse/internal/observability"
	"github.com/annel0/blockverse/internal/storage"
	"github.com/annel0/blockverse/internal/taskqueue"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
)

var (
	// ErrNoWorld мир ещё не сгенерирован и не загружен
	ErrNoWorld = errors.New("app: world is not generated")
	// ErrNoStore архив слотов не подключён
	ErrNoStore = errors.New("app: save slot store is not configured")
)

// Options внешние зависимости сессии. Любое поле может быть nil.
type Options struct {
	Metrics *metrics.Metrics
	Store   *storage.WorldStorage
}

// WorldInfo сводка о текущем мире
type WorldInfo struct {
	Seed         int64        `json:"seed"`
	Width        int          `json:"width"`
	Height       int          `json:"height"`
	Depth        int          `json:"depth"`
	SizeX        int          `json:"size_x"`
	SizeZ        int          `json:"size_z"`
	HeightChunks int          `json:"height_chunks"`
	ChunkSize    int          `json:"chunk_size"`
	WaterLevel   int          `json:"water_level"`
	TreeDensity  string       `json:"tree_density"`
	WaterBlocks  int          `json:"water_blocks"`
	Trees        int          `json:"trees"`
	DirtyChunks  int          `json:"dirty_chunks"`
	Pose         storage.Pose `json:"pose"`
	GeneratedIn  string       `json:"generated_in,omitempty"`
}

// Session единственный контекст мира. Все мутации идут под одним мьютексом,
// поэтому удары и постройки из REST не перемежаются с генерацией и сохранением.
type Session struct {
	mu      sync.RWMutex
	cfg     *config.Config
	grid    *world.Grid
	meshes  map[vec.Vec3]mesh.ChunkMesh
	pose    storage.Pose
	report  world.Report
	gen     *world.Generator
	queue   *taskqueue.Queue
	metrics *metrics.Metrics
	store   *storage.WorldStorage
	tracer  trace.Tracer
	logger  *logging.Logger
}

// NewSession проверяет конфигурацию и готовит генератор.
// Мир появляется только после Generate или Load.
func NewSession(cfg *config.Config, opts Options) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Session{
		cfg:     cfg,
		meshes:  make(map[vec.Vec3]mesh.ChunkMesh),
		gen:     world.NewGenerator(world.NewNoiseClassifier(cfg.World.Seed, cfg.Terrain)),
		metrics: opts.Metrics,
		store:   opts.Store,
		tracer:  observability.Tracer("app"),
		logger:  logging.GetComponentLogger("session"),
	}
	if cfg.Generation.Parallel {
		s.queue = taskqueue.New(cfg.Generation.Workers)
	}
	return s, nil
}

// Close останавливает пул воркеров. Архив слотов закрывает его владелец.
func (s *Session) Close() {
	if s.queue != nil {
		s.queue.Close()
	}
}

// Generate строит новый мир и все меши. Текущий мир заменяется только
// после успешного завершения всех фаз.
func (s *Session) Generate(ctx context.Context) (world.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := s.tracer.Start(ctx, "world.generate", trace.WithAttributes(
		attribute.Int64("seed", s.cfg.World.Seed),
		attribute.Int("water_level", s.cfg.World.WaterLevel),
		attribute.String("tree_density", string(s.cfg.TreeDensity())),
		attribute.Bool("parallel", s.queue != nil),
	))
	defer span.End()

	grid, err := world.NewGrid(s.cfg.Dimensions())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return world.Report{}, err
	}

	started := time.Now()
	rep, err := s.gen.Generate(grid, world.GenerateOptions{
		WaterLevel: s.cfg.World.WaterLevel,
		Trees:      s.cfg.TreeDensity(),
		Queue:      s.queue,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("Генерация мира провалилась: %v", err)
		return rep, fmt.Errorf("generate world: %w", err)
	}
	s.tracePhases(ctx, started, rep)

	meshStart := time.Now()
	_, meshSpan := s.tracer.Start(ctx, "world.mesh")
	meshes := make(map[vec.Vec3]mesh.ChunkMesh, len(grid.ChunkRecords()))
	built, err := s.rebuild(grid, grid.ChunkRecords(), meshes)
	meshSpan.SetAttributes(attribute.Int("chunks", built))
	meshSpan.End()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return rep, fmt.Errorf("build meshes: %w", err)
	}
	s.metrics.ObservePhase("mesh", time.Since(meshStart))
	s.metrics.SetWorldStats(rep.WaterBlocks, rep.TreeCount)

	s.grid = grid
	s.meshes = meshes
	s.report = rep
	s.metrics.SetDirtyChunks(0)
	span.SetAttributes(
		attribute.Int("water_blocks", rep.WaterBlocks),
		attribute.Int("trees", rep.TreeCount),
	)
	s.logger.Info("Мир готов: %d чанков, вода %d, деревья %d, всего %v",
		built, rep.WaterBlocks, rep.TreeCount, time.Since(started))
	return rep, nil
}

// tracePhases восстанавливает дочерние спаны фаз по отчёту генератора
func (s *Session) tracePhases(ctx context.Context, start time.Time, rep world.Report) {
	phases := []struct {
		name string
		d    time.Duration
	}{
		{"columns", rep.Columns},
		{"water", rep.Water},
		{"trees", rep.Trees},
		{"faces", rep.Faces},
	}
	at := start
	for _, p := range phases {
		_, span := s.tracer.Start(ctx, "world.phase."+p.name, trace.WithTimestamp(at))
		at = at.Add(p.d)
		span.End(trace.WithTimestamp(at))
		s.metrics.ObservePhase(p.name, p.d)
	}
}

// rebuild строит меши перечисленных чанков и переводит их в Ready.
// NeedsRedraw затрагивает только землю, если водяной меш уже есть.
func (s *Session) rebuild(grid *world.Grid, chunks []world.ChunkRecord, into map[vec.Vec3]mesh.ChunkMesh) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	results := make([]mesh.ChunkMesh, len(chunks))
	idx := make([]int, len(chunks))
	for i := range idx {
		idx[i] = i
	}
	build := func(i int) error {
		rec := chunks[i]
		parts := mesh.PartAll
		prev, ok := into[rec.Coord]
		if ok && rec.Status == world.NeedsRedraw {
			parts = mesh.PartTerrain
		}
		m, err := mesh.BuildParts(grid, rec.Coord, parts)
		if err != nil {
			return err
		}
		if parts == mesh.PartTerrain {
			m.Water = prev.Water
		}
		results[i] = m
		return nil
	}

	if s.queue != nil {
		if err := taskqueue.Submit(s.queue, idx, build); err != nil {
			return 0, err
		}
		if err := s.queue.Run(); err != nil {
			return 0, err
		}
	} else {
		for _, i := range idx {
			if err := build(i); err != nil {
				return 0, err
			}
		}
	}

	for i, rec := range chunks {
		m := results[i]
		into[rec.Coord] = m
		grid.SetChunkStatus(rec.Coord, world.Ready)
		s.metrics.MeshBuilt("terrain", m.Terrain.FaceCount())
		if rec.Status != world.NeedsRedraw || m.Water.FaceCount() > 0 {
			s.metrics.MeshBuilt("water", m.Water.FaceCount())
		}
	}
	return len(chunks), nil
}

// Hit наносит урон блоку
func (s *Session) Hit(p vec.Vec3, damage uint8) (world.HitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.grid == nil {
		return world.HitResult{}, ErrNoWorld
	}

	res, err := s.grid.Hit(p, damage)
	switch {
	case err != nil:
		s.metrics.Interaction("hit", "rejected")
		s.logger.Debug("Удар по %s отклонён: %v", p, err)
		return res, err
	case res.Destroyed:
		s.metrics.Interaction("hit", "destroyed")
		s.logger.Debug("Блок %s разрушен в %s", res.TypeName, p)
	case res.LevelChanged:
		s.metrics.Interaction("hit", "cracked")
	default:
		s.metrics.Interaction("hit", "damaged")
	}
	s.metrics.SetDirtyChunks(len(s.grid.DirtyChunks()))
	return res, nil
}

// Build ставит блок в пустую клетку
func (s *Session) Build(p vec.Vec3, t block.BlockType) (world.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.grid == nil {
		return world.Block{}, ErrNoWorld
	}

	b, err := s.grid.Build(p, t)
	if err != nil {
		s.metrics.Interaction("build", "rejected")
		s.logger.Debug("Постройка %s в %s отклонена: %v", t, p, err)
		return b, err
	}
	s.metrics.Interaction("build", "ok")
	s.metrics.SetDirtyChunks(len(s.grid.DirtyChunks()))
	return b, nil
}

// Refresh перестраивает меши грязных чанков и возвращает их число
func (s *Session) Refresh() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.grid == nil {
		return 0, ErrNoWorld
	}
	return s.refreshLocked()
}

func (s *Session) refreshLocked() (int, error) {
	dirty := s.grid.DirtyChunks()
	n, err := s.rebuild(s.grid, dirty, s.meshes)
	if err != nil {
		return 0, fmt.Errorf("refresh chunks: %w", err)
	}
	s.metrics.SetDirtyChunks(len(s.grid.DirtyChunks()))
	if n > 0 {
		s.logger.Debug("Перестроено чанков: %d", n)
	}
	return n, nil
}

// Mesh меш чанка по его координате
func (s *Session) Mesh(chunk vec.Vec3) (mesh.ChunkMesh, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.meshes[chunk]
	return m, ok
}

// Block блок в мировой позиции
func (s *Session) Block(p vec.Vec3) (world.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.grid == nil {
		return world.Block{}, ErrNoWorld
	}
	b, ok := s.grid.Get(p)
	if !ok {
		return world.Block{}, fmt.Errorf("%w: %s", world.ErrOutOfBounds, p)
	}
	return b, nil
}

// ChunkStatuses копия записей всех чанков
func (s *Session) ChunkStatuses() []world.ChunkRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.grid == nil {
		return nil
	}
	return append([]world.ChunkRecord(nil), s.grid.ChunkRecords()...)
}

// Pose поза игрока, которая попадёт в сохранение
func (s *Session) Pose() storage.Pose {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pose
}

// SetPose обновляет позу игрока
func (s *Session) SetPose(p storage.Pose) {
	s.mu.Lock()
	s.pose = p
	s.mu.Unlock()
}

// Info сводка о мире
func (s *Session) Info() (WorldInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.grid == nil {
		return WorldInfo{}, ErrNoWorld
	}
	d := s.grid.Dimensions()
	info := WorldInfo{
		Seed:         s.cfg.World.Seed,
		Width:        s.grid.Width(),
		Height:       s.grid.Height(),
		Depth:        s.grid.Depth(),
		SizeX:        d.SizeX,
		SizeZ:        d.SizeZ,
		HeightChunks: d.HeightChunks,
		ChunkSize:    d.ChunkSize,
		WaterLevel:   s.cfg.World.WaterLevel,
		TreeDensity:  string(s.cfg.TreeDensity()),
		WaterBlocks:  s.report.WaterBlocks,
		Trees:        s.report.TreeCount,
		DirtyChunks:  len(s.grid.DirtyChunks()),
		Pose:         s.pose,
	}
	if total := s.report.Total(); total > 0 {
		info.GeneratedIn = total.String()
	}
	return info, nil
}

// Save пишет мир в файл; path == "" берёт путь из конфигурации
func (s *Session) Save(path string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.grid == nil {
		return "", ErrNoWorld
	}
	if path == "" {
		path = s.cfg.Save.Path
	}
	err := storage.SaveFile(path, s.grid, s.pose, s.cfg.Save.Compress)
	s.metrics.Persistence("save", err)
	if err != nil {
		s.logger.Error("Не удалось сохранить мир в %s: %v", path, err)
		return path, err
	}
	s.logger.Info("Мир сохранён в %s", path)
	return path, nil
}

// Load читает мир из файла. При ошибке текущий мир не меняется.
func (s *Session) Load(path string) (string, error) {
	if path == "" {
		path = s.cfg.Save.Path
	}
	grid, pose, err := storage.LoadFile(path, s.cfg.World.HeightChunks, s.cfg.World.ChunkSize)
	s.metrics.Persistence("load", err)
	if err != nil {
		s.logger.Error("Не удалось загрузить мир из %s: %v", path, err)
		return path, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.install(grid, pose); err != nil {
		return path, err
	}
	s.logger.Info("Мир загружен из %s (%dx%dx%d)", path, grid.Width(), grid.Height(), grid.Depth())
	return path, nil
}

// install подменяет мир загруженным и строит все его меши
func (s *Session) install(grid *world.Grid, pose storage.Pose) error {
	meshes := make(map[vec.Vec3]mesh.ChunkMesh, len(grid.ChunkRecords()))
	if _, err := s.rebuild(grid, grid.DirtyChunks(), meshes); err != nil {
		return fmt.Errorf("build meshes: %w", err)
	}
	s.grid = grid
	s.meshes = meshes
	s.pose = pose
	s.report = world.Report{}
	s.metrics.SetDirtyChunks(0)
	return nil
}

// SaveSlot кладёт мир в архив под именем name
func (s *Session) SaveSlot(name string) (storage.SlotMeta, error) {
	if s.store == nil {
		return storage.SlotMeta{}, ErrNoStore
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.grid == nil {
		return storage.SlotMeta{}, ErrNoWorld
	}
	meta, err := s.store.SaveSlot(name, s.cfg.World.Seed, s.grid, s.pose)
	s.metrics.Persistence("slot_save", err)
	return meta, err
}

// LoadSlot поднимает мир из архива
func (s *Session) LoadSlot(id string) (storage.SlotMeta, error) {
	if s.store == nil {
		return storage.SlotMeta{}, ErrNoStore
	}
	grid, pose, meta, err := s.store.LoadSlot(id)
	s.metrics.Persistence("slot_load", err)
	if err != nil {
		return meta, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.install(grid, pose); err != nil {
		return meta, err
	}
	s.logger.Info("Мир загружен из слота %s (%s)", meta.ID, meta.Name)
	return meta, nil
}

// ListSlots слоты архива, новые первыми
func (s *Session) ListSlots() ([]storage.SlotMeta, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.ListSlots()
}

// DeleteSlot удаляет слот из архива
func (s *Session) DeleteSlot(id string) error {
	if s.store == nil {
		return ErrNoStore
	}
	return s.store.DeleteSlot(id)
}
