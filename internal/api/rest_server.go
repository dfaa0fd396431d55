package api

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/blockverse/internal/app"
	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/middleware"
	"github.com/annel0/blockverse/internal/storage"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
)

// RestServer представляет REST API сервер управления миром
type RestServer struct {
	router  *gin.Engine
	server  *http.Server
	session *app.Session
	port    string
	metrics *ServerMetrics
	logger  *logging.Logger
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port     string                // адрес для запуска сервера
	Session  *app.Session          // сессия мира
	Registry prometheus.Registerer // nil: HTTP-метрики не регистрируются
	Gatherer prometheus.Gatherer   // источник для /metrics, nil: DefaultGatherer
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Port == "" {
		config.Port = ":8088"
	}

	// Устанавливаем режим релиза для gin
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	router.Use(otelgin.Middleware("rest_api"))

	loggerMw := middleware.NewRequestLogger(nil)
	router.Use(loggerMw.Handler())

	promMw := middleware.NewPrometheusMiddleware("rest_api", config.Registry)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, config.Gatherer)

	server := &RestServer{
		router:  router,
		session: config.Session,
		port:    config.Port,
		metrics: NewServerMetrics(),
		logger:  logging.GetAPILogger(),
	}
	server.server = &http.Server{
		Addr:              config.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Настраиваем маршруты
	server.setupRoutes()

	return server
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	// Middleware для CORS
	rs.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	api := rs.router.Group("/api")
	{
		api.GET("/status", rs.handleStatus)
		api.GET("/world", rs.handleWorld)
		api.POST("/world/generate", rs.handleGenerate)
		api.GET("/chunks", rs.handleChunks)
		api.GET("/blocks", rs.handleGetBlock)
		api.POST("/blocks/hit", rs.handleHit)
		api.POST("/blocks/build", rs.handleBuild)
		api.POST("/refresh", rs.handleRefresh)
		api.PUT("/pose", rs.handleSetPose)
		api.POST("/save", rs.handleSave)
		api.POST("/load", rs.handleLoad)

		slots := api.Group("/slots")
		slots.GET("", rs.handleListSlots)
		slots.POST("", rs.handleSaveSlot)
		slots.POST("/:id/load", rs.handleLoadSlot)
		slots.DELETE("/:id", rs.handleDeleteSlot)
	}

	// Health check
	rs.router.GET("/health", rs.handleHealth)
}

// Handler корневой http.Handler сервера
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// HitRequest удар по блоку
type HitRequest struct {
	X      int   `json:"x"`
	Y      int   `json:"y"`
	Z      int   `json:"z"`
	Damage uint8 `json:"damage" binding:"required,min=1"`
}

// BuildRequest постройка блока
type BuildRequest struct {
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Z    int    `json:"z"`
	Type string `json:"type" binding:"required"`
}

// PathRequest путь файла сохранения, пустой: путь из конфигурации
type PathRequest struct {
	Path string `json:"path"`
}

// SlotRequest имя нового слота
type SlotRequest struct {
	Name string `json:"name" binding:"required"`
}

// PoseRequest поза игрока
type PoseRequest struct {
	Position [3]float32 `json:"position"`
	Rotation [3]float32 `json:"rotation"`
}

// ChunkView состояние чанка для клиента
type ChunkView struct {
	Coord        vec.Vec3 `json:"coord"`
	Origin       vec.Vec3 `json:"origin"`
	Status       string   `json:"status"`
	TerrainFaces int      `json:"terrain_faces"`
	WaterFaces   int      `json:"water_faces"`
}

// BlockView блок для клиента
type BlockView struct {
	Position    vec.Vec3 `json:"position"`
	Type        string   `json:"type"`
	Faces       string   `json:"faces"`
	HP          uint8    `json:"hp"`
	HealthLevel uint8    `json:"health_level"`
}

// statusFor HTTP-код для ошибки домена
func statusFor(err error) int {
	switch {
	case errors.Is(err, app.ErrNoWorld):
		return http.StatusServiceUnavailable
	case errors.Is(err, app.ErrNoStore):
		return http.StatusNotImplemented
	case errors.Is(err, world.ErrOutOfBounds):
		return http.StatusBadRequest
	case errors.Is(err, world.ErrNotBuildable),
		errors.Is(err, world.ErrNotDestructible),
		errors.Is(err, world.ErrNothingToDestroy):
		return http.StatusConflict
	case errors.Is(err, storage.ErrWorldNotFound), errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrTruncated), errors.Is(err, storage.ErrLayoutMismatch):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (rs *RestServer) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable && status != http.StatusNotImplemented {
		rs.logger.Error("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, GenericResponse{Success: false, Message: err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, GenericResponse{
		Success: false,
		Message: "Неверный формат запроса: " + err.Error(),
	})
}

// handleHealth проверка состояния сервера
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// handleStatus состояние процесса
func (rs *RestServer) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Состояние сервера",
		Data:    rs.metrics.Snapshot(),
	})
}

// handleWorld сводка о мире
func (rs *RestServer) handleWorld(c *gin.Context) {
	info, err := rs.session.Info()
	if err != nil {
		rs.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Мир", Data: info})
}

// handleGenerate генерирует мир заново
func (rs *RestServer) handleGenerate(c *gin.Context) {
	rep, err := rs.session.Generate(c.Request.Context())
	if err != nil {
		rs.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Мир сгенерирован",
		Data: gin.H{
			"columns":      rep.Columns.String(),
			"water":        rep.Water.String(),
			"trees":        rep.Trees.String(),
			"faces":        rep.Faces.String(),
			"total":        rep.Total().String(),
			"water_blocks": rep.WaterBlocks,
			"tree_count":   rep.TreeCount,
		},
	})
}

// handleChunks статусы и размеры мешей всех чанков
func (rs *RestServer) handleChunks(c *gin.Context) {
	records := rs.session.ChunkStatuses()
	if records == nil {
		rs.fail(c, app.ErrNoWorld)
		return
	}
	onlyDirty := c.Query("dirty") == "true"

	views := make([]ChunkView, 0, len(records))
	for _, rec := range records {
		if onlyDirty && !rec.Status.Dirty() {
			continue
		}
		v := ChunkView{Coord: rec.Coord, Origin: rec.Origin, Status: rec.Status.String()}
		if m, ok := rs.session.Mesh(rec.Coord); ok {
			v.TerrainFaces = m.Terrain.FaceCount()
			v.WaterFaces = m.Water.FaceCount()
		}
		views = append(views, v)
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: fmt.Sprintf("Чанков: %d", len(views)),
		Data:    views,
	})
}

// queryPosition читает x, y, z из строки запроса
func queryPosition(c *gin.Context) (vec.Vec3, error) {
	var p vec.Vec3
	for _, axis := range []struct {
		name string
		dst  *int
	}{{"x", &p.X}, {"y", &p.Y}, {"z", &p.Z}} {
		v, err := strconv.Atoi(c.Query(axis.name))
		if err != nil {
			return p, fmt.Errorf("параметр %s: %w", axis.name, err)
		}
		*axis.dst = v
	}
	return p, nil
}

// handleGetBlock блок в мировой позиции
func (rs *RestServer) handleGetBlock(c *gin.Context) {
	p, err := queryPosition(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	b, err := rs.session.Block(p)
	if err != nil {
		rs.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Блок",
		Data: BlockView{
			Position:    p,
			Type:        b.Type.String(),
			Faces:       b.Faces.String(),
			HP:          b.HP,
			HealthLevel: b.HealthLevel,
		},
	})
}

// handleHit удар по блоку
func (rs *RestServer) handleHit(c *gin.Context) {
	var req HitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := rs.session.Hit(vec.Vec3{X: req.X, Y: req.Y, Z: req.Z}, req.Damage)
	if err != nil {
		rs.fail(c, err)
		return
	}
	msg := "Блок повреждён"
	if res.Destroyed {
		msg = "Блок разрушен"
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: msg, Data: res})
}

// handleBuild постройка блока
func (rs *RestServer) handleBuild(c *gin.Context) {
	var req BuildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	t, err := block.Parse(req.Type)
	if err != nil {
		badRequest(c, err)
		return
	}
	p := vec.Vec3{X: req.X, Y: req.Y, Z: req.Z}
	b, err := rs.session.Build(p, t)
	if err != nil {
		rs.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, GenericResponse{
		Success: true,
		Message: "Блок построен",
		Data: BlockView{
			Position:    p,
			Type:        b.Type.String(),
			Faces:       b.Faces.String(),
			HP:          b.HP,
			HealthLevel: b.HealthLevel,
		},
	})
}

// handleRefresh перестраивает меши грязных чанков
func (rs *RestServer) handleRefresh(c *gin.Context) {
	n, err := rs.session.Refresh()
	if err != nil {
		rs.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Меши обновлены",
		Data:    gin.H{"rebuilt": n},
	})
}

// handleSetPose сохраняет позу игрока
func (rs *RestServer) handleSetPose(c *gin.Context) {
	var req PoseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	pose := storage.Pose{Position: req.Position, Rotation: req.Rotation}
	rs.session.SetPose(pose)
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Поза обновлена", Data: pose})
}

// bindPath необязательное тело с путём
func bindPath(c *gin.Context) (string, error) {
	var req PathRequest
	if c.Request.ContentLength == 0 {
		return "", nil
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		return "", err
	}
	return req.Path, nil
}

// handleSave сохраняет мир в файл
func (rs *RestServer) handleSave(c *gin.Context) {
	path, err := bindPath(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	path, err = rs.session.Save(path)
	if err != nil {
		rs.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Мир сохранён", Data: gin.H{"path": path}})
}

// handleLoad загружает мир из файла
func (rs *RestServer) handleLoad(c *gin.Context) {
	path, err := bindPath(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	path, err = rs.session.Load(path)
	if err != nil {
		rs.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Мир загружен", Data: gin.H{"path": path}})
}

// handleListSlots список слотов архива
func (rs *RestServer) handleListSlots(c *gin.Context) {
	slots, err := rs.session.ListSlots()
	if err != nil {
		rs.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: fmt.Sprintf("Слотов: %d", len(slots)),
		Data:    slots,
	})
}

// handleSaveSlot кладёт мир в новый слот
func (rs *RestServer) handleSaveSlot(c *gin.Context) {
	var req SlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	meta, err := rs.session.SaveSlot(req.Name)
	if err != nil {
		rs.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, GenericResponse{Success: true, Message: "Слот сохранён", Data: meta})
}

// handleLoadSlot поднимает мир из слота
func (rs *RestServer) handleLoadSlot(c *gin.Context) {
	meta, err := rs.session.LoadSlot(c.Param("id"))
	if err != nil {
		rs.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Слот загружен", Data: meta})
}

// handleDeleteSlot удаляет слот
func (rs *RestServer) handleDeleteSlot(c *gin.Context) {
	if err := rs.session.DeleteSlot(c.Param("id")); err != nil {
		rs.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Слот удалён"})
}

// Start запускает REST сервер и блокируется до его остановки
func (rs *RestServer) Start() error {
	rs.logger.Info("🌐 REST API слушает %s", rs.port)
	if err := rs.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop останавливает REST сервер, дожидаясь активных запросов
func (rs *RestServer) Stop(ctx context.Context) error {
	return rs.server.Shutdown(ctx)
}
