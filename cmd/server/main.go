package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/annel0/blockverse/internal/api"
	"github.com/annel0/blockverse/internal/app"
	"github.com/annel0/blockverse/internal/config"
	"github.com/annel0/blockverse/internal/logging"
	"github.com/annel0/blockverse/internal/metrics"
	"github.com/annel0/blockverse/internal/observability"
	"github.com/annel0/blockverse/internal/storage"
)

func main() {
	var (
		configPath = flag.String("config", "", "путь к YAML конфигурации (по умолчанию $BLOCKVERSE_CONFIG)")
		loadPath   = flag.String("load", "", "загрузить мир из файла вместо генерации")
		slotID     = flag.String("slot", "", "загрузить мир из слота архива")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	// Инициализируем систему логирования
	if cfg.Logging.File {
		if err := logging.InitDefaultLogger("server"); err != nil {
			log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
		}
		logging.GetLoggerManager().EnableFileLogging(true)
	}
	defer logging.CloseDefaultLogger()
	defer logging.GetLoggerManager().CloseAll()
	logging.SetLevel(logging.ParseLevel(cfg.Logging.Level))

	logging.Info("🧱 Запуск Blockverse: мир %dx%d чанков, высота %d, чанк %d, seed %d",
		cfg.World.SizeX, cfg.World.SizeZ, cfg.World.HeightChunks, cfg.World.ChunkSize, cfg.World.Seed)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === ТРАССИРОВКА ===
	shutdownTracing, err := observability.InitTelemetry(ctx, observability.Options{
		Enabled:     cfg.Server.Tracing.Enabled,
		Endpoint:    cfg.Server.Tracing.Endpoint,
		ServiceName: cfg.Server.Tracing.ServiceName,
	})
	if err != nil {
		logging.Error("❌ Ошибка инициализации OpenTelemetry: %v", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logging.Error("Ошибка остановки трассировки: %v", err)
		}
	}()

	// === СЕССИЯ МИРА ===
	var store *storage.WorldStorage
	if cfg.Save.StoreDir != "" {
		store, err = storage.NewWorldStorage(cfg.Save.StoreDir)
		if err != nil {
			logging.Error("❌ Ошибка открытия архива слотов: %v", err)
			os.Exit(1)
		}
		defer store.Close()
	}

	session, err := app.NewSession(cfg, app.Options{
		Metrics: metrics.NewMetrics(prometheus.DefaultRegisterer),
		Store:   store,
	})
	if err != nil {
		logging.Error("❌ Конфигурация отклонена: %v", err)
		os.Exit(1)
	}
	defer session.Close()

	if err := prepareWorld(ctx, session, *loadPath, *slotID); err != nil {
		logging.Error("❌ Мир не подготовлен: %v", err)
		os.Exit(1)
	}

	// === HTTP ===
	restAddr := fmt.Sprintf(":%d", cfg.Server.GetRESTPort())
	restServer := api.NewRestServer(api.Config{
		Port:     restAddr,
		Session:  session,
		Registry: prometheus.DefaultRegisterer,
		Gatherer: prometheus.DefaultGatherer,
	})
	go func() {
		if err := restServer.Start(); err != nil {
			logging.Error("❌ Ошибка REST API: %v", err)
			stop()
		}
	}()

	metricsAddr := fmt.Sprintf(":%d", cfg.Server.GetMetricsPort())
	metricsServer := &http.Server{
		Addr:              metricsAddr,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("❌ Ошибка сервера метрик: %v", err)
		}
	}()

	logging.Info("✅ Все сервисы запущены")
	logging.Info("   🌐 REST API: http://localhost%s", restAddr)
	logging.Info("   📊 Метрики: http://localhost%s/metrics", metricsAddr)
	logging.Info("   ❤️  Health check: http://localhost%s/health", restAddr)

	<-ctx.Done()
	logging.Info("📡 Получен сигнал завершения, остановка...")

	// === GRACEFUL SHUTDOWN ===
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := restServer.Stop(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки REST API: %v", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки сервера метрик: %v", err)
	}
	if path, err := session.Save(""); err != nil {
		logging.Error("❌ Мир не сохранён при остановке: %v", err)
	} else {
		logging.Info("💾 Мир сохранён в %s", path)
	}

	logging.Info("👋 Сервер успешно остановлен")
}

// prepareWorld загружает мир из файла или слота, иначе генерирует новый
func prepareWorld(ctx context.Context, s *app.Session, loadPath, slotID string) error {
	switch {
	case slotID != "":
		_, err := s.LoadSlot(slotID)
		return err
	case loadPath != "":
		_, err := s.Load(loadPath)
		return err
	default:
		rep, err := s.Generate(ctx)
		if err != nil {
			return err
		}
		logging.Info("🌍 Мир сгенерирован за %v (колонки %v, вода %v, деревья %v, грани %v)",
			rep.Total(), rep.Columns, rep.Water, rep.Trees, rep.Faces)
		return nil
	}
}
