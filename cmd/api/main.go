package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/Ramsey-B/clover/config"
	contactrepo "github.com/Ramsey-B/clover/internal/repositories/contact"
	noterepo "github.com/Ramsey-B/clover/internal/repositories/note"
	salelinerepo "github.com/Ramsey-B/clover/internal/repositories/saleline"
	statusrepo "github.com/Ramsey-B/clover/internal/repositories/statuschange"
	"github.com/Ramsey-B/clover/pkg/backup"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/importer"
	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/merging"
	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/pipeline"
	contactroutes "github.com/Ramsey-B/clover/pkg/routes/contact"
	"github.com/Ramsey-B/clover/pkg/routes/health"
	"github.com/Ramsey-B/clover/pkg/routes/imports"
	"github.com/Ramsey-B/clover/pkg/routes/maintenance"
	"github.com/Ramsey-B/clover/pkg/startup"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

var version = "dev"

type app struct {
	cfg      *config.Config
	logger   ectologger.Logger
	sqlxDB   *sqlx.DB
	db       database.DB
	echo     *echo.Echo
	producer *kafka.Producer
	checker  *health.Checker
}

func main() {
	_ = godotenv.Load()

	cfg := &config.Config{}
	if err := ectoenv.BindEnv(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger()

	a := &app{cfg: cfg, logger: logger}

	initTracing(a)

	boot := startup.NewStartup(logger, cfg.StartupMaxAttempts)
	boot.AddDependency(&databaseDependency{app: a})
	boot.AddDependency(&kafkaDependency{app: a})
	boot.AddDependency(&serverDependency{app: a})

	ctx := context.Background()
	if err := boot.Start(ctx); err != nil {
		logger.WithError(err).Error("Startup failed")
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := boot.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown failed")
	}
}

func newLogger() ectologger.Logger {
	enc := json.NewEncoder(os.Stdout)
	return ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {
		_ = enc.Encode(msg)
	})
}

func initTracing(a *app) {
	exporter, err := otlptracehttp.New(context.Background())
	if err != nil {
		a.logger.WithError(err).Warn("Tracing exporter unavailable, continuing without tracing")
		return
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(a.cfg.AppName),
		semconv.ServiceVersion(version),
	))
	if err != nil {
		a.logger.WithError(err).Warn("Failed to build tracing resource, continuing without tracing")
		return
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	tracing.SetTracer(tp.Tracer(a.cfg.AppName))
}

type databaseDependency struct {
	app *app
}

func (d *databaseDependency) GetName() string     { return "database" }
func (d *databaseDependency) DependsOn() []string { return nil }

func (d *databaseDependency) Start(ctx context.Context) error {
	cfg := d.app.cfg

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName,
		cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode)

	db, err := sqlx.ConnectContext(ctx, cfg.DatabaseDriver, dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	db.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)

	driver, err := migratepg.WithInstance(db.DB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	ms := database.NewMigrationService(d.app.logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
	if err := ms.Migrate(cfg.DatabaseName, driver); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.app.sqlxDB = db
	d.app.db = database.NewDatabaseInstance(db, d.app.logger)
	return nil
}

func (d *databaseDependency) Stop(ctx context.Context) error {
	if d.app.sqlxDB != nil {
		return d.app.sqlxDB.Close()
	}
	return nil
}

type kafkaDependency struct {
	app *app
}

func (d *kafkaDependency) GetName() string     { return "kafka" }
func (d *kafkaDependency) DependsOn() []string { return nil }

func (d *kafkaDependency) Start(ctx context.Context) error {
	cfg := d.app.cfg
	if !cfg.KafkaEnabled {
		d.app.logger.Info("Kafka producer disabled")
		return nil
	}

	d.app.producer = kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.KafkaOutputTopic,
		BatchSize:    cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: cfg.KafkaRequiredAcks,
		Compression:  cfg.KafkaCompression,
	}, d.app.logger)
	return nil
}

func (d *kafkaDependency) Stop(ctx context.Context) error {
	if d.app.producer != nil {
		return d.app.producer.Close()
	}
	return nil
}

type serverDependency struct {
	app *app
}

func (d *serverDependency) GetName() string     { return "http-server" }
func (d *serverDependency) DependsOn() []string { return []string{"database", "kafka"} }

func (d *serverDependency) Start(ctx context.Context) error {
	a := d.app
	cfg := a.cfg

	contacts := contactrepo.NewRepository(a.db, a.logger)
	notes := noterepo.NewRepository(a.db, a.logger)
	statuses := statusrepo.NewRepository(a.db, a.logger)
	saleLines := salelinerepo.NewRepository(a.db, a.logger)

	var pipelineEmitter pipeline.Emitter
	var sweepEmitter merging.Emitter
	if a.producer != nil {
		emitter := events.NewEmitter(a.producer, a.logger)
		pipelineEmitter = emitter
		sweepEmitter = emitter
	}

	var pipelineSnapshotter pipeline.Snapshotter
	var sweepSnapshotter merging.Snapshotter
	if cfg.BackupEnabled {
		snapshotter := backup.NewWriter(cfg.BackupDir, contacts, a.logger)
		pipelineSnapshotter = snapshotter
		sweepSnapshotter = snapshotter
	}

	matcher := matching.NewEngine(a.logger, contacts)
	engine := pipeline.NewEngine(a.logger, contacts, notes, statuses, matcher, pipelineEmitter, pipelineSnapshotter)
	sweeper := merging.NewSweeper(a.logger, contacts, notes, statuses, saleLines, sweepEmitter, sweepSnapshotter)
	guardian := merging.NewGuardian(a.logger, contacts, sweeper)
	parser := importer.NewParser(a.logger)

	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return fmt.Errorf("failed to create DI container: %w", err)
	}
	if err = ectoinject.RegisterInstance[*config.Config](container, cfg); err != nil {
		return err
	}
	if err = ectoinject.RegisterInstance[*contactrepo.Repository](container, contacts); err != nil {
		return err
	}
	if err = ectoinject.RegisterInstance[*noterepo.Repository](container, notes); err != nil {
		return err
	}
	if err = ectoinject.RegisterInstance[*statusrepo.Repository](container, statuses); err != nil {
		return err
	}
	if err = ectoinject.RegisterInstance[*salelinerepo.Repository](container, saleLines); err != nil {
		return err
	}
	if err = ectoinject.RegisterInstance[*pipeline.Engine](container, engine); err != nil {
		return err
	}
	if err = ectoinject.RegisterInstance[*merging.Sweeper](container, sweeper); err != nil {
		return err
	}
	if err = ectoinject.RegisterInstance[*merging.Guardian](container, guardian); err != nil {
		return err
	}
	if err = ectoinject.RegisterInstance[*importer.Parser](container, parser); err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(a.logger)
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(a.logger))

	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.ReadHeaderTimeout = time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	a.checker = health.NewChecker(a.sqlxDB, version)
	a.checker.RegisterRoutes(e)

	api := e.Group("/api/v1")
	contactroutes.Register(api.Group("/contacts"))
	imports.Register(api.Group("/imports"))
	maintenance.Register(api.Group("/maintenance"))

	a.echo = e

	// Heal any duplicates left over from before the service last stopped.
	guardian.EnsureIndex(ctx)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		a.logger.WithField("addr", addr).Info("Starting HTTP server")
		if err := e.Start(addr); err != nil {
			a.logger.WithError(err).Info("HTTP server stopped")
		}
	}()

	a.checker.SetReady(true)
	return nil
}

func (d *serverDependency) Stop(ctx context.Context) error {
	if d.app.checker != nil {
		d.app.checker.SetReady(false)
	}
	if d.app.echo != nil {
		return d.app.echo.Shutdown(ctx)
	}
	return nil
}
