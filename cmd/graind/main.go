package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/application/grain"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/domain/repository"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/infrastructure/memory"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/infrastructure/mongodb"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/infrastructure/postgres"
	infraredis "github.com/mcconnellentllc-cloud/m77ag-sub001/internal/infrastructure/redis"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/internal/scheduler"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/pkg/config"
	"github.com/mcconnellentllc-cloud/m77ag-sub001/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Store.Driver).
		Str("lock", cfg.Lock.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()

	var (
		repo     repository.LotRepository
		txRunner grain.TxRunner
		closers  []func()
	)
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		closers = append(closers, pool.Close)
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("schema PostgreSQL")
		}
		repo = postgres.NewLotRepository(pool)
		txRunner = postgres.NewTxRunner(pool)
	case config.StoreDriverMongo:
		mrepo, err := mongodb.NewLotRepository(ctx, cfg.Mongo.URI, cfg.Mongo.DBName)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a MongoDB")
		}
		closers = append(closers, func() { _ = mrepo.Close(context.Background()) })
		if err := mrepo.EnsureIndexes(ctx); err != nil {
			log.Fatal().Err(err).Msg("índices MongoDB")
		}
		repo = mrepo
		txRunner = mrepo
	default:
		store := memory.NewLotStore()
		repo = store
		txRunner = memory.NewTxRunner(store)
		log.Warn().Msg("almacenamiento en memoria: los lotes se pierden al reiniciar")
	}

	var locker grain.LotLocker
	switch cfg.Lock.Driver {
	case config.LockDriverRedis:
		rdb, err := infraredis.Connect(ctx, cfg.Redis.Address, cfg.Redis.ConnectAttempts, log)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		closers = append(closers, func() { _ = rdb.Close() })
		locker = infraredis.NewLotLocker(rdb, cfg.Lock.TTL, cfg.Lock.Wait)
	default:
		locker = memory.NewKeyedLocker()
	}

	// Sin registro de campos el daemon no valida FieldID; lo inyectan quienes embeben grain.Engine.
	log.Info().Msg("registro de campos no configurado: field_id se guarda sin verificar")

	engine := grain.NewEngine(grain.Deps{
		TxRunner: txRunner,
		Repo:     repo,
		Locker:   locker,
		Logger:   log.Named("grain"),
		Retry: grain.RetryPolicy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
			MaxDelay:    500 * time.Millisecond,
		},
		MarketPriceWindow: cfg.Market.PriceWindow,
	})

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(scheduler.Config{
			Spec:        cfg.Scheduler.Cron,
			AutoExecute: cfg.Scheduler.AutoExecute,
		}, engine, log)
		if err := sched.Start(); err != nil {
			log.Fatal().Err(err).Str("spec", cfg.Scheduler.Cron).Msg("programar barrido")
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando...")
	if sched != nil {
		sched.Stop()
	}
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
	log.Info().Msg("aplicación detenida")
}
