package internal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/reeler/reeler/internal/api"
	"github.com/reeler/reeler/internal/database"
	"github.com/reeler/reeler/internal/extract"
	"github.com/reeler/reeler/internal/history"
	"github.com/reeler/reeler/internal/limiter"
	"github.com/reeler/reeler/pkg/logger"
)

var log = logger.Get("Core")

type RunnableService interface {
	Run(context.Context) error
}

// Reeler represents the top-level object for the server, responsible
// for constructing the database connection, stores, services and the
// REST gateway, and for keeping their lifecycles tied together.
type Reeler struct {
	config ReelerConfig

	db             database.Manager
	historyService *history.Service
	rateLimiter    *limiter.Limiter
	engine         *extract.Engine
	restGateway    *api.RestGateway
}

func New(config ReelerConfig) *Reeler {
	log.Emit(logger.DEBUG, "Bootstrapping Reeler services using config: %#v\n", config)

	db := database.New()
	historyService := history.New(config.History, history.NewStore(), db)
	rateLimiter := limiter.New(config.Limiter)
	engine := extract.New(config.Extractor)

	return &Reeler{
		config:         config,
		db:             db,
		historyService: historyService,
		rateLimiter:    rateLimiter,
		engine:         engine,
		restGateway:    api.NewRestGateway(&config.API, rateLimiter, engine, historyService),
	}
}

// Run starts Reeler by connecting to the database and bringing up all
// services. This function will not return until Reeler is stopped; to
// stop Reeler the provided context must be cancelled. Errors from which
// Reeler cannot recover will also cause it to stop.
func (reeler *Reeler) Run(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	crashHandler := func(label string, err error) {
		log.Emit(logger.FATAL, "Service crash (%s)! %s\n", label, err.Error())
		cancel()
	}

	log.Emit(logger.NEW, "Connecting to database...\n")
	if err := reeler.db.Connect(reeler.config.Database); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	wg := &sync.WaitGroup{}
	reeler.spawnAsyncService(ctx, wg, reeler.historyService, "history-service", crashHandler)
	reeler.spawnAsyncService(ctx, wg, reeler.rateLimiter, "rate-limiter", crashHandler)
	reeler.spawnAsyncService(ctx, wg, reeler.restGateway, "rest-gateway", crashHandler)
	log.Emit(logger.SUCCESS, "Reeler services spawned!\n")

	wg.Wait()
	return nil
}

// spawnAsyncService will run the provided service as its own
// go-routine, ensuring that the Reeler service waitgroup is updated
// correctly and that a panicking service takes the rest down with it.
func (reeler *Reeler) spawnAsyncService(ctx context.Context, wg *sync.WaitGroup, service RunnableService, serviceLabel string, crashHandler func(string, error)) {
	log.Emit(logger.NEW, "Spawning %s\n", serviceLabel)
	wg.Add(1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				crashHandler(serviceLabel, fmt.Errorf("panic %v", r))
			}
		}()

		defer wg.Done()
		startedAt := time.Now()
		if err := service.Run(ctx); err != nil {
			crashHandler(serviceLabel, err)
		}

		log.Emit(logger.STOP, "Service %s stopped (uptime %s)\n", serviceLabel, time.Since(startedAt))
	}()
}
