package main

import (
	"fmt"
	"log"

	"ledgerlink/internal/config"
	"ledgerlink/internal/domain/sync"
	"ledgerlink/internal/infrastructure/postgres"
	"ledgerlink/internal/infrastructure/provider"
	"ledgerlink/internal/infrastructure/sqlite"
	httphandlers "ledgerlink/internal/interfaces/http"
	"ledgerlink/internal/scheduler"
)

// Store is the full persistence surface the application wires up: the sync
// engine's store plus user listing for the scheduler.
type Store interface {
	sync.Store
	scheduler.UserSource
	Close() error
}

// Dependencies holds all initialized application components.
type Dependencies struct {
	Store       Store
	SyncService *sync.Service

	// Handlers
	SyncHandler        *httphandlers.SyncHandler
	TransactionHandler *httphandlers.TransactionHandler
}

// NewDependencies initializes all application dependencies.
func NewDependencies(cfg *config.Config) (*Dependencies, error) {
	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to %s store", cfg.Database.Driver)

	client := provider.NewClient(cfg.Provider.BaseURL, cfg.Provider.Timeout)
	opts := provider.SyncOptions{
		IncludePersonalFinanceCategory: cfg.Provider.IncludeDetailedCategory,
	}

	syncService := sync.NewService(store, client, opts, cfg.Provider.MaxSyncPages)

	return &Dependencies{
		Store:              store,
		SyncService:        syncService,
		SyncHandler:        httphandlers.NewSyncHandler(syncService, store),
		TransactionHandler: httphandlers.NewTransactionHandler(store),
	}, nil
}

func newStore(cfg *config.Config) (Store, error) {
	switch cfg.Database.Driver {
	case "postgres":
		db, err := postgres.New(cfg.Database.ConnectionString())
		if err != nil {
			return nil, err
		}
		return &postgresStore{Store: postgres.NewStore(db), db: db}, nil

	case "sqlite":
		return sqlite.NewStore(cfg.Database.SQLitePath)

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

// postgresStore pairs the store with its connection pool so Close reaches
// the pool.
type postgresStore struct {
	*postgres.Store
	db *postgres.DB
}

func (s *postgresStore) Close() error {
	return s.db.Close()
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			log.Printf("Error closing store: %v", err)
		}
	}
}
