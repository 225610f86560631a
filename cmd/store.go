package main

import (
	"context"
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/Shivanand-hulikatti/medicamp/internal/config"
	"github.com/Shivanand-hulikatti/medicamp/internal/database"
	"github.com/Shivanand-hulikatti/medicamp/internal/repository"
	"github.com/Shivanand-hulikatti/medicamp/internal/repository/gormstore"
	"github.com/Shivanand-hulikatti/medicamp/internal/repository/mongostore"
	"github.com/Shivanand-hulikatti/medicamp/internal/service"
)

// backend is an open store plus its schema step and teardown.
type backend struct {
	store   service.Store
	migrate func(ctx context.Context) error
	close   func()
}

// openBackend connects to the store selected by STORE_DRIVER.
func openBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := database.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, err
		}
		log.Println("[store] connected to PostgreSQL (pgx)")
		return &backend{
			store: service.Store{
				Camps:         repository.NewCampRepository(pool),
				Registrations: repository.NewRegistrationRepository(pool),
				Settlements:   repository.NewSettlementRepository(pool),
				Feedback:      repository.NewFeedbackRepository(pool),
				Organizers:    repository.NewOrganizerRepository(pool),
				Users:         repository.NewUserRepository(pool),
			},
			migrate: func(ctx context.Context) error { return database.MigratePool(ctx, pool) },
			close:   pool.Close,
		}, nil

	case config.DriverGormPostgres, config.DriverSQLite:
		db, err := openGorm(cfg)
		if err != nil {
			return nil, err
		}
		return &backend{
			store: service.Store{
				Camps:         gormstore.NewCampRepository(db),
				Registrations: gormstore.NewRegistrationRepository(db),
				Settlements:   gormstore.NewSettlementRepository(db),
				Feedback:      gormstore.NewFeedbackRepository(db),
				Organizers:    gormstore.NewOrganizerRepository(db),
				Users:         gormstore.NewUserRepository(db),
			},
			migrate: func(context.Context) error { return gormstore.Migrate(db) },
			close: func() {
				if sqlDB, err := db.DB(); err == nil {
					sqlDB.Close()
				}
			},
		}, nil

	case config.DriverMongo:
		client, err := database.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.MongoDB)
		log.Printf("[store] connected to MongoDB database %s", cfg.MongoDB)
		return &backend{
			store: service.Store{
				Camps:         mongostore.NewCampRepository(db),
				Registrations: mongostore.NewRegistrationRepository(db),
				Settlements:   mongostore.NewSettlementRepository(db),
				Feedback:      mongostore.NewFeedbackRepository(db),
				Organizers:    mongostore.NewOrganizerRepository(db),
				Users:         mongostore.NewUserRepository(db),
			},
			migrate: func(ctx context.Context) error { return mongostore.Migrate(ctx, db) },
			close: func() {
				if err := client.Disconnect(context.Background()); err != nil {
					log.Printf("[store] mongo disconnect: %v", err)
				}
			},
		}, nil
	}
	return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}

func openGorm(cfg config.Config) (*gorm.DB, error) {
	if cfg.StoreDriver == config.DriverSQLite {
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Printf("[store] opened SQLite at %s", cfg.SQLitePath)
		return db, nil
	}
	db, err := database.OpenGormPostgres(cfg.DB)
	if err != nil {
		return nil, err
	}
	log.Println("[store] connected to PostgreSQL (gorm)")
	return db, nil
}
