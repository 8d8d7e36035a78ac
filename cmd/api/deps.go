package main

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"pushrelay/internal/domain/notification"
	"pushrelay/internal/infrastructure/firebase"
	"pushrelay/internal/infrastructure/postgres"
	httphandlers "pushrelay/internal/interfaces/http"
	"pushrelay/internal/shared/config"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB *postgres.DB

	Messenger           *firebase.Client
	NotificationService *notification.Service
	NotificationHandler *httphandlers.NotificationHandler
}

// NewDependencies performs the one-time process bootstrap: the FCM client
// is created here and injected into the service.
func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	deps := &Dependencies{}

	messenger, err := firebase.NewClient(ctx, cfg.Firebase.CredentialsFile)
	if err != nil {
		return nil, err
	}
	deps.Messenger = messenger
	log.Info("Firebase messaging client initialized")

	opts := notification.ServiceOptions{
		Classify:         firebase.Classify,
		StrictValidation: cfg.Request.StrictValidation,
	}

	if cfg.History.Enabled {
		db, err := postgres.New(ctx, cfg.Database.ConnectionString())
		if err != nil {
			return nil, fmt.Errorf("dispatch history: %w", err)
		}
		deps.DB = db

		repo := postgres.NewDispatchRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			deps.Close()
			return nil, err
		}
		opts.Recorder = repo
		log.WithField("db_host", cfg.Database.Host).Info("Dispatch history enabled")
	}

	deps.NotificationService = notification.NewService(messenger, opts)
	deps.NotificationHandler = httphandlers.NewNotificationHandler(deps.NotificationService)

	return deps, nil
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
}
