package main

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	httphandlers "pushrelay/internal/interfaces/http"
	"pushrelay/internal/shared/config"
	"pushrelay/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", httphandlers.HandleHealth)

	// Send routes; /sendNotification is the legacy path
	apiKey := middleware.APIKey(cfg.Request.APIKeyHash)
	send := apiKey(http.HandlerFunc(deps.NotificationHandler.HandleSendNotification))
	mux.Handle("/sendNotification", send)
	mux.Handle("/api/notifications/send", send)

	if cfg.Request.APIKeyHash != "" {
		log.Info("API key required for send routes")
	}

	// Apply global middleware
	handler := middleware.Logging(middleware.CORS(cfg.Server.AllowedHosts)(mux))

	if cfg.Telemetry.Enabled {
		handler = middleware.Telemetry(cfg.Telemetry.ServiceName)(handler)
	}

	// Apply security middleware when TLS is enabled
	if cfg.TLS.Enabled {
		handler = middleware.HSTS(handler)
		log.Info("TLS security middleware enabled (HSTS)")
	}

	return handler
}
