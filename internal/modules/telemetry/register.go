package telemetry

import (
	"database/sql"
	"log/slog"
	"net/http"

	"tc-cloud-server/internal/modules/telemetry/controller"
	"tc-cloud-server/internal/modules/telemetry/repository"
	"tc-cloud-server/internal/modules/telemetry/service"
	"tc-cloud-server/internal/mqtt"
)

// RegisterFeature wires the telemetry module: repository over db, ingestion
// service, MQTT handler and HTTP routes.
func RegisterFeature(mux *http.ServeMux, db *sql.DB, subscriber mqtt.MessageSubscriber, logger *slog.Logger) {
	telemetryRepository := repository.NewRepository(db)
	telemetryService := service.NewService(telemetryRepository)
	telemetryService.RegisterMQTT(subscriber, logger)
	telemetryController := controller.NewTelemetryController(telemetryService)
	telemetryController.RegisterRoutes(mux)
}
