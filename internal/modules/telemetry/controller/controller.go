package controller

import (
	"net/http"

	"tc-cloud-server/internal/modules/telemetry/service"
)

type TelemetryController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type telemetryControllerImpl struct {
	service *service.Service
}

func NewTelemetryController(service *service.Service) TelemetryController {
	return &telemetryControllerImpl{service: service}
}

func (c *telemetryControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /", c.handleDashboard)
	mux.HandleFunc("POST /ingest", c.handleIngest)
	mux.HandleFunc("GET /records", c.handleRecords)
	mux.HandleFunc("GET /download-csv-raw", c.handleDownloadRawCSV)
	mux.HandleFunc("GET /download-csv-processed", c.handleDownloadProcessedCSV)
}
