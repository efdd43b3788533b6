package controller

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"tc-cloud-server/internal/modules/telemetry/codec"
	"tc-cloud-server/internal/modules/telemetry/service"
	"tc-cloud-server/internal/modules/telemetry/types"
	"tc-cloud-server/internal/modules/telemetry/views"
	"tc-cloud-server/internal/utils"
)

func (c *telemetryControllerImpl) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	records, err := c.service.List()
	if err != nil {
		slog.Error("dashboard: list records failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load records")
		return
	}

	data := views.DashboardData{Records: dashboardRows(records)}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.RenderDashboard(w, data); err != nil {
		slog.Error("dashboard template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
		return
	}
}

func (c *telemetryControllerImpl) handleIngest(w http.ResponseWriter, r *http.Request) {
	var env types.Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	rec, err := c.service.Ingest(env)
	if err != nil {
		var missing *service.MissingFieldError
		if errors.As(err, &missing) || errors.Is(err, codec.ErrMalformedPayload) {
			utils.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("ingest failed", "device_id", env.DeviceID, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "success",
		"device_id": rec.DeviceID,
		"longitude": rec.Longitude,
		"latitude":  rec.Latitude,
		"battery":   rec.Battery,
	})
}

func (c *telemetryControllerImpl) handleRecords(w http.ResponseWriter, r *http.Request) {
	records, err := c.service.List()
	if err != nil {
		slog.Error("records: list failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load records")
		return
	}
	if records == nil {
		records = []types.Record{}
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"count": len(records),
		"items": records,
	})
}

func (c *telemetryControllerImpl) handleDownloadRawCSV(w http.ResponseWriter, r *http.Request) {
	records, err := c.service.List()
	if err != nil {
		slog.Error("csv raw: list failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load records")
		return
	}
	utils.WriteCSVAttachment(w, "telemetry_data.csv", buildCSV(records))
}

func (c *telemetryControllerImpl) handleDownloadProcessedCSV(w http.ResponseWriter, r *http.Request) {
	records, err := c.service.Downsampled()
	if err != nil {
		// A corrupt timestamp aborts the export; never write a silently
		// truncated CSV.
		slog.Error("csv processed: downsample failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to build processed export")
		return
	}
	utils.WriteCSVAttachment(w, "processed_telemetry_data.csv", buildCSV(records))
}
