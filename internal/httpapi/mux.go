package httpapi

import (
	"database/sql"
	"net/http"
)

// NewMux builds the route table with the healthcheck attached. Telemetry
// routes are registered separately by the feature's RegisterFeature.
func NewMux(db *sql.DB) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db)
	return mux
}
