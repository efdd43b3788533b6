package controller

import (
	"fmt"
	"strings"

	"tc-cloud-server/internal/modules/telemetry/types"
	"tc-cloud-server/internal/modules/telemetry/views"
)

const csvHeader = "Device ID,Longitude,Latitude,Battery,Date,Time,Inserted At"

// buildCSV renders records as CSV with the fixed column set. Fields are
// comma-joined without quoting; embedded commas in device ids would break the
// row. Known limitation of the export format.
func buildCSV(records []types.Record) []byte {
	var b strings.Builder
	b.WriteString(csvHeader)
	b.WriteByte('\n')
	for _, rec := range records {
		fmt.Fprintf(&b, "%s,%.2f,%.2f,%d,%s,%s,%s\n",
			rec.DeviceID, rec.Longitude, rec.Latitude, rec.Battery,
			rec.Date, rec.Time, rec.InsertedAt)
	}
	return []byte(b.String())
}

// dashboardRows formats records for display: coordinates to 2 decimals,
// battery with a percent suffix.
func dashboardRows(records []types.Record) []views.RecordRow {
	rows := make([]views.RecordRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, views.RecordRow{
			DeviceID:  rec.DeviceID,
			Longitude: fmt.Sprintf("%.2f", rec.Longitude),
			Latitude:  fmt.Sprintf("%.2f", rec.Latitude),
			Battery:   fmt.Sprintf("%d%%", rec.Battery),
			Date:      rec.Date,
			Time:      rec.Time,
		})
	}
	return rows
}
