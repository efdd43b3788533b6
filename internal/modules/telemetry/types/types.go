package types

// Envelope is the raw inbound message shape shared by both transports: the
// MQTT message body and the HTTP /ingest request body decode into it.
type Envelope struct {
	DeviceID string `json:"id"`
	Payload  string `json:"payload"`
	Date     string `json:"date"`
	Time     string `json:"time"`
}

// Record is the canonical stored telemetry entry. Date and Time are kept
// verbatim as the device sent them; InsertedAt is stamped by the store.
type Record struct {
	ID         int64   `json:"id"`
	DeviceID   string  `json:"device_id"`
	Longitude  float64 `json:"longitude"`
	Latitude   float64 `json:"latitude"`
	Battery    int     `json:"battery"`
	Date       string  `json:"date"`
	Time       string  `json:"time"`
	InsertedAt string  `json:"inserted_at"`
}
