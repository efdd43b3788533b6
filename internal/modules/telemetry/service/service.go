// Package service holds the ingestion pipeline shared by both transports:
// envelope validation, payload decoding and persistence, plus the hourly
// downsampling used for the processed export.
package service

import (
	"tc-cloud-server/internal/modules/telemetry/codec"
	"tc-cloud-server/internal/modules/telemetry/repository"
	"tc-cloud-server/internal/modules/telemetry/types"
)

type Service struct {
	repository repository.TelemetryRepository
}

func NewService(repository repository.TelemetryRepository) *Service {
	return &Service{repository: repository}
}

// Normalize validates the envelope and combines it with the decoded payload
// into a canonical record (without id / inserted_at, which the store assigns).
// Required fields are checked in a fixed order; the first missing one is
// reported. Codec errors propagate unchanged.
func Normalize(env types.Envelope) (types.Record, error) {
	for _, f := range []struct {
		name  string
		value string
	}{
		{"id", env.DeviceID},
		{"payload", env.Payload},
		{"date", env.Date},
		{"time", env.Time},
	} {
		if f.value == "" {
			return types.Record{}, &MissingFieldError{Field: f.name}
		}
	}

	decoded, err := codec.Decode(env.Payload)
	if err != nil {
		return types.Record{}, err
	}

	return types.Record{
		DeviceID:  env.DeviceID,
		Longitude: decoded.Longitude,
		Latitude:  decoded.Latitude,
		Battery:   decoded.Battery,
		Date:      env.Date,
		Time:      env.Time,
	}, nil
}

// Ingest normalizes the envelope and persists the result. Both the MQTT
// handler and the HTTP /ingest endpoint funnel through here so records are
// indistinguishable once stored.
func (s *Service) Ingest(env types.Envelope) (types.Record, error) {
	rec, err := Normalize(env)
	if err != nil {
		return types.Record{}, err
	}
	return s.repository.Insert(rec)
}

// List returns the full stored history, newest first.
func (s *Service) List() ([]types.Record, error) {
	return s.repository.List()
}

// Downsampled returns the hourly sample of the stored history.
func (s *Service) Downsampled() ([]types.Record, error) {
	records, err := s.repository.List()
	if err != nil {
		return nil, err
	}
	return Downsample(records)
}
