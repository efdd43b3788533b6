package service

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"tc-cloud-server/internal/mqtt"
	"tc-cloud-server/internal/modules/telemetry/types"
)

// RegisterMQTT attaches the telemetry ingestion handler to the subscriber.
// Processing is best effort: any failure (bad JSON, validation, storage) is
// logged with the topic and raw body and the message is dropped.
func (s *Service) RegisterMQTT(subscriber mqtt.MessageSubscriber, logger *slog.Logger) {
	subscriber.SetMessageHandler(func(topic string, payload []byte) error {
		var env types.Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			return fmt.Errorf("parse telemetry message: %w", err)
		}

		rec, err := s.Ingest(env)
		if err != nil {
			return fmt.Errorf("ingest telemetry from %s: %w", env.DeviceID, err)
		}

		logger.Info("mqtt telemetry stored",
			"topic", topic,
			"device_id", rec.DeviceID,
			"battery", rec.Battery,
		)
		return nil
	})
}
