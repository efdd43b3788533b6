package service

import (
	"errors"
	"testing"

	"tc-cloud-server/internal/modules/telemetry/codec"
	"tc-cloud-server/internal/modules/telemetry/types"
)

func validEnvelope() types.Envelope {
	return types.Envelope{
		DeviceID: "tracker-01",
		Payload:  "1E003C0050",
		Date:     "2025-03-14",
		Time:     "09:26:53",
	}
}

func TestNormalize_Valid(t *testing.T) {
	rec, err := Normalize(validEnvelope())
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if rec.DeviceID != "tracker-01" {
		t.Errorf("DeviceID = %q; want tracker-01", rec.DeviceID)
	}
	if rec.Longitude != 30.00 || rec.Latitude != 60.00 || rec.Battery != 80 {
		t.Errorf("decoded = (%v, %v, %d); want (30, 60, 80)", rec.Longitude, rec.Latitude, rec.Battery)
	}
	if rec.Date != "2025-03-14" || rec.Time != "09:26:53" {
		t.Errorf("date/time = %q %q; want copied verbatim", rec.Date, rec.Time)
	}
	if rec.ID != 0 || rec.InsertedAt != "" {
		t.Errorf("id/inserted_at should be unset before storage, got %d %q", rec.ID, rec.InsertedAt)
	}
}

func TestNormalize_MissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*types.Envelope)
		field  string
	}{
		{"missing id", func(e *types.Envelope) { e.DeviceID = "" }, "id"},
		{"missing payload", func(e *types.Envelope) { e.Payload = "" }, "payload"},
		{"missing date", func(e *types.Envelope) { e.Date = "" }, "date"},
		{"missing time", func(e *types.Envelope) { e.Time = "" }, "time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := validEnvelope()
			tt.mutate(&env)
			_, err := Normalize(env)
			var missing *MissingFieldError
			if !errors.As(err, &missing) {
				t.Fatalf("Normalize err = %v; want MissingFieldError", err)
			}
			if missing.Field != tt.field {
				t.Errorf("Field = %q; want %q", missing.Field, tt.field)
			}
		})
	}
}

func TestNormalize_MissingFieldOrder(t *testing.T) {
	// Everything missing: "id" is reported first.
	_, err := Normalize(types.Envelope{})
	var missing *MissingFieldError
	if !errors.As(err, &missing) {
		t.Fatalf("Normalize err = %v; want MissingFieldError", err)
	}
	if missing.Field != "id" {
		t.Errorf("Field = %q; want id (fixed check order)", missing.Field)
	}
}

func TestNormalize_MalformedPayloadPropagates(t *testing.T) {
	env := validEnvelope()
	env.Payload = "not-hex!!"
	_, err := Normalize(env)
	if !errors.Is(err, codec.ErrMalformedPayload) {
		t.Fatalf("Normalize err = %v; want ErrMalformedPayload", err)
	}
}

type stubRepo struct {
	inserted  []types.Record
	insertErr error
	records   []types.Record
	listErr   error
	nextID    int64
}

func (s *stubRepo) Insert(rec types.Record) (types.Record, error) {
	if s.insertErr != nil {
		return types.Record{}, s.insertErr
	}
	s.nextID++
	rec.ID = s.nextID
	rec.InsertedAt = "2025-03-14 10:00:00"
	s.inserted = append(s.inserted, rec)
	return rec, nil
}

func (s *stubRepo) List() ([]types.Record, error) {
	return s.records, s.listErr
}

func TestIngest_StoresNormalizedRecord(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	rec, err := svc.Ingest(validEnvelope())
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if rec.ID != 1 {
		t.Errorf("ID = %d; want 1", rec.ID)
	}
	if rec.InsertedAt == "" {
		t.Error("InsertedAt not stamped")
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("inserted %d records; want 1", len(repo.inserted))
	}
}

func TestIngest_ValidationFailureDoesNotStore(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	env := validEnvelope()
	env.Payload = "TOO-SHORT"
	if _, err := svc.Ingest(env); err == nil {
		t.Fatal("Ingest succeeded; want error")
	}
	if len(repo.inserted) != 0 {
		t.Fatalf("inserted %d records; want 0", len(repo.inserted))
	}
}

func TestIngest_StorageFailurePropagates(t *testing.T) {
	repo := &stubRepo{insertErr: errors.New("disk full")}
	svc := NewService(repo)

	if _, err := svc.Ingest(validEnvelope()); err == nil {
		t.Fatal("Ingest succeeded; want storage error")
	}
}
