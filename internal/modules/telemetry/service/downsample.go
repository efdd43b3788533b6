package service

import (
	"fmt"
	"sort"
	"time"

	"tc-cloud-server/internal/modules/telemetry/types"
)

// timestampLayout is what the trackers emit: "2006-01-02" date, "15:04:05" time.
const timestampLayout = "2006-01-02 15:04:05"

// downsampleHours caps the processed export at the 12 most recent distinct
// hours present in the data.
const downsampleHours = 12

type hourCandidate struct {
	record   types.Record
	distance time.Duration
}

// Downsample reduces the history to at most one record per hour bucket over
// the downsampleHours most recent buckets. Each record snaps to its nearest
// hour boundary (half rounds to the later hour) and within a bucket the record
// closest to the boundary wins; on equal distance the earlier-listed record is
// kept. Output ids are zeroed, everything else is carried verbatim.
func Downsample(records []types.Record) ([]types.Record, error) {
	best := make(map[time.Time]hourCandidate)
	for _, rec := range records {
		ts, err := time.Parse(timestampLayout, rec.Date+" "+rec.Time)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d %q %q: %v", ErrInvalidTimestamp, rec.ID, rec.Date, rec.Time, err)
		}

		// time.Round rounds half away from zero, which on the hour axis is
		// round-half-up: 12:30:00 buckets to 13:00.
		hour := ts.Round(time.Hour)
		distance := ts.Sub(hour)
		if distance < 0 {
			distance = -distance
		}

		cur, ok := best[hour]
		if !ok || distance < cur.distance {
			best[hour] = hourCandidate{record: rec, distance: distance}
		}
	}

	hours := make([]time.Time, 0, len(best))
	for h := range best {
		hours = append(hours, h)
	}
	sort.Slice(hours, func(i, j int) bool { return hours[i].After(hours[j]) })

	if len(hours) > downsampleHours {
		hours = hours[:downsampleHours]
	}

	out := make([]types.Record, 0, len(hours))
	for _, h := range hours {
		rec := best[h].record
		rec.ID = 0
		out = append(out, rec)
	}
	return out, nil
}
