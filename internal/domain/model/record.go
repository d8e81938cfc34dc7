// Package model contains domain types passed between layers.
package model

import (
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
)

// IngestEvent is the notification that a source file is ready for processing.
// Delivery mechanism is out of scope; producers only need these two fields.
type IngestEvent struct {
	SourceBucket string    // bucket or directory holding the file
	SourceFile   string    // object key / file name, also the partition key
	EnqueuedAt   time.Time // set when the event is accepted
}

// Reading is one raw row of a source file: column name to raw textual value.
// Readings exist only while a file is being streamed.
type Reading struct {
	Line   int // 1-based data row number, excluding the header
	Values map[string]string
}

// ScoredReading is a Reading after feature extraction and inference.
type ScoredReading struct {
	Identity   string    // stable per-row key within its file
	Score      float64   // model stress score
	HighStress bool      // Score >= configured threshold
	Timestamp  time.Time // source-provided when parseable, else processing time
}

// FlaggedRecord is the persisted form of a high-stress ScoredReading.
type FlaggedRecord struct {
	RecordID   string    `json:"record_id"`
	SourceFile string    `json:"source_file"`
	Identity   string    `json:"identity"`
	Score      float64   `json:"stress_score"`
	Timestamp  time.Time `json:"timestamp"`
}

// recordIDSeparator keeps "a","bc" and "ab","c" from hashing identically.
const recordIDSeparator = "\x1f"

// RecordID derives the deterministic record key for a row. Re-ingesting the
// same file yields the same ids, which is what makes upserts idempotent.
func RecordID(sourceFile, identity string) string {
	sum := xxhash.Sum64String(sourceFile + recordIDSeparator + identity)
	return fmt.Sprintf("%016x", sum)
}

// timestampLayouts are accepted source timestamp formats, tried in order.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a source-provided timestamp value. The second return
// is false when the value is empty or matches no accepted layout.
func ParseTimestamp(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}
