// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults, Load(ctx) to layer
//   file and environment sources on top.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
)

// Backend names accepted by ModelBackend, StoreBackend and SourceBackend.
const (
	ModelTree = "tree"
	ModelONNX = "onnx"
	StoreMem  = "memory"
	StoreDyn  = "dynamodb"
	SourceFS  = "fs"
	SourceS3  = "s3"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory ingest queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of ingestion workers.
	WorkerCount int `koanf:"worker_count"`

	// Threshold is the stress score at and above which a reading is flagged.
	Threshold float64 `koanf:"threshold"`

	// IdentityColumn names the CSV column that identifies a subject.
	IdentityColumn string `koanf:"identity_column"`

	// TimestampColumn names the CSV column holding the reading time.
	TimestampColumn string `koanf:"timestamp_column"`

	// StrictRows aborts a file on the first invalid row instead of skipping it.
	StrictRows bool `koanf:"strict_rows"`

	// NumericFeatures lists the numeric model inputs, in vector order.
	NumericFeatures []string `koanf:"numeric_features"`

	// CategoricalColumn is the one-hot encoded column; empty disables it.
	CategoricalColumn string `koanf:"categorical_column"`

	// Categories enumerates the known values of CategoricalColumn.
	Categories []string `koanf:"categories"`

	// ModelBackend selects the predictor: tree or onnx.
	ModelBackend string `koanf:"model_backend"`

	// ModelPath is the model artifact path for the selected backend.
	ModelPath string `koanf:"model_path"`

	// ONNXLibrary points at the onnxruntime shared library; empty uses the
	// runtime's platform default.
	ONNXLibrary string `koanf:"onnx_library"`

	// StoreBackend selects the alert store: memory or dynamodb.
	StoreBackend string `koanf:"store_backend"`

	// DynamoTable is the DynamoDB table for flagged records.
	DynamoTable string `koanf:"dynamo_table"`

	// AWSRegion applies to the DynamoDB and S3 clients.
	AWSRegion string `koanf:"aws_region"`

	// DynamoEndpoint overrides the DynamoDB endpoint (local testing).
	DynamoEndpoint string `koanf:"dynamo_endpoint"`

	// SourceBackend selects where CSV files are read from: fs or s3.
	SourceBackend string `koanf:"source_backend"`

	// SourceRoot is the directory holding bucket subdirectories when
	// SourceBackend is fs.
	SourceRoot string `koanf:"source_root"`

	// BatchSize caps records per store write call.
	BatchSize int `koanf:"batch_size"`

	// WriteAttempts bounds persistence retries per batch.
	WriteAttempts int `koanf:"write_attempts"`

	// WriteBackoffMS is the base backoff between write attempts.
	WriteBackoffMS int `koanf:"write_backoff_ms"`

	// MaxInflight caps files processed concurrently; 0 means unbounded.
	MaxInflight int `koanf:"max_inflight"`
}

// New creates a Config with defaults. The defaults mirror the training
// setup of the bundled stress model.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":9090",
		QueueSize:       1024,
		WorkerCount:     runtime.NumCPU() * 2,
		Threshold:       42,
		IdentityColumn:  "user_id",
		TimestampColumn: "timestamp",
		StrictRows:      false,
		NumericFeatures: []string{
			"temperature_celsius",
			"humidity_percent",
			"air_quality_index",
			"noise_level_db",
			"lighting_lux",
			"crowd_density",
			"sleep_hours",
			"mood_score",
		},
		CategoricalColumn: "location_id",
		Categories:        []string{"101", "102", "103", "104", "105"},
		ModelBackend:      ModelTree,
		ModelPath:         "model/stress_tree.json",
		StoreBackend:      StoreMem,
		DynamoTable:       "stress-alerts",
		AWSRegion:         "us-east-1",
		SourceBackend:     SourceFS,
		SourceRoot:        "data",
		BatchSize:         25,
		WriteAttempts:     3,
		WriteBackoffMS:    200,
		MaxInflight:       0,
	}
}
