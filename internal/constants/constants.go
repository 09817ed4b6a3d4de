// Package constants provides shared constants used across the codebase.
package constants

// Upload constants
const (
	// MaxUploadSize is the largest accepted probe image upload (32 MiB)
	MaxUploadSize = 32 << 20

	// UploadFormField is the multipart field carrying the probe image
	UploadFormField = "file"

	// MaxDecodePixels caps the declared width*height an upload may have before
	// it is decoded into memory (about 40 MP)
	MaxDecodePixels = 40_000_000
)

// Gallery neighbor constants
const (
	// DefaultNeighbors is the number of neighbors returned when k is not given
	DefaultNeighbors = 5

	// MaxNeighbors caps k for neighbor lookups
	MaxNeighbors = 100
)

// Processing constants
const (
	// WorkerPoolSize is the number of parallel scans for batch CLI runs
	WorkerPoolSize = 4

	// ImportBatchSize is the number of gallery entries written per transaction
	ImportBatchSize = 500
)
