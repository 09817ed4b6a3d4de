// Package facematch scores a probe face against a reference gallery and
// produces ranked scan records.
package facematch

import "time"

// Descriptor is a fixed-length face feature vector.
type Descriptor []float32

// Demographics holds the demographic labels attached to a gallery identity.
type Demographics struct {
	AgeEstimate    int    `json:"age_estimate" yaml:"age"`
	GenderLabel    string `json:"gender_label" yaml:"gender"`
	EthnicityLabel string `json:"ethnicity_label" yaml:"ethnicity"`
}

// GalleryEntry is a known identity with its precomputed descriptor.
type GalleryEntry struct {
	IdentityID   string       `json:"identity_id" yaml:"id"`
	DisplayName  string       `json:"display_name" yaml:"name"`
	Location     string       `json:"location" yaml:"location"`
	SourceTag    string       `json:"source_tag" yaml:"source"`
	CapturedAt   time.Time    `json:"captured_at" yaml:"captured_at"`
	Descriptor   Descriptor   `json:"descriptor" yaml:"descriptor,flow"`
	Demographics Demographics `json:"demographics" yaml:"metadata"`
}

// Image is a decoded-or-raw upload handed to an extractor.
type Image struct {
	Ref  string // caller-chosen reference (file name, upload id)
	Data []byte
}

// Extraction is the result of running an extractor over an image.
// Degraded is set when the descriptor came from the fallback path.
type Extraction struct {
	Descriptor Descriptor
	Degraded   bool
	Reason     string
}

// Match is a gallery identity that passed the threshold for one scan.
type Match struct {
	IdentityID    string       `json:"identity_id"`
	DisplayName   string       `json:"display_name"`
	Location      string       `json:"location"`
	SourceTag     string       `json:"source_tag"`
	CapturedAt    time.Time    `json:"captured_at"`
	RawSimilarity float64      `json:"raw_similarity"`
	Confidence    float64      `json:"confidence"`
	Demographics  Demographics `json:"demographics"`
}

// ScanRecord is the result of one scan. The pipeline keeps no reference to it.
type ScanRecord struct {
	ScanID         string    `json:"scan_id"`
	RequestedAt    time.Time `json:"requested_at"`
	SourceImageRef string    `json:"source_image_ref"`
	Matches        []Match   `json:"matches"`
	MatchCount     int       `json:"match_count"`
	Degraded       bool      `json:"degraded,omitempty"`
	DegradedReason string    `json:"degraded_reason,omitempty"`
}
