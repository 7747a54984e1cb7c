package models

import (
	"time"

	"github.com/m00n5h075/serenya-sub003/internal/server/fieldcrypt"
)

// RawAnalysis is the model's structured verdict over one document:
// a 1–10 confidence score, a free-text interpretation, and zero or more
// safety flags (e.g. ABNORMAL_VALUES, URGENT_CONSULTATION).
type RawAnalysis struct {
	ConfidenceScore int      `json:"confidence_score"`
	Interpretation  string   `json:"interpretation"`
	Flags           []string `json:"flags"`
}

// AnalysisArtifact is the payload written to object storage when a document
// job completes. The interpretation is envelope-encrypted before the
// artifact is serialized; everything else on the artifact is metadata.
type AnalysisArtifact struct {
	JobID           string               `json:"job_id"`
	ConfidenceScore int                  `json:"confidence_score"`
	Interpretation  *fieldcrypt.Envelope `json:"interpretation"`
	Flags           []string             `json:"flags"`
	ModelID         string               `json:"model_id"`
	DurationMillis  int64                `json:"duration_ms"`
	CompletedAt     time.Time            `json:"completed_at"`
}
