// Package results turns raw model output into the client-facing analysis
// result, deriving safety warnings deterministically. The thresholds and
// messages here are part of the client contract and must not drift.
package results

import "github.com/m00n5h075/serenya-sub003/internal/server/models"

// Confidence levels.
const (
	LevelLow      = "low"
	LevelModerate = "moderate"
	LevelHigh     = "high"
)

// Warning severities.
const (
	SeverityInfo     = "info"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Safety flags the model may raise.
const (
	FlagAbnormalValues     = "ABNORMAL_VALUES"
	FlagUrgentConsultation = "URGENT_CONSULTATION"
	FlagRequiresFollowup   = "REQUIRES_FOLLOWUP"
)

// Warning is one safety-warning entry on a result.
type Warning struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// Result is the client-facing payload of a completed analysis.
type Result struct {
	ConfidenceScore int               `json:"confidence_score"`
	ConfidenceLevel string            `json:"confidence_level"`
	Interpretation  string            `json:"interpretation"`
	Flags           []string          `json:"flags"`
	SafetyWarnings  []Warning         `json:"safety_warnings"`
	Metadata        map[string]string `json:"metadata"`
}

var flagWarnings = map[string]Warning{
	FlagAbnormalValues: {
		Severity: SeverityHigh,
		Message:  "Abnormal values were detected in this document. Please review the findings with your healthcare provider.",
	},
	FlagUrgentConsultation: {
		Severity: SeverityCritical,
		Message:  "This result may require urgent consultation. Contact your healthcare provider as soon as possible.",
	},
	FlagRequiresFollowup: {
		Severity: SeverityMedium,
		Message:  "Follow-up testing or review is recommended for this result.",
	},
}

var disclaimer = Warning{
	Severity: SeverityInfo,
	Message:  "This analysis is for informational purposes only and is not a medical diagnosis. Always consult a qualified healthcare provider.",
}

// ConfidenceLevel bands the 1–10 model score: ≤3 low, 4–6 moderate, ≥7 high.
func ConfidenceLevel(score int) string {
	switch {
	case score <= 3:
		return LevelLow
	case score <= 6:
		return LevelModerate
	}
	return LevelHigh
}

// confidenceWarning returns the warning a band carries, if any.
func confidenceWarning(level string) (Warning, bool) {
	switch level {
	case LevelLow:
		return Warning{
			Severity: SeverityHigh,
			Message:  "The analysis confidence is low. Please consult a healthcare provider to interpret this document.",
		}, true
	case LevelModerate:
		return Warning{
			Severity: SeverityMedium,
			Message:  "The analysis confidence is moderate. Consider confirming these findings with your healthcare provider.",
		}, true
	}
	return Warning{}, false
}

// Assemble derives the client-facing result from raw model output. Warning
// order is fixed: the confidence warning (if any) first, flag warnings in
// input order with duplicates dropped, and the standing disclaimer last.
// Unknown flags are carried through but raise no warning.
func Assemble(raw *models.RawAnalysis, metadata map[string]string) *Result {
	level := ConfidenceLevel(raw.ConfidenceScore)

	warnings := make([]Warning, 0, len(raw.Flags)+2)
	if w, ok := confidenceWarning(level); ok {
		warnings = append(warnings, w)
	}

	seen := make(map[string]struct{}, len(raw.Flags))
	for _, flag := range raw.Flags {
		if _, dup := seen[flag]; dup {
			continue
		}
		seen[flag] = struct{}{}
		if w, ok := flagWarnings[flag]; ok {
			warnings = append(warnings, w)
		}
	}

	warnings = append(warnings, disclaimer)

	return &Result{
		ConfidenceScore: raw.ConfidenceScore,
		ConfidenceLevel: level,
		Interpretation:  raw.Interpretation,
		Flags:           raw.Flags,
		SafetyWarnings:  warnings,
		Metadata:        metadata,
	}
}
