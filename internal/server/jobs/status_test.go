package jobs

import (
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusUploaded, StatusProcessing, true},
		{StatusProcessing, StatusCompleted, true},
		{StatusProcessing, StatusFailed, true},
		{StatusFailed, StatusRetrying, true},
		{StatusRetrying, StatusProcessing, true},

		{StatusUploaded, StatusCompleted, false},
		{StatusUploaded, StatusFailed, false},
		{StatusCompleted, StatusProcessing, false},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusProcessing, false},
		{StatusRetrying, StatusFailed, false},
		{StatusTimeout, StatusProcessing, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	t.Parallel()

	if !IsTerminal(StatusCompleted, 0) {
		t.Error("completed must be terminal")
	}
	if IsTerminal(StatusFailed, 0) {
		t.Error("failed with retries left must not be terminal")
	}
	if IsTerminal(StatusFailed, MaxRetries-1) {
		t.Error("failed below the retry cap must not be terminal")
	}
	if !IsTerminal(StatusFailed, MaxRetries) {
		t.Error("failed at the retry cap must be terminal")
	}
	if IsTerminal(StatusProcessing, 0) || IsTerminal(StatusUploaded, 0) {
		t.Error("in-flight statuses must not be terminal")
	}
}

func TestEffectiveStatus(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-time.Minute)
	stale := now.Add(-ProcessingTimeout - time.Second)

	tests := []struct {
		name       string
		stored     Status
		uploadedAt time.Time
		startedAt  *time.Time
		want       Status
	}{
		{"processing within window", StatusProcessing, stale, &recent, StatusProcessing},
		{"processing past window", StatusProcessing, stale, &stale, StatusTimeout},
		{"uploaded within window", StatusUploaded, recent, nil, StatusUploaded},
		{"uploaded never picked up", StatusUploaded, stale, nil, StatusTimeout},
		{"completed never times out", StatusCompleted, stale, &stale, StatusCompleted},
		{"failed never times out", StatusFailed, stale, &stale, StatusFailed},
		{"retrying never times out", StatusRetrying, stale, &stale, StatusRetrying},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EffectiveStatus(tt.stored, tt.uploadedAt, tt.startedAt, now)
			if got != tt.want {
				t.Errorf("EffectiveStatus() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestProgress(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	at := func(elapsed time.Duration) *time.Time {
		s := now.Add(-elapsed)
		return &s
	}

	tests := []struct {
		name      string
		effective Status
		startedAt *time.Time
		want      int
	}{
		{"uploaded", StatusUploaded, nil, 10},
		{"retrying", StatusRetrying, nil, 15},
		{"processing just started", StatusProcessing, at(0), 20},
		{"processing missing start", StatusProcessing, nil, 20},
		{"processing halfway", StatusProcessing, at(90 * time.Second), 55},
		{"processing clamped at 90", StatusProcessing, at(10 * time.Minute), 90},
		{"completed", StatusCompleted, nil, 100},
		{"failed", StatusFailed, nil, 0},
		{"timeout", StatusTimeout, at(10 * time.Minute), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Progress(tt.effective, tt.startedAt, now)
			if got != tt.want {
				t.Errorf("Progress() = %d, want %d", got, tt.want)
			}
		})
	}
}
