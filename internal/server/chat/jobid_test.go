package chat

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/m00n5h075/serenya-sub003/internal/common"
)

func TestNewJobID_ParseRoundtrip(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	id, err := NewJobID("user-1", now)
	if err != nil {
		t.Fatalf("NewJobID error: %v", err)
	}

	parsed, err := Parse(id, "user-1", now)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if parsed.OwnerID != "user-1" {
		t.Errorf("OwnerID = %q, want %q", parsed.OwnerID, "user-1")
	}
	if !parsed.IssuedAt.Equal(now.Truncate(time.Millisecond)) {
		t.Errorf("IssuedAt = %v, want %v", parsed.IssuedAt, now)
	}
	if len(parsed.Suffix) != 6 {
		t.Errorf("suffix length = %d, want 6", len(parsed.Suffix))
	}
}

func TestNewJobID_RejectsUnusableOwner(t *testing.T) {
	t.Parallel()

	for _, userID := range []string{"", "user_1"} {
		_, err := NewJobID(userID, time.Now())
		if !errors.Is(err, common.ErrorValidation) {
			t.Errorf("NewJobID(%q): got %v, want ErrorValidation", userID, err)
		}
	}
}

func TestParse_Format(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ms := now.UnixMilli()

	bad := []string{
		"",
		"user-1",
		fmt.Sprintf("user-1_%d", ms),
		fmt.Sprintf("user-1_%d_abc_extra", ms),
		fmt.Sprintf("_%d_abc", ms),
		fmt.Sprintf("user-1_%d_", ms),
		"user-1_notanumber_abc",
	}

	for _, id := range bad {
		caller := "user-1"
		if strings.HasPrefix(id, "_") {
			caller = ""
		}
		if _, err := Parse(id, caller, now); !errors.Is(err, common.ErrorInvalidJobIDFormat) {
			t.Errorf("Parse(%q): got %v, want ErrorInvalidJobIDFormat", id, err)
		}
	}
}

func TestParse_OwnerMismatchReadsAsNotFound(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	id := fmt.Sprintf("user-1_%d_abc123", now.UnixMilli())

	if _, err := Parse(id, "user-2", now); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("got %v, want ErrorNotFound", err)
	}
}

func TestParse_Window(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	at := func(issued time.Time) string {
		return fmt.Sprintf("user-1_%d_abc123", issued.UnixMilli())
	}

	tests := []struct {
		name    string
		issued  time.Time
		expired bool
	}{
		{"just issued", now, false},
		{"23h old", now.Add(-23 * time.Hour), false},
		{"past 24h", now.Add(-24*time.Hour - time.Minute), true},
		{"30m ahead within skew", now.Add(30 * time.Minute), false},
		{"2h ahead beyond skew", now.Add(2 * time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(at(tt.issued), "user-1", now)
			if tt.expired {
				if !errors.Is(err, common.ErrorJobExpired) {
					t.Fatalf("got %v, want ErrorJobExpired", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
