// Package chat implements the composite chat-job identity:
// {userID}_{unixMillis}_{randomSuffix}. The id itself carries ownership and
// expiry; there is no durable chat job row — the only other state is the
// single-consumption artifact in object storage.
package chat

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/m00n5h075/serenya-sub003/internal/common"
)

const (
	// maxAge is how far in the past a chat job id may have been issued.
	maxAge = 24 * time.Hour
	// maxSkew tolerates issuing clocks slightly ahead of the validator.
	maxSkew = time.Hour

	suffixBytes = 3 // 6 hex characters
)

// JobID is the parsed, validated identity of a chat job.
type JobID struct {
	OwnerID  string
	IssuedAt time.Time
	Suffix   string
}

// NewJobID mints a composite id for userID at now. The owner part may not
// contain underscores, or the id could never be re-parsed.
func NewJobID(userID string, now time.Time) (string, error) {
	if userID == "" || strings.Contains(userID, "_") {
		return "", fmt.Errorf("%w: user id not usable in chat job id", common.ErrorValidation)
	}
	suffix, err := common.MakeRandHexString(suffixBytes)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s_%d_%s", userID, now.UnixMilli(), suffix), nil
}

// Parse validates id for callerID at now.
//
// A wrong part count or non-numeric timestamp is a format error. A wrong
// owner reports not-found rather than unauthorized, so existence is not
// leaked. An issued-at outside [now-24h, now+1h] reports expired even if an
// artifact still exists.
func Parse(id, callerID string, now time.Time) (*JobID, error) {
	parts := strings.Split(id, "_")
	if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
		return nil, common.ErrorInvalidJobIDFormat
	}

	if parts[0] != callerID {
		return nil, common.ErrorNotFound
	}

	ms, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, common.ErrorInvalidJobIDFormat
	}
	issued := time.UnixMilli(ms)

	if now.Sub(issued) > maxAge || issued.Sub(now) > maxSkew {
		return nil, common.ErrorJobExpired
	}

	return &JobID{OwnerID: parts[0], IssuedAt: issued, Suffix: parts[2]}, nil
}
