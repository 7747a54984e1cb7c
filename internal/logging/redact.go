package logging

import "regexp"

// redactPatterns match content that must never reach logs or job rows:
// AWS ARNs, bearer tokens, and long opaque blobs that may carry key
// material or document content.
var redactPatterns = []*regexp.Regexp{
	regexp.MustCompile(`arn:aws:[^\s"]+`),
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._\-]+`),
	regexp.MustCompile(`[A-Za-z0-9+/=]{64,}`),
}

// SanitizeError produces the truncated, redacted form of an error message
// that is safe to persist on a job row or emit in a log line.
func SanitizeError(err error, max int) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, p := range redactPatterns {
		msg = p.ReplaceAllString(msg, "[redacted]")
	}
	if max > 0 && len(msg) > max {
		msg = msg[:max]
	}
	return msg
}
