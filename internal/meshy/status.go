package meshy

import "strings"

// Canonical task statuses. The Meshy API reports uppercase values
// ("PENDING", "IN_PROGRESS", ...); everything in this codebase works with
// the lowercase canonical form.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
	StatusCanceled   = "canceled"
	StatusUnknown    = "unknown"
)

// NormalizeStatus maps a raw provider status onto the canonical taxonomy.
// Unrecognized or empty values degrade to "unknown"; this never fails.
func NormalizeStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending":
		return StatusPending
	case "in_progress", "processing":
		return StatusProcessing
	case "succeeded":
		return StatusSucceeded
	case "failed":
		return StatusFailed
	case "canceled":
		return StatusCanceled
	default:
		return StatusUnknown
	}
}

// IsTerminal reports whether a canonical status will never change again.
func IsTerminal(status string) bool {
	switch status {
	case StatusSucceeded, StatusFailed, StatusCanceled:
		return true
	}
	return false
}
