package session

import "fmt"

// ErrorCode classifies request-level session failures. These are
// business-rule violations surfaced to the route layer, never raw 500s.
type ErrorCode string

const (
	CodeInvalidLoadout   ErrorCode = "INVALID_LOADOUT"
	CodeSessionNotFound  ErrorCode = "SESSION_NOT_FOUND"
	CodeSessionForbidden ErrorCode = "SESSION_FORBIDDEN"
	CodeSessionEnded     ErrorCode = "SESSION_ENDED"
	CodeInternal         ErrorCode = "INTERNAL"
)

// Error is a typed domain error raised only at the session-service
// boundary. The simulation core never raises these; its soft failures
// degrade to neutral values so client and server fault identically.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Reject reasons returned on verified:false responses. These are values,
// not errors: a rejected replay is a normal outcome the client must
// distinguish from a malformed request (it needs to resync, not retry).
const (
	RejectOutOfOrderWave    = "out_of_order_wave"
	RejectEmptySegment      = "empty_segment"
	RejectCheckpointOrder   = "checkpoint_order"
	RejectMissingCheckpoint = "missing_checkpoint"
	RejectHashMismatch      = "hash_mismatch"
	RejectChainMismatch     = "chain_mismatch"
	RejectFinalHashMismatch = "final_hash_mismatch"
	RejectSegmentTimeout    = "segment_timeout"
	RejectSimVersion        = "sim_version_mismatch"
)
