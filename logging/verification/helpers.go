package verification

import (
	"context"

	"towerkeep/server/logging"
)

const (
	// EventSegmentVerified is emitted when a submitted segment replays
	// cleanly against the server simulation.
	EventSegmentVerified logging.EventType = "verification.segment_verified"
	// EventSegmentRejected is emitted when verification fails; the
	// payload carries the reject reason shown to the client.
	EventSegmentRejected logging.EventType = "verification.segment_rejected"
	// EventHashMismatch is emitted with checkpoint detail when the
	// divergence was a hash comparison, as opposed to ordering or token
	// problems.
	EventHashMismatch logging.EventType = "verification.hash_mismatch"
)

// SegmentPayload summarizes one verified or rejected segment.
type SegmentPayload struct {
	StartWave     int    `json:"startWave"`
	EndWave       int    `json:"endWave"`
	Events        int    `json:"events"`
	Checkpoints   int    `json:"checkpoints"`
	TicksReplayed uint64 `json:"ticksReplayed"`
	Reason        string `json:"reason,omitempty"`
}

// MismatchPayload pinpoints the first diverging checkpoint.
type MismatchPayload struct {
	Tick          uint64 `json:"tick"`
	ClaimedHash   uint32 `json:"claimedHash"`
	ComputedHash  uint32 `json:"computedHash"`
	ClaimedChain  uint32 `json:"claimedChain"`
	ComputedChain uint32 `json:"computedChain"`
}

func SegmentVerified(ctx context.Context, pub logging.Publisher, sessionID string, actor logging.EntityRef, payload SegmentPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSegmentVerified,
		Tick:     payload.TicksReplayed,
		Actor:    actor,
		Targets:  []logging.EntityRef{{ID: sessionID, Kind: logging.EntityKindSession}},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryVerification,
		Payload:  payload,
	})
}

func SegmentRejected(ctx context.Context, pub logging.Publisher, sessionID string, actor logging.EntityRef, payload SegmentPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSegmentRejected,
		Actor:    actor,
		Targets:  []logging.EntityRef{{ID: sessionID, Kind: logging.EntityKindSession}},
		Severity: logging.SeverityWarn,
		Category: logging.CategoryVerification,
		Payload:  payload,
	})
}

func HashMismatch(ctx context.Context, pub logging.Publisher, sessionID string, actor logging.EntityRef, payload MismatchPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventHashMismatch,
		Tick:     payload.Tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{{ID: sessionID, Kind: logging.EntityKindSession}},
		Severity: logging.SeverityWarn,
		Category: logging.CategoryVerification,
		Payload:  payload,
	})
}
