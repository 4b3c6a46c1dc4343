package session

import (
	"context"

	"towerkeep/server/logging"
)

const (
	// EventSessionStarted is emitted when a run session is created.
	EventSessionStarted logging.EventType = "session.started"
	// EventSessionEnded is emitted when a run session finalizes.
	EventSessionEnded logging.EventType = "session.ended"
	// EventTokenRefreshed is emitted when a session token rotates.
	EventTokenRefreshed logging.EventType = "session.token_refreshed"
	// EventStartRejected is emitted when a start request fails validation.
	EventStartRejected logging.EventType = "session.start_rejected"
)

// StartedPayload describes a freshly issued session.
type StartedPayload struct {
	Seed         uint32 `json:"seed"`
	SimVersion   string `json:"simVersion"`
	StartingWave int    `json:"startingWave"`
}

// EndedPayload describes how a session finished.
type EndedPayload struct {
	Reason       string `json:"reason"`
	WavesCleared int    `json:"wavesCleared"`
	GoldEarned   int    `json:"goldEarned"`
	DustEarned   int    `json:"dustEarned"`
}

// RejectedPayload carries the domain error code behind a refusal.
type RejectedPayload struct {
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}

func Started(ctx context.Context, pub logging.Publisher, sessionID string, actor logging.EntityRef, payload StartedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSessionStarted,
		Actor:    actor,
		Targets:  []logging.EntityRef{{ID: sessionID, Kind: logging.EntityKindSession}},
		Severity: logging.SeverityInfo,
		Category: logging.CategorySession,
		Payload:  payload,
	})
}

func Ended(ctx context.Context, pub logging.Publisher, sessionID string, actor logging.EntityRef, payload EndedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSessionEnded,
		Actor:    actor,
		Targets:  []logging.EntityRef{{ID: sessionID, Kind: logging.EntityKindSession}},
		Severity: logging.SeverityInfo,
		Category: logging.CategorySession,
		Payload:  payload,
	})
}

func TokenRefreshed(ctx context.Context, pub logging.Publisher, sessionID string, actor logging.EntityRef) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTokenRefreshed,
		Actor:    actor,
		Targets:  []logging.EntityRef{{ID: sessionID, Kind: logging.EntityKindSession}},
		Severity: logging.SeverityDebug,
		Category: logging.CategorySession,
	})
}

func StartRejected(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, payload RejectedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventStartRejected,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategorySession,
		Payload:  payload,
	})
}
