package session

import (
	"towerkeep/server/internal/sim"
	"towerkeep/server/internal/storage"
)

// StartRequest is the optional loadout for a new run. Empty fields fall
// back to the player's default unlocked loadout.
type StartRequest struct {
	FortressClass   string   `json:"fortressClass,omitempty"`
	StartingHeroes  []string `json:"startingHeroes,omitempty"`
	StartingTurrets []string `json:"startingTurrets,omitempty"`
}

// StartResult is everything the client needs to mirror the server's
// simulation exactly. Any drift between these values and the client's
// embedded defaults is a determinism hazard the client must treat as
// fatal.
type StartResult struct {
	SessionID          string             `json:"sessionId"`
	SessionToken       string             `json:"sessionToken"`
	Seed               uint32             `json:"seed"`
	SimVersion         string             `json:"simVersion"`
	TickHz             int                `json:"tickHz"`
	StartingWave       int                `json:"startingWave"`
	SegmentAuditTicks  []uint64           `json:"segmentAuditTicks"`
	Inventory          storage.Inventory  `json:"inventory"`
	CommanderLevel     int                `json:"commanderLevel"`
	ProgressionBonuses ProgressionBonuses `json:"progressionBonuses"`
	FortressBaseHP     int                `json:"fortressBaseHp"`
	FortressBaseDamage int                `json:"fortressBaseDamage"`
	WaveIntervalTicks  int                `json:"waveIntervalTicks"`
}

// ProgressionBonuses are the commander-level perks surfaced to the
// client UI. They are display data only; nothing here feeds the
// deterministic simulation.
type ProgressionBonuses struct {
	GoldFindPct int `json:"goldFindPct"`
	XPGainPct   int `json:"xpGainPct"`
}

// SegmentRequest is one contiguous replay window submitted for
// verification.
type SegmentRequest struct {
	SessionToken string           `json:"sessionToken"`
	StartWave    int              `json:"startWave"`
	EndWave      int              `json:"endWave"`
	Events       []sim.Event      `json:"events"`
	Checkpoints  []sim.Checkpoint `json:"checkpoints"`
	FinalHash    uint32           `json:"finalHash"`
	SimVersion   string           `json:"simVersion,omitempty"`
}

// SegmentResult reports the verification outcome. Verified=false with a
// Reason is a normal response, not an error: the client uses the reason
// to decide between resync and retry.
type SegmentResult struct {
	Verified              bool                 `json:"verified"`
	Reason                string               `json:"reason,omitempty"`
	GoldEarned            int                  `json:"goldEarned"`
	DustEarned            int                  `json:"dustEarned"`
	XPEarned              int                  `json:"xpEarned"`
	NextSegmentAuditTicks []uint64             `json:"nextSegmentAuditTicks,omitempty"`
	NewInventory          *storage.Inventory   `json:"newInventory,omitempty"`
	NewProgression        *storage.Progression `json:"newProgression,omitempty"`
}

// EndRequest finalizes a session. PartialRewards is a best-effort client
// claim for progress since the last verified segment; it is clamped
// hard, never trusted.
type EndRequest struct {
	SessionToken   string   `json:"sessionToken"`
	Reason         string   `json:"reason"`
	PartialRewards *Rewards `json:"partialRewards,omitempty"`
}

// EndResult carries the final verified totals for the run.
type EndResult struct {
	GoldEarned     int                 `json:"goldEarned"`
	DustEarned     int                 `json:"dustEarned"`
	XPEarned       int                 `json:"xpEarned"`
	WavesCleared   int                 `json:"wavesCleared"`
	NewInventory   storage.Inventory   `json:"newInventory"`
	NewProgression storage.Progression `json:"newProgression"`
}

// ActiveResult is the read-only view of an in-progress session.
type ActiveResult struct {
	SessionID         string   `json:"sessionId"`
	Seed              uint32   `json:"seed"`
	SimVersion        string   `json:"simVersion"`
	TickHz            int      `json:"tickHz"`
	StartingWave      int      `json:"startingWave"`
	ExpectedStartWave int      `json:"expectedStartWave"`
	SegmentAuditTicks []uint64 `json:"segmentAuditTicks"`
	WavesCleared      int      `json:"wavesCleared"`
}

// RefreshRequest rotates a session token.
type RefreshRequest struct {
	SessionToken string `json:"sessionToken"`
}

// RefreshResult carries the replacement token.
type RefreshResult struct {
	SessionToken string `json:"sessionToken"`
}

// ArchivedSegment is handed to the replay archiver after a segment
// verifies.
type ArchivedSegment struct {
	SessionID   string
	UserID      string
	Seed        uint32
	StartWave   int
	EndWave     int
	Events      []sim.Event
	Checkpoints []sim.Checkpoint
	FinalHash   uint32
	FinalTick   uint64
}

// Archiver persists verified segments for offline audit. Archiving is
// best-effort: failures are logged, never surfaced to the client.
type Archiver interface {
	ArchiveSegment(seg ArchivedSegment) error
}
