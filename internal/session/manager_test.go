package session

import (
	"context"
	"errors"
	"testing"

	"towerkeep/server/internal/sim"
	"towerkeep/server/internal/storage"
	"towerkeep/server/internal/telemetry"
)

func newTestManager(t *testing.T) (*Manager, *storage.Store) {
	t.Helper()
	store, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	m := NewManager(ManagerConfig{}, Deps{
		Store:    store,
		Counters: telemetry.NewCounters(),
	})
	return m, store
}

func TestApplyProgressionCrossesLevels(t *testing.T) {
	level := 3
	xp := XPForLevel(3) - 1
	grant := 2*XPForLevel(3) + 5

	gained := applyProgression(&level, &xp, grant)

	// Starting one XP short of level 4, the grant covers the remaining
	// requirement for level 3 and the full requirement for level 4.
	if gained != 2 {
		t.Fatalf("levels gained = %d, want 2", gained)
	}
	if level != 5 {
		t.Fatalf("level = %d, want 5", level)
	}
	wantRemainder := (XPForLevel(3) - 1) + grant - XPForLevel(3) - XPForLevel(4)
	if xp != wantRemainder {
		t.Fatalf("leftover xp = %d, want %d", xp, wantRemainder)
	}
}

func TestXPForLevelGrows(t *testing.T) {
	if got := XPForLevel(1); got != 100 {
		t.Fatalf("XPForLevel(1) = %d, want 100", got)
	}
	if got := XPForLevel(5); got != 300 {
		t.Fatalf("XPForLevel(5) = %d, want 300", got)
	}
	if XPForLevel(0) != XPForLevel(1) {
		t.Fatalf("levels below 1 should clamp to level 1 requirement")
	}
}

func TestCalculateRewardsMultiplierAffectsOnlyXP(t *testing.T) {
	summary := sim.Summary{WavesCleared: 3, Kills: 20, EliteKills: 2, GoldEarned: 150, DustEarned: 4}
	base := CalculateRewards(summary, 100)
	boosted := CalculateRewards(summary, 200)

	if base.XP != 3*10+20*1+2*5 {
		t.Fatalf("base xp = %d", base.XP)
	}
	if boosted.XP != base.XP*2 {
		t.Fatalf("boosted xp = %d, want %d", boosted.XP, base.XP*2)
	}
	if boosted.Gold != base.Gold || boosted.Dust != base.Dust {
		t.Fatalf("multiplier must not touch gold or dust")
	}
}

func TestStartRejectsLockedLoadout(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Start(context.Background(), "alice", StartRequest{
		StartingHeroes: []string{"stormblade"},
	})
	var sessErr *Error
	if !errors.As(err, &sessErr) || sessErr.Code != CodeInvalidLoadout {
		t.Fatalf("err = %v, want INVALID_LOADOUT", err)
	}

	if _, err := m.Active("alice"); err == nil {
		t.Fatalf("rejected start must not leave an active session")
	}
}

func TestStartIssuesSessionAndAuditSchedule(t *testing.T) {
	m, _ := newTestManager(t)

	res, err := m.Start(context.Background(), "alice", StartRequest{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if res.SessionID == "" || res.SessionToken == "" {
		t.Fatalf("missing session identifiers: %+v", res)
	}
	if res.SimVersion != sim.SimVersion {
		t.Fatalf("sim version = %q, want %q", res.SimVersion, sim.SimVersion)
	}
	if len(res.SegmentAuditTicks) == 0 {
		t.Fatalf("no audit ticks scheduled")
	}
	for i := 1; i < len(res.SegmentAuditTicks); i++ {
		if res.SegmentAuditTicks[i] <= res.SegmentAuditTicks[i-1] {
			t.Fatalf("audit ticks not increasing: %v", res.SegmentAuditTicks[:i+1])
		}
	}

	active, err := m.Active("alice")
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if active.SessionID != res.SessionID || active.Seed != res.Seed {
		t.Fatalf("active session mismatch: %+v vs %+v", active, res)
	}
}

func TestSubmitSegmentRejectsWrongToken(t *testing.T) {
	m, _ := newTestManager(t)
	res, err := m.Start(context.Background(), "alice", StartRequest{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	_, err = m.SubmitSegment(context.Background(), "alice", res.SessionID, SegmentRequest{
		SessionToken: "bogus",
		StartWave:    0,
		EndWave:      1,
	})
	var sessErr *Error
	if !errors.As(err, &sessErr) || sessErr.Code != CodeSessionForbidden {
		t.Fatalf("err = %v, want SESSION_FORBIDDEN", err)
	}
}

func TestSubmitSegmentRejectsOutOfOrderWave(t *testing.T) {
	m, store := newTestManager(t)
	res, err := m.Start(context.Background(), "alice", StartRequest{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	before, err := store.Load("alice")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	seg, err := m.SubmitSegment(context.Background(), "alice", res.SessionID, SegmentRequest{
		SessionToken: res.SessionToken,
		StartWave:    5,
		EndWave:      6,
		Checkpoints:  []sim.Checkpoint{{Tick: 30}},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if seg.Verified {
		t.Fatalf("out-of-order segment verified")
	}
	if seg.Reason != RejectOutOfOrderWave {
		t.Fatalf("reason = %q, want %q", seg.Reason, RejectOutOfOrderWave)
	}

	after, err := store.Load("alice")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if after.Inventory.Gold != before.Inventory.Gold || after.Progression.XP != before.Progression.XP {
		t.Fatalf("rejected segment mutated the player record")
	}
}

func TestSubmitSegmentRejectsEmptyWindow(t *testing.T) {
	m, _ := newTestManager(t)
	res, err := m.Start(context.Background(), "alice", StartRequest{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	seg, err := m.SubmitSegment(context.Background(), "alice", res.SessionID, SegmentRequest{
		SessionToken: res.SessionToken,
		StartWave:    0,
		EndWave:      1,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if seg.Verified || seg.Reason != RejectEmptySegment {
		t.Fatalf("got %+v, want empty_segment rejection", seg)
	}
}

func TestSubmitSegmentRejectsSimVersionDrift(t *testing.T) {
	m, _ := newTestManager(t)
	res, err := m.Start(context.Background(), "alice", StartRequest{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	seg, err := m.SubmitSegment(context.Background(), "alice", res.SessionID, SegmentRequest{
		SessionToken: res.SessionToken,
		StartWave:    0,
		EndWave:      1,
		Checkpoints:  []sim.Checkpoint{{Tick: 30}},
		SimVersion:   "0.0.1",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if seg.Verified || seg.Reason != RejectSimVersion {
		t.Fatalf("got %+v, want sim_version_mismatch rejection", seg)
	}
}

// simulateSegment mirrors what an honest client does: run the same
// deterministic simulation from the session seed and record a checkpoint
// at every audit tick until the target wave clears.
func simulateSegment(t *testing.T, res StartResult, endWave int) SegmentRequest {
	t.Helper()
	state := sim.NewState(res.Seed, sim.DefaultConfig(), []string{"pyromancer", "frostcaller"}, []string{"bolt", "frost"})

	audits := make(map[uint64]bool, len(res.SegmentAuditTicks))
	for _, tick := range res.SegmentAuditTicks {
		audits[tick] = true
	}

	var (
		checkpoints []sim.Checkpoint
		chain       uint32
	)
	for state.WavesCleared < endWave && !state.Defeated {
		state.Step()
		if audits[state.Tick] {
			cp := sim.CreateCheckpoint(state, chain)
			chain = cp.ChainHash32
			checkpoints = append(checkpoints, cp)
		}
		if state.Tick > 100000 {
			t.Fatalf("simulation never cleared wave %d", endWave)
		}
	}
	if len(checkpoints) == 0 {
		t.Fatalf("no audit ticks elapsed before wave %d cleared", endWave)
	}

	return SegmentRequest{
		SessionToken: res.SessionToken,
		StartWave:    0,
		EndWave:      endWave,
		Checkpoints:  checkpoints,
		FinalHash:    sim.ComputeStateHash(state),
		SimVersion:   sim.SimVersion,
	}
}

func TestSubmitSegmentVerifiesHonestReplay(t *testing.T) {
	m, store := newTestManager(t)
	res, err := m.Start(context.Background(), "alice", StartRequest{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	req := simulateSegment(t, res, 1)
	seg, err := m.SubmitSegment(context.Background(), "alice", res.SessionID, req)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !seg.Verified {
		t.Fatalf("honest segment rejected: %q", seg.Reason)
	}
	if seg.NewInventory == nil || seg.NewProgression == nil {
		t.Fatalf("verified segment missing updated player state")
	}
	if len(seg.NextSegmentAuditTicks) == 0 {
		t.Fatalf("verified segment issued no follow-up audit ticks")
	}

	record, err := store.Load("alice")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if record.Inventory.Gold != seg.NewInventory.Gold {
		t.Fatalf("persisted gold %d != reported %d", record.Inventory.Gold, seg.NewInventory.Gold)
	}
}

func TestSubmitSegmentRejectsTamperedHash(t *testing.T) {
	m, store := newTestManager(t)
	res, err := m.Start(context.Background(), "alice", StartRequest{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	before, err := store.Load("alice")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	req := simulateSegment(t, res, 1)
	req.Checkpoints[0].Hash32 ^= 1

	seg, err := m.SubmitSegment(context.Background(), "alice", res.SessionID, req)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if seg.Verified || seg.Reason != RejectHashMismatch {
		t.Fatalf("got %+v, want hash_mismatch rejection", seg)
	}

	after, err := store.Load("alice")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if after.Inventory.Gold != before.Inventory.Gold {
		t.Fatalf("tampered segment credited gold")
	}

	// The session boundary did not advance; the honest replay still
	// verifies afterwards.
	honest := simulateSegment(t, res, 1)
	seg, err = m.SubmitSegment(context.Background(), "alice", res.SessionID, honest)
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if !seg.Verified {
		t.Fatalf("honest resubmission rejected: %q", seg.Reason)
	}
}

func TestSubmitSegmentRejectsSplicedChain(t *testing.T) {
	m, _ := newTestManager(t)
	res, err := m.Start(context.Background(), "alice", StartRequest{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	req := simulateSegment(t, res, 1)
	if len(req.Checkpoints) < 2 {
		t.Skipf("segment produced %d checkpoints, need 2", len(req.Checkpoints))
	}
	// Individual hashes stay valid; only the chain linkage is broken.
	req.Checkpoints[1].ChainHash32 ^= 1

	seg, err := m.SubmitSegment(context.Background(), "alice", res.SessionID, req)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if seg.Verified || seg.Reason != RejectChainMismatch {
		t.Fatalf("got %+v, want chain_mismatch rejection", seg)
	}
}

func TestSubmitSegmentRejectsMissingAuditCheckpoint(t *testing.T) {
	m, _ := newTestManager(t)
	res, err := m.Start(context.Background(), "alice", StartRequest{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	req := simulateSegment(t, res, 1)
	if len(req.Checkpoints) < 2 {
		t.Skipf("segment produced %d checkpoints, need 2", len(req.Checkpoints))
	}
	// Drop an interior checkpoint while keeping the window bounds.
	req.Checkpoints = append(req.Checkpoints[:1], req.Checkpoints[2:]...)

	seg, err := m.SubmitSegment(context.Background(), "alice", res.SessionID, req)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if seg.Verified || seg.Reason != RejectMissingCheckpoint {
		t.Fatalf("got %+v, want missing_checkpoint rejection", seg)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	m, _ := newTestManager(t)
	res, err := m.Start(context.Background(), "alice", StartRequest{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	rot, err := m.Refresh(context.Background(), "alice", res.SessionID, RefreshRequest{SessionToken: res.SessionToken})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if rot.SessionToken == "" || rot.SessionToken == res.SessionToken {
		t.Fatalf("token did not rotate")
	}

	// The old token is dead.
	_, err = m.Refresh(context.Background(), "alice", res.SessionID, RefreshRequest{SessionToken: res.SessionToken})
	var sessErr *Error
	if !errors.As(err, &sessErr) || sessErr.Code != CodeSessionForbidden {
		t.Fatalf("stale token err = %v, want SESSION_FORBIDDEN", err)
	}
}

func TestEndClampsPartialRewards(t *testing.T) {
	m, store := newTestManager(t)
	res, err := m.Start(context.Background(), "alice", StartRequest{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	before, err := store.Load("alice")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	end, err := m.End(context.Background(), "alice", res.SessionID, EndRequest{
		SessionToken:   res.SessionToken,
		Reason:         "player_quit",
		PartialRewards: &Rewards{Gold: 999999, Dust: 999, XP: 999999},
	})
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if end.GoldEarned != partialGoldCap || end.DustEarned != partialDustCap || end.XPEarned != partialXPCap {
		t.Fatalf("partial rewards not clamped: %+v", end)
	}

	after, err := store.Load("alice")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if after.Inventory.Gold != before.Inventory.Gold+partialGoldCap {
		t.Fatalf("persisted gold %d, want %d", after.Inventory.Gold, before.Inventory.Gold+partialGoldCap)
	}

	if _, err := m.Active("alice"); err == nil {
		t.Fatalf("ended session still listed active")
	}
}

func TestEndedSessionRefusesSegments(t *testing.T) {
	m, _ := newTestManager(t)
	res, err := m.Start(context.Background(), "alice", StartRequest{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := m.End(context.Background(), "alice", res.SessionID, EndRequest{SessionToken: res.SessionToken}); err != nil {
		t.Fatalf("end: %v", err)
	}

	_, err = m.SubmitSegment(context.Background(), "alice", res.SessionID, SegmentRequest{
		SessionToken: res.SessionToken,
		StartWave:    0,
		EndWave:      1,
		Checkpoints:  []sim.Checkpoint{{Tick: 30}},
	})
	var sessErr *Error
	if !errors.As(err, &sessErr) || sessErr.Code != CodeSessionNotFound {
		t.Fatalf("err = %v, want SESSION_NOT_FOUND", err)
	}
}

func TestStartReplacesExistingSession(t *testing.T) {
	m, _ := newTestManager(t)
	first, err := m.Start(context.Background(), "alice", StartRequest{})
	if err != nil {
		t.Fatalf("first start: %v", err)
	}
	second, err := m.Start(context.Background(), "alice", StartRequest{})
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if first.SessionID == second.SessionID {
		t.Fatalf("second start reused the session id")
	}

	active, err := m.Active("alice")
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if active.SessionID != second.SessionID {
		t.Fatalf("active = %q, want %q", active.SessionID, second.SessionID)
	}
}
