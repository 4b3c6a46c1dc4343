package session

import (
	"context"
	"sort"

	"towerkeep/server/internal/sim"
	"towerkeep/server/internal/storage"
	"towerkeep/server/internal/telemetry"
	"towerkeep/server/logging"
	logeconomy "towerkeep/server/logging/economy"
	logverify "towerkeep/server/logging/verification"
)

// SubmitSegment replays a claimed gameplay window against the
// authoritative simulation and credits rewards only if every submitted
// checkpoint hashes identically. A rejection leaves the session state
// untouched, so the client can resync from the last verified boundary
// and resubmit.
func (m *Manager) SubmitSegment(ctx context.Context, userID, sessionID string, req SegmentRequest) (SegmentResult, error) {
	sess, err := m.lookup(userID, sessionID, req.SessionToken, true)
	if err != nil {
		return SegmentResult{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.ended {
		return SegmentResult{}, newError(CodeSessionEnded, "session already ended")
	}

	actor := logging.EntityRef{ID: userID, Kind: logging.EntityKindUser}
	reject := func(reason string) (SegmentResult, error) {
		m.counters.Add(telemetry.KeySegmentsRejected, 1)
		logverify.SegmentRejected(ctx, m.pub, sess.id, actor, logverify.SegmentPayload{
			StartWave:   req.StartWave,
			EndWave:     req.EndWave,
			Events:      len(req.Events),
			Checkpoints: len(req.Checkpoints),
			Reason:      reason,
		})
		return SegmentResult{Verified: false, Reason: reason}, nil
	}

	if req.SimVersion != "" && req.SimVersion != sim.SimVersion {
		return reject(RejectSimVersion)
	}
	if req.StartWave != sess.expectedStartWave {
		return reject(RejectOutOfOrderWave)
	}
	if req.EndWave <= req.StartWave || len(req.Checkpoints) == 0 {
		return reject(RejectEmptySegment)
	}
	prevTick := sess.state.Tick
	for _, cp := range req.Checkpoints {
		if cp.Tick <= prevTick {
			return reject(RejectCheckpointOrder)
		}
		prevTick = cp.Tick
	}

	outcome := m.replaySegment(sess, req)
	if outcome.reason != "" {
		if outcome.mismatch != nil {
			logverify.HashMismatch(ctx, m.pub, sess.id, actor, *outcome.mismatch)
		}
		return reject(outcome.reason)
	}

	// The replayed clone becomes authoritative only now; everything
	// above worked on a copy, so a rejection above changed nothing.
	replayed := outcome.state
	ticksReplayed := replayed.Tick - sess.state.Tick
	delta := summaryDelta(replayed.Summarize(false), sess.credited)
	rewards := CalculateRewards(delta, m.cfg.EventMultiplierPct)

	var levelsGained int
	record, err := m.store.Update(userID, func(rec *storage.PlayerRecord) error {
		rec.Inventory.Gold += rewards.Gold
		rec.Inventory.Dust += rewards.Dust
		levelsGained = applyProgression(&rec.Progression.Level, &rec.Progression.XP, rewards.XP)
		return nil
	})
	if err != nil {
		// Storage failure keeps the session at the old boundary. The
		// client retries the same segment and the replay verifies again.
		logeconomy.RewardsFailed(ctx, m.pub, actor, logeconomy.FailedPayload{Reason: err.Error()})
		return SegmentResult{}, newError(CodeInternal, "apply rewards: %v", err)
	}

	sess.state = replayed
	sess.chain = outcome.chain
	sess.expectedStartWave = replayed.WavesCleared
	sess.credited = replayed.Summarize(false)
	sess.auditTicks = m.auditSchedule(replayed.Tick)
	sess.totals.Gold += rewards.Gold
	sess.totals.Dust += rewards.Dust
	sess.totals.XP += rewards.XP

	m.counters.Add(telemetry.KeySegmentsVerified, 1)
	m.counters.Add(telemetry.KeyTicksReplayed, ticksReplayed)
	m.counters.Add(telemetry.KeyRewardsApplied, 1)

	logverify.SegmentVerified(ctx, m.pub, sess.id, actor, logverify.SegmentPayload{
		StartWave:     req.StartWave,
		EndWave:       req.EndWave,
		Events:        len(req.Events),
		Checkpoints:   len(req.Checkpoints),
		TicksReplayed: ticksReplayed,
	})
	logeconomy.RewardsApplied(ctx, m.pub, actor, logeconomy.RewardsPayload{
		Gold:         rewards.Gold,
		Dust:         rewards.Dust,
		XP:           rewards.XP,
		LevelsGained: levelsGained,
		NewLevel:     record.Progression.Level,
	})
	for i := 0; i < levelsGained; i++ {
		logeconomy.LevelUp(ctx, m.pub, actor, record.Progression.Level-levelsGained+i+1)
	}

	if m.archiver != nil {
		if archErr := m.archiver.ArchiveSegment(ArchivedSegment{
			SessionID:   sess.id,
			UserID:      userID,
			Seed:        sess.seed,
			StartWave:   req.StartWave,
			EndWave:     req.EndWave,
			Events:      req.Events,
			Checkpoints: req.Checkpoints,
			FinalHash:   req.FinalHash,
			FinalTick:   replayed.Tick,
		}); archErr != nil {
			logeconomy.RewardsFailed(ctx, m.pub, actor, logeconomy.FailedPayload{Reason: "archive: " + archErr.Error()})
		}
	}

	inv := record.Inventory
	prog := record.Progression
	return SegmentResult{
		Verified:              true,
		GoldEarned:            rewards.Gold,
		DustEarned:            rewards.Dust,
		XPEarned:              rewards.XP,
		NextSegmentAuditTicks: append([]uint64(nil), sess.auditTicks...),
		NewInventory:          &inv,
		NewProgression:        &prog,
	}, nil
}

// replayOutcome is the result of one deterministic replay attempt.
type replayOutcome struct {
	state    *sim.State
	chain    uint32
	reason   string
	mismatch *logverify.MismatchPayload
}

// replaySegment advances a clone of the session state tick by tick,
// applying submitted events at their claimed ticks and comparing every
// submitted checkpoint against the server's own hash at that tick.
// The caller holds the session lock.
func (m *Manager) replaySegment(sess *Session, req SegmentRequest) replayOutcome {
	state := sess.state.Clone()
	chain := sess.chain

	events := append([]sim.Event(nil), req.Events...)
	sort.SliceStable(events, func(i, j int) bool { return events[i].Tick < events[j].Tick })

	checkpoints := make(map[uint64]sim.Checkpoint, len(req.Checkpoints))
	for _, cp := range req.Checkpoints {
		checkpoints[cp.Tick] = cp
	}

	// Every scheduled audit tick inside the claimed window must carry a
	// checkpoint. This is what forces the client to actually run the
	// simulation instead of fabricating a plausible final hash.
	maxTicks := uint64(m.cfg.MaxTicksPerWave) * uint64(req.EndWave-req.StartWave)
	deadline := state.Tick + maxTicks
	lastCheckpointTick := req.Checkpoints[len(req.Checkpoints)-1].Tick
	for _, audit := range sess.auditTicks {
		if audit <= state.Tick || audit > lastCheckpointTick {
			continue
		}
		if _, ok := checkpoints[audit]; !ok {
			return replayOutcome{reason: RejectMissingCheckpoint}
		}
	}

	nextEvent := 0
	for state.WavesCleared < req.EndWave && !state.Defeated {
		if state.Tick >= deadline {
			return replayOutcome{reason: RejectSegmentTimeout}
		}
		for nextEvent < len(events) && events[nextEvent].Tick <= state.Tick {
			if events[nextEvent].Tick == state.Tick {
				state.ApplyEvent(events[nextEvent])
			}
			nextEvent++
		}
		state.Step()

		if cp, ok := checkpoints[state.Tick]; ok {
			hash := sim.ComputeStateHash(state)
			wantChain := sim.ChainHash(chain, state.Tick, hash)
			if cp.Hash32 != hash {
				return replayOutcome{
					reason: RejectHashMismatch,
					mismatch: &logverify.MismatchPayload{
						Tick:          state.Tick,
						ClaimedHash:   cp.Hash32,
						ComputedHash:  hash,
						ClaimedChain:  cp.ChainHash32,
						ComputedChain: wantChain,
					},
				}
			}
			if cp.ChainHash32 != wantChain {
				return replayOutcome{
					reason: RejectChainMismatch,
					mismatch: &logverify.MismatchPayload{
						Tick:          state.Tick,
						ClaimedHash:   cp.Hash32,
						ComputedHash:  hash,
						ClaimedChain:  cp.ChainHash32,
						ComputedChain: wantChain,
					},
				}
			}
			chain = wantChain
		}
	}

	if sim.ComputeStateHash(state) != req.FinalHash {
		return replayOutcome{
			reason: RejectFinalHashMismatch,
			mismatch: &logverify.MismatchPayload{
				Tick:         state.Tick,
				ClaimedHash:  req.FinalHash,
				ComputedHash: sim.ComputeStateHash(state),
			},
		}
	}

	return replayOutcome{state: state, chain: chain}
}

// summaryDelta returns the run counters earned since the previous
// verified boundary. Counters are monotonic, so subtraction is safe.
func summaryDelta(current, credited sim.Summary) sim.Summary {
	return sim.Summary{
		WavesCleared: current.WavesCleared - credited.WavesCleared,
		Kills:        current.Kills - credited.Kills,
		EliteKills:   current.EliteKills - credited.EliteKills,
		GoldEarned:   current.GoldEarned - credited.GoldEarned,
		DustEarned:   current.DustEarned - credited.DustEarned,
		Won:          false,
	}
}
