package session

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/google/uuid"

	"towerkeep/server/internal/sim"
	"towerkeep/server/internal/storage"
	"towerkeep/server/internal/telemetry"
	"towerkeep/server/logging"
	logsession "towerkeep/server/logging/session"
)

// ManagerConfig tunes the verification service.
type ManagerConfig struct {
	SimConfig sim.Config
	// AuditInterval is the tick spacing between required checkpoints.
	AuditInterval uint64
	// AuditWindow is how many audit ticks are scheduled ahead at a time.
	AuditWindow int
	// TokenTTL bounds how long a session token stays valid between
	// refreshes.
	TokenTTL time.Duration
	// EventMultiplierPct scales XP payouts for live events; 100 is
	// neutral.
	EventMultiplierPct int
	// MaxTicksPerWave caps replay length per claimed wave so a crafted
	// segment cannot pin a request handler.
	MaxTicksPerWave int
}

func (c ManagerConfig) normalized() ManagerConfig {
	c.SimConfig = c.SimConfig.Normalized()
	if c.AuditInterval == 0 {
		c.AuditInterval = 30
	}
	if c.AuditWindow <= 0 {
		c.AuditWindow = 64
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = 10 * time.Minute
	}
	if c.EventMultiplierPct <= 0 {
		c.EventMultiplierPct = 100
	}
	if c.MaxTicksPerWave <= 0 {
		c.MaxTicksPerWave = 5000
	}
	return c
}

// Deps bundles the runtime collaborators for a Manager. Seed overrides
// the session seed source; production leaves it nil.
type Deps struct {
	Store     *storage.Store
	Publisher logging.Publisher
	Counters  *telemetry.Counters
	Archiver  Archiver
	Now       func() time.Time
	Seed      func() uint32
}

// Manager owns every active session record and is the only component
// that mutates them. All verification for one session runs under that
// session's lock; two concurrent submissions serialize rather than
// racing the expected-wave counter.
type Manager struct {
	cfg      ManagerConfig
	store    *storage.Store
	pub      logging.Publisher
	counters *telemetry.Counters
	archiver Archiver
	now      func() time.Time
	seedFn   func() uint32

	mu       sync.Mutex
	sessions map[string]*Session
	byUser   map[string]string
}

// Session is the server-side record of one in-progress run. The state
// field holds the authoritative replayed simulation at the last verified
// segment boundary.
type Session struct {
	mu sync.Mutex

	id           string
	userID       string
	token        string
	tokenExpires time.Time

	seed          uint32
	simCfg        sim.Config
	fortressClass string
	heroes        []string
	turrets       []string

	state             *sim.State
	chain             uint32
	startingWave      int
	expectedStartWave int
	auditTicks        []uint64

	credited sim.Summary
	totals   Rewards
	ended    bool
}

// NewManager constructs the verification service.
func NewManager(cfg ManagerConfig, deps Deps) *Manager {
	cfg = cfg.normalized()
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	pub := deps.Publisher
	if pub == nil {
		pub = logging.NopPublisher()
	}
	seedFn := deps.Seed
	if seedFn == nil {
		seedFn = newSeed
	}
	return &Manager{
		cfg:      cfg,
		store:    deps.Store,
		pub:      pub,
		counters: deps.Counters,
		archiver: deps.Archiver,
		now:      now,
		seedFn:   seedFn,
		sessions: make(map[string]*Session),
		byUser:   make(map[string]string),
	}
}

func newToken() string {
	return uuid.NewString()
}

func newSeed() uint32 {
	id := uuid.New()
	return binary.LittleEndian.Uint32(id[:4])
}

// auditSchedule returns the next window of required checkpoint ticks
// strictly after the given tick.
func (m *Manager) auditSchedule(after uint64) []uint64 {
	ticks := make([]uint64, 0, m.cfg.AuditWindow)
	next := (after/m.cfg.AuditInterval + 1) * m.cfg.AuditInterval
	for i := 0; i < m.cfg.AuditWindow; i++ {
		ticks = append(ticks, next)
		next += m.cfg.AuditInterval
	}
	return ticks
}

// Start validates the requested loadout and issues a fresh session. A
// new session replaces any previous active session for the user.
func (m *Manager) Start(ctx context.Context, userID string, req StartRequest) (StartResult, error) {
	record, err := m.store.Load(userID)
	if err != nil {
		return StartResult{}, newError(CodeInternal, "load player: %v", err)
	}

	actor := logging.EntityRef{ID: userID, Kind: logging.EntityKindUser}
	rejectLoadout := func(format string, args ...any) (StartResult, error) {
		err := newError(CodeInvalidLoadout, format, args...)
		logsession.StartRejected(ctx, m.pub, actor, logsession.RejectedPayload{
			Code:   string(err.Code),
			Detail: err.Message,
		})
		return StartResult{}, err
	}

	fortressClass := req.FortressClass
	if fortressClass == "" {
		if len(record.Inventory.FortressClasses) > 0 {
			fortressClass = record.Inventory.FortressClasses[0]
		}
	} else if !record.HasFortressClass(fortressClass) {
		return rejectLoadout("fortress class %q is not unlocked", fortressClass)
	}

	heroes := req.StartingHeroes
	if len(heroes) == 0 {
		heroes = defaultLoadout(record.Inventory.Heroes, 2)
	}
	for _, kind := range heroes {
		if !record.HasHero(kind) {
			return rejectLoadout("hero %q is not unlocked", kind)
		}
	}
	turrets := req.StartingTurrets
	if len(turrets) == 0 {
		turrets = defaultLoadout(record.Inventory.Turrets, 2)
	}
	for _, kind := range turrets {
		if !record.HasTurret(kind) {
			return rejectLoadout("turret %q is not unlocked", kind)
		}
	}

	seed := m.seedFn()
	state := sim.NewState(seed, m.cfg.SimConfig, heroes, turrets)
	sess := &Session{
		id:            uuid.NewString(),
		userID:        userID,
		token:         newToken(),
		tokenExpires:  m.now().Add(m.cfg.TokenTTL),
		seed:          seed,
		simCfg:        m.cfg.SimConfig,
		fortressClass: fortressClass,
		heroes:        heroes,
		turrets:       turrets,
		state:         state,
		auditTicks:    m.auditSchedule(state.Tick),
	}

	// Detach any previous session under the registry lock, but mark it
	// ended only after releasing it. End and Refresh acquire the session
	// lock first, so taking it while holding the registry lock would
	// invert the order.
	m.mu.Lock()
	var prev *Session
	if prevID, ok := m.byUser[userID]; ok {
		prev = m.sessions[prevID]
		delete(m.sessions, prevID)
	}
	m.sessions[sess.id] = sess
	m.byUser[userID] = sess.id
	m.mu.Unlock()
	if prev != nil {
		prev.mu.Lock()
		prev.ended = true
		prev.mu.Unlock()
	}

	m.counters.Add(telemetry.KeySessionsStarted, 1)
	logsession.Started(ctx, m.pub, sess.id,
		logging.EntityRef{ID: userID, Kind: logging.EntityKindUser},
		logsession.StartedPayload{Seed: seed, SimVersion: sim.SimVersion, StartingWave: sess.startingWave})

	return StartResult{
		SessionID:          sess.id,
		SessionToken:       sess.token,
		Seed:               seed,
		SimVersion:         sim.SimVersion,
		TickHz:             m.cfg.SimConfig.TickHz,
		StartingWave:       sess.startingWave,
		SegmentAuditTicks:  append([]uint64(nil), sess.auditTicks...),
		Inventory:          record.Inventory,
		CommanderLevel:     record.Progression.Level,
		ProgressionBonuses: bonusesForLevel(record.Progression.Level),
		FortressBaseHP:     m.cfg.SimConfig.FortressBaseHP,
		FortressBaseDamage: m.cfg.SimConfig.FortressBaseDamage,
		WaveIntervalTicks:  m.cfg.SimConfig.WaveIntervalTicks,
	}, nil
}

func defaultLoadout(unlocked []string, n int) []string {
	if len(unlocked) < n {
		n = len(unlocked)
	}
	return append([]string(nil), unlocked[:n]...)
}

// bonusesForLevel derives the display-only commander perks.
func bonusesForLevel(level int) ProgressionBonuses {
	return ProgressionBonuses{
		GoldFindPct: level / 2,
		XPGainPct:   level / 4,
	}
}

// lookup resolves a session and enforces ownership and token validity.
// Expired sessions report not-found; foreign or wrong tokens report
// forbidden without revealing anything further.
func (m *Manager) lookup(userID, sessionID, token string, requireToken bool) (*Session, error) {
	m.mu.Lock()
	sess := m.sessions[sessionID]
	m.mu.Unlock()
	if sess == nil {
		return nil, newError(CodeSessionNotFound, "no such session")
	}
	if sess.userID != userID {
		return nil, newError(CodeSessionForbidden, "session belongs to another user")
	}
	if requireToken {
		sess.mu.Lock()
		expires, current := sess.tokenExpires, sess.token
		sess.mu.Unlock()
		if m.now().After(expires) {
			return nil, newError(CodeSessionNotFound, "session expired")
		}
		if token == "" || token != current {
			return nil, newError(CodeSessionForbidden, "session token mismatch")
		}
	}
	return sess, nil
}

// Active returns the caller's active session metadata.
func (m *Manager) Active(userID string) (ActiveResult, error) {
	m.mu.Lock()
	id, ok := m.byUser[userID]
	sess := m.sessions[id]
	m.mu.Unlock()
	if !ok || sess == nil {
		return ActiveResult{}, newError(CodeSessionNotFound, "no active session")
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.ended {
		return ActiveResult{}, newError(CodeSessionNotFound, "no active session")
	}
	return ActiveResult{
		SessionID:         sess.id,
		Seed:              sess.seed,
		SimVersion:        sim.SimVersion,
		TickHz:            sess.simCfg.TickHz,
		StartingWave:      sess.startingWave,
		ExpectedStartWave: sess.expectedStartWave,
		SegmentAuditTicks: append([]uint64(nil), sess.auditTicks...),
		WavesCleared:      sess.credited.WavesCleared,
	}, nil
}

// Refresh rotates the session token before it expires.
func (m *Manager) Refresh(ctx context.Context, userID, sessionID string, req RefreshRequest) (RefreshResult, error) {
	sess, err := m.lookup(userID, sessionID, req.SessionToken, true)
	if err != nil {
		return RefreshResult{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.ended {
		return RefreshResult{}, newError(CodeSessionEnded, "session already ended")
	}
	sess.token = newToken()
	sess.tokenExpires = m.now().Add(m.cfg.TokenTTL)
	m.counters.Add(telemetry.KeyTokenRefreshes, 1)
	logsession.TokenRefreshed(ctx, m.pub, sess.id, logging.EntityRef{ID: userID, Kind: logging.EntityKindUser})
	return RefreshResult{SessionToken: sess.token}, nil
}

// Partial-reward clamps for unverifiable end-of-session claims. The
// client can always submit a proper segment instead; this path exists
// only for disconnect salvage and pays accordingly.
const (
	partialGoldCap = 100
	partialDustCap = 5
	partialXPCap   = 50
)

// End finalizes a session. PartialRewards, if claimed, are clamped to
// conservative caps; everything else paid out during the run already
// went through hash-chain verification.
func (m *Manager) End(ctx context.Context, userID, sessionID string, req EndRequest) (EndResult, error) {
	sess, err := m.lookup(userID, sessionID, req.SessionToken, true)
	if err != nil {
		return EndResult{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.ended {
		return EndResult{}, newError(CodeSessionEnded, "session already ended")
	}
	sess.ended = true

	var partial Rewards
	if req.PartialRewards != nil {
		partial = clampPartial(*req.PartialRewards)
	}

	record, err := m.store.Update(userID, func(rec *storage.PlayerRecord) error {
		rec.Inventory.Gold += partial.Gold
		rec.Inventory.Dust += partial.Dust
		applyProgression(&rec.Progression.Level, &rec.Progression.XP, partial.XP)
		return nil
	})
	if err != nil {
		return EndResult{}, newError(CodeInternal, "apply final rewards: %v", err)
	}

	sess.totals.Gold += partial.Gold
	sess.totals.Dust += partial.Dust
	sess.totals.XP += partial.XP

	m.mu.Lock()
	if m.byUser[userID] == sess.id {
		delete(m.byUser, userID)
	}
	delete(m.sessions, sess.id)
	m.mu.Unlock()

	m.counters.Add(telemetry.KeySessionsEnded, 1)
	logsession.Ended(ctx, m.pub, sess.id,
		logging.EntityRef{ID: userID, Kind: logging.EntityKindUser},
		logsession.EndedPayload{
			Reason:       req.Reason,
			WavesCleared: sess.credited.WavesCleared,
			GoldEarned:   sess.totals.Gold,
			DustEarned:   sess.totals.Dust,
		})

	return EndResult{
		GoldEarned:     sess.totals.Gold,
		DustEarned:     sess.totals.Dust,
		XPEarned:       sess.totals.XP,
		WavesCleared:   sess.credited.WavesCleared,
		NewInventory:   record.Inventory,
		NewProgression: record.Progression,
	}, nil
}

func clampPartial(claim Rewards) Rewards {
	if claim.Gold < 0 {
		claim.Gold = 0
	}
	if claim.Dust < 0 {
		claim.Dust = 0
	}
	if claim.XP < 0 {
		claim.XP = 0
	}
	if claim.Gold > partialGoldCap {
		claim.Gold = partialGoldCap
	}
	if claim.Dust > partialDustCap {
		claim.Dust = partialDustCap
	}
	if claim.XP > partialXPCap {
		claim.XP = partialXPCap
	}
	return claim
}
