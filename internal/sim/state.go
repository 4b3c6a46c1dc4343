package sim

import (
	"sort"

	"towerkeep/server/internal/fixed"
	"towerkeep/server/internal/simrng"
)

// State is the full simulation aggregate advanced by Step. Exactly one
// goroutine owns a State; the client's local run and the server's
// verification run each construct their own from the same seed and
// config, and the checkpoint hash is the only cross-process consistency
// mechanism between them.
type State struct {
	Config Config

	Tick uint64
	Wave int
	RNG  *simrng.RNG

	FortressHP    int
	FortressMaxHP int

	// Gold and Dust are spendable in-run balances; GoldEarned and
	// DustEarned accumulate everything credited during the run and feed
	// reward calculation.
	Gold       int
	Dust       int
	GoldEarned int
	DustEarned int

	Enemies     []*Enemy
	Heroes      []*Hero
	Turrets     []*Turret
	Walls       []*Wall
	Militia     []*Militia
	Projectiles []*Projectile

	// Relics holds acquired relic ids in pick order; hashing sorts a
	// copy so order does not affect the checkpoint.
	Relics             []uint8
	PendingRelicChoice []uint8

	WaveTotalEnemies   int
	WaveSpawnedEnemies int
	WaveSpawnQueue     []uint8
	NextWaveTick       uint64
	waveActive         bool

	// MilitiaCooldowns maps militia kind to the tick the kind becomes
	// deployable again.
	MilitiaCooldowns map[string]uint64

	Kills        int
	EliteKills   int
	WavesCleared int
	DamageDealt  int

	Defeated bool

	nextEntityID uint32

	// Derived per-tick aura cache; never hashed, never authoritative.
	auraCache      map[uint32]auraBonus
	cacheValidTick uint64
	cacheValid     bool
}

// NewState constructs a run from a seed and session config. Loadout
// heroes and turrets are deployed at deterministic slots around the
// fortress before the first tick.
func NewState(seed uint32, cfg Config, heroes, turrets []string) *State {
	cfg = cfg.Normalized()
	s := &State{
		Config:           cfg,
		RNG:              simrng.New(seed),
		FortressHP:       cfg.FortressBaseHP,
		FortressMaxHP:    cfg.FortressBaseHP,
		Gold:             cfg.StartingGold,
		Dust:             cfg.StartingDust,
		NextWaveTick:     uint64(cfg.WaveIntervalTicks),
		MilitiaCooldowns: make(map[string]uint64),
		nextEntityID:     1,
	}
	for i, kind := range heroes {
		s.deployHeroAt(kind, heroSlot(i))
	}
	for i, kind := range turrets {
		s.placeTurretAt(kind, turretSlot(i))
	}
	return s
}

type slot struct{ x, y fixed.Fixed }

// heroSlot and turretSlot lay out starting entities in fixed rings so
// every runtime derives identical positions from a loadout index.
func heroSlot(i int) slot {
	offsets := []slot{
		{fixed.FromInt(-40), fixed.FromInt(-30)},
		{fixed.FromInt(40), fixed.FromInt(-30)},
		{fixed.FromInt(-40), fixed.FromInt(30)},
		{fixed.FromInt(40), fixed.FromInt(30)},
	}
	return offsets[i%len(offsets)]
}

func turretSlot(i int) slot {
	offsets := []slot{
		{fixed.FromInt(0), fixed.FromInt(-70)},
		{fixed.FromInt(-70), fixed.FromInt(0)},
		{fixed.FromInt(70), fixed.FromInt(0)},
		{fixed.FromInt(0), fixed.FromInt(70)},
	}
	return offsets[i%len(offsets)]
}

func (s *State) allocID() uint32 {
	id := s.nextEntityID
	s.nextEntityID++
	return id
}

func (s *State) deployHeroAt(kind string, at slot) *Hero {
	def, ok := heroDefs[kind]
	if !ok {
		return nil
	}
	h := &Hero{
		ID:    s.allocID(),
		Kind:  kind,
		X:     at.x,
		Y:     at.y,
		HP:    def.MaxHP,
		MaxHP: def.MaxHP,
	}
	s.Heroes = append(s.Heroes, h)
	s.invalidateAuraCache()
	return h
}

func (s *State) placeTurretAt(kind string, at slot) *Turret {
	if _, ok := turretDefs[kind]; !ok {
		return nil
	}
	t := &Turret{
		ID:   s.allocID(),
		Kind: kind,
		X:    at.x,
		Y:    at.y,
	}
	s.Turrets = append(s.Turrets, t)
	s.invalidateAuraCache()
	return t
}

// relicDamagePct sums acquired relic damage bonuses.
func (s *State) relicDamagePct() int {
	total := 0
	for _, id := range s.Relics {
		total += relicDefs[id].DamagePct
	}
	return total
}

func (s *State) relicGoldPct() int {
	total := 0
	for _, id := range s.Relics {
		total += relicDefs[id].GoldPct
	}
	return total
}

// creditGold applies relic gold bonuses and advances both the spendable
// balance and the run earn counter.
func (s *State) creditGold(base int) {
	if base <= 0 {
		return
	}
	amount := base + base*s.relicGoldPct()/100
	s.Gold += amount
	s.GoldEarned += amount
}

func (s *State) creditDust(amount int) {
	if amount <= 0 {
		return
	}
	s.Dust += amount
	s.DustEarned += amount
}

// sortedMilitiaCooldownKinds returns cooldown keys in stable order for
// hashing; map iteration order is not deterministic across runtimes.
func (s *State) sortedMilitiaCooldownKinds() []string {
	kinds := make([]string, 0, len(s.MilitiaCooldowns))
	for kind := range s.MilitiaCooldowns {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// Summary captures the run outcome fed into reward calculation.
type Summary struct {
	WavesCleared int  `json:"wavesCleared"`
	Kills        int  `json:"kills"`
	EliteKills   int  `json:"eliteKills"`
	GoldEarned   int  `json:"goldEarned"`
	DustEarned   int  `json:"dustEarned"`
	Won          bool `json:"won"`
}

// Summarize snapshots the reward-relevant counters.
func (s *State) Summarize(won bool) Summary {
	return Summary{
		WavesCleared: s.WavesCleared,
		Kills:        s.Kills,
		EliteKills:   s.EliteKills,
		GoldEarned:   s.GoldEarned,
		DustEarned:   s.DustEarned,
		Won:          won,
	}
}
