package sim

import "sort"

// Checkpoint protocol. ComputeStateHash serializes every determinism-
// relevant field of the State into a canonical byte stream and folds it
// through FNV-1a 32. The field order, little-endian integer encoding,
// and sorted-by-id entity iteration are a strict wire contract shared
// with the client build: any change requires a SimVersion bump.
//
// A field left out of this serialization is a blind spot a client could
// diverge in undetected. A field added that is not truly deterministic
// (wall-clock time, map iteration order) causes false rejections. Both
// failure modes are worse than the cost of hashing everything.

// Checkpoint is a periodic hashed snapshot. ChainHash32 folds the
// previous checkpoint's chain value so a valid-looking prefix cannot be
// spliced onto a different later state.
type Checkpoint struct {
	Tick        uint64 `json:"tick"`
	Hash32      uint32 `json:"hash32"`
	ChainHash32 uint32 `json:"chainHash32"`
}

const (
	fnvOffset32 uint32 = 2166136261
	fnvPrime32  uint32 = 16777619
)

// fnvHasher folds bytes through FNV-1a 32 without buffering the whole
// canonical stream.
type fnvHasher struct {
	sum uint32
}

func newFnvHasher() *fnvHasher {
	return &fnvHasher{sum: fnvOffset32}
}

func (h *fnvHasher) writeByte(b byte) {
	h.sum ^= uint32(b)
	h.sum *= fnvPrime32
}

func (h *fnvHasher) writeU32(v uint32) {
	h.writeByte(byte(v))
	h.writeByte(byte(v >> 8))
	h.writeByte(byte(v >> 16))
	h.writeByte(byte(v >> 24))
}

func (h *fnvHasher) writeI32(v int32) {
	h.writeU32(uint32(v))
}

func (h *fnvHasher) writeU64(v uint64) {
	h.writeU32(uint32(v))
	h.writeU32(uint32(v >> 32))
}

func (h *fnvHasher) writeInt(v int) {
	h.writeU32(uint32(int32(v)))
}

func (h *fnvHasher) writeBool(v bool) {
	if v {
		h.writeByte(1)
	} else {
		h.writeByte(0)
	}
}

func (h *fnvHasher) writeString(s string) {
	h.writeU32(uint32(len(s)))
	for i := 0; i < len(s); i++ {
		h.writeByte(s[i])
	}
}

func (h *fnvHasher) writeEffects(effects []StatusEffect) {
	h.writeU32(uint32(len(effects)))
	for i := range effects {
		h.writeByte(byte(effects[i].Kind))
		h.writeInt(effects[i].Remaining)
		h.writeI32(int32(effects[i].Strength))
		h.writeU64(effects[i].AppliedTick)
	}
}

// ComputeStateHash hashes the full deterministic state at the current
// tick.
func ComputeStateHash(s *State) uint32 {
	h := newFnvHasher()

	h.writeString(SimVersion)
	h.writeU64(s.Tick)
	h.writeInt(s.Wave)
	h.writeU32(s.RNG.State())

	h.writeInt(s.FortressHP)
	h.writeInt(s.FortressMaxHP)
	h.writeInt(s.Gold)
	h.writeInt(s.Dust)
	h.writeInt(s.GoldEarned)
	h.writeInt(s.DustEarned)

	h.writeInt(s.WaveTotalEnemies)
	h.writeInt(s.WaveSpawnedEnemies)
	h.writeU32(uint32(len(s.WaveSpawnQueue)))
	for _, t := range s.WaveSpawnQueue {
		h.writeByte(t)
	}
	h.writeU64(s.NextWaveTick)
	h.writeBool(s.waveActive)

	hashEnemies(h, s.Enemies)
	hashHeroes(h, s.Heroes)
	hashTurrets(h, s.Turrets)
	hashWalls(h, s.Walls)
	hashMilitia(h, s.Militia)
	hashProjectiles(h, s.Projectiles)

	// Relics are order-significant for replay but hashed sorted so two
	// pick orders reaching the same set agree.
	relics := make([]uint8, len(s.Relics))
	copy(relics, s.Relics)
	sort.Slice(relics, func(i, j int) bool { return relics[i] < relics[j] })
	h.writeU32(uint32(len(relics)))
	for _, id := range relics {
		h.writeByte(id)
	}
	h.writeU32(uint32(len(s.PendingRelicChoice)))
	for _, id := range s.PendingRelicChoice {
		h.writeByte(id)
	}

	for _, kind := range s.sortedMilitiaCooldownKinds() {
		h.writeString(kind)
		h.writeU64(s.MilitiaCooldowns[kind])
	}

	h.writeInt(s.Kills)
	h.writeInt(s.EliteKills)
	h.writeInt(s.WavesCleared)
	h.writeInt(s.DamageDealt)
	h.writeBool(s.Defeated)
	h.writeU32(s.nextEntityID)

	return h.sum
}

func hashEnemies(h *fnvHasher, enemies []*Enemy) {
	ordered := make([]*Enemy, len(enemies))
	copy(ordered, enemies)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })
	h.writeU32(uint32(len(ordered)))
	for _, e := range ordered {
		h.writeU32(e.ID)
		h.writeByte(e.TypeID)
		h.writeBool(e.Elite)
		h.writeI32(int32(e.X))
		h.writeI32(int32(e.Y))
		h.writeI32(int32(e.VX))
		h.writeI32(int32(e.VY))
		h.writeInt(e.HP)
		h.writeInt(e.MaxHP)
		h.writeInt(e.AttackCooldown)
		h.writeU64(e.NextWallHitTick)
		h.writeU32(e.BlockedBy)
		h.writeEffects(e.Effects)
		h.writeU32(uint32(len(e.RecentHits)))
		for i := range e.RecentHits {
			h.writeU64(e.RecentHits[i].Tick)
			h.writeByte(byte(e.RecentHits[i].Element))
			h.writeInt(e.RecentHits[i].Amount)
		}
	}
}

func hashHeroes(h *fnvHasher, heroes []*Hero) {
	ordered := make([]*Hero, len(heroes))
	copy(ordered, heroes)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })
	h.writeU32(uint32(len(ordered)))
	for _, hero := range ordered {
		h.writeU32(hero.ID)
		h.writeString(hero.Kind)
		h.writeI32(int32(hero.X))
		h.writeI32(int32(hero.Y))
		h.writeInt(hero.HP)
		h.writeInt(hero.MaxHP)
		h.writeInt(hero.Cooldown)
		h.writeEffects(hero.Effects)
	}
}

func hashTurrets(h *fnvHasher, turrets []*Turret) {
	ordered := make([]*Turret, len(turrets))
	copy(ordered, turrets)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })
	h.writeU32(uint32(len(ordered)))
	for _, t := range ordered {
		h.writeU32(t.ID)
		h.writeString(t.Kind)
		h.writeI32(int32(t.X))
		h.writeI32(int32(t.Y))
		h.writeInt(t.Cooldown)
	}
}

func hashWalls(h *fnvHasher, walls []*Wall) {
	ordered := make([]*Wall, len(walls))
	copy(ordered, walls)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })
	h.writeU32(uint32(len(ordered)))
	for _, w := range ordered {
		h.writeU32(w.ID)
		h.writeI32(int32(w.X))
		h.writeI32(int32(w.Y))
		h.writeI32(int32(w.HalfW))
		h.writeI32(int32(w.HalfH))
		h.writeInt(w.HP)
		h.writeInt(w.MaxHP)
		h.writeInt(w.SlowPercent)
		h.writeBool(w.Gate)
	}
}

func hashMilitia(h *fnvHasher, militia []*Militia) {
	ordered := make([]*Militia, len(militia))
	copy(ordered, militia)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })
	h.writeU32(uint32(len(ordered)))
	for _, m := range ordered {
		h.writeU32(m.ID)
		h.writeString(m.Kind)
		h.writeI32(int32(m.X))
		h.writeI32(int32(m.Y))
		h.writeI32(int32(m.VX))
		h.writeI32(int32(m.VY))
		h.writeInt(m.HP)
		h.writeInt(m.MaxHP)
		h.writeInt(m.Cooldown)
		h.writeU64(m.ExpireTick)
	}
}

func hashProjectiles(h *fnvHasher, projectiles []*Projectile) {
	ordered := make([]*Projectile, len(projectiles))
	copy(ordered, projectiles)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })
	h.writeU32(uint32(len(ordered)))
	for _, p := range ordered {
		h.writeU32(p.ID)
		h.writeI32(int32(p.X))
		h.writeI32(int32(p.Y))
		h.writeI32(int32(p.VX))
		h.writeI32(int32(p.VY))
		h.writeInt(p.Damage)
		h.writeByte(byte(p.Element))
		h.writeU32(p.TargetID)
		h.writeU64(p.ExpireTick)
	}
}

// ChainHash folds the previous chain value, the tick, and the current
// state hash. Verifying a checkpoint therefore requires having replayed
// from a known-good prior checkpoint, not just matching one tick.
func ChainHash(prevChain uint32, tick uint64, stateHash uint32) uint32 {
	h := newFnvHasher()
	h.writeU32(prevChain)
	h.writeU64(tick)
	h.writeU32(stateHash)
	return h.sum
}

// CreateCheckpoint captures the current state into a checkpoint chained
// onto prevChain.
func CreateCheckpoint(s *State, prevChain uint32) Checkpoint {
	hash := ComputeStateHash(s)
	return Checkpoint{
		Tick:        s.Tick,
		Hash32:      hash,
		ChainHash32: ChainHash(prevChain, s.Tick, hash),
	}
}

// VerifyCheckpoint recomputes both hashes from local state and compares
// by strict equality. Checkpoints are never fuzzy-matched.
func VerifyCheckpoint(cp Checkpoint, s *State, prevChain uint32) bool {
	if cp.Tick != s.Tick {
		return false
	}
	hash := ComputeStateHash(s)
	if hash != cp.Hash32 {
		return false
	}
	return ChainHash(prevChain, cp.Tick, hash) == cp.ChainHash32
}
