package sim

import "towerkeep/server/internal/simrng"

// Clone deep-copies the deterministic state. The verification service
// snapshots a session's state before replaying a submitted segment so a
// rejected segment leaves the session exactly where it was.
//
// The derived aura cache is deliberately not copied; it rebuilds on the
// next tick.
func (s *State) Clone() *State {
	cloned := &State{
		Config:             s.Config,
		Tick:               s.Tick,
		Wave:               s.Wave,
		RNG:                simrng.Restore(s.RNG.State()),
		FortressHP:         s.FortressHP,
		FortressMaxHP:      s.FortressMaxHP,
		Gold:               s.Gold,
		Dust:               s.Dust,
		GoldEarned:         s.GoldEarned,
		DustEarned:         s.DustEarned,
		WaveTotalEnemies:   s.WaveTotalEnemies,
		WaveSpawnedEnemies: s.WaveSpawnedEnemies,
		NextWaveTick:       s.NextWaveTick,
		waveActive:         s.waveActive,
		Kills:              s.Kills,
		EliteKills:         s.EliteKills,
		WavesCleared:       s.WavesCleared,
		DamageDealt:        s.DamageDealt,
		Defeated:           s.Defeated,
		nextEntityID:       s.nextEntityID,
	}

	cloned.WaveSpawnQueue = append([]uint8(nil), s.WaveSpawnQueue...)
	cloned.Relics = append([]uint8(nil), s.Relics...)
	cloned.PendingRelicChoice = append([]uint8(nil), s.PendingRelicChoice...)

	cloned.MilitiaCooldowns = make(map[string]uint64, len(s.MilitiaCooldowns))
	for kind, until := range s.MilitiaCooldowns {
		cloned.MilitiaCooldowns[kind] = until
	}

	cloned.Enemies = make([]*Enemy, len(s.Enemies))
	for i, e := range s.Enemies {
		copied := *e
		copied.Effects = append([]StatusEffect(nil), e.Effects...)
		copied.RecentHits = append([]comboHit(nil), e.RecentHits...)
		cloned.Enemies[i] = &copied
	}
	cloned.Heroes = make([]*Hero, len(s.Heroes))
	for i, h := range s.Heroes {
		copied := *h
		copied.Effects = append([]StatusEffect(nil), h.Effects...)
		cloned.Heroes[i] = &copied
	}
	cloned.Turrets = make([]*Turret, len(s.Turrets))
	for i, t := range s.Turrets {
		copied := *t
		cloned.Turrets[i] = &copied
	}
	cloned.Walls = make([]*Wall, len(s.Walls))
	for i, w := range s.Walls {
		copied := *w
		cloned.Walls[i] = &copied
	}
	cloned.Militia = make([]*Militia, len(s.Militia))
	for i, m := range s.Militia {
		copied := *m
		cloned.Militia[i] = &copied
	}
	cloned.Projectiles = make([]*Projectile, len(s.Projectiles))
	for i, p := range s.Projectiles {
		copied := *p
		cloned.Projectiles[i] = &copied
	}

	return cloned
}
