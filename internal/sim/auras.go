package sim

import "towerkeep/server/internal/fixed"

// Fortress auras grant additive bonuses to heroes and turrets inside
// each aura's radius. Aura lookups happen for every attacker every tick,
// so results are cached per tick in a derived-data map owned by the
// State. The cache is never hashed and never authoritative; it is
// rebuilt whenever the tick advances or an entity moves.

type auraBonus struct {
	DamagePct      int
	AttackSpeedPct int
	RangePct       int
}

// auraBonusFor returns the accumulated aura bonuses for an entity at a
// position. Cached per (tick, entity id).
func (s *State) auraBonusFor(id uint32, x, y fixed.Fixed, isHero bool) auraBonus {
	if s.cacheValid && s.cacheValidTick == s.Tick {
		if cached, ok := s.auraCache[id]; ok {
			return cached
		}
	} else {
		if s.auraCache == nil {
			s.auraCache = make(map[uint32]auraBonus)
		} else {
			for k := range s.auraCache {
				delete(s.auraCache, k)
			}
		}
		s.cacheValidTick = s.Tick
		s.cacheValid = true
	}

	bonus := computeAuraBonus(x, y, isHero)
	s.auraCache[id] = bonus
	return bonus
}

// invalidateAuraCache drops the derived cache after placements or other
// position changes inside a tick.
func (s *State) invalidateAuraCache() {
	s.cacheValid = false
}

func computeAuraBonus(x, y fixed.Fixed, isHero bool) auraBonus {
	var bonus auraBonus
	distSq := fixed.DistSq(x, y, 0, 0)
	for _, def := range auraDefs {
		if distSq > fixed.RangeSq(def.Radius) {
			continue
		}
		switch def.Target {
		case AuraTargetHeroes:
			if !isHero {
				continue
			}
		case AuraTargetTurrets:
			if isHero {
				continue
			}
		}
		bonus.DamagePct += def.DamagePct
		bonus.AttackSpeedPct += def.AttackSpeedPct
		bonus.RangePct += def.RangePct
	}
	return bonus
}
