package sim

import "towerkeep/server/internal/fixed"

// Elemental combos. Every damage hit on an enemy lands in a rolling
// 30-tick window keyed by element; when both elements of a combo appear
// in the window the combo fires exactly once, the window clears, and a
// cooldown marker effect blocks re-triggering for 60 ticks.

// recordHit appends to the enemy's recent-hit window, prunes entries
// older than the window, and runs combo detection.
func (s *State) recordHit(e *Enemy, element Element, amount int) {
	hits := e.RecentHits[:0]
	for _, h := range e.RecentHits {
		if s.Tick-h.Tick < comboWindowTicks {
			hits = append(hits, h)
		}
	}
	e.RecentHits = append(hits, comboHit{Tick: s.Tick, Element: element, Amount: amount})
	s.detectCombos(e)
}

func (s *State) detectCombos(e *Enemy) {
	if hasEffect(e.Effects, EffectComboCooldown) {
		return
	}
	for _, def := range comboDefs {
		if !windowHasElement(e.RecentHits, def.ElemA) || !windowHasElement(e.RecentHits, def.ElemB) {
			continue
		}
		s.triggerCombo(e, def)
		return
	}
}

// triggerCombo applies the combo payload, clears the hit window, and
// starts the cooldown marker.
func (s *State) triggerCombo(e *Enemy, def ComboDef) {
	switch def.ID {
	case ComboSteamBurst:
		// Bonus damage equal to the average recent hit, applied as raw
		// HP loss so it cannot recursively feed another combo.
		avg := averageHit(e.RecentHits)
		if avg > 0 {
			e.HP -= avg
			if e.HP < 0 {
				e.HP = 0
			}
			s.DamageDealt += avg
		}
	case ComboElectrocute:
		e.Effects = addEffect(e.Effects, StatusEffect{
			Kind:        EffectStun,
			Remaining:   30,
			AppliedTick: s.Tick,
		})
	case ComboShatter:
		e.Effects = addEffect(e.Effects, StatusEffect{
			Kind:        EffectShatterMark,
			Remaining:   comboWindowTicks * 4,
			Strength:    fixed.Half,
			AppliedTick: s.Tick,
		})
	}

	e.RecentHits = e.RecentHits[:0]
	e.Effects = addEffect(e.Effects, StatusEffect{
		Kind:        EffectComboCooldown,
		Remaining:   comboCooldownTicks,
		AppliedTick: s.Tick,
	})
}

func windowHasElement(hits []comboHit, elem Element) bool {
	for i := range hits {
		if hits[i].Element == elem {
			return true
		}
	}
	return false
}

func averageHit(hits []comboHit) int {
	if len(hits) == 0 {
		return 0
	}
	total := 0
	for i := range hits {
		total += hits[i].Amount
	}
	return total / len(hits)
}
