package sim

// tickStatusEffects advances every status-effect list by one tick:
// periodic burn damage, remaining-tick decrement, and expiry pruning.
func (s *State) tickStatusEffects() {
	for _, e := range s.Enemies {
		e.Effects = s.tickEffectList(e.Effects, e)
	}
	for _, h := range s.Heroes {
		h.Effects = s.tickEffectList(h.Effects, nil)
	}
}

const burnDamageInterval = 30

// tickEffectList decrements and prunes one effect list. The enemy
// pointer is non-nil when the list belongs to an enemy so burn can deal
// its periodic damage; heroes never burn but share the bookkeeping.
func (s *State) tickEffectList(effects []StatusEffect, enemy *Enemy) []StatusEffect {
	out := effects[:0]
	for i := range effects {
		eff := effects[i]
		if eff.Kind == EffectBurn && enemy != nil && enemy.HP > 0 {
			elapsed := s.Tick - eff.AppliedTick
			if elapsed > 0 && elapsed%burnDamageInterval == 0 {
				// Burn bypasses damageEnemy: no combo recording, no
				// weakness scaling, just the periodic dot.
				enemy.HP -= eff.Strength.Int()
				if enemy.HP < 0 {
					enemy.HP = 0
				}
				s.DamageDealt += eff.Strength.Int()
			}
		}
		eff.Remaining--
		if eff.Remaining > 0 {
			out = append(out, eff)
		}
	}
	return out
}
