package sim

import "towerkeep/server/internal/fixed"

const (
	enemyMeleeRange         = 20
	fortressAttackInterval  = 30
	projectileLifetimeTicks = 120
)

var enemyMeleeRangeSq = fixed.RangeSq(fixed.FromInt(enemyMeleeRange))

// heroWeakness maps hero kinds to the element they take bonus damage
// from. Missing entries mean no vulnerability.
var heroWeakness = map[string]Element{
	"pyromancer":  ElementWater,
	"frostcaller": ElementFire,
	"stormblade":  ElementPhysical,
}

const heroWeaknessPct = 50

// tickHeroAttacks runs hero target acquisition and attacks. Stunned
// heroes skip their swing but cooldowns still advance so the recovery
// timing stays deterministic.
func (s *State) tickHeroAttacks() {
	for _, h := range s.Heroes {
		def, ok := heroDefs[h.Kind]
		if !ok {
			continue
		}
		if h.Cooldown > 0 {
			h.Cooldown--
			continue
		}
		if hasEffect(h.Effects, EffectStun) {
			continue
		}
		bonus := s.auraBonusFor(h.ID, h.X, h.Y, true)
		s.attackNearest(h.X, h.Y, def, bonus, &h.Cooldown)
	}
}

// tickTurretAttacks mirrors hero attacks for turrets with the turret
// aura set.
func (s *State) tickTurretAttacks() {
	for _, t := range s.Turrets {
		def, ok := turretDefs[t.Kind]
		if !ok {
			continue
		}
		if t.Cooldown > 0 {
			t.Cooldown--
			continue
		}
		bonus := s.auraBonusFor(t.ID, t.X, t.Y, false)
		s.attackNearest(t.X, t.Y, def, bonus, &t.Cooldown)
	}
}

// attackNearest fires at the closest enemy inside effective range,
// either spawning a homing projectile or resolving instantly.
func (s *State) attackNearest(x, y fixed.Fixed, def AttackerDef, bonus auraBonus, cooldown *int) {
	effRange := fixed.Percent(def.Range, 100+bonus.RangePct)
	target := s.nearestEnemyWithin(x, y, effRange)
	if target == nil {
		return
	}

	damage := def.Damage
	pct := bonus.DamagePct + s.relicDamagePct()
	damage += damage * pct / 100

	if def.ProjectileSpeed > 0 {
		s.Projectiles = append(s.Projectiles, &Projectile{
			ID:         s.allocID(),
			X:          x,
			Y:          y,
			VX:         def.ProjectileSpeed,
			VY:         0,
			Damage:     damage,
			Element:    def.Element,
			TargetID:   target.ID,
			ExpireTick: s.Tick + projectileLifetimeTicks,
		})
	} else {
		s.damageEnemy(target, damage, def.Element)
	}

	interval := def.AttackInterval * 100 / (100 + bonus.AttackSpeedPct)
	if interval < 1 {
		interval = 1
	}
	*cooldown = interval
}

func (s *State) nearestEnemyWithin(x, y fixed.Fixed, r fixed.Fixed) *Enemy {
	rangeSq := fixed.RangeSq(r)
	var best *Enemy
	var bestSq int64
	for _, e := range s.Enemies {
		d := fixed.DistSq(x, y, e.X, e.Y)
		if d > rangeSq {
			continue
		}
		if best == nil || d < bestSq {
			best = e
			bestSq = d
		}
	}
	return best
}

// tickEnemyAttacks resolves enemy melee: militia and heroes in reach
// first, then the fortress once inside engagement range.
func (s *State) tickEnemyAttacks() {
	for _, e := range s.Enemies {
		if e.AttackCooldown > 0 {
			e.AttackCooldown--
			continue
		}
		if hasEffect(e.Effects, EffectStun) {
			continue
		}
		def := enemyDefs[e.TypeID]

		if m := s.nearestMilitiaWithin(e.X, e.Y); m != nil {
			m.HP -= def.Damage
			if m.HP < 0 {
				m.HP = 0
			}
			e.AttackCooldown = def.AttackInterval
			continue
		}
		if h := s.nearestHeroWithin(e.X, e.Y); h != nil {
			s.damageHero(h, def.Damage, ElementPhysical)
			e.AttackCooldown = def.AttackInterval
			continue
		}
		if fixed.DistSq(e.X, e.Y, 0, 0) <= fortressRadiusSq {
			s.FortressHP -= def.Damage
			if s.FortressHP <= 0 {
				s.FortressHP = 0
				s.Defeated = true
			}
			e.AttackCooldown = def.AttackInterval
		}
	}
}

func (s *State) nearestMilitiaWithin(x, y fixed.Fixed) *Militia {
	var best *Militia
	var bestSq int64
	for _, m := range s.Militia {
		d := fixed.DistSq(x, y, m.X, m.Y)
		if d > enemyMeleeRangeSq {
			continue
		}
		if best == nil || d < bestSq {
			best = m
			bestSq = d
		}
	}
	return best
}

func (s *State) nearestHeroWithin(x, y fixed.Fixed) *Hero {
	var best *Hero
	var bestSq int64
	for _, h := range s.Heroes {
		d := fixed.DistSq(x, y, h.X, h.Y)
		if d > enemyMeleeRangeSq {
			continue
		}
		if best == nil || d < bestSq {
			best = h
			bestSq = d
		}
	}
	return best
}

// tickFortress fires the fortress's own periodic attack.
func (s *State) tickFortress() {
	if s.Defeated || s.Tick%fortressAttackInterval != 0 {
		return
	}
	target := s.nearestEnemyWithin(0, 0, fixed.FromInt(160))
	if target == nil {
		return
	}
	s.damageEnemy(target, s.Config.FortressBaseDamage, ElementPhysical)
}

// damageEnemy is the single entry point for damage to enemies. Order is
// fixed: shatter mark consumption, weakness multiplier, armor break,
// then HP reduction, hit recording, and combo detection. Elemental
// on-hit side effects (burn, slow) apply after the damage lands.
func (s *State) damageEnemy(e *Enemy, base int, element Element) {
	if e == nil || base <= 0 || e.HP <= 0 {
		return
	}
	amount := base

	if hasEffect(e.Effects, EffectShatterMark) {
		amount += amount / 2
		e.Effects = removeEffect(e.Effects, EffectShatterMark)
	}

	def := enemyDefs[e.TypeID]
	if element == def.Weakness && def.WeaknessPct > 0 {
		amount += amount * def.WeaknessPct / 100
	}
	for i := range e.Effects {
		if e.Effects[i].Kind == EffectArmorBreak {
			// Strength stores a whole-number percent for armor break.
			amount += amount * e.Effects[i].Strength.Int() / 100
		}
	}

	e.HP -= amount
	if e.HP < 0 {
		e.HP = 0
	}
	s.DamageDealt += amount

	s.recordHit(e, element, amount)

	switch element {
	case ElementFire:
		e.Effects = addEffect(e.Effects, StatusEffect{Kind: EffectBurn, Remaining: 90, Strength: fixed.FromInt(2), AppliedTick: s.Tick})
	case ElementIce:
		e.Effects = addEffect(e.Effects, StatusEffect{Kind: EffectSlow, Remaining: 45, Strength: fixed.Percent(fixed.One, 25), AppliedTick: s.Tick})
	}
}

// damageHero applies incoming hero damage in the contract order: dodge
// roll, block halving, elemental weakness, clamp at zero.
func (s *State) damageHero(h *Hero, base int, element Element) {
	if h == nil || base <= 0 || h.HP <= 0 {
		return
	}
	def := heroDefs[h.Kind]

	if def.DodgePct > 0 && s.RNG.Percent(def.DodgePct) {
		return
	}
	amount := base
	if def.BlockPct > 0 && s.RNG.Percent(def.BlockPct) {
		amount /= 2
	}
	if weak, ok := heroWeakness[h.Kind]; ok && weak == element {
		amount += amount * heroWeaknessPct / 100
	}
	h.HP -= amount
	if h.HP < 0 {
		h.HP = 0
	}
}

func removeEffect(effects []StatusEffect, kind EffectKind) []StatusEffect {
	out := effects[:0]
	for i := range effects {
		if effects[i].Kind != kind {
			out = append(out, effects[i])
		}
	}
	return out
}
