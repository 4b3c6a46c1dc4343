package sim

import "towerkeep/server/internal/fixed"

// hitRadius is how close a projectile must get to its target to resolve.
var hitRadiusSq = fixed.RangeSq(fixed.FromInt(8))

// fortressRadius is the engagement distance at which enemies stop and
// attack the fortress instead of moving.
var fortressRadiusSq = fixed.RangeSq(fixed.FromInt(30))

// tickEnemyMovement steers every enemy toward the fortress at its
// effective speed, halting and slowing on wall contact.
func (s *State) tickEnemyMovement() {
	for _, e := range s.Enemies {
		if hasEffect(e.Effects, EffectStun) {
			e.VX, e.VY = 0, 0
			continue
		}
		if fixed.DistSq(e.X, e.Y, 0, 0) <= fortressRadiusSq {
			// In fortress engagement range; combat handles the rest.
			e.VX, e.VY = 0, 0
			e.BlockedBy = 0
			continue
		}

		speed := s.enemySpeed(e)
		dx, dy := -e.X, -e.Y
		length := fixed.Hypot(dx, dy)
		if length == 0 {
			e.VX, e.VY = 0, 0
			continue
		}
		e.VX = fixed.Mul(fixed.Div(dx, length), speed)
		e.VY = fixed.Mul(fixed.Div(dy, length), speed)

		nx := e.X + e.VX
		ny := e.Y + e.VY
		if wall := s.wallAt(nx, ny); wall != nil {
			s.collideWithWall(e, wall)
			if !wall.Gate {
				e.VX, e.VY = 0, 0
				e.BlockedBy = wall.ID
				continue
			}
		} else {
			e.BlockedBy = 0
		}
		e.X = nx
		e.Y = ny
	}
}

// enemySpeed folds the strongest slow into the base speed.
func (s *State) enemySpeed(e *Enemy) fixed.Fixed {
	speed := enemyDefs[e.TypeID].Speed
	var slow fixed.Fixed
	for i := range e.Effects {
		if e.Effects[i].Kind == EffectSlow && e.Effects[i].Strength > slow {
			slow = e.Effects[i].Strength
		}
	}
	if slow > 0 {
		speed = fixed.Mul(speed, fixed.One-slow)
		if speed < 0 {
			speed = 0
		}
	}
	return speed
}

// collideWithWall applies the wall's slow (only when it slows harder
// than any active slow) and deals periodic contact damage to the wall.
func (s *State) collideWithWall(e *Enemy, w *Wall) {
	if w.SlowPercent > 0 {
		strength := fixed.Percent(fixed.One, w.SlowPercent)
		current := fixed.Fixed(0)
		for i := range e.Effects {
			if e.Effects[i].Kind == EffectSlow && e.Effects[i].Strength > current {
				current = e.Effects[i].Strength
			}
		}
		if strength > current {
			e.Effects = addEffect(e.Effects, StatusEffect{
				Kind:        EffectSlow,
				Remaining:   wallContactDamageInterval,
				Strength:    strength,
				AppliedTick: s.Tick,
			})
		}
	}
	if w.Gate {
		return
	}
	if s.Tick < e.NextWallHitTick {
		return
	}
	e.NextWallHitTick = s.Tick + wallContactDamageInterval
	damageWall(w, enemyDefs[e.TypeID].Damage)
}

// tickProjectiles advances homing projectiles and resolves arrivals.
// Projectiles whose target died fizzle without damage.
func (s *State) tickProjectiles() {
	alive := s.Projectiles[:0]
	for _, p := range s.Projectiles {
		target := s.enemyByID(p.TargetID)
		if target == nil || s.Tick >= p.ExpireTick {
			continue
		}
		dx, dy := target.X-p.X, target.Y-p.Y
		length := fixed.Hypot(dx, dy)
		speed := fixed.Hypot(p.VX, p.VY)
		if length == 0 || fixed.DistSq(p.X, p.Y, target.X, target.Y) <= hitRadiusSq {
			s.damageEnemy(target, p.Damage, p.Element)
			continue
		}
		p.VX = fixed.Mul(fixed.Div(dx, length), speed)
		p.VY = fixed.Mul(fixed.Div(dy, length), speed)
		p.X += p.VX
		p.Y += p.VY
		if fixed.DistSq(p.X, p.Y, target.X, target.Y) <= hitRadiusSq {
			s.damageEnemy(target, p.Damage, p.Element)
			continue
		}
		alive = append(alive, p)
	}
	s.Projectiles = alive
}

func (s *State) enemyByID(id uint32) *Enemy {
	for _, e := range s.Enemies {
		if e.ID == id {
			return e
		}
	}
	return nil
}
