package sim

import "towerkeep/server/internal/fixed"

var militiaSeparationRadiusSq = fixed.RangeSq(fixed.FromInt(militiaSeparationRadius))

// tickMilitia runs the militia behaviour: seek the nearest enemy with
// acceleration-based steering, push apart from overlapping allies, and
// swing on a fixed interval once in range. Expiry is handled in cleanup.
func (s *State) tickMilitia() {
	for _, m := range s.Militia {
		def, ok := militiaDefs[m.Kind]
		if !ok {
			continue
		}
		if m.Cooldown > 0 {
			m.Cooldown--
		}

		target := s.nearestEnemy(m.X, m.Y)
		switch {
		case target == nil:
			// Nothing to fight; bleed velocity so units settle instead
			// of drifting off the map.
			m.VX -= m.VX / 4
			m.VY -= m.VY / 4
		case fixed.DistSq(m.X, m.Y, target.X, target.Y) <= fixed.RangeSq(def.Range):
			m.VX, m.VY = 0, 0
			if m.Cooldown == 0 {
				s.damageEnemy(target, def.Damage, ElementPhysical)
				m.Cooldown = def.AttackInterval
			}
		default:
			// Steer: accelerate toward the target rather than snapping
			// velocity, then clamp to the unit's max speed.
			dx, dy := target.X-m.X, target.Y-m.Y
			length := fixed.Hypot(dx, dy)
			if length > 0 {
				m.VX += fixed.Mul(fixed.Div(dx, length), def.Accel)
				m.VY += fixed.Mul(fixed.Div(dy, length), def.Accel)
			}
			speed := fixed.Hypot(m.VX, m.VY)
			if speed > def.MaxSpeed {
				m.VX = fixed.Mul(fixed.Div(m.VX, speed), def.MaxSpeed)
				m.VY = fixed.Mul(fixed.Div(m.VY, speed), def.MaxSpeed)
			}
		}

		s.separateMilitia(m)
		m.X += m.VX
		m.Y += m.VY
	}
}

// separateMilitia applies a short-range repulsion from each overlapping
// ally so units spread out instead of stacking on one point.
func (s *State) separateMilitia(m *Militia) {
	for _, other := range s.Militia {
		if other.ID == m.ID {
			continue
		}
		distSq := fixed.DistSq(m.X, m.Y, other.X, other.Y)
		if distSq >= militiaSeparationRadiusSq {
			continue
		}
		dx, dy := m.X-other.X, m.Y-other.Y
		length := fixed.Hypot(dx, dy)
		if length == 0 {
			// Perfectly stacked units separate along a fixed axis; id
			// order keeps the tie-break deterministic.
			if m.ID < other.ID {
				m.VX += fixed.Half
			} else {
				m.VX -= fixed.Half
			}
			continue
		}
		m.VX += fixed.Div(dx, length) / 4
		m.VY += fixed.Div(dy, length) / 4
	}
}

// nearestEnemy scans by squared distance; slice order is deterministic
// so equal distances tie-break on spawn order.
func (s *State) nearestEnemy(x, y fixed.Fixed) *Enemy {
	var best *Enemy
	var bestSq int64
	for _, e := range s.Enemies {
		d := fixed.DistSq(x, y, e.X, e.Y)
		if best == nil || d < bestSq {
			best = e
			bestSq = d
		}
	}
	return best
}
