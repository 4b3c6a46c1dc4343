package sim

import "towerkeep/server/internal/fixed"

// PlaceWall buys and places a wall (or gate) centered at (x, y). Returns
// nil without mutating anything when gold is insufficient, the box
// overlaps an existing wall, the box intrudes on the fortress buffer
// zone, or the position is out of bounds.
func (s *State) PlaceWall(x, y fixed.Fixed, gate bool) *Wall {
	cost := wallCost
	if gate {
		cost = gateCost
	}
	if s.Gold < cost {
		return nil
	}
	if !s.inBounds(x, y) {
		return nil
	}
	// Fortress buffer: the wall box may not cross the keep-out square
	// around the fortress center.
	if fixed.Abs(x) < fortressBufferRadiusFx+wallHalfW && fixed.Abs(y) < fortressBufferRadiusFx+wallHalfH {
		return nil
	}
	for _, w := range s.Walls {
		if w.overlaps(x, y, wallHalfW, wallHalfH) {
			return nil
		}
	}

	s.Gold -= cost
	w := &Wall{
		ID:          s.allocID(),
		X:           x,
		Y:           y,
		HalfW:       wallHalfW,
		HalfH:       wallHalfH,
		HP:          wallMaxHP,
		MaxHP:       wallMaxHP,
		SlowPercent: wallSlowPercent,
		Gate:        gate,
	}
	s.Walls = append(s.Walls, w)
	return w
}

// wallAt returns the first wall whose box contains the point, or nil.
func (s *State) wallAt(x, y fixed.Fixed) *Wall {
	for _, w := range s.Walls {
		if w.contains(x, y) {
			return w
		}
	}
	return nil
}

// damageWall applies damage and prunes the wall when destroyed. Pruning
// happens in cleanup so mid-tick iteration stays stable.
func damageWall(w *Wall, amount int) {
	if amount <= 0 {
		return
	}
	w.HP -= amount
	if w.HP < 0 {
		w.HP = 0
	}
}
