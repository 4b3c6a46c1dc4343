package sim

import (
	"testing"

	"towerkeep/server/internal/fixed"
)

func TestPlaceWallDeductsGold(t *testing.T) {
	s := NewState(1, DefaultConfig(), nil, nil)
	goldBefore := s.Gold

	w := s.PlaceWall(fixed.FromInt(150), fixed.FromInt(100), false)
	if w == nil {
		t.Fatal("expected wall placement to succeed")
	}
	if s.Gold != goldBefore-wallCost {
		t.Fatalf("expected gold %d, got %d", goldBefore-wallCost, s.Gold)
	}
	if len(s.Walls) != 1 {
		t.Fatalf("expected 1 wall, got %d", len(s.Walls))
	}
}

func TestPlaceWallRejectsOverlap(t *testing.T) {
	s := NewState(1, DefaultConfig(), nil, nil)
	if s.PlaceWall(fixed.FromInt(150), fixed.FromInt(100), false) == nil {
		t.Fatal("first placement should succeed")
	}
	goldBefore := s.Gold

	// Offset by less than the combined half extents.
	w := s.PlaceWall(fixed.FromInt(160), fixed.FromInt(104), false)
	if w != nil {
		t.Fatal("overlapping placement must return nil")
	}
	if s.Gold != goldBefore {
		t.Fatal("rejected placement must not deduct gold")
	}
	if len(s.Walls) != 1 {
		t.Fatal("rejected placement must not mutate the wall list")
	}
}

func TestPlaceWallRejectsInsufficientGold(t *testing.T) {
	s := NewState(1, DefaultConfig(), nil, nil)
	s.Gold = wallCost - 1

	if s.PlaceWall(fixed.FromInt(150), fixed.FromInt(100), false) != nil {
		t.Fatal("placement without funds must return nil")
	}
	if s.Gold != wallCost-1 || len(s.Walls) != 0 {
		t.Fatal("failed placement must not mutate state")
	}
}

func TestPlaceWallRejectsFortressBuffer(t *testing.T) {
	s := NewState(1, DefaultConfig(), nil, nil)
	if s.PlaceWall(fixed.FromInt(10), fixed.FromInt(10), false) != nil {
		t.Fatal("placement inside the fortress buffer must be rejected")
	}
}

func TestPlaceWallRejectsOutOfBounds(t *testing.T) {
	s := NewState(1, DefaultConfig(), nil, nil)
	far := fixed.FromInt(s.Config.MapHalfWidth + 50)
	if s.PlaceWall(far, 0, false) != nil {
		t.Fatal("out-of-bounds placement must be rejected")
	}
}

func TestWallHaltsAndSlowsEnemy(t *testing.T) {
	s := NewState(1, DefaultConfig(), nil, nil)
	w := s.PlaceWall(fixed.FromInt(0), fixed.FromInt(-100), false)
	if w == nil {
		t.Fatal("wall placement failed")
	}
	// Enemy just above the wall, marching down toward the fortress.
	e := &Enemy{ID: s.allocID(), TypeID: 1, HP: 100, MaxHP: 100, X: 0, Y: fixed.FromInt(-100) - wallHalfH - fixed.One}
	s.Enemies = append(s.Enemies, e)

	s.tickEnemyMovement()
	if e.VX != 0 || e.VY != 0 {
		t.Fatal("enemy colliding with a wall must halt")
	}
	if e.BlockedBy != w.ID {
		t.Fatalf("expected BlockedBy=%d, got %d", w.ID, e.BlockedBy)
	}
	if !hasEffect(e.Effects, EffectSlow) {
		t.Fatal("wall contact must apply its slow")
	}
	if w.HP >= w.MaxHP {
		t.Fatal("wall should take contact damage on first collision")
	}
}

func TestGateDoesNotHalt(t *testing.T) {
	s := NewState(1, DefaultConfig(), nil, nil)
	g := s.PlaceWall(fixed.FromInt(0), fixed.FromInt(-100), true)
	if g == nil {
		t.Fatal("gate placement failed")
	}
	e := &Enemy{ID: s.allocID(), TypeID: 1, HP: 100, MaxHP: 100, X: 0, Y: fixed.FromInt(-100) - wallHalfH - fixed.One}
	s.Enemies = append(s.Enemies, e)

	s.tickEnemyMovement()
	if e.VY == 0 {
		t.Fatal("gates must not halt enemies")
	}
	if g.HP != g.MaxHP {
		t.Fatal("gates must not take contact damage")
	}
}

func TestDestroyedWallIsRemoved(t *testing.T) {
	s := NewState(1, DefaultConfig(), nil, nil)
	w := s.PlaceWall(fixed.FromInt(150), fixed.FromInt(100), false)
	if w == nil {
		t.Fatal("wall placement failed")
	}
	damageWall(w, w.MaxHP+10)
	if w.HP != 0 {
		t.Fatalf("wall HP must clamp at zero, got %d", w.HP)
	}
	s.cleanup()
	if len(s.Walls) != 0 {
		t.Fatal("destroyed wall must be pruned")
	}
}
