package sim

import "towerkeep/server/internal/fixed"

// Element classifies damage for weakness multipliers and combo detection.
// Values are part of the checkpoint encoding; never reorder.
type Element uint8

const (
	ElementPhysical Element = iota
	ElementFire
	ElementIce
	ElementLightning
	ElementWater
)

// EffectKind identifies a status effect. Explicit kinds replace the
// magic-value encodings (negative strength, sentinel cooldown markers)
// that are easy to misread and fragile to hash.
type EffectKind uint8

const (
	EffectBurn EffectKind = iota
	EffectSlow
	EffectStun
	EffectArmorBreak
	EffectShatterMark
	EffectComboCooldown
)

// StatusEffect is one active effect on an entity. Strength is fixed-point
// where the kind scales damage or speed, whole-number damage-per-interval
// for burn.
type StatusEffect struct {
	Kind        EffectKind
	Remaining   int
	Strength    fixed.Fixed
	AppliedTick uint64
}

// comboHit is one entry in an enemy's rolling recent-damage window.
type comboHit struct {
	Tick    uint64
	Element Element
	Amount  int
}

// Enemy is a wave-spawned attacker marching toward the fortress.
type Enemy struct {
	ID         uint32
	TypeID     uint8
	Elite      bool
	X, Y       fixed.Fixed
	VX, VY     fixed.Fixed
	HP, MaxHP  int
	Effects    []StatusEffect
	RecentHits []comboHit

	AttackCooldown int
	// NextWallHitTick is the earliest tick this enemy may deal wall
	// contact damage again.
	NextWallHitTick uint64
	// BlockedBy is the wall id currently halting this enemy, zero when
	// unobstructed.
	BlockedBy uint32
}

// Hero is a deployed hero. Heroes hold a fixed position and attack the
// nearest enemy in range.
type Hero struct {
	ID        uint32
	Kind      string
	X, Y      fixed.Fixed
	HP, MaxHP int
	Cooldown  int
	Effects   []StatusEffect
}

// Turret is a placed turret. Turrets are stationary and cannot be
// attacked; enemies path past them to the fortress.
type Turret struct {
	ID       uint32
	Kind     string
	X, Y     fixed.Fixed
	Cooldown int
}

// Militia is a short-lived melee unit that seeks enemies.
type Militia struct {
	ID         uint32
	Kind       string
	X, Y       fixed.Fixed
	VX, VY     fixed.Fixed
	HP, MaxHP  int
	Cooldown   int
	ExpireTick uint64
}

// Projectile is an in-flight attack. It homes on TargetID and resolves
// its damage on arrival; if the target died mid-flight it fizzles.
type Projectile struct {
	ID         uint32
	X, Y       fixed.Fixed
	VX, VY     fixed.Fixed
	Damage     int
	Element    Element
	TargetID   uint32
	ExpireTick uint64
}

// Wall is an axis-aligned barrier. Gates let friendly militia through
// and never halt enemies.
type Wall struct {
	ID           uint32
	X, Y         fixed.Fixed
	HalfW, HalfH fixed.Fixed
	HP, MaxHP    int
	SlowPercent  int
	Gate         bool
}

// overlaps reports AABB overlap with another wall's box.
func (w *Wall) overlaps(x, y, halfW, halfH fixed.Fixed) bool {
	if fixed.Abs(w.X-x) >= w.HalfW+halfW {
		return false
	}
	if fixed.Abs(w.Y-y) >= w.HalfH+halfH {
		return false
	}
	return true
}

// contains reports whether a point lies inside the wall's box.
func (w *Wall) contains(x, y fixed.Fixed) bool {
	return fixed.Abs(w.X-x) < w.HalfW && fixed.Abs(w.Y-y) < w.HalfH
}

func hasEffect(effects []StatusEffect, kind EffectKind) bool {
	for i := range effects {
		if effects[i].Kind == kind {
			return true
		}
	}
	return false
}

// addEffect appends or refreshes an effect. Refreshing keeps a single
// entry per kind so the hashed effect list length stays bounded.
func addEffect(effects []StatusEffect, e StatusEffect) []StatusEffect {
	for i := range effects {
		if effects[i].Kind == e.Kind {
			if e.Remaining > effects[i].Remaining {
				effects[i].Remaining = e.Remaining
			}
			if e.Strength > effects[i].Strength {
				effects[i].Strength = e.Strength
			}
			effects[i].AppliedTick = e.AppliedTick
			return effects
		}
	}
	return append(effects, e)
}
