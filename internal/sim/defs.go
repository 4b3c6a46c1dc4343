package sim

import "towerkeep/server/internal/fixed"

// Static content tables. Lookups that miss return a zero-value def and
// systems treat the zeroes as neutral; a missing entry must never panic
// because a fault at different points in client and server execution
// would itself break verification.

// EnemyDef describes one enemy archetype.
type EnemyDef struct {
	TypeID         uint8
	Name           string
	MaxHP          int
	Speed          fixed.Fixed
	Damage         int
	AttackInterval int
	GoldReward     int
	DustReward     int
	Weakness       Element
	// WeaknessPct is the bonus damage percent taken from the weakness
	// element, e.g. 50 means 1.5x.
	WeaknessPct int
}

// AttackerDef describes the shared combat surface of heroes and turrets.
type AttackerDef struct {
	Kind           string
	MaxHP          int
	Damage         int
	Range          fixed.Fixed
	AttackInterval int
	Element        Element
	// DodgePct and BlockPct only apply to heroes (turrets are not
	// targetable).
	DodgePct int
	BlockPct int
	// ProjectileSpeed of zero means the attack resolves instantly.
	ProjectileSpeed fixed.Fixed
	Cost            int
}

// MilitiaDef describes a deployable melee unit type.
type MilitiaDef struct {
	Kind           string
	MaxHP          int
	Damage         int
	Range          fixed.Fixed
	AttackInterval int
	Accel          fixed.Fixed
	MaxSpeed       fixed.Fixed
	Cost           int
}

// AuraTarget selects which entity classes an aura reaches.
type AuraTarget uint8

const (
	AuraTargetHeroes AuraTarget = iota
	AuraTargetTurrets
	AuraTargetBoth
)

// AuraDef is a fortress-centered bonus field.
type AuraDef struct {
	ID             string
	Radius         fixed.Fixed
	Target         AuraTarget
	DamagePct      int
	AttackSpeedPct int
	RangePct       int
}

// ComboID names a triggered elemental combo.
type ComboID uint8

const (
	ComboSteamBurst ComboID = iota
	ComboElectrocute
	ComboShatter
)

// ComboDef pairs two elements with a triggered effect.
type ComboDef struct {
	ID           ComboID
	Name         string
	ElemA        Element
	ElemB        Element
	CooldownKind EffectKind
}

// RelicDef is a run-scoped passive modifier offered between waves.
type RelicDef struct {
	ID              uint8
	Name            string
	DamagePct       int
	GoldPct         int
	FortressHPBonus int
}

var enemyDefs = map[uint8]EnemyDef{
	1: {TypeID: 1, Name: "husk", MaxHP: 40, Speed: fixed.FromInt(2), Damage: 6, AttackInterval: 30, GoldReward: 4, Weakness: ElementFire, WeaknessPct: 50},
	2: {TypeID: 2, Name: "shambler", MaxHP: 90, Speed: fixed.One, Damage: 12, AttackInterval: 45, GoldReward: 7, Weakness: ElementIce, WeaknessPct: 50},
	3: {TypeID: 3, Name: "skitterer", MaxHP: 25, Speed: fixed.FromInt(3), Damage: 4, AttackInterval: 20, GoldReward: 3, Weakness: ElementLightning, WeaknessPct: 75},
	4: {TypeID: 4, Name: "bulwark", MaxHP: 220, Speed: fixed.Half, Damage: 20, AttackInterval: 60, GoldReward: 14, DustReward: 1, Weakness: ElementPhysical, WeaknessPct: 25},
}

var heroDefs = map[string]AttackerDef{
	"pyromancer":  {Kind: "pyromancer", MaxHP: 140, Damage: 18, Range: fixed.FromInt(120), AttackInterval: 24, Element: ElementFire, DodgePct: 10, BlockPct: 20, ProjectileSpeed: fixed.FromInt(6), Cost: 100},
	"frostcaller": {Kind: "frostcaller", MaxHP: 120, Damage: 14, Range: fixed.FromInt(110), AttackInterval: 20, Element: ElementIce, DodgePct: 15, BlockPct: 10, ProjectileSpeed: fixed.FromInt(6), Cost: 100},
	"stormblade":  {Kind: "stormblade", MaxHP: 180, Damage: 22, Range: fixed.FromInt(40), AttackInterval: 18, Element: ElementLightning, DodgePct: 25, BlockPct: 30, Cost: 140},
	"tidecaller":  {Kind: "tidecaller", MaxHP: 130, Damage: 12, Range: fixed.FromInt(130), AttackInterval: 22, Element: ElementWater, DodgePct: 12, BlockPct: 15, ProjectileSpeed: fixed.FromInt(5), Cost: 120},
}

var turretDefs = map[string]AttackerDef{
	"bolt":  {Kind: "bolt", Damage: 10, Range: fixed.FromInt(140), AttackInterval: 15, Element: ElementPhysical, ProjectileSpeed: fixed.FromInt(8), Cost: 60},
	"flame": {Kind: "flame", Damage: 6, Range: fixed.FromInt(80), AttackInterval: 8, Element: ElementFire, Cost: 80},
	"frost": {Kind: "frost", Damage: 5, Range: fixed.FromInt(100), AttackInterval: 12, Element: ElementIce, ProjectileSpeed: fixed.FromInt(7), Cost: 80},
	"tesla": {Kind: "tesla", Damage: 16, Range: fixed.FromInt(90), AttackInterval: 30, Element: ElementLightning, Cost: 110},
}

var militiaDefs = map[string]MilitiaDef{
	"spearman":     {Kind: "spearman", MaxHP: 60, Damage: 8, Range: fixed.FromInt(18), AttackInterval: 24, Accel: fixed.Half, MaxSpeed: fixed.FromInt(3), Cost: 25},
	"shieldbearer": {Kind: "shieldbearer", MaxHP: 140, Damage: 5, Range: fixed.FromInt(16), AttackInterval: 30, Accel: fixed.One / 4, MaxSpeed: fixed.FromInt(2), Cost: 40},
}

var auraDefs = []AuraDef{
	{ID: "war-banner", Radius: fixed.FromInt(100), Target: AuraTargetHeroes, DamagePct: 15},
	{ID: "overclock-field", Radius: fixed.FromInt(80), Target: AuraTargetTurrets, AttackSpeedPct: 20},
	{ID: "watchtower-lens", Radius: fixed.FromInt(150), Target: AuraTargetBoth, RangePct: 10},
}

var comboDefs = []ComboDef{
	{ID: ComboSteamBurst, Name: "steam_burst", ElemA: ElementFire, ElemB: ElementIce, CooldownKind: EffectComboCooldown},
	{ID: ComboElectrocute, Name: "electrocute", ElemA: ElementLightning, ElemB: ElementWater, CooldownKind: EffectComboCooldown},
	{ID: ComboShatter, Name: "shatter", ElemA: ElementIce, ElemB: ElementPhysical, CooldownKind: EffectComboCooldown},
}

var relicDefs = map[uint8]RelicDef{
	1: {ID: 1, Name: "ember-sigil", DamagePct: 10},
	2: {ID: 2, Name: "gilded-idol", GoldPct: 20},
	3: {ID: 3, Name: "granite-heart", FortressHPBonus: 250},
	4: {ID: 4, Name: "razor-chain", DamagePct: 25},
}

// wall tuning shared by placement and combat.
const (
	wallCost        = 30
	gateCost        = 45
	wallMaxHP       = 300
	wallSlowPercent = 40
)

var (
	wallHalfW = fixed.FromInt(20)
	wallHalfH = fixed.FromInt(8)
)
