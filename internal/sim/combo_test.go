package sim

import "testing"

func newCombatState(t *testing.T) (*State, *Enemy) {
	t.Helper()
	s := NewState(1, DefaultConfig(), nil, nil)
	e := &Enemy{ID: s.allocID(), TypeID: 2, HP: 100000, MaxHP: 100000}
	s.Enemies = append(s.Enemies, e)
	return s, e
}

func countEffect(effects []StatusEffect, kind EffectKind) int {
	n := 0
	for i := range effects {
		if effects[i].Kind == kind {
			n++
		}
	}
	return n
}

func TestSteamBurstTriggersExactlyOnce(t *testing.T) {
	s, e := newCombatState(t)

	s.damageEnemy(e, 100, ElementFire)
	hpAfterFire := e.HP
	s.damageEnemy(e, 100, ElementIce)

	// The ice hit lands its own damage plus the steam burst bonus (the
	// average of the window hits) and starts the combo cooldown.
	if countEffect(e.Effects, EffectComboCooldown) != 1 {
		t.Fatalf("expected one combo cooldown marker, got %d", countEffect(e.Effects, EffectComboCooldown))
	}
	if len(e.RecentHits) != 0 {
		t.Fatalf("combo must clear the recent-hit window, got %d entries", len(e.RecentHits))
	}
	iceDamage := hpAfterFire - e.HP
	if iceDamage <= 100 {
		t.Fatalf("expected ice hit plus burst bonus to exceed 100, got %d", iceDamage)
	}
}

func TestComboCooldownBlocksRetrigger(t *testing.T) {
	s, e := newCombatState(t)

	s.damageEnemy(e, 100, ElementFire)
	s.damageEnemy(e, 100, ElementIce)

	// 10 ticks later, well inside the 60-tick cooldown.
	s.Tick += 10
	s.damageEnemy(e, 100, ElementFire)
	s.damageEnemy(e, 100, ElementIce)
	if countEffect(e.Effects, EffectComboCooldown) != 1 {
		t.Fatal("combo must not re-trigger during the cooldown")
	}
	if len(e.RecentHits) != 2 {
		t.Fatalf("hits during cooldown still record, expected 2 got %d", len(e.RecentHits))
	}
}

func TestComboRetriggersAfterCooldown(t *testing.T) {
	s, e := newCombatState(t)

	s.damageEnemy(e, 100, ElementFire)
	s.damageEnemy(e, 100, ElementIce)

	// Expire the cooldown marker the way the simulation does.
	for i := 0; i < comboCooldownTicks+1; i++ {
		s.Tick++
		s.tickStatusEffects()
	}
	if countEffect(e.Effects, EffectComboCooldown) != 0 {
		t.Fatal("cooldown marker should have expired")
	}

	s.damageEnemy(e, 100, ElementFire)
	s.damageEnemy(e, 100, ElementIce)
	if countEffect(e.Effects, EffectComboCooldown) != 1 {
		t.Fatal("combo must re-trigger once the cooldown elapses")
	}
	if len(e.RecentHits) != 0 {
		t.Fatal("second trigger must clear the window again")
	}
}

func TestHitsOutsideWindowDoNotCombo(t *testing.T) {
	s, e := newCombatState(t)

	s.damageEnemy(e, 100, ElementFire)
	s.Tick += comboWindowTicks + 5
	s.damageEnemy(e, 100, ElementIce)

	if countEffect(e.Effects, EffectComboCooldown) != 0 {
		t.Fatal("hits separated by more than the window must not combo")
	}
}

func TestShatterMarkConsumedOnNextHit(t *testing.T) {
	s, e := newCombatState(t)

	// Ice + physical inside the window triggers shatter.
	s.damageEnemy(e, 100, ElementIce)
	s.damageEnemy(e, 100, ElementPhysical)
	if countEffect(e.Effects, EffectShatterMark) != 1 {
		t.Fatal("expected a shatter mark")
	}

	hpBefore := e.HP
	s.Tick += comboCooldownTicks + 1
	s.damageEnemy(e, 100, ElementLightning)
	if countEffect(e.Effects, EffectShatterMark) != 0 {
		t.Fatal("shatter mark must be consumed by the first following hit")
	}
	if hpBefore-e.HP != 150 {
		t.Fatalf("marked hit should deal +50%%: expected 150, got %d", hpBefore-e.HP)
	}
}

func TestElectrocuteStuns(t *testing.T) {
	s, e := newCombatState(t)

	s.damageEnemy(e, 100, ElementLightning)
	s.damageEnemy(e, 100, ElementWater)
	if countEffect(e.Effects, EffectStun) != 1 {
		t.Fatal("lightning+water must apply a stun")
	}
}

func TestDamageAppliesWeaknessMultiplier(t *testing.T) {
	s := NewState(1, DefaultConfig(), nil, nil)
	// Type 1 (husk) is weak to fire at +50%.
	e := &Enemy{ID: s.allocID(), TypeID: 1, HP: 1000, MaxHP: 1000}
	s.Enemies = append(s.Enemies, e)

	s.damageEnemy(e, 100, ElementFire)
	if got := 1000 - e.HP; got != 150 {
		t.Fatalf("expected 150 weakness damage, got %d", got)
	}
}
