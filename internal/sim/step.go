package sim

// Step advances the simulation by exactly one tick. System order is part
// of the determinism contract: reordering any two systems changes every
// checkpoint hash from that tick on. No system may return an error or
// panic on odd state; faults that surface at different points on client
// and server would defeat verification.
func (s *State) Step() {
	if s.Defeated {
		s.Tick++
		return
	}

	s.tickSpawning()
	s.tickEnemyMovement()
	s.tickMilitia()
	s.tickProjectiles()
	s.tickHeroAttacks()
	s.tickTurretAttacks()
	s.tickFortress()
	s.tickEnemyAttacks()
	s.tickStatusEffects()
	s.cleanup()
	s.tickWaveCompletion()

	s.Tick++
}

// cleanup removes expired and dead entities and credits kill rewards.
// Credit happens here, not at damage time, so simultaneous lethal hits
// in one tick credit exactly once.
func (s *State) cleanup() {
	enemies := s.Enemies[:0]
	for _, e := range s.Enemies {
		if e.HP > 0 {
			enemies = append(enemies, e)
			continue
		}
		def := enemyDefs[e.TypeID]
		s.Kills++
		gold := def.GoldReward
		dust := def.DustReward
		if e.Elite {
			s.EliteKills++
			gold *= 3
			dust += 2
		}
		s.creditGold(gold)
		s.creditDust(dust)
	}
	s.Enemies = enemies

	militia := s.Militia[:0]
	for _, m := range s.Militia {
		if m.HP > 0 && s.Tick < m.ExpireTick {
			militia = append(militia, m)
		}
	}
	s.Militia = militia

	walls := s.Walls[:0]
	for _, w := range s.Walls {
		if w.HP > 0 {
			walls = append(walls, w)
		}
	}
	if len(walls) != len(s.Walls) {
		// A destroyed wall unblocks enemies immediately.
		for _, e := range s.Enemies {
			e.BlockedBy = 0
		}
	}
	s.Walls = walls

	heroes := s.Heroes[:0]
	for _, h := range s.Heroes {
		if h.HP > 0 {
			heroes = append(heroes, h)
		}
	}
	if len(heroes) != len(s.Heroes) {
		s.invalidateAuraCache()
	}
	s.Heroes = heroes
}
