package sim

import "towerkeep/server/internal/fixed"

// Wave spawning. A wave's composition is derived from the wave number
// and the run RNG, so the full schedule is reproducible from the seed.
// Enemies trickle in from the top edge one per spawnGapTicks.

const spawnGapTicks = 10

// beginWave builds the spawn queue for the next wave. Composition grows
// with the wave number; every fourth wave seeds an elite bulwark.
func (s *State) beginWave() {
	s.Wave++
	s.waveActive = true
	s.WaveSpawnedEnemies = 0
	s.WaveSpawnQueue = s.WaveSpawnQueue[:0]

	count := 4 + s.Wave + s.Wave/3
	for i := 0; i < count; i++ {
		roll := s.RNG.Intn(100)
		var typeID uint8
		switch {
		case roll < 45:
			typeID = 1
		case roll < 70:
			typeID = 2
		case roll < 90:
			typeID = 3
		default:
			typeID = 4
		}
		s.WaveSpawnQueue = append(s.WaveSpawnQueue, typeID)
	}
	if s.Wave%4 == 0 {
		s.WaveSpawnQueue = append(s.WaveSpawnQueue, 4)
	}
	s.WaveTotalEnemies = len(s.WaveSpawnQueue)
}

// tickSpawning starts pending waves and drains the spawn queue.
func (s *State) tickSpawning() {
	if !s.waveActive {
		if s.Tick >= s.NextWaveTick && len(s.PendingRelicChoice) == 0 {
			s.beginWave()
		}
		return
	}
	if s.WaveSpawnedEnemies >= s.WaveTotalEnemies {
		return
	}
	if s.Tick%spawnGapTicks != 0 {
		return
	}
	typeID := s.WaveSpawnQueue[s.WaveSpawnedEnemies]
	s.spawnEnemy(typeID)
	s.WaveSpawnedEnemies++
}

func (s *State) spawnEnemy(typeID uint8) *Enemy {
	def, ok := enemyDefs[typeID]
	if !ok {
		return nil
	}

	halfW := fixed.FromInt(s.Config.MapHalfWidth)
	x := s.RNG.FixedRange(-halfW, halfW)
	y := fixed.FromInt(-s.Config.MapHalfHeight)

	elite := false
	hp := def.MaxHP
	// Elites: bulwarks past wave 4 roll a 20% elite chance with triple
	// HP and dust on kill.
	if typeID == 4 && s.Wave > 4 && s.RNG.Percent(20) {
		elite = true
		hp *= 3
	}
	// HP scales 10% per wave past the first, integer math only.
	hp += hp * (s.Wave - 1) / 10

	e := &Enemy{
		ID:     s.allocID(),
		TypeID: typeID,
		Elite:  elite,
		X:      x,
		Y:      y,
		HP:     hp,
		MaxHP:  hp,
	}
	s.Enemies = append(s.Enemies, e)
	return e
}

// tickWaveCompletion closes out a cleared wave: credits the clear bonus,
// schedules the next wave, and every few waves stages a relic offer.
func (s *State) tickWaveCompletion() {
	if !s.waveActive {
		return
	}
	if s.WaveSpawnedEnemies < s.WaveTotalEnemies || len(s.Enemies) > 0 {
		return
	}
	s.waveActive = false
	s.WavesCleared++
	s.creditGold(10 + s.Wave*2)
	s.NextWaveTick = s.Tick + uint64(s.Config.WaveIntervalTicks)

	if s.Wave%relicOfferInterval == 0 {
		s.offerRelics()
	}
}

// offerRelics stages a deterministic three-relic choice. The wave timer
// holds while a choice is pending (tickSpawning gates on it).
func (s *State) offerRelics() {
	ids := make([]uint8, 0, len(relicDefs))
	for id := uint8(1); int(id) <= len(relicDefs); id++ {
		if _, ok := relicDefs[id]; ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return
	}
	offer := make([]uint8, 0, 3)
	for len(offer) < 3 && len(ids) > 0 {
		i := s.RNG.Intn(len(ids))
		offer = append(offer, ids[i])
		ids = append(ids[:i], ids[i+1:]...)
	}
	s.PendingRelicChoice = offer
}

// SpawnMilitia deploys a militia unit if the kind exists, is off
// cooldown, and gold suffices. Deploy position is clamped in bounds.
func (s *State) SpawnMilitia(kind string, x, y fixed.Fixed) *Militia {
	def, ok := militiaDefs[kind]
	if !ok {
		return nil
	}
	if until, held := s.MilitiaCooldowns[kind]; held && s.Tick < until {
		return nil
	}
	if s.Gold < def.Cost {
		return nil
	}
	halfW := fixed.FromInt(s.Config.MapHalfWidth)
	halfH := fixed.FromInt(s.Config.MapHalfHeight)

	s.Gold -= def.Cost
	s.MilitiaCooldowns[kind] = s.Tick + militiaRespawnCooldownTicks
	m := &Militia{
		ID:         s.allocID(),
		Kind:       kind,
		X:          fixed.Clamp(x, -halfW, halfW),
		Y:          fixed.Clamp(y, -halfH, halfH),
		HP:         def.MaxHP,
		MaxHP:      def.MaxHP,
		ExpireTick: s.Tick + militiaLifetimeTicks,
	}
	s.Militia = append(s.Militia, m)
	return m
}
