package sim

import "towerkeep/server/internal/fixed"

// EventType enumerates replayable player inputs. Everything a player can
// do that affects the simulation is expressed as an Event so the server
// can re-run the exact input stream.
type EventType string

const (
	EventPlaceWall    EventType = "PlaceWall"
	EventPlaceGate    EventType = "PlaceGate"
	EventPlaceTurret  EventType = "PlaceTurret"
	EventDeployHero   EventType = "DeployHero"
	EventSpawnMilitia EventType = "SpawnMilitia"
	EventChooseRelic  EventType = "ChooseRelic"
)

// Event is one player input, applied at Tick before that tick's Step.
// Coordinates travel as raw Q16.16 integers so the wire value is the
// exact value the simulation consumes.
type Event struct {
	Tick   uint64    `json:"tick"`
	Type   EventType `json:"type"`
	X      int32     `json:"x,omitempty"`
	Y      int32     `json:"y,omitempty"`
	Kind   string    `json:"kind,omitempty"`
	Choice uint8     `json:"choice,omitempty"`
}

// ApplyEvent mutates state for one input. Invalid inputs (unknown kinds,
// unaffordable placements, stale relic choices) are deliberate no-ops:
// both runtimes must skip them identically rather than fault.
func (s *State) ApplyEvent(ev Event) {
	switch ev.Type {
	case EventPlaceWall:
		s.PlaceWall(fixed.Fixed(ev.X), fixed.Fixed(ev.Y), false)
	case EventPlaceGate:
		s.PlaceWall(fixed.Fixed(ev.X), fixed.Fixed(ev.Y), true)
	case EventPlaceTurret:
		s.PlaceTurretEvent(ev.Kind, fixed.Fixed(ev.X), fixed.Fixed(ev.Y))
	case EventDeployHero:
		s.DeployHeroEvent(ev.Kind, fixed.Fixed(ev.X), fixed.Fixed(ev.Y))
	case EventSpawnMilitia:
		s.SpawnMilitia(ev.Kind, fixed.Fixed(ev.X), fixed.Fixed(ev.Y))
	case EventChooseRelic:
		s.ChooseRelic(ev.Choice)
	}
}

// PlaceTurretEvent buys and places a turret if affordable and in bounds.
func (s *State) PlaceTurretEvent(kind string, x, y fixed.Fixed) *Turret {
	def, ok := turretDefs[kind]
	if !ok {
		return nil
	}
	if s.Gold < def.Cost || !s.inBounds(x, y) {
		return nil
	}
	s.Gold -= def.Cost
	t := s.placeTurretAt(kind, slot{x, y})
	return t
}

// DeployHeroEvent buys and deploys a hero if affordable and in bounds.
func (s *State) DeployHeroEvent(kind string, x, y fixed.Fixed) *Hero {
	def, ok := heroDefs[kind]
	if !ok {
		return nil
	}
	if s.Gold < def.Cost || !s.inBounds(x, y) {
		return nil
	}
	s.Gold -= def.Cost
	return s.deployHeroAt(kind, slot{x, y})
}

// ChooseRelic resolves a pending relic offer. Choices that do not match
// the offer are ignored.
func (s *State) ChooseRelic(id uint8) bool {
	if len(s.PendingRelicChoice) == 0 {
		return false
	}
	offered := false
	for _, c := range s.PendingRelicChoice {
		if c == id {
			offered = true
			break
		}
	}
	if !offered {
		return false
	}
	s.Relics = append(s.Relics, id)
	s.PendingRelicChoice = nil
	if bonus := relicDefs[id].FortressHPBonus; bonus > 0 {
		s.FortressMaxHP += bonus
		s.FortressHP += bonus
	}
	return true
}

func (s *State) inBounds(x, y fixed.Fixed) bool {
	return fixed.Abs(x) <= fixed.FromInt(s.Config.MapHalfWidth) &&
		fixed.Abs(y) <= fixed.FromInt(s.Config.MapHalfHeight)
}
