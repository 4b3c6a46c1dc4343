package sim

import "towerkeep/server/internal/fixed"

// SimVersion guards the checkpoint serialization layout. Any change to
// the hashed field set or encoding must bump this so mismatched client
// and server builds fail loudly instead of misverifying.
const SimVersion = "1.4.0"

// Config carries every value the client must mirror exactly for its
// local run to hash identically to the server's verification run. It is
// returned verbatim at session start.
type Config struct {
	TickHz             int `json:"tickHz"`
	WaveIntervalTicks  int `json:"waveIntervalTicks"`
	FortressBaseHP     int `json:"fortressBaseHp"`
	FortressBaseDamage int `json:"fortressBaseDamage"`

	// Map extents in whole units; converted to fixed point once at
	// state construction.
	MapHalfWidth  int `json:"mapHalfWidth"`
	MapHalfHeight int `json:"mapHalfHeight"`

	StartingGold int `json:"startingGold"`
	StartingDust int `json:"startingDust"`
}

const (
	defaultTickHz             = 30
	defaultWaveIntervalTicks  = 150
	defaultFortressBaseHP     = 1000
	defaultFortressBaseDamage = 25
	defaultMapHalfWidth       = 400
	defaultMapHalfHeight      = 300
	defaultStartingGold       = 120
)

// DefaultConfig returns the tuning used when a session record carries no
// overrides.
func DefaultConfig() Config {
	return Config{}.Normalized()
}

// Normalized fills zero fields with defaults. Both the session service
// and NewState call it so an unset field can never mean different
// tunings on the two sides of the hash contract.
func (c Config) Normalized() Config {
	if c.TickHz <= 0 {
		c.TickHz = defaultTickHz
	}
	if c.WaveIntervalTicks <= 0 {
		c.WaveIntervalTicks = defaultWaveIntervalTicks
	}
	if c.FortressBaseHP <= 0 {
		c.FortressBaseHP = defaultFortressBaseHP
	}
	if c.FortressBaseDamage <= 0 {
		c.FortressBaseDamage = defaultFortressBaseDamage
	}
	if c.MapHalfWidth <= 0 {
		c.MapHalfWidth = defaultMapHalfWidth
	}
	if c.MapHalfHeight <= 0 {
		c.MapHalfHeight = defaultMapHalfHeight
	}
	if c.StartingGold <= 0 {
		c.StartingGold = defaultStartingGold
	}
	return c
}

// Gameplay constants shared by every simulation instance. These are part
// of the determinism contract and never configured per session.
const (
	comboWindowTicks   = 30
	comboCooldownTicks = 60

	wallContactDamageInterval = 30
	fortressBufferRadius      = 60

	militiaRespawnCooldownTicks = 150
	militiaSeparationRadius     = 12
	militiaLifetimeTicks        = 900

	relicOfferInterval = 5 // waves between relic offers
)

var (
	fortressBufferRadiusFx = fixed.FromInt(fortressBufferRadius)
)
