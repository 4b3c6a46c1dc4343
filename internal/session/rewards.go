package session

import "towerkeep/server/internal/sim"

// Reward weights. Fixed by the reward contract; rebalancing changes what
// every verified segment pays out.
const (
	xpPerWave      = 10
	xpPerKill      = 1
	xpPerEliteKill = 5
	xpWinBonus     = 125
)

// Rewards is the credit computed from a verified run summary.
type Rewards struct {
	Gold int `json:"gold"`
	Dust int `json:"dust"`
	XP   int `json:"xp"`
}

// CalculateRewards converts a verified summary into reward deltas. The
// multiplier (in percent, 100 = neutral) applies live-ops events to the
// XP payout only; gold and dust were already earned inside the
// simulation and are credited as-is.
func CalculateRewards(summary sim.Summary, eventMultiplierPct int) Rewards {
	xp := summary.WavesCleared*xpPerWave +
		summary.Kills*xpPerKill +
		summary.EliteKills*xpPerEliteKill
	if summary.Won {
		xp += xpWinBonus
	}
	if eventMultiplierPct > 0 && eventMultiplierPct != 100 {
		xp = xp * eventMultiplierPct / 100
	}
	return Rewards{
		Gold: summary.GoldEarned,
		Dust: summary.DustEarned,
		XP:   xp,
	}
}

// XPForLevel returns the XP required to advance from the given level to
// the next.
func XPForLevel(level int) int {
	if level < 1 {
		level = 1
	}
	return 100 + (level-1)*50
}

// applyProgression adds XP and resolves level-ups. A loop, not a single
// subtraction: one large grant can cross several levels, and the level
// counter must advance once per requirement crossed. Returns the number
// of levels gained.
func applyProgression(level, xp *int, grant int) int {
	*xp += grant
	gained := 0
	for *xp >= XPForLevel(*level) {
		*xp -= XPForLevel(*level)
		*level++
		gained++
	}
	return gained
}
