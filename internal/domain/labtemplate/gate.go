package labtemplate

import "fmt"

// Gate controls whether result fields may be entered for a referral. It
// starts locked and opens once payment is confirmed; it never locks again.
type Gate int

const (
	GateLocked Gate = iota + 1
	GateUnlocked
)

// GateFor derives the gate from a referral's payment state.
func GateFor(paid bool) Gate {
	if paid {
		return GateUnlocked
	}
	return GateLocked
}

// Confirm applies a payment confirmation.
func (g Gate) Confirm() Gate { return GateUnlocked }

func (g Gate) Open() bool { return g == GateUnlocked }

func (g Gate) String() string {
	switch g {
	case GateLocked:
		return "locked"
	case GateUnlocked:
		return "unlocked"
	default:
		return fmt.Sprintf("Gate(%d)", int(g))
	}
}

func (g Gate) MarshalText() ([]byte, error) {
	if g != GateLocked && g != GateUnlocked {
		return nil, fmt.Errorf("marshal gate: invalid value %d", int(g))
	}
	return []byte(g.String()), nil
}
