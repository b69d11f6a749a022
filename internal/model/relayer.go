package model

import "fmt"

// RelayerAction is the last lifecycle step the relayer submitted for a pool.
// Actions only move forward; ActionCompleted is terminal.
type RelayerAction string

const (
	ActionNone        RelayerAction = ""
	ActionFinalize    RelayerAction = "finalize"
	ActionJackpot     RelayerAction = "jackpot"
	ActionConsolation RelayerAction = "consolation"
	ActionCompleted   RelayerAction = "completed"
)

// Rank orders actions; ActionNone ranks lowest.
func (a RelayerAction) Rank() int {
	switch a {
	case ActionFinalize:
		return 1
	case ActionJackpot:
		return 2
	case ActionConsolation:
		return 3
	case ActionCompleted:
		return 4
	default:
		return 0
	}
}

// Terminal reports whether no further action may follow.
func (a RelayerAction) Terminal() bool {
	return a == ActionCompleted
}

// CanAdvanceTo reports whether recording next after a keeps the order.
// Consolation may repeat since payouts are batched.
func (a RelayerAction) CanAdvanceTo(next RelayerAction) bool {
	if a.Terminal() || next == ActionNone {
		return false
	}
	if next == a {
		return next == ActionConsolation || next == ActionFinalize
	}
	return next.Rank() > a.Rank()
}

// ParseRelayerAction parses a stored action value.
func ParseRelayerAction(value string) (RelayerAction, error) {
	switch action := RelayerAction(value); action {
	case ActionNone, ActionFinalize, ActionJackpot, ActionConsolation, ActionCompleted:
		return action, nil
	default:
		return ActionNone, fmt.Errorf("unknown relayer action: %q", value)
	}
}
