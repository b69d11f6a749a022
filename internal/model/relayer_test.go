package model

import "testing"

func TestRelayerActionOrder(t *testing.T) {
	cases := []struct {
		from RelayerAction
		to   RelayerAction
		want bool
	}{
		{ActionNone, ActionFinalize, true},
		{ActionNone, ActionCompleted, true},
		{ActionFinalize, ActionFinalize, true},
		{ActionFinalize, ActionJackpot, true},
		{ActionJackpot, ActionFinalize, false},
		{ActionJackpot, ActionJackpot, false},
		{ActionConsolation, ActionConsolation, true},
		{ActionConsolation, ActionJackpot, false},
		{ActionConsolation, ActionCompleted, true},
		{ActionCompleted, ActionCompleted, false},
		{ActionCompleted, ActionFinalize, false},
		{ActionFinalize, ActionNone, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanAdvanceTo(tc.to); got != tc.want {
			t.Fatalf("%q -> %q: got %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestParseRelayerAction(t *testing.T) {
	for _, value := range []string{"", "finalize", "jackpot", "consolation", "completed"} {
		action, err := ParseRelayerAction(value)
		if err != nil {
			t.Fatalf("parse %q: %v", value, err)
		}
		if string(action) != value {
			t.Fatalf("parse %q returned %q", value, action)
		}
	}

	if _, err := ParseRelayerAction("sweep"); err == nil {
		t.Fatalf("expected error for unknown action")
	}
}
