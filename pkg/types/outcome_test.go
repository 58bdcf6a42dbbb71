package types

import "testing"

func TestStatusForwardOnly(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"waiting-to-entered", StatusWaitingEntry, StatusEntered, true},
		{"entered-to-partial", StatusEntered, StatusPartiallyClosed, true},
		{"partial-to-closed", StatusPartiallyClosed, StatusClosed, true},
		{"waiting-straight-to-closed", StatusWaitingEntry, StatusClosed, true},
		{"same-status", StatusEntered, StatusEntered, true},
		{"closed-back-to-entered", StatusClosed, StatusEntered, false},
		{"partial-back-to-waiting", StatusPartiallyClosed, StatusWaitingEntry, false},
		{"closed-back-to-partial", StatusClosed, StatusPartiallyClosed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanAdvanceTo(tt.to); got != tt.want {
				t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}
