package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPlanned, StatusExecuting, true},
		{StatusPlanned, StatusWaitingForInternet, true},
		{StatusPlanned, StatusCompleted, true},
		{StatusPlanned, StatusFailed, false},
		{StatusWaitingForInternet, StatusExecuting, true},
		{StatusWaitingForInternet, StatusCompleted, true},
		{StatusWaitingForInternet, StatusPlanned, false},
		{StatusExecuting, StatusCompleted, true},
		{StatusExecuting, StatusFailed, true},
		{StatusExecuting, StatusWaitingForInternet, true},
		{StatusExecuting, StatusPlanned, false},
		{StatusCompleted, StatusExecuting, false},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusExecuting, false},
		{StatusFailed, StatusCompleted, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}
