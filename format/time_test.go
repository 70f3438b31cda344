package format

import (
	"testing"
	"time"
)

func TestHumanTime(t *testing.T) {
	now := time.Now()

	t.Run("zero value", func(t *testing.T) {
		if got := HumanTime(time.Time{}, "Never"); got != "Never" {
			t.Errorf("Expected Never, got %s", got)
		}
	})

	t.Run("time in the past", func(t *testing.T) {
		if got := HumanTime(now.Add(-2*time.Hour), ""); got != "2 hours ago" {
			t.Errorf("Expected 2 hours ago, got %s", got)
		}
	})

	t.Run("time in the future", func(t *testing.T) {
		if got := HumanTime(now.Add(2*time.Hour), ""); got != "2 hours from now" {
			t.Errorf("Expected 2 hours from now, got %s", got)
		}
	})

	t.Run("soon", func(t *testing.T) {
		if got := HumanTime(now.Add(-30*time.Second), ""); got != "30 seconds ago" {
			t.Errorf("Expected 30 seconds ago, got %s", got)
		}
	})
}
