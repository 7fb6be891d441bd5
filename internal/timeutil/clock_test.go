package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClockIsUTC(t *testing.T) {
	assert.Equal(t, time.UTC, RealClock{}.Now().Location())

	tk := RealClock{}.NewTicker(time.Millisecond)
	defer tk.Stop()
	select {
	case <-tk.C():
	case <-time.After(time.Second):
		t.Fatal("real ticker never fired")
	}
}

func TestMockClockAdvance(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(start)
	tk := c.NewTicker(time.Minute)
	assert.Equal(t, 1, c.Tickers())

	c.Advance(30 * time.Second)
	select {
	case <-tk.C():
		t.Fatal("ticked before the interval elapsed")
	default:
	}

	c.Advance(30 * time.Second)
	select {
	case got := <-tk.C():
		assert.Equal(t, start.Add(time.Minute), got)
	default:
		t.Fatal("expected a tick after one interval")
	}
	assert.Equal(t, start.Add(time.Minute), c.Now())
}

func TestMockTickerDropsUnreadTicks(t *testing.T) {
	c := NewMockClock(time.Time{})
	tk := c.NewTicker(time.Second)

	c.Advance(time.Second)
	c.Advance(time.Second)
	<-tk.C()
	select {
	case <-tk.C():
		t.Fatal("unread tick should have been dropped")
	default:
	}
}

func TestMockTickerStop(t *testing.T) {
	c := NewMockClock(time.Time{})
	tk := c.NewTicker(time.Second)
	tk.Stop()

	c.Advance(time.Hour)
	select {
	case <-tk.C():
		t.Fatal("stopped ticker fired")
	default:
	}
}
