package hotspot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/clock/clocktest"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/domain"
)

func newTracker(onPick func(domain.Point)) (*Tracker, *clocktest.Clock) {
	clk := clocktest.New(time.Unix(0, 0))
	return New(DefaultConfig(), clk, onPick), clk
}

func TestScoreAndPick_Empty(t *testing.T) {
	tr, _ := newTracker(nil)
	_, ok := tr.ScoreAndPick()
	assert.False(t, ok)
}

func TestScoreAndPick_DuplicateDominates(t *testing.T) {
	tr, _ := newTracker(nil)
	tr.Record(0, 0)
	tr.Record(0, 0)
	tr.Record(10, 10)

	p, ok := tr.ScoreAndPick()
	assert.True(t, ok)
	assert.Equal(t, domain.Point{X: 0, Y: 0}, p)
}

func TestScoreAndPick_FirstSeenWinsTie(t *testing.T) {
	tr, _ := newTracker(nil)
	tr.Record(5, 5)
	tr.Record(9, 5)

	p, _ := tr.ScoreAndPick()
	assert.Equal(t, domain.Point{X: 5, Y: 5}, p)
}

func TestScoreAndPick_ClusterBeatsOutlier(t *testing.T) {
	tr, _ := newTracker(nil)
	tr.Record(900, 900)
	tr.Record(10, 10)
	tr.Record(11, 10)
	tr.Record(10, 12)

	p, _ := tr.ScoreAndPick()
	assert.Equal(t, domain.Point{X: 10, Y: 10}, p)
}

func TestContributionInsideBuffer(t *testing.T) {
	clk := clocktest.New(time.Unix(0, 0))
	tr := New(Config{Capacity: 4, Buffer: 4, K: 2, F: 0.5, G: 1}, clk, nil)

	assert.InDelta(t, 2*2/2.0, tr.contribution(2), 1e-9, "B^(g-f)/d^g scaled by k")
	assert.InDelta(t, 2/3.0, tr.contribution(9), 1e-9, "1/d^f scaled by k")
}

func TestRecord_RingWraps(t *testing.T) {
	clk := clocktest.New(time.Unix(0, 0))
	tr := New(Config{Capacity: 3, K: 1, F: 0.5, G: 1}, clk, nil)
	for i := 0; i < 5; i++ {
		tr.Record(i, i)
	}

	assert.Equal(t, 3, tr.Len())
	assert.Equal(t, []domain.Point{{X: 2, Y: 2}, {X: 3, Y: 3}, {X: 4, Y: 4}}, tr.Points())
}

func TestEnableDisable_Idempotent(t *testing.T) {
	var picks []domain.Point
	tr, clk := newTracker(func(p domain.Point) { picks = append(picks, p) })
	tr.Record(3, 4)

	tr.Enable(time.Second)
	tr.Enable(time.Second)
	assert.True(t, tr.Enabled())
	assert.Equal(t, 1, clk.Pending(), "enable twice keeps a single timer")

	clk.Advance(3 * time.Second)
	assert.Len(t, picks, 3)
	assert.Equal(t, domain.Point{X: 3, Y: 4}, picks[0])

	tr.Disable()
	tr.Disable()
	assert.False(t, tr.Enabled())
	assert.Equal(t, 0, clk.Pending())
	clk.Advance(5 * time.Second)
	assert.Len(t, picks, 3)
}

func TestEnable_NoPickWhenEmpty(t *testing.T) {
	calls := 0
	tr, clk := newTracker(func(domain.Point) { calls++ })
	tr.Enable(time.Second)
	clk.Advance(2 * time.Second)
	assert.Zero(t, calls)
	assert.True(t, tr.Enabled())
}

func TestDisableInsideCallbackStopsRearm(t *testing.T) {
	var tr *Tracker
	calls := 0
	tr, clk := newTracker(func(domain.Point) {
		calls++
		tr.Disable()
	})
	tr.Record(1, 1)
	tr.Enable(time.Second)

	clk.Advance(5 * time.Second)
	assert.Equal(t, 1, calls)
	assert.False(t, tr.Enabled())
}
