package world

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/canvas"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/clock/clocktest"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/domain"
	"github.com/reddit-archive/reddit-plugin-place-opensource/internal/hotspot"
)

type mockActivity struct{ mock.Mock }

func (m *mockActivity) SetActivityCount(n int) { m.Called(n) }

// regionViewport 只把 [x0, x1) x [y0, y1) 视为可见。
type regionViewport struct{ x0, y0, x1, y1 int }

func (v regionViewport) IsVisible(x, y int) bool {
	return x >= v.x0 && x < v.x1 && y >= v.y0 && y < v.y1
}

func newFixture(t *testing.T, vp Viewport, act ActivityCounter) (*Applier, *canvas.Grid, *hotspot.Tracker) {
	t.Helper()
	g, err := canvas.NewGrid(10, 10, canvas.MustPalette(canvas.DefaultPalette))
	require.NoError(t, err)
	tr := hotspot.New(hotspot.DefaultConfig(), clocktest.New(time.Unix(0, 0)), nil)
	return NewApplier(g, tr, vp, act), g, tr
}

func TestApplyTile_WritesAndRecords(t *testing.T) {
	a, g, tr := newFixture(t, nil, nil)

	require.NoError(t, a.ApplyTile(2, 3, 4))

	c, _ := g.ColorAt(2, 3)
	assert.Equal(t, 4, c)
	assert.Equal(t, []domain.Point{{X: 2, Y: 3}}, tr.Points())
	assert.True(t, a.TakeFlushRequest())
	assert.False(t, a.TakeFlushRequest(), "request is consumed")
}

func TestApplyTile_Idempotent(t *testing.T) {
	a, g, _ := newFixture(t, nil, nil)

	require.NoError(t, a.ApplyTile(1, 1, 9))
	first := g.Snapshot()
	require.NoError(t, a.ApplyTile(1, 1, 9))

	assert.Equal(t, first, g.Snapshot())
}

func TestApplyTile_OutOfRangeIsDropped(t *testing.T) {
	a, g, tr := newFixture(t, nil, nil)
	before := g.Snapshot()

	assert.ErrorIs(t, a.ApplyTile(10, 0, 1), domain.ErrProtocolAnomaly)
	assert.ErrorIs(t, a.ApplyTile(-1, 0, 1), domain.ErrProtocolAnomaly)
	assert.ErrorIs(t, a.ApplyTile(0, 0, 16), domain.ErrProtocolAnomaly)

	assert.Equal(t, uint64(3), a.Anomalies())
	assert.Equal(t, before, g.Snapshot())
	assert.Zero(t, tr.Len())
	assert.False(t, a.TakeFlushRequest())
}

func TestApplyBatch_LastEntryWins(t *testing.T) {
	a, g, _ := newFixture(t, nil, nil)

	n := a.ApplyBatch([]domain.TileEdit{{X: 5, Y: 5, Color: 3}, {X: 5, Y: 5, Color: 7}})

	assert.Equal(t, 2, n)
	c, _ := g.ColorAt(5, 5)
	assert.Equal(t, 7, c)
}

func TestApplyBatch_SkipsBadEntries(t *testing.T) {
	a, g, _ := newFixture(t, nil, nil)

	n := a.ApplyBatch([]domain.TileEdit{{X: 0, Y: 0, Color: 1}, {X: 50, Y: 0, Color: 2}, {X: 1, Y: 0, Color: 3}})

	assert.Equal(t, 2, n)
	assert.Equal(t, uint64(1), a.Anomalies())
	c, _ := g.ColorAt(1, 0)
	assert.Equal(t, 3, c)
}

func TestApplyTile_OffscreenDoesNotRequestFlush(t *testing.T) {
	a, g, _ := newFixture(t, regionViewport{0, 0, 5, 5}, nil)

	require.NoError(t, a.ApplyTile(8, 8, 2))
	assert.False(t, a.TakeFlushRequest())
	assert.True(t, g.Dirty(), "buffer still holds the edit")

	require.NoError(t, a.ApplyTile(1, 1, 2))
	assert.True(t, a.TakeFlushRequest())
}

func TestPauseResume(t *testing.T) {
	a, _, _ := newFixture(t, nil, nil)

	a.Pause()
	require.NoError(t, a.ApplyTile(1, 1, 2))
	assert.False(t, a.TakeFlushRequest())

	a.Resume()
	assert.True(t, a.TakeFlushRequest())
	assert.False(t, a.Paused())
}

func TestUpdateActivityCount(t *testing.T) {
	act := new(mockActivity)
	act.On("SetActivityCount", 42).Return().Once()
	a, _, _ := newFixture(t, nil, act)

	require.NoError(t, a.UpdateActivityCount(42))
	assert.ErrorIs(t, a.UpdateActivityCount(-1), domain.ErrProtocolAnomaly)

	assert.Equal(t, 42, a.ActivityCount())
	act.AssertExpectations(t)
}

func TestApply_DispatchesVariants(t *testing.T) {
	a, g, _ := newFixture(t, nil, nil)

	assert.True(t, a.Apply(domain.TileMessage{TileEdit: domain.TileEdit{X: 1, Y: 2, Color: 3}}))
	assert.True(t, a.Apply(domain.BatchTileMessage{Edits: []domain.TileEdit{{X: 3, Y: 3, Color: 5}}}))
	assert.True(t, a.Apply(domain.ActivityMessage{Count: 7}))
	assert.False(t, a.Apply(domain.ConnectionEvent{State: domain.ConnConnected}))

	c, _ := g.ColorAt(3, 3)
	assert.Equal(t, 5, c)
	assert.Equal(t, 7, a.ActivityCount())
}

func TestApplyTile_PresentsOnlyTheEditedTile(t *testing.T) {
	testCases := []struct {
		name        string
		x, y, color int
	}{
		{"interior", 3, 4, 9},
		{"origin", 0, 0, 15},
		{"far corner", 9, 9, 1},
		{"same as background", 5, 5, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			a, g, _ := newFixture(t, nil, nil)
			require.NoError(t, g.BulkLoad(make([]byte, 100)))
			g.Flush()

			// Act
			require.NoError(t, a.ApplyTile(tc.x, tc.y, tc.color))
			g.Flush()

			// Assert
			background := g.Palette().Packed(0)
			for y := 0; y < 10; y++ {
				for x := 0; x < 10; x++ {
					presented, err := g.PresentedAt(x, y)
					require.NoError(t, err)
					if x == tc.x && y == tc.y {
						assert.Equal(t, g.Palette().Packed(tc.color), presented)
						continue
					}
					assert.Equal(t, background, presented, "tile (%d, %d)", x, y)
				}
			}
		})
	}
}
