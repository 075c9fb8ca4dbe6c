package allowlist

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"grimm.is/firegate/internal/audit"
	"grimm.is/firegate/internal/logging"
)

func TestSweep_SavesEvenWhenNothingExpired(t *testing.T) {
	h := newHarness(t)

	res, err := h.coord.Sweep(context.Background())

	require.NoError(t, err)
	assert.Zero(t, res.Expired)
	assert.Zero(t, res.Revoked)
	assert.Zero(t, res.Failed)
	assert.Equal(t, 1, h.store.saveCount())
	assert.Empty(t, h.gateway.Calls)
}

func TestSweep_TwentyFourHourWindow(t *testing.T) {
	h := newHarness(t)
	h.gateway.On("Grant", mock.Anything, "public", "10.0.0.5").Return(nil).Once()
	h.gateway.On("Revoke", mock.Anything, "public", "10.0.0.5").Return(nil).Once()

	_, err := h.coord.Grant(context.Background(), GrantRequest{Zone: "public", Source: "10.0.0.5"})
	require.NoError(t, err)

	h.clock.Advance(24*time.Hour - time.Millisecond)
	res, err := h.coord.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Expired)
	assert.Equal(t, 1, h.coord.Table().Len())

	h.clock.Advance(time.Millisecond)
	res, err = h.coord.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Expired)
	assert.Equal(t, 1, res.Revoked)
	assert.Zero(t, h.coord.Table().Len())
	assert.Empty(t, h.store.data)
	h.gateway.AssertExpectations(t)
}

func TestSweep_FailedRevokeIsRetried(t *testing.T) {
	h := newHarness(t)
	h.gateway.On("Grant", mock.Anything, "public", "10.0.0.5").Return(nil).Once()
	boom := errors.New("firewalld not running")
	h.gateway.On("Revoke", mock.Anything, "public", "10.0.0.5").Return(boom).Twice()
	h.gateway.On("Revoke", mock.Anything, "public", "10.0.0.5").Return(nil).Once()

	_, err := h.coord.Grant(context.Background(), GrantRequest{Zone: "public", Source: "10.0.0.5"})
	require.NoError(t, err)
	granted, ok := h.coord.Table().Get("public", "10.0.0.5")
	require.True(t, ok)
	expiresAt := granted.ExpiresAt()
	h.clock.Advance(25 * time.Hour)

	for i := 0; i < 2; i++ {
		saves := h.store.saveCount()
		res, err := h.coord.Sweep(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, res.Failed)
		assert.Zero(t, res.Revoked)
		assert.Equal(t, saves+1, h.store.saveCount(), "one save per cycle")

		g, ok := h.coord.Table().Get("public", "10.0.0.5")
		require.True(t, ok, "entry survives failed revoke")
		assert.True(t, g.ExpiresAt().Equal(expiresAt), "failed revoke keeps the original expiry")
		assert.Len(t, h.store.data["public"], 1)
	}

	saves := h.store.saveCount()
	res, err := h.coord.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Revoked)
	assert.Zero(t, h.coord.Table().Len())
	assert.Equal(t, saves+1, h.store.saveCount())
	h.gateway.AssertExpectations(t)

	var expire []audit.Event
	for _, evt := range h.recorder.all() {
		if evt.Action == audit.ActionExpire {
			expire = append(expire, evt)
		}
	}
	require.Len(t, expire, 3)
	assert.False(t, expire[0].Success)
	assert.True(t, expire[2].Success)

	seen := map[string]bool{}
	for _, evt := range expire {
		assert.True(t, strings.HasPrefix(evt.OpID, "sweep-"), evt.OpID)
		seen[evt.OpID] = true
	}
	assert.Len(t, seen, 3, "each cycle gets its own op ID")
}

func TestSweep_OnlyExpiredPairs(t *testing.T) {
	h := newHarness(t)
	h.gateway.On("Grant", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	h.gateway.On("Revoke", mock.Anything, "public", "10.0.0.5").Return(nil).Once()

	_, err := h.coord.Grant(context.Background(), GrantRequest{Zone: "public", Source: "10.0.0.5"})
	require.NoError(t, err)
	h.clock.Advance(12 * time.Hour)
	_, err = h.coord.Grant(context.Background(), GrantRequest{Zone: "public", Source: "10.0.0.6"})
	require.NoError(t, err)
	h.clock.Advance(12 * time.Hour)

	res, err := h.coord.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Revoked)
	_, ok := h.coord.Table().Get("public", "10.0.0.6")
	assert.True(t, ok)
	h.gateway.AssertExpectations(t)
}

func TestSweeper_TaskAndRun(t *testing.T) {
	h := newHarness(t)
	s := NewSweeper(h.coord, 0, logging.Discard())

	task := s.Task()
	assert.Equal(t, SweepTaskID, task.ID)
	assert.True(t, task.RunOnStart)
	assert.True(t, task.Enabled)
	assert.True(t, task.Schedule.Next(t0).Equal(t0.Add(DefaultSweepInterval)))

	require.NoError(t, task.Func(context.Background()))

	h.gateway.On("Grant", mock.Anything, "public", "10.0.0.5").Return(nil).Once()
	h.gateway.On("Revoke", mock.Anything, "public", "10.0.0.5").Return(errors.New("nope")).Once()
	_, err := h.coord.Grant(context.Background(), GrantRequest{Zone: "public", Source: "10.0.0.5"})
	require.NoError(t, err)
	h.clock.Advance(48 * time.Hour)

	assert.Error(t, s.Run(context.Background()))
}
