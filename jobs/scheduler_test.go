package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls  atomic.Int32
	remove atomic.Bool
	err    error
}

func (c *countingSweeper) SweepOrphans(_ context.Context, remove bool) (map[string]int64, error) {
	c.calls.Add(1)
	if remove {
		c.remove.Store(true)
	}
	return map[string]int64{"progress": 2}, c.err
}

func TestNew_RejectsBadSchedule(t *testing.T) {
	_, err := New("not a schedule", &countingSweeper{}, nil)
	require.Error(t, err)
}

func TestRunOnce_CountOnly(t *testing.T) {
	sw := &countingSweeper{err: errors.New("one table failed")}
	s, err := New("@every 1h", sw, nil)
	require.NoError(t, err)
	s.RunOnce()
	assert.EqualValues(t, 1, sw.calls.Load())
	assert.False(t, sw.remove.Load())
}

func TestScheduler_Fires(t *testing.T) {
	sw := &countingSweeper{}
	s, err := New("@every 1s", sw, nil)
	require.NoError(t, err)
	s.Start()
	assert.Eventually(t, func() bool { return sw.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
