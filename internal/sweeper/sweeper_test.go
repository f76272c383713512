package sweeper

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"ebook-library/library"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingAdvancer struct {
	calls atomic.Int32
	err   error
}

func (c *countingAdvancer) AdvanceLifecycle() (library.LifecycleReport, error) {
	c.calls.Add(1)
	return library.LifecycleReport{Expired: 1}, c.err
}

func TestNewRejectsBadSchedule(t *testing.T) {
	_, err := New(&countingAdvancer{}, "every now and then", nil)
	assert.Error(t, err)

	_, err = New(&countingAdvancer{}, "*/5 * * * *", nil)
	assert.NoError(t, err)
}

func TestRunOnce(t *testing.T) {
	adv := &countingAdvancer{}
	s, err := New(adv, "@hourly", nil)
	require.NoError(t, err)

	report, err := s.RunOnce()
	require.NoError(t, err)
	assert.Equal(t, 1, report.Expired)

	adv.err = errors.New("disk gone")
	_, err = s.RunOnce()
	assert.Error(t, err)
	assert.EqualValues(t, 2, adv.calls.Load())
}

func TestRunSweepsImmediatelyAndStops(t *testing.T) {
	adv := &countingAdvancer{}
	s, err := New(adv, "@every 10ms", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool { return adv.calls.Load() >= 2 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestSweepAgainstLibrary(t *testing.T) {
	dir := t.TempDir()
	today := time.Date(2025, time.January, 5, 9, 0, 0, 0, time.Local)
	mgr, err := library.NewLibraryManager(filepath.Join(dir, "data"), filepath.Join(dir, "books"),
		library.WithClock(func() time.Time { return today }))
	require.NoError(t, err)

	s, err := New(mgr.Reservations, "@daily", nil)
	require.NoError(t, err)
	report, err := s.RunOnce()
	require.NoError(t, err)
	assert.Equal(t, library.LifecycleReport{}, report)
}
