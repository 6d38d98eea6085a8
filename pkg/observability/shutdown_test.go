package observability

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewShutdownManager_DefaultTimeout(t *testing.T) {
	logger, _ := logtest.NewNullLogger()

	tests := []struct {
		name     string
		timeout  time.Duration
		expected time.Duration
	}{
		{name: "custom", timeout: 10 * time.Second, expected: 10 * time.Second},
		{name: "zero uses default", timeout: 0, expected: 30 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := NewShutdownManager(logger, nil, tt.timeout)
			assert.Equal(t, tt.expected, sm.shutdownTimeout)
		})
	}
}

func TestShutdownManager_RunsAllFuncs(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	sm := NewShutdownManager(logger, &http.Server{}, time.Second)

	var calls atomic.Int32
	for range 3 {
		sm.RegisterShutdownFunc(func(context.Context) error {
			calls.Add(1)
			return nil
		})
	}

	require.NoError(t, sm.Shutdown())
	assert.Equal(t, int32(3), calls.Load())
}

func TestShutdownManager_CollectsErrors(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	sm := NewShutdownManager(logger, nil, time.Second)

	boom := errors.New("boom")
	sm.RegisterShutdownFunc(func(context.Context) error { return nil })
	sm.RegisterShutdownFunc(func(context.Context) error { return boom })

	err := sm.Shutdown()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "Shutdown function failed", hook.LastEntry().Message)
}

func TestShutdownManager_Timeout(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	sm := NewShutdownManager(logger, nil, 20*time.Millisecond)

	release := make(chan struct{})
	defer close(release)
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		<-release
		return nil
	})

	assert.ErrorContains(t, sm.Shutdown(), "timeout")
}

func TestShutdownManager_WaitForShutdownOnContext(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	sm := NewShutdownManager(logger, nil, time.Second)

	var called atomic.Bool
	sm.RegisterShutdownFunc(func(context.Context) error {
		called.Store(true)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, sm.WaitForShutdown(ctx))
	assert.True(t, called.Load())
}
