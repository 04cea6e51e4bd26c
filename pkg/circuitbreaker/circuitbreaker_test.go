package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("connection refused")

func failing(ctx context.Context) error { return errDown }
func succeeding(ctx context.Context) error { return nil }

func TestBreakerOpensAfterThreshold(t *testing.T) {
	cb := New("test", WithFailureThreshold(3), WithTimeout(time.Minute))

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(context.Background(), failing), errDown)
	}

	assert.True(t, cb.IsOpen())
	assert.ErrorIs(t, cb.Execute(context.Background(), succeeding), ErrCircuitOpen)
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := New("test", WithFailureThreshold(3))

	_ = cb.Execute(context.Background(), failing)
	_ = cb.Execute(context.Background(), failing)
	require.NoError(t, cb.Execute(context.Background(), succeeding))
	_ = cb.Execute(context.Background(), failing)
	_ = cb.Execute(context.Background(), failing)

	assert.True(t, cb.IsClosed())
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	cb := New("test",
		WithFailureThreshold(1),
		WithSuccessThreshold(1),
		WithTimeout(5*time.Millisecond),
	)

	_ = cb.Execute(context.Background(), failing)
	require.True(t, cb.IsOpen())

	time.Sleep(10 * time.Millisecond)

	// First probe after the timeout closes the circuit again.
	require.NoError(t, cb.Execute(context.Background(), succeeding))
	assert.True(t, cb.IsClosed())
}

func TestExecuteWithFallback(t *testing.T) {
	cb := New("test", WithFailureThreshold(1), WithTimeout(time.Minute))
	_ = cb.Execute(context.Background(), failing)
	require.True(t, cb.IsOpen())

	fallbackUsed := false
	err := cb.ExecuteWithFallback(context.Background(), succeeding, func(err error) error {
		fallbackUsed = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, fallbackUsed)
}

func TestBreakerStateChangeCallback(t *testing.T) {
	var transitions []State
	cb := New("test",
		WithFailureThreshold(1),
		WithTimeout(time.Minute),
		WithOnStateChange(func(name string, from, to State) {
			transitions = append(transitions, to)
		}),
	)

	_ = cb.Execute(context.Background(), failing)

	require.Len(t, transitions, 1)
	assert.Equal(t, StateOpen, transitions[0])
}

func TestBreakerReset(t *testing.T) {
	cb := New("test", WithFailureThreshold(1), WithTimeout(time.Minute))
	_ = cb.Execute(context.Background(), failing)
	require.True(t, cb.IsOpen())

	cb.Reset()
	assert.True(t, cb.IsClosed())
}
