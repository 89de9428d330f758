package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestShutdownHandler_ReverseOrder(t *testing.T) {
	sh := NewShutdownHandler(zaptest.NewLogger(t), time.Second)

	var order []string
	for _, name := range []string{"postgres", "bus", "sweeper"} {
		sh.Add(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	require.NoError(t, sh.Shutdown(context.Background()))
	assert.Equal(t, []string{"sweeper", "bus", "postgres"}, order)

	require.NoError(t, sh.Shutdown(context.Background()))
	assert.Len(t, order, 3, "second shutdown is a no-op")
}

func TestShutdownHandler_CollectsErrors(t *testing.T) {
	sh := NewShutdownHandler(zaptest.NewLogger(t), time.Second)
	boom := errors.New("boom")

	closed := false
	sh.Add("healthy", func(context.Context) error {
		closed = true
		return nil
	})
	sh.Add("broken", func(context.Context) error { return boom })

	err := sh.Shutdown(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "broken")
	assert.True(t, closed)
}

func TestShutdownHandler_Timeout(t *testing.T) {
	sh := NewShutdownHandler(zaptest.NewLogger(t), 20*time.Millisecond)
	release := make(chan struct{})
	defer close(release)

	sh.Add("stuck", func(context.Context) error {
		<-release
		return nil
	})

	err := sh.Shutdown(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stuck: shutdown timeout")
}
