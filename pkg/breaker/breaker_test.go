package breaker

import (
	"errors"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestBreakerOpensAfterFailures(t *testing.T) {
	cb := New(DefaultConfig("monitor"), zap.NewNop())
	boom := errors.New("connection refused")

	for i := 0; i < 3; i++ {
		_, err := cb.Execute(func() (interface{}, error) { return nil, boom })
		assert.ErrorIs(t, err, boom)
	}

	assert.Equal(t, gobreaker.StateOpen, cb.State())
	_, err := cb.Execute(func() (interface{}, error) { return "unreached", nil })
	assert.True(t, Open(err))
}

func TestBreakerStaysClosedBelowMinRequests(t *testing.T) {
	cb := New(DefaultConfig("monitor"), nil)

	cb.Execute(func() (interface{}, error) { return nil, errors.New("x") })
	cb.Execute(func() (interface{}, error) { return nil, errors.New("x") })

	assert.Equal(t, gobreaker.StateClosed, cb.State())
	assert.False(t, Open(errors.New("x")))
}
