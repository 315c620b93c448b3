package backoff

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConstant(t *testing.T) {
	s := Constant(100 * time.Millisecond)
	for attempts := uint(1); attempts < 10; attempts++ {
		assert.Equal(t, 100*time.Millisecond, s(attempts))
	}
}

func TestExponential(t *testing.T) {
	s := Exponential(2*time.Second, 3.0)
	for i, expected := range []time.Duration{
		2 * time.Second,
		6 * time.Second,
		18 * time.Second,
		54 * time.Second,
	} {
		assert.Equal(t, expected, s(uint(i+1)))
	}

	// Attempt zero is treated as the first attempt
	assert.Equal(t, 2*time.Second, s(0))
}

func TestExponential_Saturates(t *testing.T) {
	s := BinaryExponential(time.Second)
	assert.Equal(t, time.Duration(math.MaxInt64), s(200))
}

func TestBinaryExponential(t *testing.T) {
	s := BinaryExponential(500 * time.Millisecond)
	assert.Equal(t, 500*time.Millisecond, s(1))
	assert.Equal(t, time.Second, s(2))
	assert.Equal(t, 8*time.Second, s(5))
}
