package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLTimeModWrapsPositively(t *testing.T) {
	assert.Equal(t, 2, LTime(5).Mod(3))
	assert.Equal(t, 1, LTime(-2).Mod(3))
	assert.Equal(t, 0, LTime(5).Mod(0))
}

func TestLTimeEqualAndGreater(t *testing.T) {
	a := LTime(5)
	b := LTime(5)
	c := LTime(6)
	assert.True(t, a.Equal(b))
	assert.True(t, c.Greater(a))
	assert.False(t, a.Greater(c))
}

func TestLTimeSubAndUpdate(t *testing.T) {
	a := LTime(10)
	b := LTime(4)
	assert.Equal(t, 6, a.Sub(b))
	assert.Equal(t, LTime(13), a.Update(3))
}

func TestLTimeInt64(t *testing.T) {
	assert.Equal(t, int64(42), LTime(42).Int64())
}
