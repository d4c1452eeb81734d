package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeMetricItem struct {
	value string
}

func (f *fakeMetricItem) JSONString() string { return f.value }

func TestRegisterThenSnapshot(t *testing.T) {
	r := NewReporter()
	assert.NoError(t, r.Register("consensus", &fakeMetricItem{value: `{"x":1}`}))

	snap := r.Snapshot()
	assert.Equal(t, `{"x":1}`, snap["consensus"])
}

func TestRegisterRejectsDuplicateLabel(t *testing.T) {
	r := NewReporter()
	assert.NoError(t, r.Register("dht", &fakeMetricItem{value: "a"}))
	assert.Error(t, r.Register("dht", &fakeMetricItem{value: "b"}))
}

func TestStringRendersSnapshot(t *testing.T) {
	r := NewReporter()
	assert.NoError(t, r.Register("x", &fakeMetricItem{value: "1"}))
	assert.Contains(t, r.String(), "x")
}
