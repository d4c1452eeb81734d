package types

// LTime is a slot number: a pure function of wall-clock time under the slot
// clock's epoch and slot length. Equality of LTime values is the "same
// round" predicate used throughout consensus.
type LTime int64

const (
	LtimeZero = LTime(0)
)

func (t LTime) Update(delta int) LTime {
	cur := int64(t)
	return LTime(cur + int64(delta))
}

// Mod returns the slot's position within a ring of size n, used to pick the
// elected delegate out of the active set.
func (t LTime) Mod(n int) int {
	if n <= 0 {
		return 0
	}
	m := int64(t) % int64(n)
	if m < 0 {
		m += int64(n)
	}
	return int(m)
}

func (t LTime) Equal(other LTime) bool {
	return t == other
}

func (t LTime) Greater(other LTime) bool {
	return t > other
}

func (t LTime) Sub(other LTime) int {
	return int(t - other)
}

func (t LTime) Int64() int64 {
	return int64(t)
}
