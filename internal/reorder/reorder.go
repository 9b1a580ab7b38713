// Package reorder implements single-element array moves for drag-and-drop lists.
// It holds no state between calls and does no I/O; callers persist the result.
package reorder

import "math"

// DefaultActivationDistance is the pointer travel, in pixels, before a press becomes a drag.
const DefaultActivationDistance = 8

// Move removes the element at from and inserts it at to. The input is not modified.
// Out-of-range or equal indexes return an unchanged copy and false.
func Move[T any](items []T, from, to int) ([]T, bool) {
	out := make([]T, len(items))
	copy(out, items)
	if from == to || from < 0 || to < 0 || from >= len(items) || to >= len(items) {
		return out, false
	}
	moved := out[from]
	if from < to {
		copy(out[from:to], out[from+1:to+1])
	} else {
		copy(out[to+1:from+1], out[to:from])
	}
	out[to] = moved
	return out, true
}

// MoveKey moves active to the slot currently held by over.
// A nil over (released outside any slot), over == active, or an unknown key is a no-op.
func MoveKey[K comparable](keys []K, active K, over *K) ([]K, bool) {
	if over == nil || *over == active {
		return append([]K(nil), keys...), false
	}
	from, to := indexOf(keys, active), indexOf(keys, *over)
	if from < 0 || to < 0 {
		return append([]K(nil), keys...), false
	}
	return Move(keys, from, to)
}

// Restamp calls set(item, i) for every item in sequence, producing ranks 0..N-1.
func Restamp[T any](items []T, set func(item *T, rank int)) {
	for i := range items {
		set(&items[i], i)
	}
}

func indexOf[K comparable](keys []K, k K) int {
	for i, v := range keys {
		if v == k {
			return i
		}
	}
	return -1
}

// Sensor decides whether a pointer gesture is a click or a drag.
type Sensor struct {
	ActivationDistance float64
}

// NewSensor returns a sensor with the given threshold; non-positive values use the default.
func NewSensor(distance float64) Sensor {
	if distance <= 0 {
		distance = DefaultActivationDistance
	}
	return Sensor{ActivationDistance: distance}
}

// IsDrag reports whether pointer travel (dx, dy) reaches the activation distance.
func (s Sensor) IsDrag(dx, dy float64) bool {
	return math.Hypot(dx, dy) >= s.ActivationDistance
}

// Gesture is a completed pointer gesture over a sortable list.
type Gesture[K comparable] struct {
	Active K
	Over   *K
	DX, DY float64
}

// Outcome is the result of resolving a gesture against a list.
type Outcome[K comparable] struct {
	Keys    []K
	Moved   bool
	Clicked bool
}

// Resolve applies g to keys: below the sensor's activation distance it is a click on
// Active, otherwise a drop of Active onto Over.
func Resolve[K comparable](s Sensor, keys []K, g Gesture[K]) Outcome[K] {
	if !s.IsDrag(g.DX, g.DY) {
		return Outcome[K]{Keys: append([]K(nil), keys...), Clicked: true}
	}
	next, moved := MoveKey(keys, g.Active, g.Over)
	return Outcome[K]{Keys: next, Moved: moved}
}
