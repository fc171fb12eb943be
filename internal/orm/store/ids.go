package store

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/google/uuid"
)

// NormalizeID converts v into the canonical form used as a record key.
// Integral numbers of any Go numeric type become int64, other finite numbers
// float64 and strings are kept as they are. Anything else is not an id.
func NormalizeID(v any) (any, bool) {
	switch id := v.(type) {
	case string:
		return id, true
	case int:
		return int64(id), true
	case int8:
		return int64(id), true
	case int16:
		return int64(id), true
	case int32:
		return int64(id), true
	case int64:
		return id, true
	case uint:
		return normalizeUint(uint64(id))
	case uint8:
		return int64(id), true
	case uint16:
		return int64(id), true
	case uint32:
		return int64(id), true
	case uint64:
		return normalizeUint(id)
	case float32:
		return normalizeFloat(float64(id))
	case float64:
		return normalizeFloat(id)
	case json.Number:
		if i, err := id.Int64(); err == nil {
			return i, true
		}
		f, err := id.Float64()
		if err != nil {
			return nil, false
		}
		return normalizeFloat(f)
	}
	return nil, false
}

func normalizeUint(u uint64) (any, bool) {
	if u > math.MaxInt64 {
		return float64(u), true
	}
	return int64(u), true
}

func normalizeFloat(f float64) (any, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return int64(f), true
	}
	return f, true
}

// ParseID turns a textual id, e.g. from a URL, into a record key: integers
// and floats are parsed, everything else stays a string.
func ParseID(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if id, ok := normalizeFloat(f); ok {
			return id
		}
	}
	return s
}

// IDGenerator assigns ids to records created without one
type IDGenerator interface {
	NextID(model string) any
}

// CounterGenerator produces "<model>_<n>" ids from a per-model counter
type CounterGenerator struct {
	counters map[string]int
}

// NewCounterGenerator creates a generator whose counters all start at 1
func NewCounterGenerator() *CounterGenerator {
	return &CounterGenerator{counters: make(map[string]int)}
}

// NextID returns the next id for model
func (g *CounterGenerator) NextID(model string) any {
	g.counters[model]++
	return fmt.Sprintf("%s_%d", model, g.counters[model])
}

// UUIDGenerator produces random UUID strings
type UUIDGenerator struct{}

// NextID returns a new random UUID
func (UUIDGenerator) NextID(string) any {
	return uuid.NewString()
}
