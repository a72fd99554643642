package domain

// IntRange is an inclusive range; a nil bound is open
type IntRange struct {
	Min *int
	Max *int
}

// Contains reports whether v is inside r
func (r IntRange) Contains(v int) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// FloatRange is an inclusive range; a nil bound is open
type FloatRange struct {
	Min *float64
	Max *float64
}

// Contains reports whether v is inside r
func (r FloatRange) Contains(v float64) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// FilterSpec narrows a ranked feed. Every clause is optional; a nil or empty clause passes.
type FilterSpec struct {
	Age           *IntRange
	HeightCm      *IntRange
	Intents       []string
	MaxDistanceKm *float64
	Occupations   []string
	Completeness  *FloatRange
	MatchScore    *FloatRange
}

// IsZero reports whether no clause is set
func (f FilterSpec) IsZero() bool {
	return f.Age == nil && f.HeightCm == nil && len(f.Intents) == 0 && f.MaxDistanceKm == nil &&
		len(f.Occupations) == 0 && f.Completeness == nil && f.MatchScore == nil
}
