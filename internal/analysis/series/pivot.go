package series

type PivotKind string

const (
	PivotHigh PivotKind = "high"
	PivotLow  PivotKind = "low"
)

// Pivot is a local extremum over a symmetric window.
type Pivot struct {
	Index int       `json:"index"`
	Value float64   `json:"value"`
	Kind  PivotKind `json:"kind"`
}

// IsPivotHigh reports whether s[i] is strictly greater than its left and right
// neighbours. Ties, undefined values and positions without full context are
// not pivots.
func IsPivotHigh(s Series, i, left, right int) bool {
	return isPivot(s, i, left, right, func(center, v float64) bool { return v < center })
}

func IsPivotLow(s Series, i, left, right int) bool {
	return isPivot(s, i, left, right, func(center, v float64) bool { return v > center })
}

func isPivot(s Series, i, left, right int, dominated func(center, v float64) bool) bool {
	if left < 0 || right < 0 || i-left < 0 || i+right >= len(s) {
		return false
	}
	center, ok := s[i].Get()
	if !ok {
		return false
	}
	for j := i - left; j <= i+right; j++ {
		if j == i {
			continue
		}
		v, ok := s[j].Get()
		if !ok || !dominated(center, v) {
			return false
		}
	}
	return true
}

func PivotHighs(s Series, left, right int) []Pivot {
	return collectPivots(s, left, right, PivotHigh)
}

func PivotLows(s Series, left, right int) []Pivot {
	return collectPivots(s, left, right, PivotLow)
}

func collectPivots(s Series, left, right int, kind PivotKind) []Pivot {
	var out []Pivot
	for i := left; i+right < len(s); i++ {
		var hit bool
		if kind == PivotHigh {
			hit = IsPivotHigh(s, i, left, right)
		} else {
			hit = IsPivotLow(s, i, left, right)
		}
		if hit {
			out = append(out, Pivot{Index: i, Value: s[i].v, Kind: kind})
		}
	}
	return out
}
