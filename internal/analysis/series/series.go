// Package series holds index-aligned float series with explicit undefined
// positions. Outputs always have the length of their input.
package series

import "math"

// Float is an optional float64. The zero value is undefined.
type Float struct {
	v  float64
	ok bool
}

// Some treats NaN and ±Inf as undefined.
func Some(v float64) Float {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Float{}
	}
	return Float{v: v, ok: true}
}

func Undefined() Float { return Float{} }

func (f Float) Get() (float64, bool) { return f.v, f.ok }

func (f Float) Valid() bool { return f.ok }

func (f Float) Or(def float64) float64 {
	if !f.ok {
		return def
	}
	return f.v
}

// Series is an index-aligned sequence of optional values.
type Series []Float

func Of(values []float64) Series {
	out := make(Series, len(values))
	for i, v := range values {
		out[i] = Some(v)
	}
	return out
}

func New(n int) Series { return make(Series, n) }

func (s Series) At(i int) Float {
	if i < 0 || i >= len(s) {
		return Float{}
	}
	return s[i]
}

func (s Series) Last() Float { return s.At(len(s) - 1) }

// FirstValid returns the index of the first defined value or -1.
func (s Series) FirstValid() int {
	for i, f := range s {
		if f.ok {
			return i
		}
	}
	return -1
}

func (s Series) ValidCount() int {
	n := 0
	for _, f := range s {
		if f.ok {
			n++
		}
	}
	return n
}

// Values sets undefined positions to NaN.
func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, f := range s {
		if f.ok {
			out[i] = f.v
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

func (s Series) Map(fn func(float64) float64) Series {
	out := make(Series, len(s))
	for i, f := range s {
		if f.ok {
			out[i] = Some(fn(f.v))
		}
	}
	return out
}

// Zip combines two series position by position. The result is defined only
// where both inputs are defined and fn reports ok.
func Zip(a, b Series, fn func(x, y float64) (float64, bool)) Series {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make(Series, len(a))
	for i := 0; i < n; i++ {
		x, okx := a[i].Get()
		y, oky := b[i].Get()
		if !okx || !oky {
			continue
		}
		if v, ok := fn(x, y); ok {
			out[i] = Some(v)
		}
	}
	return out
}

func Sub(a, b Series) Series {
	return Zip(a, b, func(x, y float64) (float64, bool) { return x - y, true })
}

func Add(a, b Series) Series {
	return Zip(a, b, func(x, y float64) (float64, bool) { return x + y, true })
}

func Scale(s Series, k float64) Series {
	return s.Map(func(v float64) float64 { return v * k })
}

// CrossOver reports a strict upward cross of a over b at i: a>b at i and a<=b at i-1.
func CrossOver(a, b Series, i int) bool {
	a0, ok0 := a.At(i).Get()
	b0, ok1 := b.At(i).Get()
	a1, ok2 := a.At(i - 1).Get()
	b1, ok3 := b.At(i - 1).Get()
	if !(ok0 && ok1 && ok2 && ok3) {
		return false
	}
	return a0 > b0 && a1 <= b1
}

func CrossUnder(a, b Series, i int) bool {
	a0, ok0 := a.At(i).Get()
	b0, ok1 := b.At(i).Get()
	a1, ok2 := a.At(i - 1).Get()
	b1, ok3 := b.At(i - 1).Get()
	if !(ok0 && ok1 && ok2 && ok3) {
		return false
	}
	return a0 < b0 && a1 >= b1
}
