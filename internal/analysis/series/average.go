package series

import (
	"math"

	talib "github.com/markcheno/go-talib"
)

func SMA(src Series, period int) Series {
	if period <= 0 {
		return New(len(src))
	}
	return byRuns(src, period, period-1, func(v []float64) []float64 { return talib.Sma(v, period) })
}

// EMA uses the multiplier 2/(p+1). The first value of every defined run is
// seeded with the SMA of that run's first p values; an undefined input resets
// the seed, which lets EMAs be chained over series with leading gaps.
func EMA(src Series, period int) Series {
	k := 2.0 / float64(period+1)
	return smooth(src, period, func(prev, x float64) float64 {
		return (x-prev)*k + prev
	})
}

func Wilder(src Series, period int) Series {
	p := float64(period)
	return smooth(src, period, func(prev, x float64) float64 {
		return (prev*(p-1) + x) / p
	})
}

func smooth(src Series, period int, step func(prev, x float64) float64) Series {
	out := New(len(src))
	if period <= 0 {
		return out
	}
	var (
		run    int
		sum    float64
		prev   float64
		seeded bool
	)
	for i, f := range src {
		v, ok := f.Get()
		if !ok {
			run, sum, seeded = 0, 0, false
			continue
		}
		if seeded {
			prev = step(prev, v)
			out[i] = Some(prev)
			continue
		}
		run++
		sum += v
		if run == period {
			prev = sum / float64(period)
			seeded = true
			out[i] = Some(prev)
		}
	}
	return out
}

func WMA(src Series, period int) Series {
	out := New(len(src))
	if period <= 0 {
		return out
	}
	norm := float64(period*(period+1)) / 2
	for i := period - 1; i < len(src); i++ {
		sum := 0.0
		valid := true
		for j := 0; j < period; j++ {
			v, ok := src[i-period+1+j].Get()
			if !ok {
				valid = false
				break
			}
			sum += v * float64(j+1)
		}
		if valid {
			out[i] = Some(sum / norm)
		}
	}
	return out
}

// StdDev is the population standard deviation of the trailing window.
func StdDev(src Series, period int) Series {
	if period <= 0 {
		return New(len(src))
	}
	return byRuns(src, period, period-1, func(v []float64) []float64 { return talib.StdDev(v, period, 1) })
}

type Bands struct {
	Upper  Series
	Middle Series
	Lower  Series
	Dev    Series
}

func Bollinger(src Series, period int, mult float64) Bands {
	mid := SMA(src, period)
	dev := StdDev(src, period)
	width := Scale(dev, mult)
	return Bands{
		Upper:  Add(mid, width),
		Middle: mid,
		Lower:  Sub(mid, width),
		Dev:    dev,
	}
}

// ROC is the percent rate of change over period bars; undefined when the base
// value is zero.
func ROC(src Series, period int) Series {
	out := New(len(src))
	if period <= 0 {
		return out
	}
	for i := period; i < len(src); i++ {
		cur, ok1 := src[i].Get()
		base, ok2 := src[i-period].Get()
		if !ok1 || !ok2 || base == 0 {
			continue
		}
		out[i] = Some((cur - base) / base * 100)
	}
	return out
}

// RSI uses Wilder-smoothed gains and losses of consecutive differences. It is
// exactly 100 whenever the average loss is zero.
func RSI(src Series, period int) Series {
	n := len(src)
	gains := New(n)
	losses := New(n)
	for i := 1; i < n; i++ {
		cur, ok1 := src[i].Get()
		prev, ok2 := src[i-1].Get()
		if !ok1 || !ok2 {
			continue
		}
		d := cur - prev
		gains[i] = Some(math.Max(d, 0))
		losses[i] = Some(math.Max(-d, 0))
	}
	return ratioOscillator(Wilder(gains, period), Wilder(losses, period))
}

// ratioOscillator maps smoothed up/down averages onto 0..100, saturating at
// 100 when the down side is zero.
func ratioOscillator(up, down Series) Series {
	return Zip(up, down, func(u, d float64) (float64, bool) {
		if d == 0 {
			return 100, true
		}
		return 100 - 100/(1+u/d), true
	})
}
