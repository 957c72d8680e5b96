package forecast

import (
	"fmt"
	"math"
)

// Order is the SARIMA model order (p,d,q)x(P,D,Q)m.
type Order struct {
	P, D, Q    int // non-seasonal AR, differencing, MA
	SP, SD, SQ int // seasonal AR, differencing, MA
	Period     int // seasonal period in months
}

// DefaultOrder is the fixed model order used across all regions:
// one regular and one seasonal difference, AR(1), MA(1), and a
// seasonal MA(1) at period 12. A fixed order keeps the batch
// deterministic; there is no per-region order search.
func DefaultOrder() Order {
	return Order{P: 1, D: 1, Q: 1, SP: 0, SD: 1, SQ: 1, Period: 12}
}

func (o Order) String() string {
	return fmt.Sprintf("(%d,%d,%d)(%d,%d,%d)%d", o.P, o.D, o.Q, o.SP, o.SD, o.SQ, o.Period)
}

// model holds a fitted SARIMA model. Fitting uses conditional sum of
// squares with momentum gradient descent. Stationarity and
// invertibility are not enforced; coefficients are only bounded far
// outside the unit circle to keep the recursions finite.
type model struct {
	order     Order
	original  []float64
	diffed    []float64
	intercept float64
	ar        []float64
	ma        []float64
	sar       []float64
	sma       []float64
	residuals []float64
	variance  float64
}

const (
	fitMaxIter      = 200
	fitTolerance    = 1e-8
	fitLearningRate = 0.005
	fitMomentum     = 0.9
	fitDecay        = 0.99
	fitPatience     = 20
	coeffBound      = 8.0
)

// fitModel fits a SARIMA model to a dense (gap-free) value sequence.
func fitModel(values []float64, order Order) (*model, error) {
	m := &model{
		order:    order,
		original: values,
		ar:       make([]float64, order.P),
		ma:       make([]float64, order.Q),
		sar:      make([]float64, order.SP),
		sma:      make([]float64, order.SQ),
	}

	diffed := values
	for i := 0; i < order.D; i++ {
		diffed = diff(diffed, 1)
	}
	for i := 0; i < order.SD; i++ {
		diffed = diff(diffed, order.Period)
	}
	if len(diffed) == 0 {
		return nil, fmt.Errorf("differencing consumed the entire series")
	}
	m.diffed = diffed

	m.intercept = mean(diffed)

	// Initialize AR coefficients from the autocorrelation function;
	// MA terms start at a small positive value.
	if order.P > 0 {
		acorr := acf(diffed, order.P)
		for i := 0; i < order.P && i+1 < len(acorr); i++ {
			m.ar[i] = acorr[i+1] * 0.5
		}
	}
	if order.SP > 0 {
		acorr := acf(diffed, order.SP*order.Period)
		for i := 0; i < order.SP; i++ {
			if idx := (i + 1) * order.Period; idx < len(acorr) {
				m.sar[i] = acorr[idx] * 0.5
			}
		}
	}
	for i := range m.ma {
		m.ma[i] = 0.1
	}
	for i := range m.sma {
		m.sma[i] = 0.1
	}

	if err := m.optimize(); err != nil {
		return nil, err
	}
	return m, nil
}

// optimize runs the CSS gradient descent with momentum, keeping the
// best coefficient set seen.
func (m *model) optimize() error {
	y := m.diffed
	n := len(y)
	o := m.order

	startIdx := o.P
	if o.Q > startIdx {
		startIdx = o.Q
	}
	if s := o.SP * o.Period; s > startIdx {
		startIdx = s
	}
	if s := o.SQ * o.Period; s > startIdx {
		startIdx = s
	}
	if startIdx >= n-10 {
		startIdx = 0
	}

	arVel := make([]float64, o.P)
	maVel := make([]float64, o.Q)
	sarVel := make([]float64, o.SP)
	smaVel := make([]float64, o.SQ)

	bestSSE := math.Inf(1)
	bestAR := make([]float64, o.P)
	bestMA := make([]float64, o.Q)
	bestSAR := make([]float64, o.SP)
	bestSMA := make([]float64, o.SQ)
	stale := 0

	lr := fitLearningRate
	residuals := make([]float64, n)

	for iter := 0; iter < fitMaxIter; iter++ {
		sse := 0.0
		for t := startIdx; t < n; t++ {
			residuals[t] = y[t] - m.predictOne(y, residuals, t, n)
			sse += residuals[t] * residuals[t]
		}

		if math.IsNaN(sse) || math.IsInf(sse, 0) {
			return fmt.Errorf("conditional sum of squares diverged at iteration %d", iter)
		}

		if sse < bestSSE {
			bestSSE = sse
			copy(bestAR, m.ar)
			copy(bestMA, m.ma)
			copy(bestSAR, m.sar)
			copy(bestSMA, m.sma)
			stale = 0
		} else {
			stale++
		}
		if stale > fitPatience {
			break
		}

		arGrad := make([]float64, o.P)
		maGrad := make([]float64, o.Q)
		sarGrad := make([]float64, o.SP)
		smaGrad := make([]float64, o.SQ)

		for t := startIdx; t < n; t++ {
			for i := 0; i < o.P && t-i-1 >= 0; i++ {
				arGrad[i] -= 2 * residuals[t] * (y[t-i-1] - m.intercept)
			}
			for i := 0; i < o.SP; i++ {
				if lag := (i + 1) * o.Period; t-lag >= 0 {
					sarGrad[i] -= 2 * residuals[t] * (y[t-lag] - m.intercept)
				}
			}
			for i := 0; i < o.Q && t-i-1 >= 0; i++ {
				maGrad[i] -= 2 * residuals[t] * residuals[t-i-1]
			}
			for i := 0; i < o.SQ; i++ {
				if lag := (i + 1) * o.Period; t-lag >= 0 {
					smaGrad[i] -= 2 * residuals[t] * residuals[t-lag]
				}
			}
		}

		step := func(coeffs, vel, grad []float64) {
			for i := range coeffs {
				vel[i] = fitMomentum*vel[i] + lr*grad[i]/float64(n)
				coeffs[i] -= vel[i]
				coeffs[i] = clamp(coeffs[i], -coeffBound, coeffBound)
			}
		}
		step(m.ar, arVel, arGrad)
		step(m.sar, sarVel, sarGrad)
		step(m.ma, maVel, maGrad)
		step(m.sma, smaVel, smaGrad)

		lr *= fitDecay

		if iter > 0 && math.Abs(sse-bestSSE) < fitTolerance {
			break
		}
	}

	copy(m.ar, bestAR)
	copy(m.ma, bestMA)
	copy(m.sar, bestSAR)
	copy(m.sma, bestSMA)

	// Final residual pass over the full differenced series.
	m.residuals = make([]float64, n)
	for t := 0; t < n; t++ {
		m.residuals[t] = y[t] - m.predictOne(y, m.residuals, t, n)
	}

	sse := 0.0
	count := 0
	for t := startIdx; t < n; t++ {
		sse += m.residuals[t] * m.residuals[t]
		count++
	}
	numParams := o.P + o.Q + o.SP + o.SQ + 1
	if count > numParams {
		m.variance = sse / float64(count-numParams)
	} else if count > 0 {
		m.variance = sse / float64(count)
	}

	if math.IsNaN(m.variance) || math.IsInf(m.variance, 0) {
		return fmt.Errorf("residual variance is not finite")
	}
	return nil
}

// predictOne computes the one-step CSS prediction at index t on the
// differenced scale. Residuals at or beyond horizon index n are
// unobserved and contribute zero.
func (m *model) predictOne(y, residuals []float64, t, n int) float64 {
	o := m.order
	pred := m.intercept

	for i := 0; i < o.P && t-i-1 >= 0; i++ {
		pred += m.ar[i] * (y[t-i-1] - m.intercept)
	}
	for i := 0; i < o.SP; i++ {
		if lag := (i + 1) * o.Period; t-lag >= 0 {
			pred += m.sar[i] * (y[t-lag] - m.intercept)
		}
	}
	for i := 0; i < o.Q && t-i-1 >= 0 && t-i-1 < n; i++ {
		pred += m.ma[i] * residuals[t-i-1]
	}
	for i := 0; i < o.SQ; i++ {
		if lag := (i + 1) * o.Period; t-lag >= 0 && t-lag < n {
			pred += m.sma[i] * residuals[t-lag]
		}
	}
	return pred
}

// predict generates point forecasts with two-sided prediction bounds at
// the given confidence level, on the original scale.
func (m *model) predict(steps int, confidence float64) (means, lower, upper []float64, err error) {
	if steps < 1 {
		return nil, nil, nil, fmt.Errorf("steps must be at least 1")
	}

	n := len(m.diffed)
	extY := make([]float64, n+steps)
	copy(extY, m.diffed)
	extResiduals := make([]float64, n+steps)
	copy(extResiduals, m.residuals)

	for h := 0; h < steps; h++ {
		t := n + h
		extY[t] = m.predictOne(extY, extResiduals, t, n)
		extResiduals[t] = 0
	}

	means = m.integrate(extY[n:])

	// Interval width grows with horizon: sqrt(h+1) per regular
	// difference, sqrt(cycles) per seasonal difference.
	z := normalQuantile((1 + confidence) / 2)
	lower = make([]float64, steps)
	upper = make([]float64, steps)
	for h := 0; h < steps; h++ {
		se := math.Sqrt(m.variance)
		if m.order.D > 0 {
			se *= math.Sqrt(float64(h + 1))
		}
		if m.order.SD > 0 && m.order.Period > 0 {
			se *= math.Sqrt(float64(h/m.order.Period + 1))
		}
		lower[h] = means[h] - z*se
		upper[h] = means[h] + z*se

		if math.IsNaN(means[h]) || math.IsInf(means[h], 0) {
			return nil, nil, nil, fmt.Errorf("forecast at step %d is not finite", h+1)
		}
	}

	return means, lower, upper, nil
}

// integrate undoes the differencing applied in fitModel: seasonal
// integration first (using the tail of the non-seasonally differenced
// history), then cumulative sums from the last observed level.
func (m *model) integrate(forecasts []float64) []float64 {
	o := m.order
	result := make([]float64, len(forecasts))
	copy(result, forecasts)

	nonSeasonal := m.original
	for i := 0; i < o.D; i++ {
		if len(nonSeasonal) <= 1 {
			break
		}
		nonSeasonal = diff(nonSeasonal, 1)
	}

	if o.SD > 0 && o.Period > 0 {
		nDiff := len(nonSeasonal)
		for i := 0; i < o.SD; i++ {
			for j := range result {
				if j < o.Period {
					if idx := nDiff - o.Period + j; idx >= 0 && idx < nDiff {
						result[j] += nonSeasonal[idx]
					}
				} else {
					result[j] += result[j-o.Period]
				}
			}
		}
	}

	for i := 0; i < o.D; i++ {
		last := m.original[len(m.original)-1]
		for j := range result {
			if j == 0 {
				result[j] += last
			} else {
				result[j] += result[j-1]
			}
		}
	}

	return result
}

func diff(values []float64, lag int) []float64 {
	if len(values) <= lag {
		return nil
	}
	out := make([]float64, len(values)-lag)
	for i := lag; i < len(values); i++ {
		out[i-lag] = values[i] - values[i-lag]
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// acf returns autocorrelations at lags 0..maxLag.
func acf(values []float64, maxLag int) []float64 {
	n := len(values)
	out := make([]float64, maxLag+1)
	if n == 0 {
		return out
	}

	mu := mean(values)
	denom := 0.0
	for _, v := range values {
		denom += (v - mu) * (v - mu)
	}
	if denom == 0 {
		return out
	}

	for lag := 0; lag <= maxLag && lag < n; lag++ {
		num := 0.0
		for t := lag; t < n; t++ {
			num += (values[t] - mu) * (values[t-lag] - mu)
		}
		out[lag] = num / denom
	}
	return out
}

// normalQuantile is the Abramowitz-Stegun rational approximation of
// the standard normal quantile function.
func normalQuantile(p float64) float64 {
	if p <= 0 || p >= 1 {
		return 0
	}
	if p < 0.5 {
		return -normalQuantile(1 - p)
	}

	t := math.Sqrt(-2 * math.Log(1-p))
	c0, c1, c2 := 2.515517, 0.802853, 0.010328
	d1, d2, d3 := 1.432788, 0.189269, 0.001308
	return t - (c0+c1*t+c2*t*t)/(1+d1*t+d2*t*t+d3*t*t*t)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
