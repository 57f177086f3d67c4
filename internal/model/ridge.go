package model

import (
	"math"
	"sort"

	"github.com/bakesight/bakesight-server/internal/errors"
)

// parameters is the serialized form of a fitted model: ridge weights
// over standardized features, plus the imputation medians and scaling
// moments learned from the training rows. All slices follow the
// Features ordering.
type parameters struct {
	Features []string  `json:"features"`
	Weights  []float64 `json:"weights"`
	Bias     float64   `json:"bias"`
	Means    []float64 `json:"means"`
	Stds     []float64 `json:"stds"`
	Medians  []float64 `json:"medians"`
}

// fitRidge fits a ridge regression: median-impute missing values,
// standardize each column, then solve the regularized normal equations
// with a Cholesky factorization. The intercept is fitted unpenalized by
// centering the target.
func fitRidge(x [][]float64, y []float64, alpha float64) (*parameters, error) {
	n := len(x)
	if n == 0 || n != len(y) {
		return nil, errors.Validation("empty or mismatched training data")
	}
	p := len(x[0])

	medians := columnMedians(x)
	means, stds := columnMoments(x, medians)

	// Standardized design matrix.
	z := make([][]float64, n)
	for i, row := range x {
		zr := make([]float64, p)
		for j, v := range row {
			if math.IsNaN(v) {
				v = medians[j]
			}
			zr[j] = (v - means[j]) / stds[j]
		}
		z[i] = zr
	}

	var bias float64
	for _, v := range y {
		bias += v
	}
	bias /= float64(n)

	// Normal equations: (ZᵀZ + αI) w = Zᵀ(y − ȳ).
	a := make([][]float64, p)
	b := make([]float64, p)
	for j := range a {
		a[j] = make([]float64, p)
		a[j][j] = alpha
	}
	for i, zr := range z {
		yc := y[i] - bias
		for j := 0; j < p; j++ {
			b[j] += zr[j] * yc
			for k := j; k < p; k++ {
				a[j][k] += zr[j] * zr[k]
			}
		}
	}
	for j := 0; j < p; j++ {
		for k := 0; k < j; k++ {
			a[j][k] = a[k][j]
		}
	}

	weights, err := choleskySolve(a, b)
	if err != nil {
		return nil, err
	}

	return &parameters{
		Features: FeatureNames,
		Weights:  weights,
		Bias:     bias,
		Means:    means,
		Stds:     stds,
		Medians:  medians,
	}, nil
}

// predict applies the fitted model to one raw feature row, imputing and
// standardizing the same way training did.
func (p *parameters) predict(row []float64) float64 {
	yhat := p.Bias
	for j, v := range row {
		if math.IsNaN(v) {
			v = p.Medians[j]
		}
		yhat += p.Weights[j] * (v - p.Means[j]) / p.Stds[j]
	}
	return yhat
}

// columnMedians computes per-column medians ignoring NaN. An all-NaN
// column gets 0 so imputation stays defined.
func columnMedians(x [][]float64) []float64 {
	p := len(x[0])
	medians := make([]float64, p)
	vals := make([]float64, 0, len(x))
	for j := 0; j < p; j++ {
		vals = vals[:0]
		for _, row := range x {
			if !math.IsNaN(row[j]) {
				vals = append(vals, row[j])
			}
		}
		if len(vals) == 0 {
			continue
		}
		sort.Float64s(vals)
		mid := len(vals) / 2
		if len(vals)%2 == 1 {
			medians[j] = vals[mid]
		} else {
			medians[j] = (vals[mid-1] + vals[mid]) / 2
		}
	}
	return medians
}

// columnMoments computes the mean and standard deviation per column
// after imputation. Constant columns get std 1 so scaling never
// divides by zero.
func columnMoments(x [][]float64, medians []float64) (means, stds []float64) {
	n := float64(len(x))
	p := len(x[0])
	means = make([]float64, p)
	stds = make([]float64, p)

	for j := 0; j < p; j++ {
		var sum float64
		for _, row := range x {
			v := row[j]
			if math.IsNaN(v) {
				v = medians[j]
			}
			sum += v
		}
		means[j] = sum / n

		var sq float64
		for _, row := range x {
			v := row[j]
			if math.IsNaN(v) {
				v = medians[j]
			}
			d := v - means[j]
			sq += d * d
		}
		stds[j] = math.Sqrt(sq / n)
		if stds[j] == 0 {
			stds[j] = 1
		}
	}
	return means, stds
}

// choleskySolve solves a·w = b for a symmetric positive-definite a.
// The ridge penalty guarantees positive-definiteness for any design
// matrix, so a failure here indicates corrupt input.
func choleskySolve(a [][]float64, b []float64) ([]float64, error) {
	p := len(a)
	l := make([][]float64, p)
	for i := range l {
		l[i] = make([]float64, p)
	}

	for i := 0; i < p; i++ {
		for j := 0; j <= i; j++ {
			sum := a[i][j]
			for k := 0; k < j; k++ {
				sum -= l[i][k] * l[j][k]
			}
			if i == j {
				if sum <= 0 {
					return nil, errors.Internal("matrix not positive definite")
				}
				l[i][i] = math.Sqrt(sum)
			} else {
				l[i][j] = sum / l[j][j]
			}
		}
	}

	// Forward substitution: L·u = b.
	u := make([]float64, p)
	for i := 0; i < p; i++ {
		sum := b[i]
		for k := 0; k < i; k++ {
			sum -= l[i][k] * u[k]
		}
		u[i] = sum / l[i][i]
	}

	// Back substitution: Lᵀ·w = u.
	w := make([]float64, p)
	for i := p - 1; i >= 0; i-- {
		sum := u[i]
		for k := i + 1; k < p; k++ {
			sum -= l[k][i] * w[k]
		}
		w[i] = sum / l[i][i]
	}
	return w, nil
}
