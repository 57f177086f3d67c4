package model

import "math"

const (
	// cvMinSamples is the history length below which cross-validation
	// is skipped and no error estimate is stored.
	cvMinSamples = 30
	// cvMinTrain is the smallest training prefix a fold may use.
	cvMinTrain = 10
	// cvSplits is the number of rolling-origin folds, with training
	// fractions spread evenly between cvFirstFrac and cvLastFrac.
	cvSplits    = 3
	cvFirstFrac = 0.6
	cvLastFrac  = 0.9
)

// crossValidate estimates out-of-sample MAPE with rolling-origin folds:
// fit on a chronological prefix, score on the remainder, repeat with a
// growing prefix. Returns nil when the history is too short to judge.
func crossValidate(x [][]float64, y []float64, alpha float64) *float64 {
	n := len(y)
	if n < cvMinSamples {
		return nil
	}

	var sum float64
	folds := 0
	for s := 0; s < cvSplits; s++ {
		frac := cvFirstFrac + (cvLastFrac-cvFirstFrac)*float64(s)/float64(cvSplits-1)
		k := int(float64(n) * frac)
		if k < cvMinTrain || k >= n {
			continue
		}

		params, err := fitRidge(x[:k], y[:k], alpha)
		if err != nil {
			continue
		}
		sum += mape(params, x[k:], y[k:])
		folds++
	}
	if folds == 0 {
		return nil
	}

	err := sum / float64(folds)
	return &err
}

// mape is the mean absolute percentage error, with zero actuals scored
// against a denominator of 1 so a single zero day cannot blow it up.
func mape(params *parameters, x [][]float64, y []float64) float64 {
	var sum float64
	for i, row := range x {
		denom := y[i]
		if denom == 0 {
			denom = 1
		}
		sum += math.Abs(y[i]-params.predict(row)) / math.Abs(denom)
	}
	return sum / float64(len(y))
}
