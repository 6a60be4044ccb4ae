package ftl

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/byu9/fuzzy-forecast/golang/fuzzy_tree/metrics"
)

//BestSplit contains results of the split selection algorithm.
type BestSplit struct {
	bestValue                       float64 // impurity of the left part plus impurity of the right part
	featureIndex, orderIndex        int     // orderIndex is the number of rows going left
	threshold                       float64
	leftPrediction, rightPrediction float64
	leftImpurity, rightImpurity     float64
	gap, reach                      float64
	validSplit                      bool
}

//candidate is a threshold between two consecutive distinct values of a sorted column.
type candidate struct {
	threshold float64
	leftCount int
}

//candidates lists the midpoints between consecutive distinct values of sortedValues
//that leave at least minSamples values on both sides.
func candidates(sortedValues []float64, minSamples int) []candidate {
	h := len(sortedValues)
	var result []candidate
	for hInd := 0; hInd < h-1; hInd++ {
		for ; hInd < h-1 && sortedValues[hInd] == sortedValues[hInd+1]; hInd++ {
		}
		if hInd == h-1 {
			break
		}
		leftCount := hInd + 1
		if leftCount < minSamples || h-leftCount < minSamples {
			continue
		}
		lower, upper := sortedValues[hInd], sortedValues[hInd+1]
		threshold := (lower + upper) / 2
		if threshold >= upper {
			// adjacent floats: the midpoint rounds up, keep the partition a prefix
			threshold = lower
		}
		result = append(result, candidate{threshold: threshold, leftCount: leftCount})
	}
	return result
}

//CandidateSplits returns the thresholds the split search tries for a column of values.
func CandidateSplits(values []float64, minSamples int) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	var thresholds []float64
	for _, c := range candidates(sorted, minSamples) {
		thresholds = append(thresholds, c.threshold)
	}
	return thresholds
}

//columnArgsort returns the row order that sorts a column, equal values keep their row order.
func columnArgsort(column mat.Vector) []int {
	h := column.Len()
	order := make([]int, h)
	for p := range order {
		order[p] = p
	}
	sort.SliceStable(order, func(i, j int) bool {
		return column.AtVec(order[i]) < column.AtVec(order[j])
	})
	return order
}

//scanForSplit argsorts a feature column and evaluates every candidate threshold of it.
//Both sides of a candidate keep the original row order, so the sums match a plain
//partition of the rows. The first candidate reaching the strict minimum wins.
func scanForSplit(fm FMatrix, q, minSamples int, impurity metrics.Impurity) (bestSplit BestSplit, err error) {
	order := columnArgsort(fm.Features.ColView(q))
	h := len(order)

	sortedValues := make([]float64, h)
	rank := make([]int, h)
	for ind, p := range order {
		sortedValues[ind] = fm.Features.At(p, q)
		rank[p] = ind
	}
	target := vecData(fm.Target)
	left, right := make([]float64, 0, h), make([]float64, 0, h)

	bestSplit.featureIndex = q
	for _, c := range candidates(sortedValues, minSamples) {
		left, right = left[:0], right[:0]
		for p, value := range target {
			if rank[p] < c.leftCount {
				left = append(left, value)
			} else {
				right = append(right, value)
			}
		}
		leftPrediction, rightPrediction := stat.Mean(left, nil), stat.Mean(right, nil)
		leftImpurity, rightImpurity := impurity(leftPrediction, left), impurity(rightPrediction, right)
		currentValue := leftImpurity + rightImpurity
		if math.IsNaN(currentValue) {
			return bestSplit, errors.Wrapf(ErrInvalidParameter, "impurity is NaN for feature %d at %g", q, c.threshold)
		}

		if !bestSplit.validSplit || currentValue < bestSplit.bestValue {
			bestSplit.validSplit = true
			bestSplit.bestValue = currentValue
			bestSplit.threshold = c.threshold
			bestSplit.orderIndex = c.leftCount
			bestSplit.leftPrediction, bestSplit.rightPrediction = leftPrediction, rightPrediction
			bestSplit.leftImpurity, bestSplit.rightImpurity = leftImpurity, rightImpurity
			bestSplit.gap = c.threshold - sortedValues[c.leftCount-1]
			bestSplit.reach = math.Min(sortedValues[h-1]-c.threshold, c.threshold-sortedValues[0])
		}
	}
	return bestSplit, nil
}

//TheBestSplit finds the best possible split of the given data set or returns nil when no
//column has a candidate. Columns are scanned on up to threadsNum goroutines; the winner is
//picked in column order, so the result does not depend on threadsNum.
func TheBestSplit(fm FMatrix, minSamples int, impurity metrics.Impurity, threadsNum int) (*BestSplit, error) {
	_, w := fm.Features.Dims()
	result := make([]BestSplit, w)

	if threadsNum <= 1 {
		for q := 0; q < w; q++ {
			split, err := scanForSplit(fm, q, minSamples, impurity)
			if err != nil {
				return nil, err
			}
			result[q] = split
		}
	} else {
		var g errgroup.Group
		g.SetLimit(threadsNum)
		for q := 0; q < w; q++ {
			g.Go(func() (err error) {
				result[q], err = scanForSplit(fm, q, minSamples, impurity)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	bestIndex := -1
	for ind, currentSplit := range result {
		if currentSplit.validSplit && (bestIndex == -1 || currentSplit.bestValue < result[bestIndex].bestValue) {
			bestIndex = ind
		}
	}

	if bestIndex == -1 {
		return nil, nil
	}
	return &result[bestIndex], nil
}
