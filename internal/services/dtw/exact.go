// Package dtw computes dynamic time warping distances between multivariate
// feature sequences, exactly or with the FastDTW multi-resolution
// approximation.
package dtw

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"ShapeFinder/internal/domain/models"
)

// Coord is one cell (i into the first sequence, j into the second) of a warping path.
type Coord struct {
	I, J int
}

// Path is a monotone warping path from (0,0) to (n-1,m-1).
type Path []Coord

// cost is the Euclidean distance between two feature vectors.
func cost(a, b *models.FeatureVector) float64 {
	return floats.Distance(a[:], b[:], 2)
}

func checkInputs(a, b models.FeatureSequence) error {
	if len(a) == 0 || len(b) == 0 {
		return fmt.Errorf("%w: lengths %d and %d", models.ErrEmptySequence, len(a), len(b))
	}
	return nil
}

// Distance is the exact DTW distance. It keeps two rows of the cumulative cost
// matrix, so memory is O(len(b)).
func Distance(a, b models.FeatureSequence) (float64, error) {
	if err := checkInputs(a, b); err != nil {
		return 0, err
	}
	m := len(b)
	prev := make([]float64, m)
	cur := make([]float64, m)
	for i := range a {
		for j := range b {
			c := cost(&a[i], &b[j])
			switch {
			case i == 0 && j == 0:
				cur[j] = c
			case i == 0:
				cur[j] = c + cur[j-1]
			case j == 0:
				cur[j] = c + prev[j]
			default:
				cur[j] = c + min(prev[j], cur[j-1], prev[j-1])
			}
		}
		prev, cur = cur, prev
	}
	return prev[m-1], nil
}

// DistanceWithPath is the exact DTW distance plus the optimal warping path.
// It stores the full matrix.
func DistanceWithPath(a, b models.FeatureSequence) (float64, Path, error) {
	if err := checkInputs(a, b); err != nil {
		return 0, nil, err
	}
	d, p := solve(a, b, fullWindow(len(a), len(b)))
	return d, p, nil
}

// window limits the DP to the columns [lo[i], hi[i]] of each row i. Rows must
// be non-empty, monotone and connected to the previous row.
type window struct {
	lo, hi []int
}

func fullWindow(n, m int) window {
	w := window{lo: make([]int, n), hi: make([]int, n)}
	for i := range w.hi {
		w.hi[i] = m - 1
	}
	return w
}

// solve runs DTW restricted to w and backtracks the optimal path.
func solve(a, b models.FeatureSequence, w window) (float64, Path) {
	n, m := len(a), len(b)
	inf := math.Inf(1)
	acc := make([][]float64, n)
	at := func(i, j int) float64 {
		if i < 0 || j < 0 || j < w.lo[i] || j > w.hi[i] {
			return inf
		}
		return acc[i][j-w.lo[i]]
	}

	for i := 0; i < n; i++ {
		row := make([]float64, w.hi[i]-w.lo[i]+1)
		acc[i] = row
		for j := w.lo[i]; j <= w.hi[i]; j++ {
			c := cost(&a[i], &b[j])
			if i == 0 && j == 0 {
				row[0] = c
				continue
			}
			row[j-w.lo[i]] = c + min(at(i-1, j), at(i, j-1), at(i-1, j-1))
		}
	}

	i, j := n-1, m-1
	path := Path{{i, j}}
	for i > 0 || j > 0 {
		switch {
		case i == 0:
			j--
		case j == 0:
			i--
		default:
			diag, up, left := at(i-1, j-1), at(i-1, j), at(i, j-1)
			switch {
			case diag <= up && diag <= left:
				i, j = i-1, j-1
			case up <= left:
				i--
			default:
				j--
			}
		}
		path = append(path, Coord{i, j})
	}
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return at(n-1, m-1), path
}
