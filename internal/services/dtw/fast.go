package dtw

import "ShapeFinder/internal/domain/models"

// FastDistance approximates DTW with FastDTW: both sequences are halved until
// one is shorter than radius+2, solved exactly there, and the optimal path is
// projected back up one resolution at a time, searching only radius cells
// around it. Time and memory are linear in the input length for a fixed radius.
func FastDistance(a, b models.FeatureSequence, radius int) (float64, Path, error) {
	if err := checkInputs(a, b); err != nil {
		return 0, nil, err
	}
	if radius < 0 {
		radius = 0
	}
	d, p := fast(a, b, radius)
	return d, p, nil
}

func fast(a, b models.FeatureSequence, radius int) (float64, Path) {
	minSize := radius + 2
	if len(a) < minSize || len(b) < minSize {
		return solve(a, b, fullWindow(len(a), len(b)))
	}
	_, coarse := fast(halve(a), halve(b), radius)
	return solve(a, b, expandWindow(coarse, len(a), len(b), radius))
}

// halve averages consecutive pairs. An odd trailing element is dropped.
func halve(s models.FeatureSequence) models.FeatureSequence {
	out := make(models.FeatureSequence, len(s)/2)
	for i := range out {
		x, y := &s[2*i], &s[2*i+1]
		for d := 0; d < models.FeatureDims; d++ {
			out[i][d] = (x[d] + y[d]) / 2
		}
	}
	return out
}

// expandWindow widens the coarse path by radius cells, projects each coarse
// cell onto its 2x2 block at the finer resolution and repairs the row ranges so
// the window stays monotone and connected from (0,0) to (n-1,m-1).
func expandWindow(coarse Path, n, m, radius int) window {
	w := window{lo: make([]int, n), hi: make([]int, n)}
	for i := range w.lo {
		w.lo[i], w.hi[i] = m, -1
	}
	for _, c := range coarse {
		for di := -radius; di <= radius; di++ {
			for dj := -radius; dj <= radius; dj++ {
				ci, cj := c.I+di, c.J+dj
				if ci < 0 || cj < 0 {
					continue
				}
				for fi := 2 * ci; fi <= 2*ci+1 && fi < n; fi++ {
					lo, hi := 2*cj, min(2*cj+1, m-1)
					if lo > hi {
						continue
					}
					w.lo[fi] = min(w.lo[fi], lo)
					w.hi[fi] = max(w.hi[fi], hi)
				}
			}
		}
	}

	for i := 0; i < n; i++ {
		if w.hi[i] >= 0 {
			continue
		}
		if i == 0 {
			w.lo[0], w.hi[0] = 0, 0
		} else {
			w.lo[i], w.hi[i] = w.lo[i-1], w.hi[i-1]
		}
	}
	w.lo[0] = 0
	w.hi[n-1] = m - 1
	for i := 1; i < n; i++ {
		w.hi[i] = max(w.hi[i], w.hi[i-1])
		w.lo[i] = max(w.lo[i], w.lo[i-1])
		w.lo[i] = min(w.lo[i], w.hi[i-1]+1, w.hi[i])
	}
	return w
}
