package exprcluster

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// kmeansPartition partitions the given vectors into k groups by Lloyd's
// algorithm, minimizing within-cluster sum of squared Euclidean distances.
// Seeding is k-means++ driven by a PCG source, so results are reproducible
// for a given seed. Returns 0-based labels.
//
// No silent repair is attempted when a cluster empties out during
// reassignment; that fails with ErrDegenerateClustering.
func kmeansPartition(vecs [][]float64, k int, seed uint64, maxIter int) ([]int, error) {
	n := len(vecs)
	if k < 1 || k > n {
		return nil, fmt.Errorf("%w: %d clusters requested for %d samples", ErrDegenerateClustering, k, n)
	}
	if maxIter < 1 {
		maxIter = 100
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	centroids := seedCentroids(vecs, k, rng)

	labels := make([]int, n)
	counts := make([]int, k)

	for iter := 0; iter < maxIter; iter++ {
		// Assign each vector to its nearest centroid.
		changed := false
		for i := range counts {
			counts[i] = 0
		}
		for i, v := range vecs {
			best, bestD := 0, math.Inf(1)
			for c := range centroids {
				if d := euclideanSq(v, centroids[c]); d < bestD {
					best, bestD = c, d
				}
			}
			if labels[i] != best {
				changed = true
			}
			labels[i] = best
			counts[best]++
		}
		for c, cnt := range counts {
			if cnt == 0 {
				return nil, fmt.Errorf("%w: cluster %d became empty during k-means", ErrDegenerateClustering, c+1)
			}
		}
		if !changed && iter > 0 {
			break
		}

		// Recompute centroids.
		for c := range centroids {
			for d := range centroids[c] {
				centroids[c][d] = 0
			}
		}
		for i, v := range vecs {
			c := centroids[labels[i]]
			for d := range c {
				c[d] += v[d]
			}
		}
		for c := range centroids {
			for d := range centroids[c] {
				centroids[c][d] /= float64(counts[c])
			}
		}
	}

	return labels, nil
}

// seedCentroids picks k initial centroids with k-means++: the first uniformly
// at random, each subsequent one with probability proportional to its squared
// distance from the nearest centroid chosen so far.
func seedCentroids(vecs [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(vecs)
	dims := len(vecs[0])

	centroids := make([][]float64, 0, k)
	pick := func(i int) {
		c := make([]float64, dims)
		copy(c, vecs[i])
		centroids = append(centroids, c)
	}
	pick(rng.IntN(n))

	d2 := make([]float64, n)
	for len(centroids) < k {
		var total float64
		latest := centroids[len(centroids)-1]
		for i, v := range vecs {
			d := euclideanSq(v, latest)
			if len(centroids) == 1 || d < d2[i] {
				d2[i] = d
			}
			total += d2[i]
		}
		if total == 0 {
			// all remaining points coincide with a centroid; pick any
			pick(rng.IntN(n))
			continue
		}
		target := rng.Float64() * total
		var cum float64
		chosen := n - 1
		for i, d := range d2 {
			cum += d
			if cum >= target {
				chosen = i
				break
			}
		}
		pick(chosen)
	}
	return centroids
}
