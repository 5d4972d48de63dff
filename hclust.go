package exprcluster

import (
	"fmt"
	"math"
)

// Linkage names the rule for computing the distance between merged clusters
// during agglomerative clustering.
type Linkage string

const (
	LinkageWard     Linkage = "ward"
	LinkageAverage  Linkage = "average"
	LinkageComplete Linkage = "complete"
	LinkageMedian   Linkage = "median"
	LinkageCentroid Linkage = "centroid"
	LinkageSingle   Linkage = "single"
	LinkageMcQuitty Linkage = "mcquitty"
)

// squaredLinkage reports whether the linkage operates on squared metric
// distances (R's ward.D2 convention). Merge heights for these linkages are
// on the squared scale; only their ordering is contractual.
func squaredLinkage(l Linkage) bool {
	return l == LinkageWard || l == LinkageMedian || l == LinkageCentroid
}

// lanceWilliams returns the update coefficients (ai, aj, beta, gamma) for
// d(k, i∪j) = ai·d(k,i) + aj·d(k,j) + beta·d(i,j) + gamma·|d(k,i) − d(k,j)|,
// given the sizes of clusters i, j and the outside cluster k.
func lanceWilliams(l Linkage, ni, nj, nk float64) (ai, aj, beta, gamma float64, err error) {
	switch l {
	case LinkageSingle:
		return 0.5, 0.5, 0, -0.5, nil
	case LinkageComplete:
		return 0.5, 0.5, 0, 0.5, nil
	case LinkageAverage:
		return ni / (ni + nj), nj / (ni + nj), 0, 0, nil
	case LinkageMcQuitty:
		return 0.5, 0.5, 0, 0, nil
	case LinkageCentroid:
		s := ni + nj
		return ni / s, nj / s, -ni * nj / (s * s), 0, nil
	case LinkageMedian:
		return 0.5, 0.5, -0.25, 0, nil
	case LinkageWard:
		s := ni + nj + nk
		return (ni + nk) / s, (nj + nk) / s, -nk / s, 0, nil
	default:
		return 0, 0, 0, 0, fmt.Errorf("%w: unsupported linkage %q", ErrInvalidParameter, l)
	}
}

// agglomerate performs agglomerative hierarchical clustering over a
// precomputed n×n distance matrix (flat row-major) and returns scipy-style
// merge rows [left, right, height, mergedSize]. Original items are clusters
// 0..n−1; merged clusters are numbered n, n+1, ... in merge order. Ties on
// merge height resolve to the first candidate pair scanned, so the
// dendrogram is deterministic for a given input.
func agglomerate(dist []float64, n int, linkage Linkage) ([][4]float64, error) {
	if _, _, _, _, err := lanceWilliams(linkage, 1, 1, 1); err != nil {
		return nil, err
	}
	if n < 2 {
		return nil, nil
	}

	// Working copy among active slots; squared-distance linkages transform
	// up front.
	d := make([][]float64, n)
	for i := range d {
		d[i] = make([]float64, n)
		for j := range d[i] {
			v := dist[i*n+j]
			if squaredLinkage(linkage) {
				v *= v
			}
			d[i][j] = v
		}
	}

	ids := make([]int, n)   // dendrogram cluster ID per active slot
	sizes := make([]int, n) // cluster size per active slot
	for i := range ids {
		ids[i] = i
		sizes[i] = 1
	}

	merges := make([][4]float64, 0, n-1)
	active := n
	nextID := n

	for active > 1 {
		// Find the closest active pair.
		bi, bj := 0, 1
		best := math.Inf(1)
		for i := 0; i < active; i++ {
			for j := i + 1; j < active; j++ {
				if d[i][j] < best {
					best = d[i][j]
					bi, bj = i, j
				}
			}
		}

		ni, nj := float64(sizes[bi]), float64(sizes[bj])
		mergedSize := sizes[bi] + sizes[bj]
		merges = append(merges, [4]float64{
			float64(ids[bi]), float64(ids[bj]), best, float64(mergedSize),
		})

		// Lance–Williams update of every other active cluster's distance to
		// the merged cluster, stored in slot bi.
		for k := 0; k < active; k++ {
			if k == bi || k == bj {
				continue
			}
			ai, aj, beta, gamma, _ := lanceWilliams(linkage, ni, nj, float64(sizes[k]))
			dk := ai*d[k][bi] + aj*d[k][bj] + beta*best + gamma*math.Abs(d[k][bi]-d[k][bj])
			d[k][bi] = dk
			d[bi][k] = dk
		}
		ids[bi] = nextID
		sizes[bi] = mergedSize
		nextID++

		// Remove slot bj by swapping in the last active slot.
		last := active - 1
		if bj != last {
			ids[bj] = ids[last]
			sizes[bj] = sizes[last]
			for k := 0; k < active; k++ {
				d[k][bj] = d[k][last]
				d[bj][k] = d[last][k]
			}
			d[bj][bj] = 0
		}
		active--
	}

	return merges, nil
}

// cutTree replays the first n−k merges and labels the resulting clusters
// 1..k in order of each cluster's first member, so labels are deterministic
// for a given dendrogram. k = n yields one label per item; k = 1 yields a
// single cluster.
func cutTree(merges [][4]float64, n, k int) ([]int, error) {
	if k < 1 || k > n {
		return nil, fmt.Errorf("%w: cut into %d clusters of %d samples", ErrDegenerateClustering, k, n)
	}

	// Union-find over 2n−1 cluster IDs: original items 0..n−1, merged
	// clusters n..2n−2, matching the merge rows.
	parent := make([]int, 2*n-1)
	for i := range parent {
		parent[i] = -1
	}
	var find func(x int) int
	find = func(x int) int {
		for parent[x] != -1 {
			x = parent[x]
		}
		return x
	}
	for i := 0; i < n-k; i++ {
		l, r := int(merges[i][0]), int(merges[i][1])
		parent[find(l)] = n + i
		parent[find(r)] = n + i
	}

	labels := make([]int, n)
	next := 1
	byRoot := make(map[int]int, k)
	for i := 0; i < n; i++ {
		root := find(i)
		l, ok := byRoot[root]
		if !ok {
			l = next
			byRoot[root] = l
			next++
		}
		labels[i] = l
	}
	if len(byRoot) != k {
		return nil, fmt.Errorf("%w: cut produced %d clusters, want %d", ErrDegenerateClustering, len(byRoot), k)
	}
	return labels, nil
}

// leafOrder returns the dendrogram's leaves left to right — the display
// order heatmaps use. With no merges (n < 2) the identity order is returned.
func leafOrder(merges [][4]float64, n int) []int {
	if len(merges) == 0 {
		order := make([]int, n)
		for i := range order {
			order[i] = i
		}
		return order
	}

	children := make(map[int][2]int, len(merges))
	for i, m := range merges {
		children[n+i] = [2]int{int(m[0]), int(m[1])}
	}

	order := make([]int, 0, n)
	var walk func(id int)
	walk = func(id int) {
		if id < n {
			order = append(order, id)
			return
		}
		c := children[id]
		walk(c[0])
		walk(c[1])
	}
	walk(n + len(merges) - 1)
	return order
}
