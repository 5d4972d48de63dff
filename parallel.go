package exprcluster

import "sync"

// computeProbeStats computes per-probe summary statistics sequentially.
func computeProbeStats(m *ExpressionMatrix) []probeStat {
	stats := make([]probeStat, m.Probes())
	for i := range stats {
		stats[i] = computeProbeStat(m.Row(i))
	}
	return stats
}

// computeProbeStatsParallel computes per-probe summary statistics using
// multiple goroutines. Each worker handles a contiguous range of probe rows,
// so no synchronization is needed for writes and the result is bitwise
// identical to computeProbeStats. Falls back to the sequential version if
// numWorkers <= 1.
func computeProbeStatsParallel(m *ExpressionMatrix, numWorkers int) []probeStat {
	n := m.Probes()
	if numWorkers <= 1 || n <= 1 {
		return computeProbeStats(m)
	}

	stats := make([]probeStat, n)

	var wg sync.WaitGroup
	rowsPerWorker := (n + numWorkers - 1) / numWorkers

	for w := 0; w < numWorkers; w++ {
		startRow := w * rowsPerWorker
		endRow := startRow + rowsPerWorker
		if endRow > n {
			endRow = n
		}
		if startRow >= n {
			break
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				stats[i] = computeProbeStat(m.Row(i))
			}
		}(startRow, endRow)
	}

	wg.Wait()
	return stats
}

// clusterMeansParallel computes, for each probe row, the per-cluster mean
// expression. labels is aligned with the matrix's sample columns and uses
// labels 1..k; sizes[l] is the number of samples with label l. Each worker
// handles a contiguous range of probe rows. Falls back to a sequential loop
// if numWorkers <= 1.
func clusterMeansParallel(m *ExpressionMatrix, labels []int, sizes []int, k, numWorkers int) []float64 {
	n := m.Probes()
	means := make([]float64, n*k)

	fill := func(start, end int) {
		for i := start; i < end; i++ {
			row := m.Row(i)
			out := means[i*k : (i+1)*k]
			for j, v := range row {
				out[labels[j]-1] += v
			}
			for l := 1; l <= k; l++ {
				out[l-1] /= float64(sizes[l])
			}
		}
	}

	if numWorkers <= 1 || n <= 1 {
		fill(0, n)
		return means
	}

	var wg sync.WaitGroup
	rowsPerWorker := (n + numWorkers - 1) / numWorkers

	for w := 0; w < numWorkers; w++ {
		startRow := w * rowsPerWorker
		endRow := startRow + rowsPerWorker
		if endRow > n {
			endRow = n
		}
		if startRow >= n {
			break
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			fill(start, end)
		}(startRow, endRow)
	}

	wg.Wait()
	return means
}
