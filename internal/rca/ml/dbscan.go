package ml

import "sort"

// Noise is the DBSCAN label for points assigned to no cluster.
const Noise = -1

const unclassified = -2

// DBSCAN clusters a one-dimensional slice of values. It returns one label per
// input value, in input order: 0..k-1 for cluster membership, Noise for
// points no cluster absorbed. Neighborhood counts include the point itself,
// as in the common formulation of the algorithm.
//
// The one-dimensional case allows exact neighbor queries on a sorted copy of
// the values instead of a spatial index.
func DBSCAN(values []float64, eps float64, minSamples int) []int {
	n := len(values)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = unclassified
	}
	if n == 0 || eps <= 0 || minSamples <= 0 {
		for i := range labels {
			labels[i] = Noise
		}
		return labels
	}

	// Sort index permutation by value; eps-neighborhoods become contiguous
	// runs of the sorted order.
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return values[order[a]] < values[order[b]] })

	sorted := make([]float64, n)
	for pos, idx := range order {
		sorted[pos] = values[idx]
	}

	// neighbors returns sorted-order positions within eps of position pos.
	neighbors := func(pos int) (lo, hi int) {
		v := sorted[pos]
		lo = sort.SearchFloat64s(sorted, v-eps)
		hi = sort.Search(n, func(i int) bool { return sorted[i] > v+eps })
		return lo, hi
	}

	cluster := 0
	for pos := 0; pos < n; pos++ {
		idx := order[pos]
		if labels[idx] != unclassified {
			continue
		}

		lo, hi := neighbors(pos)
		if hi-lo < minSamples {
			labels[idx] = Noise
			continue
		}

		// Grow a new cluster from this core point.
		labels[idx] = cluster
		queue := make([]int, 0, hi-lo)
		for p := lo; p < hi; p++ {
			queue = append(queue, p)
		}

		for len(queue) > 0 {
			qpos := queue[0]
			queue = queue[1:]
			qidx := order[qpos]

			if labels[qidx] == Noise {
				labels[qidx] = cluster // border point adopted by the cluster
			}
			if labels[qidx] != unclassified {
				continue
			}
			labels[qidx] = cluster

			qlo, qhi := neighbors(qpos)
			if qhi-qlo >= minSamples {
				for p := qlo; p < qhi; p++ {
					queue = append(queue, p)
				}
			}
		}
		cluster++
	}

	return labels
}
