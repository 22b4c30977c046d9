package topics

import (
	"math"
	"sort"

	"github.com/selivandex/coinpulse/pkg/models"
)

// cluster assigns density-based topic labels to reduced points. The
// neighborhood radius comes from the mean distance to each point's
// Neighbors-th nearest neighbor, points with fewer than MinSamples
// neighbors stay unlabeled, and clusters smaller than MinClusterSize
// dissolve into outliers (-1).
func cluster(points [][]float64, p Params) []int {
	n := len(points)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = models.TopicOutlier
	}
	if n == 0 {
		return labels
	}

	dist := pairwiseDistances(points)
	eps := neighborhoodRadius(dist, p.Neighbors)

	// DBSCAN-style expansion
	next := 0
	visited := make([]bool, n)

	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		visited[i] = true

		neighbors := regionQuery(dist, i, eps)
		if len(neighbors) < p.MinSamples {
			continue
		}

		labels[i] = next
		queue := append([]int(nil), neighbors...)

		for len(queue) > 0 {
			j := queue[0]
			queue = queue[1:]

			if labels[j] == models.TopicOutlier {
				labels[j] = next
			}
			if visited[j] {
				continue
			}
			visited[j] = true

			expanded := regionQuery(dist, j, eps)
			if len(expanded) >= p.MinSamples {
				queue = append(queue, expanded...)
			}
		}

		next++
	}

	dissolveSmallClusters(labels, p.MinClusterSize)

	return labels
}

// pairwiseDistances computes the Euclidean distance matrix
func pairwiseDistances(points [][]float64) [][]float64 {
	n := len(points)
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			var sum float64
			for d := range points[i] {
				diff := points[i][d] - points[j][d]
				sum += diff * diff
			}
			v := math.Sqrt(sum)
			dist[i][j] = v
			dist[j][i] = v
		}
	}

	return dist
}

// neighborhoodRadius derives eps as the mean distance to each point's k-th
// nearest neighbor
func neighborhoodRadius(dist [][]float64, k int) float64 {
	n := len(dist)
	if n < 2 {
		return 0
	}
	if k > n-1 {
		k = n - 1
	}
	if k < 1 {
		k = 1
	}

	var total float64
	for i := 0; i < n; i++ {
		others := make([]float64, 0, n-1)
		for j := 0; j < n; j++ {
			if i != j {
				others = append(others, dist[i][j])
			}
		}
		sort.Float64s(others)
		total += others[k-1]
	}

	return total / float64(n)
}

// regionQuery returns indices within eps of point i, excluding i itself
func regionQuery(dist [][]float64, i int, eps float64) []int {
	neighbors := make([]int, 0)
	for j := range dist[i] {
		if j != i && dist[i][j] <= eps {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}

// dissolveSmallClusters relabels members of undersized clusters as outliers
// and renumbers the survivors densely from zero
func dissolveSmallClusters(labels []int, minSize int) {
	counts := make(map[int]int)
	for _, l := range labels {
		if l != models.TopicOutlier {
			counts[l]++
		}
	}

	remap := make(map[int]int)
	kept := make([]int, 0, len(counts))
	for l, c := range counts {
		if c >= minSize {
			kept = append(kept, l)
		}
	}
	sort.Ints(kept)
	for i, l := range kept {
		remap[l] = i
	}

	for i, l := range labels {
		if l == models.TopicOutlier {
			continue
		}
		if newLabel, ok := remap[l]; ok {
			labels[i] = newLabel
		} else {
			labels[i] = models.TopicOutlier
		}
	}
}
