// Package cluster groups face embeddings into identity clusters using
// density-based clustering over euclidean embedding distance.
package cluster

import "math"

// Noise is the reserved label for embeddings that do not belong to any
// cluster. Non-noise labels start at 0 and are assigned in discovery order,
// so output is reproducible for a fixed input order. Label values carry no
// meaning across runs; only the partition does.
const Noise = -1

// EuclideanDistance computes the L2 distance between two embeddings.
// Mismatched or empty inputs yield +Inf so they never satisfy a tolerance.
func EuclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// DBSCAN partitions embeddings into clusters. eps is the maximum distance
// between neighbors (the gallery's tolerance), minPoints the minimum
// neighborhood size (including the point itself) to seed a cluster. The
// returned labels align 1:1 with the input; Noise marks outliers.
//
// Neighborhoods are computed by exhaustive scan. For a wedding-sized set
// (hundreds of photos, low thousands of faces) this is well under a second
// and keeps the result exact and deterministic.
func DBSCAN(points [][]float32, eps float64, minPoints int) []int {
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = Noise
	}
	if len(points) == 0 {
		return labels
	}
	if minPoints < 1 {
		minPoints = 1
	}

	visited := make([]bool, len(points))
	nextLabel := 0

	for i := range points {
		if visited[i] {
			continue
		}
		visited[i] = true

		neighbors := regionQuery(points, i, eps)
		if len(neighbors) < minPoints {
			continue // stays noise unless a later cluster claims it as a border point
		}

		labels[i] = nextLabel
		expandCluster(points, labels, visited, neighbors, nextLabel, eps, minPoints)
		nextLabel++
	}

	return labels
}

// expandCluster grows a cluster from a core point's neighborhood, processing
// the frontier in index order.
func expandCluster(points [][]float32, labels []int, visited []bool, seeds []int, label int, eps float64, minPoints int) {
	for k := 0; k < len(seeds); k++ {
		j := seeds[k]
		if labels[j] == Noise {
			labels[j] = label
		}
		if visited[j] {
			continue
		}
		visited[j] = true

		neighbors := regionQuery(points, j, eps)
		if len(neighbors) >= minPoints {
			seeds = append(seeds, neighbors...)
		}
	}
}

// regionQuery returns the indices within eps of point i, i included.
func regionQuery(points [][]float32, i int, eps float64) []int {
	var neighbors []int
	for j := range points {
		if j == i || EuclideanDistance(points[i], points[j]) <= eps {
			neighbors = append(neighbors, j) // i is its own neighbor
		}
	}
	return neighbors
}
