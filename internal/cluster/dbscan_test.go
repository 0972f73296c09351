package cluster

import (
	"math"
	"reflect"
	"testing"
)

// vec builds a 2D embedding; all tests work in two dimensions for clarity.
func vec(x, y float32) []float32 {
	return []float32{x, y}
}

func TestEuclideanDistance(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"identical", vec(1, 2), vec(1, 2), 0},
		{"unit apart", vec(0, 0), vec(1, 0), 1},
		{"pythagorean", vec(0, 0), vec(3, 4), 5},
		{"mismatched lengths", []float32{1}, vec(1, 2), math.Inf(1)},
		{"empty", nil, nil, math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EuclideanDistance(tt.a, tt.b)
			if math.IsInf(tt.expected, 1) {
				if !math.IsInf(got, 1) {
					t.Errorf("expected +Inf, got %f", got)
				}
				return
			}
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("expected %f, got %f", tt.expected, got)
			}
		})
	}
}

func TestDBSCAN_Empty(t *testing.T) {
	labels := DBSCAN(nil, 0.5, 2)
	if len(labels) != 0 {
		t.Errorf("expected empty labels, got %v", labels)
	}
}

func TestDBSCAN_SingleClusterAndNoise(t *testing.T) {
	// Three points near the origin, one far away.
	points := [][]float32{
		vec(0, 0),
		vec(0.1, 0),
		vec(0, 0.1),
		vec(10, 10),
	}

	labels := DBSCAN(points, 0.5, 2)

	if len(labels) != len(points) {
		t.Fatalf("expected %d labels, got %d", len(points), len(labels))
	}
	if labels[0] != 0 || labels[1] != 0 || labels[2] != 0 {
		t.Errorf("expected first three points in cluster 0, got %v", labels)
	}
	if labels[3] != Noise {
		t.Errorf("expected far point to be noise, got %d", labels[3])
	}
}

func TestDBSCAN_MinPointsOne_NoNoise(t *testing.T) {
	// With minPoints=1 every point seeds its own cluster if isolated.
	points := [][]float32{vec(0, 0), vec(10, 10), vec(20, 20)}

	labels := DBSCAN(points, 0.5, 1)

	want := []int{0, 1, 2}
	if !reflect.DeepEqual(labels, want) {
		t.Errorf("expected %v, got %v", want, labels)
	}
}

func TestDBSCAN_TwoClusters(t *testing.T) {
	points := [][]float32{
		vec(0, 0), vec(0.2, 0), vec(0, 0.2), // cluster around origin
		vec(5, 5), vec(5.2, 5), vec(5, 5.2), // cluster around (5,5)
	}

	labels := DBSCAN(points, 0.5, 2)

	if labels[0] != 0 || labels[1] != 0 || labels[2] != 0 {
		t.Errorf("expected first cluster labeled 0, got %v", labels)
	}
	if labels[3] != 1 || labels[4] != 1 || labels[5] != 1 {
		t.Errorf("expected second cluster labeled 1, got %v", labels)
	}
}

func TestDBSCAN_ChainedBorderPoints(t *testing.T) {
	// Points in a line, each 0.4 from the next, eps 0.5: density
	// reachability should chain them into one cluster.
	points := [][]float32{
		vec(0, 0), vec(0.4, 0), vec(0.8, 0), vec(1.2, 0),
	}

	labels := DBSCAN(points, 0.5, 2)

	for i, l := range labels {
		if l != 0 {
			t.Errorf("point %d: expected cluster 0, got %d", i, l)
		}
	}
}

func TestDBSCAN_PartitionInvariants(t *testing.T) {
	points := [][]float32{
		vec(0, 0), vec(0.1, 0.1), vec(7, 7), vec(7.1, 7), vec(3, 9), vec(100, 100),
	}

	labels := DBSCAN(points, 0.5, 2)

	// Every input gets exactly one label.
	if len(labels) != len(points) {
		t.Fatalf("expected %d labels, got %d", len(points), len(labels))
	}
	// Distinct non-noise labels never exceed the input count and are
	// contiguous from zero.
	seen := map[int]bool{}
	maxLabel := -1
	for _, l := range labels {
		if l == Noise {
			continue
		}
		if l < 0 {
			t.Errorf("unexpected negative label %d", l)
		}
		seen[l] = true
		if l > maxLabel {
			maxLabel = l
		}
	}
	if len(seen) > len(points) {
		t.Errorf("more clusters (%d) than points (%d)", len(seen), len(points))
	}
	for l := 0; l <= maxLabel; l++ {
		if !seen[l] {
			t.Errorf("label %d skipped; labels must be assigned in discovery order", l)
		}
	}
}

func TestDBSCAN_Deterministic(t *testing.T) {
	points := [][]float32{
		vec(0, 0), vec(0.3, 0), vec(4, 4), vec(4.3, 4), vec(9, 1),
	}

	first := DBSCAN(points, 0.5, 2)
	for run := 0; run < 5; run++ {
		if got := DBSCAN(points, 0.5, 2); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: labels %v differ from first run %v", run, got, first)
		}
	}
}

// TestDBSCAN_WeddingScenario mirrors the three-photo case the gallery is
// built around: photo A has two faces close in embedding space, photo B one
// distant face, photo C one face identical to a face in A.
func TestDBSCAN_WeddingScenario(t *testing.T) {
	faceA1 := vec(1.0, 1.0)
	faceA2 := vec(1.1, 1.0) // close to A1
	faceB := vec(9.0, 9.0)  // far from everything
	faceC := vec(1.0, 1.0)  // identical to A1

	labels := DBSCAN([][]float32{faceA1, faceA2, faceB, faceC}, 0.5, 2)

	if labels[0] != labels[1] || labels[1] != labels[3] {
		t.Errorf("expected faces A1, A2, C in one cluster, got %v", labels)
	}
	if labels[0] == Noise {
		t.Errorf("expected a real cluster for the close faces, got noise")
	}
	if labels[2] != Noise {
		t.Errorf("expected the lone face to be noise, got %d", labels[2])
	}
}
