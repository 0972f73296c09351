package gallery

import (
	"sync"

	"github.com/coder/hnsw"

	"github.com/facegallery/facegallery/internal/cache"
	"github.com/facegallery/facegallery/internal/cluster"
)

const indexMaxNeighbors = 16

// FaceRef addresses one face within the snapshot.
type FaceRef struct {
	PhotoID string
	Index   int
}

// SimilarIndex is an approximate nearest-neighbor index over all face
// embeddings of one snapshot. Built once, queried concurrently.
type SimilarIndex struct {
	mu         sync.RWMutex
	graph      *hnsw.Graph[int]
	refs       []FaceRef
	embeddings [][]float32
	byRef      map[FaceRef]int
}

// NewSimilarIndex builds the index from a snapshot.
func NewSimilarIndex(rec *cache.Record) *SimilarIndex {
	idx := &SimilarIndex{byRef: map[FaceRef]int{}}

	g := hnsw.NewGraph[int]()
	g.M = indexMaxNeighbors
	g.Ml = 1.0 / float64(indexMaxNeighbors)
	g.Distance = hnsw.EuclideanDistance

	for _, p := range rec.Photos {
		for i, f := range p.Faces {
			if len(f.Embedding) == 0 {
				continue
			}
			ref := FaceRef{PhotoID: p.ID, Index: i}
			id := len(idx.refs)
			g.Add(hnsw.MakeNode(id, f.Embedding))
			idx.refs = append(idx.refs, ref)
			idx.embeddings = append(idx.embeddings, f.Embedding)
			idx.byRef[ref] = id
		}
	}
	if len(idx.refs) > 0 {
		idx.graph = g
	}
	return idx
}

// Search returns the nearest faces to a query embedding with their
// euclidean distances.
func (idx *SimilarIndex) Search(query []float32, k int) ([]FaceRef, []float64) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.graph == nil || len(query) == 0 || k < 1 {
		return nil, nil
	}

	neighbors := idx.graph.Search(query, k)
	refs := make([]FaceRef, 0, len(neighbors))
	distances := make([]float64, 0, len(neighbors))
	for _, n := range neighbors {
		refs = append(refs, idx.refs[n.Key])
		distances = append(distances, cluster.EuclideanDistance(query, n.Value))
	}
	return refs, distances
}

// SearchFace finds the nearest faces to an already indexed face.
func (idx *SimilarIndex) SearchFace(photoID string, faceIndex int, k int) ([]FaceRef, []float64) {
	idx.mu.RLock()
	id, ok := idx.byRef[FaceRef{PhotoID: photoID, Index: faceIndex}]
	if !ok {
		idx.mu.RUnlock()
		return nil, nil
	}
	query := idx.embeddings[id]
	idx.mu.RUnlock()

	return idx.Search(query, k)
}

// Count returns the number of indexed faces.
func (idx *SimilarIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.refs)
}
