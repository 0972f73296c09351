// Package gallery projects a face snapshot into the query shapes the web
// layer serves: people ordered by presence, photo lists per person and a
// nearest-neighbor index for similar-photo lookups.
package gallery

import (
	"errors"
	"fmt"
	"sort"

	"github.com/facegallery/facegallery/internal/cache"
	"github.com/facegallery/facegallery/internal/cluster"
	"github.com/facegallery/facegallery/internal/detect"
)

// ErrUnknownPerson is returned for person IDs the snapshot does not contain.
var ErrUnknownPerson = errors.New("unknown person")

// Person is one clustered identity. Name is empty until someone labels it.
type Person struct {
	ID         int    `json:"id"`
	Name       string `json:"name,omitempty"`
	FaceCount  int    `json:"face_count"`
	PhotoCount int    `json:"photo_count"`
}

// Face is a detected face within a photo.
type Face struct {
	Index    int                `json:"index"`
	Box      detect.BoundingBox `json:"box"`
	Score    float64            `json:"score"`
	PersonID int                `json:"person_id"` // -1 for unmatched faces
}

// Photo is one gallery photo with its detected faces.
type Photo struct {
	ID    string `json:"id"`
	Size  int64  `json:"size"`
	Faces []Face `json:"faces,omitempty"`
}

// Gallery is an immutable projection of one snapshot. Rebuilt wholesale
// after a pipeline run, never mutated in place.
type Gallery struct {
	people         []Person
	photos         []Photo
	photoByID      map[string]int
	photosByPerson map[int][]int // person ID to indexes into photos
	names          *Names
	index          *SimilarIndex
	createdAt      int64
}

// New builds a gallery projection from a snapshot. The names store may be
// nil when labeling is disabled.
func New(rec *cache.Record, names *Names) *Gallery {
	g := &Gallery{
		photoByID:      make(map[string]int, len(rec.Photos)),
		photosByPerson: make(map[int][]int),
		names:          names,
		createdAt:      rec.CreatedAt,
	}

	for _, pr := range rec.Photos {
		photo := Photo{ID: pr.ID, Size: pr.Size}
		for i, fr := range pr.Faces {
			photo.Faces = append(photo.Faces, Face{
				Index:    i,
				Box:      fr.Box,
				Score:    fr.Score,
				PersonID: fr.Cluster,
			})
		}
		g.photos = append(g.photos, photo)
	}

	sort.Slice(g.photos, func(i, j int) bool { return g.photos[i].ID < g.photos[j].ID })
	for i, p := range g.photos {
		g.photoByID[p.ID] = i
	}

	faceCounts := map[int]int{}
	photoSets := map[int]map[int]struct{}{}
	for i, p := range g.photos {
		for _, f := range p.Faces {
			if f.PersonID == cluster.Noise {
				continue
			}
			faceCounts[f.PersonID]++
			if photoSets[f.PersonID] == nil {
				photoSets[f.PersonID] = map[int]struct{}{}
			}
			photoSets[f.PersonID][i] = struct{}{}
		}
	}

	for id, set := range photoSets {
		idxs := make([]int, 0, len(set))
		for i := range set {
			idxs = append(idxs, i)
		}
		sort.Ints(idxs)
		g.photosByPerson[id] = idxs
		g.people = append(g.people, Person{
			ID:         id,
			FaceCount:  faceCounts[id],
			PhotoCount: len(idxs),
		})
	}

	// Most photographed people first, person ID breaks ties.
	sort.Slice(g.people, func(i, j int) bool {
		if g.people[i].PhotoCount != g.people[j].PhotoCount {
			return g.people[i].PhotoCount > g.people[j].PhotoCount
		}
		return g.people[i].ID < g.people[j].ID
	})

	g.index = NewSimilarIndex(rec)
	return g
}

// People lists all identities, most photographed first. Names come from
// the label store at call time so renames show up without a rebuild.
func (g *Gallery) People() []Person {
	out := make([]Person, len(g.people))
	copy(out, g.people)
	if g.names != nil {
		for i := range out {
			out[i].Name = g.names.Get(out[i].ID)
		}
	}
	return out
}

// Person returns a single identity.
func (g *Gallery) Person(id int) (Person, error) {
	for _, p := range g.people {
		if p.ID == id {
			if g.names != nil {
				p.Name = g.names.Get(id)
			}
			return p, nil
		}
	}
	return Person{}, fmt.Errorf("%w: %d", ErrUnknownPerson, id)
}

// PhotosFor returns all photos a person appears in, ordered by photo ID.
func (g *Gallery) PhotosFor(personID int) ([]Photo, error) {
	idxs, ok := g.photosByPerson[personID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPerson, personID)
	}
	out := make([]Photo, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, g.photos[i])
	}
	return out, nil
}

// AllPhotos returns every photo in the snapshot, including photos where no
// face was found.
func (g *Gallery) AllPhotos() []Photo {
	out := make([]Photo, len(g.photos))
	copy(out, g.photos)
	return out
}

// Photo returns a single photo by ID.
func (g *Gallery) Photo(id string) (Photo, bool) {
	i, ok := g.photoByID[id]
	if !ok {
		return Photo{}, false
	}
	return g.photos[i], true
}

// BestFace returns the highest scoring face of a person, used for the
// person thumbnail. Ties go to the first photo in ID order.
func (g *Gallery) BestFace(personID int) (string, Face, error) {
	idxs, ok := g.photosByPerson[personID]
	if !ok {
		return "", Face{}, fmt.Errorf("%w: %d", ErrUnknownPerson, personID)
	}
	var (
		bestPhoto string
		best      Face
		found     bool
	)
	for _, i := range idxs {
		for _, f := range g.photos[i].Faces {
			if f.PersonID != personID {
				continue
			}
			if !found || f.Score > best.Score {
				best = f
				bestPhoto = g.photos[i].ID
				found = true
			}
		}
	}
	if !found {
		return "", Face{}, fmt.Errorf("%w: %d", ErrUnknownPerson, personID)
	}
	return bestPhoto, best, nil
}

// Similar returns photos containing faces close to any face of the given
// photo, nearest first, excluding the photo itself.
func (g *Gallery) Similar(photoID string, limit int) ([]Photo, error) {
	i, ok := g.photoByID[photoID]
	if !ok {
		return nil, fmt.Errorf("photo %q not found", photoID)
	}
	if limit < 1 {
		limit = 10
	}

	type hit struct {
		photoID  string
		distance float64
	}
	bestByPhoto := map[string]float64{}

	for _, f := range g.photos[i].Faces {
		refs, distances := g.index.SearchFace(g.photos[i].ID, f.Index, limit+len(g.photos[i].Faces))
		for j, ref := range refs {
			if ref.PhotoID == photoID {
				continue
			}
			if d, ok := bestByPhoto[ref.PhotoID]; !ok || distances[j] < d {
				bestByPhoto[ref.PhotoID] = distances[j]
			}
		}
	}

	hits := make([]hit, 0, len(bestByPhoto))
	for id, d := range bestByPhoto {
		hits = append(hits, hit{photoID: id, distance: d})
	}
	sort.Slice(hits, func(a, b int) bool {
		if hits[a].distance != hits[b].distance {
			return hits[a].distance < hits[b].distance
		}
		return hits[a].photoID < hits[b].photoID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}

	out := make([]Photo, 0, len(hits))
	for _, h := range hits {
		out = append(out, g.photos[g.photoByID[h.photoID]])
	}
	return out, nil
}

// FindPeople returns identities whose label matches the query, using
// diacritics-insensitive comparison.
func (g *Gallery) FindPeople(query string) []Person {
	if g.names == nil {
		return nil
	}
	want := NormalizePersonName(query)
	var out []Person
	for _, p := range g.People() {
		if p.Name != "" && NormalizePersonName(p.Name) == want {
			out = append(out, p)
		}
	}
	return out
}

// CreatedAt reports when the underlying snapshot was computed, unix seconds.
func (g *Gallery) CreatedAt() int64 {
	return g.createdAt
}

// Stats summarizes the projection for the stats endpoint.
type Stats struct {
	Photos     int   `json:"photos"`
	People     int   `json:"people"`
	Faces      int   `json:"faces"`
	NoiseFaces int   `json:"noise_faces"`
	CreatedAt  int64 `json:"created_at"`
}

func (g *Gallery) Stats() Stats {
	s := Stats{Photos: len(g.photos), People: len(g.people), CreatedAt: g.createdAt}
	for _, p := range g.photos {
		for _, f := range p.Faces {
			s.Faces++
			if f.PersonID == cluster.Noise {
				s.NoiseFaces++
			}
		}
	}
	return s
}
