package flatindex

import (
	"cmp"
	"fmt"
	"slices"
)

// Index is an exact brute-force index over squared Euclidean distance.
// It is not safe for concurrent mutation; Store publishes it read-only.
type Index struct {
	dimension int
	ids       []int
	vectors   [][]float32
}

type Hit struct {
	ID       int
	Distance float64
}

func NewIndex(dimension int) *Index {
	return &Index{dimension: dimension}
}

func (ix *Index) Dimension() int { return ix.dimension }

func (ix *Index) Len() int { return len(ix.ids) }

func (ix *Index) Add(ids []int, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids/vectors mismatch: %d/%d", len(ids), len(vectors))
	}
	for i, v := range vectors {
		if ix.dimension == 0 {
			ix.dimension = len(v)
		}
		if len(v) != ix.dimension || len(v) == 0 {
			return fmt.Errorf("vector %d has dimension %d, index expects %d", ids[i], len(v), ix.dimension)
		}
	}
	ix.ids = append(ix.ids, ids...)
	ix.vectors = append(ix.vectors, vectors...)
	return nil
}

// Search returns at most k hits ordered by ascending distance, ties broken by id.
func (ix *Index) Search(query []float32, k int) ([]Hit, error) {
	if k <= 0 || len(ix.ids) == 0 {
		return []Hit{}, nil
	}
	if len(query) != ix.dimension {
		return nil, fmt.Errorf("query dimension %d, index expects %d", len(query), ix.dimension)
	}

	hits := make([]Hit, len(ix.ids))
	for i, v := range ix.vectors {
		hits[i] = Hit{ID: ix.ids[i], Distance: squaredL2(query, v)}
	}
	slices.SortFunc(hits, func(a, b Hit) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
