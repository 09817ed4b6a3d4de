package gallery

import (
	"sort"

	"github.com/coder/hnsw"
	"github.com/kozaktomas/facescan/internal/facematch"
)

// hnswMaxNeighbors (M) is the maximum number of neighbors per graph node.
const hnswMaxNeighbors = 16

// Neighbor is a gallery entry close to another gallery entry.
type Neighbor struct {
	Entry      facematch.GalleryEntry `json:"entry"`
	Similarity float64                `json:"similarity"`
}

// NeighborIndex is an approximate nearest-neighbor graph over one gallery
// snapshot, used to spot near-duplicate identities. Scans never use it.
type NeighborIndex struct {
	graph *hnsw.Graph[string]
	index *Index
}

// NewNeighborIndex builds an HNSW graph over idx. Entries with an empty or
// all-zero descriptor are left out.
func NewNeighborIndex(idx *Index) (*NeighborIndex, error) {
	if err := Validate(idx.All()); err != nil {
		return nil, err
	}

	g := hnsw.NewGraph[string]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.Distance = hnsw.CosineDistance

	for _, e := range idx.All() {
		if zeroNorm(e.Descriptor) {
			continue
		}
		g.Add(hnsw.MakeNode(e.IdentityID, []float32(e.Descriptor)))
	}
	return &NeighborIndex{graph: g, index: idx}, nil
}

// Len returns the number of indexed entries.
func (n *NeighborIndex) Len() int {
	return n.graph.Len()
}

// Neighbors returns up to k entries closest to the entry with the given id,
// excluding the entry itself, by cosine similarity descending.
func (n *NeighborIndex) Neighbors(id string, k int) ([]Neighbor, error) {
	e, ok := n.index.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	if k <= 0 || n.graph.Len() == 0 || zeroNorm(e.Descriptor) {
		return []Neighbor{}, nil
	}

	nodes := n.graph.Search([]float32(e.Descriptor), k+1)
	out := make([]Neighbor, 0, len(nodes))
	for _, node := range nodes {
		if node.Key == id {
			continue
		}
		other, ok := n.index.Get(node.Key)
		if !ok {
			continue
		}
		sim, err := facematch.CosineSimilarity(e.Descriptor, other.Descriptor)
		if err != nil {
			return nil, err
		}
		out = append(out, Neighbor{Entry: other, Similarity: sim})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func zeroNorm(d facematch.Descriptor) bool {
	for _, v := range d {
		if v != 0 {
			return false
		}
	}
	return true
}
