package graph

import (
	"math"
	"math/rand"
	"sort"
	"strconv"

	"github.com/HIM72/ExpressionMatrix2/mt19937"
	"github.com/HIM72/ExpressionMatrix2/store"
)

// ClusterOptions configures LabelPropagate.
type ClusterOptions struct {
	MaxIterations  int
	MinClusterSize int
	Seed           uint64
}

// LabelPropagate runs asynchronous (in-place) label propagation: each
// iteration visits every vertex in a freshly permuted order (seeded by
// opts.Seed, so a repeat run with the same seed on the same graph is
// reproducible) and relabels it with whichever neighbor label carries the
// largest total edge weight; a new label is visible to vertices visited
// later in the same pass. Ties among equally-weighted labels are broken by the lowest label
// id (spec Open Question (c)). Propagation stops at opts.MaxIterations or as
// soon as an entire pass changes no label, whichever comes first. Clusters
// smaller than opts.MinClusterSize are then collapsed into the reserved
// Unclustered label.
func (g *Graph) LabelPropagate(opts ClusterOptions) {
	n := len(g.adj)
	labels := make([]uint32, n)
	for i := range labels {
		labels[i] = uint32(i)
	}

	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = 100
	}
	rng := rand.New(mt19937.New(opts.Seed))

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for _, v := range rng.Perm(n) {
			best := bestLabel(g.adj[v], labels, labels[v])
			if best != labels[v] {
				labels[v] = best
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	if opts.MinClusterSize > 0 {
		collapseSmallClusters(labels, opts.MinClusterSize)
	}
	g.clusterId = labels
}

// bestLabel returns the neighbor label with the greatest total incident edge
// weight at v, breaking ties by lowest label id.
func bestLabel(edges []edge, labels []uint32, current uint32) uint32 {
	if len(edges) == 0 {
		return current
	}
	weight := make(map[uint32]float64, len(edges))
	for _, e := range edges {
		weight[labels[e.To]] += float64(e.Weight)
	}
	ids := make([]uint32, 0, len(weight))
	for id := range weight {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	best := ids[0]
	bestW := math.Inf(-1)
	for _, id := range ids {
		if w := weight[id]; w > bestW {
			bestW = w
			best = id
		}
	}
	return best
}

func collapseSmallClusters(labels []uint32, minSize int) {
	counts := make(map[uint32]int, len(labels))
	for _, l := range labels {
		counts[l]++
	}
	for i, l := range labels {
		if counts[l] < minSize {
			labels[i] = Unclustered
		}
	}
}

// StoreClusters writes the current cluster assignment back into st as
// per-cell meta-data under name, one SetCellMetaData call per vertex.
func (g *Graph) StoreClusters(st *store.Store, name string) error {
	for i, cellId := range g.cellIds {
		label := g.clusterId[i]
		var value string
		if label == Unclustered {
			value = "unclustered"
		} else {
			value = strconv.FormatUint(uint64(label), 10)
		}
		if err := st.SetCellMetaData(cellId, name, value); err != nil {
			return err
		}
	}
	return nil
}
