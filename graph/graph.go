// Package graph implements the in-memory, undirected, weighted
// cell-similarity graph built from a SimilarPairs index, isolated-vertex
// pruning, and label-propagation clustering, per spec §4.9. No external
// graph library is used; the representation is a plain adjacency list plus
// a parallel vertex attribute slice, as spec's Design Notes call for.
package graph

import (
	"github.com/HIM72/ExpressionMatrix2/simpairs"
	"github.com/HIM72/ExpressionMatrix2/store"
)

// Unclustered is the reserved label assigned to vertices whose cluster was
// collapsed for being smaller than minClusterSize.
const Unclustered = ^uint32(0)

type edge struct {
	To     int
	Weight float32
}

// Graph is an adjacency-list undirected weighted graph over a fixed set of
// cells. Vertex indices are local to the graph (dense, 0-based).
type Graph struct {
	cellIds   []store.CellId
	adj       [][]edge
	clusterId []uint32
}

// Build constructs a graph with one vertex per cell in idx's cell-set and
// one edge per SimilarPairs neighbor entry at or above threshold. The
// stored top-k lists are already threshold-filtered at build time (spec
// §4.7); Build re-applies threshold defensively and de-duplicates the
// (possibly asymmetric) pair so a mutual top-k relationship yields exactly
// one edge, with the edge existing whenever either endpoint lists the
// other, per spec §4.9.
func Build(idx *simpairs.Index, threshold float64) *Graph {
	n := len(idx.Cells.Cells)
	cellToLocal := make(map[store.CellId]int, n)
	for i, c := range idx.Cells.Cells {
		cellToLocal[c] = i
	}

	adj := make([][]edge, n)
	seen := make(map[[2]int]bool)
	for i, list := range idx.Neighbors {
		for _, nb := range list {
			if float64(nb.Similarity) < threshold {
				continue
			}
			j, ok := cellToLocal[nb.Cell]
			if !ok || j == i {
				continue
			}
			key := pairKey(i, j)
			if seen[key] {
				continue
			}
			seen[key] = true
			adj[i] = append(adj[i], edge{To: j, Weight: nb.Similarity})
			adj[j] = append(adj[j], edge{To: i, Weight: nb.Similarity})
		}
	}

	clusterId := make([]uint32, n)
	for i := range clusterId {
		clusterId[i] = uint32(i)
	}
	return &Graph{
		cellIds:   append([]store.CellId(nil), idx.Cells.Cells...),
		adj:       adj,
		clusterId: clusterId,
	}
}

func pairKey(i, j int) [2]int {
	if i > j {
		i, j = j, i
	}
	return [2]int{i, j}
}

// NumVertices returns the number of vertices currently in the graph.
func (g *Graph) NumVertices() int { return len(g.adj) }

// NumEdges returns the number of undirected edges currently in the graph.
func (g *Graph) NumEdges() int {
	total := 0
	for _, es := range g.adj {
		total += len(es)
	}
	return total / 2
}

// CellAt returns the global CellId of local vertex i.
func (g *Graph) CellAt(i int) store.CellId { return g.cellIds[i] }

// ClusterOf returns local vertex i's current cluster label.
func (g *Graph) ClusterOf(i int) uint32 { return g.clusterId[i] }

// RemoveIsolated deletes every vertex with no edges, reindexing the
// remainder, and returns the count removed.
func (g *Graph) RemoveIsolated() int {
	newIndex := make([]int, len(g.adj))
	keep := make([]int, 0, len(g.adj))
	for i, es := range g.adj {
		if len(es) > 0 {
			newIndex[i] = len(keep)
			keep = append(keep, i)
		} else {
			newIndex[i] = -1
		}
	}
	removed := len(g.adj) - len(keep)
	if removed == 0 {
		return 0
	}

	newAdj := make([][]edge, len(keep))
	newCellIds := make([]store.CellId, len(keep))
	newClusterId := make([]uint32, len(keep))
	for newI, oldI := range keep {
		newCellIds[newI] = g.cellIds[oldI]
		newClusterId[newI] = g.clusterId[oldI]
		old := g.adj[oldI]
		re := make([]edge, len(old))
		for k, e := range old {
			re[k] = edge{To: newIndex[e.To], Weight: e.Weight}
		}
		newAdj[newI] = re
	}
	g.adj = newAdj
	g.cellIds = newCellIds
	g.clusterId = newClusterId
	return removed
}
