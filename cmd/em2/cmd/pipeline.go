package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/grailbio/base/cmdutil"
	"v.io/x/lib/cmdline"

	"github.com/HIM72/ExpressionMatrix2/graph"
	"github.com/HIM72/ExpressionMatrix2/simpairs"
	"github.com/HIM72/ExpressionMatrix2/store"
	"github.com/HIM72/ExpressionMatrix2/subset"
)

func newCmdSimilarPairs() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "build",
		Short:    "Build and save a SimilarPairs index over a (gene-set, cell-set) pair",
		ArgsName: "dir indexName genesetName cellsetName k threshold",
	}
	useLSH := cmd.Flags.Bool("lsh", false, "Use LSH-approximated similarity instead of exact Pearson correlation")
	bits := cmd.Flags.Int("lsh-bits", 1024, "Number of LSH hyperplanes (signature bit count)")
	seed := cmd.Flags.Uint64("lsh-seed", 1, "LSH hyperplane random seed")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 6 {
			return fmt.Errorf("build takes dir, indexName, genesetName, cellsetName, k, threshold, but got %v", argv)
		}
		s, r, err := openRegistry(argv[0])
		if err != nil {
			return err
		}
		defer s.Close()
		defer r.Close()

		genes, ok := r.GeneSet(argv[2])
		if !ok {
			return fmt.Errorf("gene-set %q not found", argv[2])
		}
		cells, ok := r.CellSet(argv[3])
		if !ok {
			return fmt.Errorf("cell-set %q not found", argv[3])
		}
		k, err := strconv.Atoi(argv[4])
		if err != nil {
			return fmt.Errorf("malformed k %q: %w", argv[4], err)
		}
		threshold, err := strconv.ParseFloat(argv[5], 64)
		if err != nil {
			return fmt.Errorf("malformed threshold %q: %w", argv[5], err)
		}

		view := subset.NewView(s, genes, cells)
		idx, err := simpairs.Build(context.Background(), view, genes, cells, simpairs.Options{
			K: k, SimilarityThreshold: threshold,
			UseLSH: *useLSH, LSHBitCount: *bits, LSHSeed: *seed,
		})
		if err != nil {
			return err
		}
		idx.Name = argv[1]
		if err := idx.Save(argv[0]); err != nil {
			return err
		}
		fmt.Fprintf(env.Stdout, "%s: %d cells indexed\n", idx.Name, len(idx.Neighbors))
		return nil
	})
	return cmd
}

func newCmdCluster() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "run",
		Short:    "Build a cell-similarity graph from a saved SimilarPairs index and cluster it by label propagation",
		ArgsName: "dir indexName threshold clusterName",
	}
	maxIter := cmd.Flags.Int("max-iterations", 100, "Maximum label-propagation iterations")
	minSize := cmd.Flags.Int("min-cluster-size", 0, "Clusters smaller than this are collapsed into the unclustered label")
	seed := cmd.Flags.Uint64("seed", 1, "Vertex-visit-order random seed")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 4 {
			return fmt.Errorf("run takes dir, indexName, threshold, clusterName, but got %v", argv)
		}
		threshold, err := strconv.ParseFloat(argv[2], 64)
		if err != nil {
			return fmt.Errorf("malformed threshold %q: %w", argv[2], err)
		}

		idx, err := simpairs.Open(argv[0], argv[1])
		if err != nil {
			return err
		}
		g := graph.Build(idx, threshold)
		removed := g.RemoveIsolated()
		g.LabelPropagate(graph.ClusterOptions{MaxIterations: *maxIter, MinClusterSize: *minSize, Seed: *seed})

		s, err := store.Open(context.Background(), argv[0], true)
		if err != nil {
			return err
		}
		defer s.Close()
		if err := g.StoreClusters(s, argv[3]); err != nil {
			return err
		}
		fmt.Fprintf(env.Stdout, "vertices=%d edges=%d isolatedRemoved=%d\n", g.NumVertices(), g.NumEdges(), removed)
		return nil
	})
	return cmd
}
