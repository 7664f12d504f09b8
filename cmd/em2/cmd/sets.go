package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/grailbio/base/cmdutil"
	"v.io/x/lib/cmdline"

	"github.com/HIM72/ExpressionMatrix2/sets"
	"github.com/HIM72/ExpressionMatrix2/store"
)

func openRegistry(dir string) (*store.Store, *sets.Registry, error) {
	s, err := store.Open(context.Background(), dir, false)
	if err != nil {
		return nil, nil, err
	}
	r, err := sets.Open(s, dir)
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	return s, r, nil
}

func newCmdGeneSet() *cmdline.Command {
	newRegex := &cmdline.Command{
		Name:     "new-regex",
		Short:    "Create a gene-set of every gene whose name fully matches a regex",
		ArgsName: "dir name pattern",
		Runner: cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
			if len(argv) != 3 {
				return fmt.Errorf("new-regex takes dir, name, pattern, but got %v", argv)
			}
			s, r, err := openRegistry(argv[0])
			if err != nil {
				return err
			}
			defer s.Close()
			defer r.Close()
			gs, ok, err := r.NewGeneSetByRegex(argv[1], argv[2])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("gene-set %q already exists", argv[1])
			}
			fmt.Fprintf(env.Stdout, "%s: %d genes\n", gs.Name, len(gs.Genes))
			return nil
		}),
	}
	newNames := &cmdline.Command{
		Name:     "new-names",
		Short:    "Create a gene-set from a comma-separated list of gene names",
		ArgsName: "dir name comma-separated-names",
		Runner: cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
			if len(argv) != 3 {
				return fmt.Errorf("new-names takes dir, name, names, but got %v", argv)
			}
			s, r, err := openRegistry(argv[0])
			if err != nil {
				return err
			}
			defer s.Close()
			defer r.Close()
			gs, ignored, empty, ok, err := r.NewGeneSetByNames(argv[1], strings.Split(argv[2], ","))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("gene-set %q already exists", argv[1])
			}
			fmt.Fprintf(env.Stdout, "%s: %d genes (%d unknown, %d empty)\n", gs.Name, len(gs.Genes), ignored, empty)
			return nil
		}),
	}
	return &cmdline.Command{
		Name:     "geneset",
		Short:    "Create and inspect gene-sets",
		Children: []*cmdline.Command{newRegex, newNames},
	}
}

func newCmdCellSet() *cmdline.Command {
	newMetaRegex := &cmdline.Command{
		Name:     "new-meta-regex",
		Short:    "Create a cell-set of every cell whose meta-data field fully matches a regex",
		ArgsName: "dir name field pattern",
		Runner: cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
			if len(argv) != 4 {
				return fmt.Errorf("new-meta-regex takes dir, name, field, pattern, but got %v", argv)
			}
			s, r, err := openRegistry(argv[0])
			if err != nil {
				return err
			}
			defer s.Close()
			defer r.Close()
			cs, ok, err := r.NewCellSetByMetaDataRegex(argv[1], argv[2], argv[3])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("cell-set %q already exists", argv[1])
			}
			fmt.Fprintf(env.Stdout, "%s: %d cells\n", cs.Name, len(cs.Cells))
			return nil
		}),
	}
	downSample := &cmdline.Command{
		Name:     "downsample",
		Short:    "Create a cell-set by independently including cells of an input set with probability p",
		ArgsName: "dir name input p seed",
		Runner: cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
			if len(argv) != 5 {
				return fmt.Errorf("downsample takes dir, name, input, p, seed, but got %v", argv)
			}
			s, r, err := openRegistry(argv[0])
			if err != nil {
				return err
			}
			defer s.Close()
			defer r.Close()
			input, ok := r.CellSet(argv[2])
			if !ok {
				return fmt.Errorf("cell-set %q not found", argv[2])
			}
			p, err := strconv.ParseFloat(argv[3], 64)
			if err != nil {
				return fmt.Errorf("malformed probability %q: %w", argv[3], err)
			}
			seed, err := strconv.ParseUint(argv[4], 10, 64)
			if err != nil {
				return fmt.Errorf("malformed seed %q: %w", argv[4], err)
			}
			cs, ok, err := r.DownSampleCellSet(argv[1], input, p, seed)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("cell-set %q already exists", argv[1])
			}
			fmt.Fprintf(env.Stdout, "%s: %d cells\n", cs.Name, len(cs.Cells))
			return nil
		}),
	}
	return &cmdline.Command{
		Name:     "cellset",
		Short:    "Create and inspect cell-sets",
		Children: []*cmdline.Command{newMetaRegex, downSample},
	}
}
