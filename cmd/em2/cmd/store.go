package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/grailbio/base/cmdutil"
	"v.io/x/lib/cmdline"

	"github.com/HIM72/ExpressionMatrix2/store"
)

func newCmdCreate() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "create",
		Short:    "Create a new, empty expression-matrix store",
		ArgsName: "dir",
	}
	geneCap := cmd.Flags.Int("gene-capacity", store.DefaultParams().GeneCapacity, "Reserved gene-table capacity")
	cellCap := cmd.Flags.Int("cell-capacity", store.DefaultParams().CellCapacity, "Reserved cell-table capacity")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("create takes one directory argument, but got %v", argv)
		}
		params := store.DefaultParams()
		params.GeneCapacity = *geneCap
		params.CellCapacity = *cellCap
		s, err := store.Create(context.Background(), argv[0], params)
		if err != nil {
			return err
		}
		return s.Close()
	})
	return cmd
}

func newCmdStats() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "stats",
		Short:    "Print gene and cell counts for a store",
		ArgsName: "dir",
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("stats takes one directory argument, but got %v", argv)
		}
		s, err := store.Open(context.Background(), argv[0], false)
		if err != nil {
			return err
		}
		defer s.Close()
		fmt.Fprintf(env.Stdout, "genes\t%d\ncells\t%d\n", s.NumGenes(), s.NumCells())
		return nil
	})
	return cmd
}

func newCmdAddCells() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "add-cells",
		Short: "Append cells to a store from a tab-separated smoke-test file",
		Long: `Each input line has the form:

  cellName<TAB>geneA:count<TAB>geneB:count...

Blank lines and lines starting with '#' are skipped.`,
		ArgsName: "dir cellsfile",
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 2 {
			return fmt.Errorf("add-cells takes dir and cellsfile arguments, but got %v", argv)
		}
		return addCells(argv[0], argv[1])
	})
	return cmd
}

func addCells(dir, path string) error {
	s, err := store.Open(context.Background(), dir, true)
	if err != nil {
		return err
	}
	defer s.Close()

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	added := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		cellName := fields[0]
		counts := make([]store.GeneCount, 0, len(fields)-1)
		for _, field := range fields[1:] {
			geneName, countStr, ok := strings.Cut(field, ":")
			if !ok {
				return fmt.Errorf("malformed gene:count field %q in line %q", field, line)
			}
			count, err := strconv.ParseFloat(countStr, 32)
			if err != nil {
				return fmt.Errorf("malformed count in field %q: %w", field, err)
			}
			counts = append(counts, store.GeneCount{GeneName: geneName, Count: float32(count)})
		}
		metaData := []store.MetaDataPair{{Name: "CellName", Value: cellName}}
		if _, err := s.AddCell(metaData, counts); err != nil {
			return fmt.Errorf("adding cell %q: %w", cellName, err)
		}
		added++
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	fmt.Printf("added %d cells\n", added)
	return nil
}
