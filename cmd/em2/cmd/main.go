package cmd

import (
	"log"

	"v.io/x/lib/cmdline"
)

// Run parses argv and dispatches to the appropriate em2 subcommand.
func Run() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(
		&cmdline.Command{
			Name:     "em2",
			Short:    "Tools for building and querying expression-matrix stores",
			LookPath: false,
			Children: []*cmdline.Command{
				newCmdCreate(),
				newCmdStats(),
				newCmdAddCells(),
				newCmdGeneSet(),
				newCmdCellSet(),
				newCmdSimilarPairs(),
				newCmdCluster(),
			},
		})
}
