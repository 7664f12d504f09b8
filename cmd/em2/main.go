// Command em2 is a manual-smoke-testing and scripted-pipeline driver for an
// expression-matrix store: create/inspect a store, build gene- and
// cell-sets, build a SimilarPairs index (exact or LSH), and cluster it.
package main

import "github.com/HIM72/ExpressionMatrix2/cmd/em2/cmd"

func main() {
	cmd.Run()
}
