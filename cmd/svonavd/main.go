package main

import (
	"os"

	"github.com/spf13/cobra"
)

// VERSION is stamped by the build; keep a dev default for local runs.
var VERSION = "dev"

func main() {
	root := &cobra.Command{
		Use:     "svonavd",
		Short:   "sparse voxel octree navigation toolkit",
		Version: VERSION,
	}
	root.AddCommand(BuildCmd())
	root.AddCommand(ServeCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
