// Command bufferpoold runs a standalone buffer pool instance with an HTTP
// introspection endpoint, or queries a running instance's stats.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "bufferpoold",
		Short: "A fixed-capacity page cache with clock second-chance eviction",
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newStatsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
