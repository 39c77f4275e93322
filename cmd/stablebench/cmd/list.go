// Copyright © 2018 One Concern

package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list [patterns...]",
	Short: "List benchmarks",
	Long: `List the benchmarks of all suites, as suite/name.

Patterns are globs matched against the full benchmark ID or its name alone.`,
	Example: `% stablebench list 'fsbench/*' '*_and_rollback'
fsbench/read_100mb
fsbench/read_100mb_in_segments
...`,
	Run: func(cmd *cobra.Command, args []string) {
		benches, err := registry().Select(args...)
		if err != nil {
			wrapFatalln("select benchmarks", err)
			return
		}
		suiteColor := color.New(color.FgCyan)
		for _, bm := range benches {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s/%s\n", suiteColor.Sprint(bm.Suite), bm.Name)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
