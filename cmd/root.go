package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dCol/cmd/bench"
	"github.com/ValentinKolb/dCol/cmd/dict"
	"github.com/ValentinKolb/dCol/cmd/list"
	"github.com/ValentinKolb/dCol/cmd/lock"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dcol",
		Short: "remote collections on a key-value store",
		Long: fmt.Sprintf(`dCol (v%s)

Mappings and sequences that live on a shared Redis-compatible store,
with reconnecting connections and a cooperative per-collection lock.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dCol",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dCol v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(dict.DictCommands)
	RootCmd.AddCommand(list.ListCommands)
	RootCmd.AddCommand(lock.LockCommands)
	RootCmd.AddCommand(bench.BenchCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
