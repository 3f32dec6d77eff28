package list

import (
	"context"

	"github.com/ValentinKolb/dCol/cmd/util"
	"github.com/ValentinKolb/dCol/lib/collections"
	"github.com/ValentinKolb/dCol/lib/common"
	"github.com/ValentinKolb/dCol/lib/conn"
	"github.com/spf13/cobra"
)

var (
	pool   *conn.Pool
	config common.ClientConfig

	// ListCommands represents the sequence command group
	ListCommands = &cobra.Command{
		Use:                "list",
		Short:              "Perform sequence operations",
		PersistentPreRunE:  setupListClient,
		PersistentPostRunE: func(*cobra.Command, []string) error { return util.Shutdown(pool) },
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common connection flags to the list command
	util.SetupClientFlags(ListCommands)

	// Add subcommands
	ListCommands.AddCommand(appendCmd)
	ListCommands.AddCommand(getCmd)
	ListCommands.AddCommand(setCmd)
	ListCommands.AddCommand(insertCmd)
	ListCommands.AddCommand(popCmd)
	ListCommands.AddCommand(removeCmd)
	ListCommands.AddCommand(indexCmd)
	ListCommands.AddCommand(countCmd)
	ListCommands.AddCommand(sliceCmd)
	ListCommands.AddCommand(delSliceCmd)
	ListCommands.AddCommand(lenCmd)
	ListCommands.AddCommand(clearCmd)
	ListCommands.AddCommand(sortCmd)
	ListCommands.AddCommand(reverseCmd)
}

// setupListClient opens the connection pool
func setupListClient(cmd *cobra.Command, _ []string) (err error) {
	pool, config, err = util.Setup(cmd)
	return err
}

// openSequence opens the named sequence with the configured value codec
func openSequence(name string) (*collections.Sequence[string], context.Context, context.CancelFunc, error) {
	opts, err := util.CollectionOptions(config)
	if err != nil {
		return nil, nil, nil, err
	}
	s, err := collections.NewSequence[string](pool, name, opts...)
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, cancel := util.Context()
	return s, ctx, cancel, nil
}
