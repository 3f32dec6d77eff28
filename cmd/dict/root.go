package dict

import (
	"context"

	"github.com/ValentinKolb/dCol/cmd/util"
	"github.com/ValentinKolb/dCol/lib/collections"
	"github.com/ValentinKolb/dCol/lib/common"
	"github.com/ValentinKolb/dCol/lib/conn"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	pool   *conn.Pool
	config common.ClientConfig

	// DictCommands represents the mapping command group
	DictCommands = &cobra.Command{
		Use:                "dict",
		Short:              "Perform mapping operations",
		PersistentPreRunE:  setupDictClient,
		PersistentPostRunE: func(*cobra.Command, []string) error { return util.Shutdown(pool) },
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common connection flags to the dict command
	util.SetupClientFlags(DictCommands)

	DictCommands.PersistentFlags().Bool("keyspace", false, util.WrapString("Store every entry as its own key instead of one hash"))

	// Add subcommands
	DictCommands.AddCommand(setCmd)
	DictCommands.AddCommand(getCmd)
	DictCommands.AddCommand(delCmd)
	DictCommands.AddCommand(hasCmd)
	DictCommands.AddCommand(popCmd)
	DictCommands.AddCommand(keysCmd)
	DictCommands.AddCommand(itemsCmd)
	DictCommands.AddCommand(lenCmd)
	DictCommands.AddCommand(clearCmd)
}

// setupDictClient opens the connection pool
func setupDictClient(cmd *cobra.Command, _ []string) (err error) {
	pool, config, err = util.Setup(cmd)
	return err
}

// openMapping opens the named mapping with the configured codecs and layout
func openMapping(name string) (*collections.Mapping[string, string], context.Context, context.CancelFunc, error) {
	var extra []collections.Option
	if viper.GetBool("keyspace") {
		extra = append(extra, collections.WithKeyspaceLayout())
	}
	opts, err := util.CollectionOptions(config, extra...)
	if err != nil {
		return nil, nil, nil, err
	}
	m, err := collections.NewMapping[string, string](pool, name, opts...)
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, cancel := util.Context()
	return m, ctx, cancel, nil
}
