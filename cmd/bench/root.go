package bench

import (
	"strings"

	"github.com/ValentinKolb/dCol/cmd/util"
	"github.com/ValentinKolb/dCol/lib/common"
	"github.com/ValentinKolb/dCol/lib/conn"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	pool   *conn.Pool
	config common.ClientConfig

	// BenchCmd runs the benchmarks against a store
	BenchCmd = &cobra.Command{
		Use:                "bench",
		Short:              "Performance testing tool for collections",
		Long:               util.WrapString("Runs parallel benchmarks of mapping, sequence and lock operations against a store. All benchmark collections are removed afterwards."),
		PreRunE:            processBenchConfig,
		RunE:               run,
		PostRunE:           func(*cobra.Command, []string) error { return util.Shutdown(pool) },
		Args:               cobra.NoArgs,
	}
	benchKeyPrefix        = "__bench"
	benchLargeValueSizeKB = 100
	benchNumThreads       = 10
	benchKeySpread        = 100
	benchSkip             = make([]string, 0)
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common connection flags
	util.SetupClientFlags(BenchCmd)

	// add flags
	key := "skip"
	BenchCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. dict-set,lock)"))
	key = "threads"
	BenchCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "large-value-size"
	BenchCmd.Flags().Int(key, 100, util.WrapString("How large the value for the dict-set-large test should be (in KB)"))
	key = "keys"
	BenchCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	BenchCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
	key = "metrics"
	BenchCmd.Flags().Bool(key, false, util.WrapString("Print the client counters in Prometheus text format after the run"))
}

func processBenchConfig(cmd *cobra.Command, _ []string) (err error) {
	pool, config, err = util.Setup(cmd)
	if err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	benchLargeValueSizeKB = viper.GetInt("large-value-size")
	benchKeySpread = max(viper.GetInt("keys"), 1)
	benchNumThreads = max(viper.GetInt("threads"), 1)
	benchSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}
