package lock

import (
	"errors"
	"fmt"

	"github.com/ValentinKolb/dCol/cmd/util"
	"github.com/ValentinKolb/dCol/lib/conn"
	"github.com/ValentinKolb/dCol/lib/lockmgr"
	"github.com/spf13/cobra"
)

var (
	pool    *conn.Pool
	lockMgr lockmgr.ILockManager
	noWait  bool

	// LockCommands represents the lock command group
	LockCommands = &cobra.Command{
		Use:   "lock",
		Short: "Perform lock operations",
		Long: util.WrapString("Operate on the cooperative lock of a collection. The lock is " +
			"a counter on the store, it outlives the command that acquired it."),
		PersistentPreRunE:  setupLockClient,
		PersistentPostRunE: func(*cobra.Command, []string) error { return util.Shutdown(pool) },
	}

	// acquireCmd represents the acquire command
	acquireCmd = &cobra.Command{
		Use:   "acquire [collection]",
		Short: "Acquire the lock of a collection",
		Args:  cobra.ExactArgs(1),
		RunE:  runAcquire,
	}

	// releaseCmd represents the release command
	releaseCmd = &cobra.Command{
		Use:   "release [collection]",
		Short: "Release a previously acquired lock",
		Args:  cobra.ExactArgs(1),
		RunE:  runRelease,
	}

	// deleteCmd represents the delete command
	deleteCmd = &cobra.Command{
		Use:   "delete [collection]",
		Short: "Remove a lock regardless of its holder",
		Long:  "Remove a lock regardless of its holder. Use this to recover a lock left behind by a crashed process.",
		Args:  cobra.ExactArgs(1),
		RunE:  runDelete,
	}

	// statusCmd represents the status command
	statusCmd = &cobra.Command{
		Use:   "status [collection]",
		Short: "Show whether a lock is held",
		Args:  cobra.ExactArgs(1),
		RunE:  runStatus,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add subcommands to lock command
	LockCommands.AddCommand(acquireCmd)
	LockCommands.AddCommand(releaseCmd)
	LockCommands.AddCommand(deleteCmd)
	LockCommands.AddCommand(statusCmd)

	// Add common connection flags to the lock command
	util.SetupClientFlags(LockCommands)

	// Add flags specific to acquire
	acquireCmd.Flags().BoolVar(&noWait, "no-wait", false, util.WrapString("Fail immediately if the lock is held"))
}

// setupLockClient initializes the lock manager
func setupLockClient(cmd *cobra.Command, _ []string) error {
	p, config, err := util.Setup(cmd)
	if err != nil {
		return err
	}
	pool = p

	// no handle is registered, the lock survives the command
	lockMgr = lockmgr.NewLockManager(pool.Source(util.Endpoint(config)), lockmgr.OptionsFromConfig(config))
	return nil
}

// runAcquire handles the acquire lock command
func runAcquire(_ *cobra.Command, args []string) error {
	ctx, cancel := util.Context()
	defer cancel()

	err := lockMgr.AcquireLock(ctx, lockmgr.LockName(args[0]), noWait)
	if errors.Is(err, lockmgr.ErrLockInUse) {
		fmt.Printf("acquired=false\n")
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to acquire lock: %v", err)
	}

	fmt.Printf("acquired=true, lock=%s\n", lockmgr.LockName(args[0]))
	return nil
}

// runRelease handles the release lock command
func runRelease(_ *cobra.Command, args []string) error {
	ctx, cancel := util.Context()
	defer cancel()

	err := lockMgr.ReleaseLock(ctx, lockmgr.LockName(args[0]))
	if errors.Is(err, lockmgr.ErrNotHeld) {
		fmt.Printf("released=false\n")
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to release lock: %v", err)
	}

	fmt.Printf("released=true\n")
	return nil
}

// runDelete handles the delete lock command
func runDelete(_ *cobra.Command, args []string) error {
	ctx, cancel := util.Context()
	defer cancel()

	if err := lockMgr.DeleteLock(ctx, lockmgr.LockName(args[0])); err != nil {
		return fmt.Errorf("failed to delete lock: %v", err)
	}

	fmt.Printf("deleted=true\n")
	return nil
}

// runStatus handles the status lock command
func runStatus(_ *cobra.Command, args []string) error {
	ctx, cancel := util.Context()
	defer cancel()

	locked, err := lockMgr.IsLocked(ctx, lockmgr.LockName(args[0]))
	if err != nil {
		return fmt.Errorf("failed to read lock: %v", err)
	}

	fmt.Printf("lock=%s, locked=%v\n", lockmgr.LockName(args[0]), locked)
	return nil
}
