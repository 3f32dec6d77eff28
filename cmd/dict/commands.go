package dict

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ValentinKolb/dCol/lib/collections"
	"github.com/spf13/cobra"
)

var (
	setCmd = &cobra.Command{
		Use:   "set [name] [key] [value]",
		Short: "Sets the value for a key",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, ctx, cancel, err := openMapping(args[0])
			if err != nil {
				return err
			}
			defer cancel()
			if err := m.Set(ctx, args[1], args[2]); err != nil {
				return err
			} else {
				fmt.Println("set successfully")
			}
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [name] [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, ctx, cancel, err := openMapping(args[0])
			if err != nil {
				return err
			}
			defer cancel()
			if resp, ok, err := m.Lookup(ctx, args[1]); err != nil {
				return err
			} else {
				fmt.Printf("key=%s, found=%v, resp=%s\n", args[1], ok, resp)
			}
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [name] [key]",
		Short: "Deletes a key value pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, ctx, cancel, err := openMapping(args[0])
			if err != nil {
				return err
			}
			defer cancel()
			if existed, err := m.Delete(ctx, args[1]); err != nil {
				return err
			} else {
				fmt.Printf("key=%s, deleted=%v\n", args[1], existed)
			}
			return nil
		},
	}
	hasCmd = &cobra.Command{
		Use:   "has [name] [key]",
		Short: "Checks if a key exists",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, ctx, cancel, err := openMapping(args[0])
			if err != nil {
				return err
			}
			defer cancel()
			if ok, err := m.Contains(ctx, args[1]); err != nil {
				return err
			} else {
				fmt.Printf("key=%s, found=%v\n", args[1], ok)
			}
			return nil
		},
	}
	popCmd = &cobra.Command{
		Use:   "pop [name] [key]",
		Short: "Removes a key and prints its value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, ctx, cancel, err := openMapping(args[0])
			if err != nil {
				return err
			}
			defer cancel()
			resp, err := m.Pop(ctx, args[1])
			if errors.Is(err, collections.ErrKeyNotFound) {
				fmt.Printf("key=%s, found=false\n", args[1])
				return nil
			} else if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=true, resp=%s\n", args[1], resp)
			return nil
		},
	}
	keysCmd = &cobra.Command{
		Use:   "keys [name]",
		Short: "Lists all keys in key order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, ctx, cancel, err := openMapping(args[0])
			if err != nil {
				return err
			}
			defer cancel()
			keys, err := m.SortedKeys(ctx, strings.Compare)
			if err != nil {
				return err
			}
			for _, k := range keys {
				fmt.Println(k)
			}
			return nil
		},
	}
	itemsCmd = &cobra.Command{
		Use:   "items [name]",
		Short: "Lists all key value pairs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, ctx, cancel, err := openMapping(args[0])
			if err != nil {
				return err
			}
			defer cancel()
			for item, err := range m.IterItems(ctx) {
				if err != nil {
					return err
				}
				fmt.Printf("key=%s, value=%s\n", item.Key, item.Value)
			}
			return nil
		},
	}
	lenCmd = &cobra.Command{
		Use:   "len [name]",
		Short: "Prints the number of entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, ctx, cancel, err := openMapping(args[0])
			if err != nil {
				return err
			}
			defer cancel()
			n, err := m.Len(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("name=%s, len=%d\n", args[0], n)
			return nil
		},
	}
	clearCmd = &cobra.Command{
		Use:   "clear [name]",
		Short: "Removes all entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, ctx, cancel, err := openMapping(args[0])
			if err != nil {
				return err
			}
			defer cancel()
			if err := m.Clear(ctx); err != nil {
				return err
			} else {
				fmt.Println("clear successfully")
			}
			return nil
		},
	}
)
