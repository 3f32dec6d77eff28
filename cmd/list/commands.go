package list

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ValentinKolb/dCol/cmd/util"
	"github.com/ValentinKolb/dCol/lib/collections"
	"github.com/spf13/cobra"
)

// parseIndex parses a (possibly negative) element index
func parseIndex(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("index must be a number: %w", err)
	}
	return i, nil
}

// printValues prints one element per line prefixed with its position
func printValues(values []string) {
	for i, v := range values {
		fmt.Printf("%d: %s\n", i, v)
	}
}

var (
	appendCmd = &cobra.Command{
		Use:   "append [name] [value...]",
		Short: "Appends values to the end of a sequence",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, ctx, cancel, err := openSequence(args[0])
			if err != nil {
				return err
			}
			defer cancel()
			if err := s.Extend(ctx, args[1:]...); err != nil {
				return err
			} else {
				fmt.Printf("appended %d values\n", len(args)-1)
			}
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [name] [index]",
		Short: "Reads the element at an index (negative counts from the end)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			s, ctx, cancel, err := openSequence(args[0])
			if err != nil {
				return err
			}
			defer cancel()
			resp, err := s.Get(ctx, index)
			if errors.Is(err, collections.ErrIndexOutOfRange) {
				fmt.Printf("index=%d, found=false\n", index)
				return nil
			} else if err != nil {
				return err
			}
			fmt.Printf("index=%d, found=true, resp=%s\n", index, resp)
			return nil
		},
	}
	setCmd = &cobra.Command{
		Use:   "set [name] [index] [value]",
		Short: "Replaces the element at an index",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			s, ctx, cancel, err := openSequence(args[0])
			if err != nil {
				return err
			}
			defer cancel()
			if err := s.SetAt(ctx, index, args[2]); err != nil {
				return err
			} else {
				fmt.Println("set successfully")
			}
			return nil
		},
	}
	insertCmd = &cobra.Command{
		Use:   "insert [name] [index] [value]",
		Short: "Inserts a value before an index (out of range indices are clamped)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			s, ctx, cancel, err := openSequence(args[0])
			if err != nil {
				return err
			}
			defer cancel()
			if err := s.Insert(ctx, index, args[2]); err != nil {
				return err
			} else {
				fmt.Println("insert successfully")
			}
			return nil
		},
	}
	popCmd = &cobra.Command{
		Use:   "pop [name] [index]",
		Short: "Removes and prints the element at an index (default: last)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index := -1
			if len(args) == 2 {
				var err error
				if index, err = parseIndex(args[1]); err != nil {
					return err
				}
			}
			s, ctx, cancel, err := openSequence(args[0])
			if err != nil {
				return err
			}
			defer cancel()
			resp, err := s.Pop(ctx, index)
			if err != nil {
				return err
			}
			fmt.Printf("index=%d, resp=%s\n", index, resp)
			return nil
		},
	}
	removeCmd = &cobra.Command{
		Use:   "remove [name] [value]",
		Short: "Removes the first element equal to a value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, ctx, cancel, err := openSequence(args[0])
			if err != nil {
				return err
			}
			defer cancel()
			err = s.Remove(ctx, args[1])
			if errors.Is(err, collections.ErrNotFound) {
				fmt.Printf("value=%s, removed=false\n", args[1])
				return nil
			} else if err != nil {
				return err
			}
			fmt.Printf("value=%s, removed=true\n", args[1])
			return nil
		},
	}
	indexCmd = &cobra.Command{
		Use:   "index [name] [value]",
		Short: "Prints the position of the first element equal to a value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, ctx, cancel, err := openSequence(args[0])
			if err != nil {
				return err
			}
			defer cancel()
			index, err := s.Index(ctx, args[1])
			if errors.Is(err, collections.ErrNotFound) {
				fmt.Printf("value=%s, found=false\n", args[1])
				return nil
			} else if err != nil {
				return err
			}
			fmt.Printf("value=%s, found=true, index=%d\n", args[1], index)
			return nil
		},
	}
	countCmd = &cobra.Command{
		Use:   "count [name] [value]",
		Short: "Counts the elements equal to a value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, ctx, cancel, err := openSequence(args[0])
			if err != nil {
				return err
			}
			defer cancel()
			n, err := s.Count(ctx, args[1])
			if err != nil {
				return err
			}
			fmt.Printf("value=%s, count=%d\n", args[1], n)
			return nil
		},
	}
	sliceCmd = &cobra.Command{
		Use:   "slice [name] [start:stop:step]",
		Short: "Prints a slice of the sequence (e.g. 1:-2, ::-1)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, stop, step, err := util.ParseSlice(args[1])
			if err != nil {
				return err
			}
			s, ctx, cancel, err := openSequence(args[0])
			if err != nil {
				return err
			}
			defer cancel()
			values, err := s.Slice(ctx, start, stop, step)
			if err != nil {
				return err
			}
			printValues(values)
			return nil
		},
	}
	delSliceCmd = &cobra.Command{
		Use:   "del-slice [name] [start:stop:step]",
		Short: "Removes a slice of the sequence",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, stop, step, err := util.ParseSlice(args[1])
			if err != nil {
				return err
			}
			s, ctx, cancel, err := openSequence(args[0])
			if err != nil {
				return err
			}
			defer cancel()
			if err := s.DeleteSlice(ctx, start, stop, step); err != nil {
				return err
			} else {
				fmt.Println("delete successfully")
			}
			return nil
		},
	}
	lenCmd = &cobra.Command{
		Use:   "len [name]",
		Short: "Prints the number of elements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, ctx, cancel, err := openSequence(args[0])
			if err != nil {
				return err
			}
			defer cancel()
			n, err := s.Len(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("name=%s, len=%d\n", args[0], n)
			return nil
		},
	}
	clearCmd = &cobra.Command{
		Use:   "clear [name]",
		Short: "Removes all elements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, ctx, cancel, err := openSequence(args[0])
			if err != nil {
				return err
			}
			defer cancel()
			if err := s.Clear(ctx); err != nil {
				return err
			} else {
				fmt.Println("clear successfully")
			}
			return nil
		},
	}
	sortCmd = &cobra.Command{
		Use:   "sort [name]",
		Short: "Sorts the sequence in place and prints the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, ctx, cancel, err := openSequence(args[0])
			if err != nil {
				return err
			}
			defer cancel()
			sorted, err := collections.SortOrdered(ctx, s)
			if err != nil {
				return err
			}
			printValues(sorted)
			return nil
		},
	}
	reverseCmd = &cobra.Command{
		Use:   "reverse [name]",
		Short: "Reverses the sequence in place",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, ctx, cancel, err := openSequence(args[0])
			if err != nil {
				return err
			}
			defer cancel()
			if err := s.Reverse(ctx); err != nil {
				return err
			} else {
				fmt.Println("reverse successfully")
			}
			return nil
		},
	}
)
