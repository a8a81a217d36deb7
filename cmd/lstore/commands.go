package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

const commandTimeout = 30 * time.Second

// setCmd writes one key
var setCmd = &cobra.Command{
	Use:   "set <key> <json-value>",
	Short: "Store a JSON value under a key",
	Long: `Stores a value under a key. The value argument must be valid JSON;
quote it for the shell:

  lstore set item1 '{"just": "a test"}'
  lstore set counter 42
  lstore set -f sessions s '{"t": 1}'`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, valueArg := args[0], args[1]

		var value interface{}
		if err := json.Unmarshal([]byte(valueArg), &value); err != nil {
			return fmt.Errorf("value is not valid JSON: %w", err)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
		defer cancel()

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		return st.SetItem(ctx, key, value, folderFlag)
	},
}

// getCmd reads one key
var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the JSON value stored under a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
		defer cancel()

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		raw, found, err := st.GetItem(ctx, args[0])
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("key %q not found", args[0])
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(raw))
		return nil
	},
}

// removeCmd deletes one key
var removeCmd = &cobra.Command{
	Use:   "remove <key>",
	Short: "Delete the record for a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
		defer cancel()

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		return st.RemoveItem(ctx, args[0])
	},
}

// keysCmd lists keys
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List logical keys, optionally scoped to a folder",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		for _, key := range st.Keys(folderFlag) {
			fmt.Fprintln(cmd.OutOrStdout(), key)
		}
		return nil
	},
}

// clearCmd wipes a folder (or the whole store)
var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Recursively empty a folder (the whole store without --folder)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		return st.Clear(folderFlag)
	},
}

// copyCmd duplicates the on-disk tree
var copyCmd = &cobra.Command{
	Use:   "copy <destination>",
	Short: "Recursively copy the store (or a folder) to another directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
		defer cancel()

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		return st.CopyTo(ctx, args[0], folderFlag)
	},
}

// rescanCmd rebuilds the index from directory contents
var rescanCmd = &cobra.Command{
	Use:   "rescan",
	Short: "Rebuild the index from directory contents and report the key count",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Rescan(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d keys\n", len(st.Keys("")))
		return nil
	},
}
