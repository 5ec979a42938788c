package main

import (
	"io"

	"github.com/newthinker/fileboxes/internal/store"
	"github.com/spf13/cobra"
)

func newCatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cat KEY",
		Short: "Print the raw bytes of an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore(cmd.Context(), false)
			if err != nil {
				return err
			}
			return st.WithStream(args[0], store.ModeRead, func(es *store.EntryStream) error {
				_, err := io.Copy(cmd.OutOrStdout(), es)
				return err
			})
		},
	}
}

func newAppendCmd(a *app) *cobra.Command {
	var truncate bool
	cmd := &cobra.Command{
		Use:   "append KEY [TEXT]",
		Short: "Append TEXT, or stdin, to the raw bytes of an entry",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := store.ModeAppend
			if truncate {
				mode = store.ModeWrite
			}
			st, err := a.openStore(cmd.Context(), false)
			if err != nil {
				return err
			}
			return st.WithStream(args[0], mode, func(es *store.EntryStream) error {
				if len(args) == 2 {
					_, err := io.WriteString(es, args[1])
					return err
				}
				_, err := io.Copy(es, cmd.InOrStdin())
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&truncate, "truncate", false, "replace the entry instead of appending")
	return cmd
}
