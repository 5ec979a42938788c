package main

import (
	"fmt"
	"io"
	"os"

	"github.com/newthinker/fileboxes/internal/codec"
	"github.com/spf13/cobra"
)

func newPutCmd(a *app) *cobra.Command {
	var (
		kind  string
		file  string
		fresh bool
	)
	cmd := &cobra.Command{
		Use:   "put KEY [VALUE]",
		Short: "Store a value under KEY",
		Long: `Store a value under KEY, replacing any existing entry.

The value comes from the VALUE argument, from --file, or from stdin.
With --kind auto it is parsed the way it will later be read back.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			data, err := readInput(cmd, args[1:], file)
			if err != nil {
				return err
			}

			st, err := a.openStore(cmd.Context(), fresh)
			if err != nil {
				return err
			}
			v, err := st.Parse(key, inputKind(kind), data)
			if err != nil {
				return err
			}
			if err := st.Write(key, v); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "stored %s (%s)\n", key, v.Kind())
			return nil
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", "auto", "value kind: auto, structured, text, image or config")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the value from a file (- for stdin)")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "truncate the archive to just this entry")
	return cmd
}

func readInput(cmd *cobra.Command, args []string, file string) ([]byte, error) {
	switch {
	case len(args) > 0 && file != "":
		return nil, fmt.Errorf("pass either VALUE or --file, not both")
	case len(args) > 0:
		return []byte(args[0]), nil
	case file != "" && file != "-":
		return os.ReadFile(file)
	default:
		return io.ReadAll(cmd.InOrStdin())
	}
}

func newGetCmd(a *app) *cobra.Command {
	var (
		output string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "get KEY",
		Short: "Print the decoded value stored under KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore(cmd.Context(), false)
			if err != nil {
				return err
			}
			v, ok, err := st.Read(args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s: not found", args[0])
			}
			return writeValue(cmd.OutOrStdout(), codec.Default(), v, output, out)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputJSON, "structured output: json or yaml")
	cmd.Flags().StringVar(&out, "out", "", "write image entries to this file")
	return cmd
}

func newRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm KEY...",
		Short: "Remove entries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore(cmd.Context(), false)
			if err != nil {
				return err
			}
			for _, key := range args {
				if err := st.Remove(key); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newHasCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "has KEY",
		Short: "Report whether KEY is stored",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore(cmd.Context(), false)
			if err != nil {
				return err
			}
			found, err := st.Contains(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), found)
			return nil
		},
	}
}

func newLsCmd(a *app) *cobra.Command {
	var flat bool
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List entries as a tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore(cmd.Context(), false)
			if err != nil {
				return err
			}
			if flat {
				keys, err := st.Keys()
				if err != nil {
					return err
				}
				for _, k := range keys {
					fmt.Fprintln(cmd.OutOrStdout(), k)
				}
				return nil
			}
			tree, err := st.RenderTree()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tree)
			return nil
		},
	}
	cmd.Flags().BoolVar(&flat, "flat", false, "print one entry name per line")
	return cmd
}
