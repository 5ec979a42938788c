package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/newthinker/fileboxes/internal/snapshot"
	"github.com/spf13/cobra"
)

func newSnapshotCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "snapshot",
		Aliases: []string{"snap"},
		Short:   "Manage archive snapshots",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "take",
			Short: "Snapshot the archive now",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := a.snapshots()
				if err != nil {
					return err
				}
				man, err := m.Take(cmd.Context(), a.cfg.Archive.Path, snapshot.ReasonManual)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), man.ID)
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List snapshots, oldest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := a.snapshots()
				if err != nil {
					return err
				}
				list, err := m.List(cmd.Context())
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tCREATED\tREASON\tSIZE\tSTORED\tCOMPRESSION\tARCHIVE")
				for _, man := range list {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
						man.ID, man.CreatedAt.Format(time.RFC3339), man.Reason,
						man.Size, man.StoredSize, man.Compression, man.Archive)
				}
				return w.Flush()
			},
		},
		newSnapshotRestoreCmd(a),
		&cobra.Command{
			Use:   "rm ID...",
			Short: "Delete snapshots",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := a.snapshots()
				if err != nil {
					return err
				}
				for _, id := range args {
					if err := m.Delete(cmd.Context(), id); err != nil {
						return err
					}
				}
				return nil
			},
		},
		newSnapshotPruneCmd(a),
	)
	return cmd
}

func newSnapshotRestoreCmd(a *app) *cobra.Command {
	var dest string
	cmd := &cobra.Command{
		Use:   "restore ID",
		Short: "Restore a snapshot over its archive, or to --to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.snapshots()
			if err != nil {
				return err
			}
			if dest == "" {
				dest = a.cfg.Archive.Path
			}
			man, err := m.Restore(cmd.Context(), args[0], dest)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored %s (%d bytes) to %s\n", man.ID, man.Size, dest)
			return nil
		},
	}
	cmd.Flags().StringVar(&dest, "to", "", "restore to this path instead of the configured archive")
	return cmd
}

func newSnapshotPruneCmd(a *app) *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.snapshots()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("keep") {
				keep = a.cfg.Snapshot.Retain
			}
			removed, err := m.Prune(cmd.Context(), keep)
			if err != nil {
				return err
			}
			for _, id := range removed {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 0, "snapshots to keep (default: snapshot.retain)")
	return cmd
}
