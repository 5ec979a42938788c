package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "fileboxes",
		Short: "fileboxes - typed key/value entries in a single ZIP archive",
		Long: `fileboxes stores JSON documents, text, images and INI files as entries
of one ZIP archive. The entry name's extension, or the content itself,
decides how each entry is decoded.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	rootCmd.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&a.debug, "debug", "d", false, "enable debug mode")
	rootCmd.PersistentFlags().StringVarP(&a.archive, "archive", "a", "", "archive path (overrides config)")

	rootCmd.AddCommand(
		newPutCmd(a),
		newGetCmd(a),
		newCatCmd(a),
		newAppendCmd(a),
		newRmCmd(a),
		newHasCmd(a),
		newLsCmd(a),
		newSnapshotCmd(a),
		newServeCmd(a),
		newVersionCmd(),
	)
	return rootCmd, a
}

// execute runs cmd and then tears a down, whether or not the command
// failed, so failed commands still flush logs and metrics.
func execute(cmd *cobra.Command, a *app) error {
	err := cmd.Execute()
	return errors.Join(err, a.teardown())
}

func main() {
	if err := execute(newRootCmd()); err != nil {
		os.Exit(1)
	}
}
