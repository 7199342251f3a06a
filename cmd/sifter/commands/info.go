package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/sifterlab/sifter/internal/export"
	"github.com/sifterlab/sifter/pkg/storage/file"
)

// InfoCommand holds configuration for the info command.
type InfoCommand struct {
	noColor bool
}

// NewInfoCommand creates the info command.
func NewInfoCommand() *cobra.Command {
	ic := &InfoCommand{}

	cmd := &cobra.Command{
		Use:   "info <store-dir>",
		Short: "Summarize the contents of a store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ic.run(cmd, args[0])
		},
	}

	cmd.Flags().BoolVar(&ic.noColor, "no-color", false, "Disable colored output")

	return cmd
}

func (ic *InfoCommand) run(cmd *cobra.Command, dir string) error {
	store := file.NewStore(dir)

	err := store.OpenExisting()
	if err != nil {
		return err
	}

	summaryErr := export.WriteSummary(store, cmd.OutOrStdout(), ic.noColor)
	closeErr := store.Close()

	return errors.Join(summaryErr, closeErr)
}
