package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sifterlab/sifter/pkg/storage/file"
)

// MergeCommand holds configuration for the merge command.
type MergeCommand struct{}

// NewMergeCommand creates the merge command.
func NewMergeCommand() *cobra.Command {
	mc := &MergeCommand{}

	cmd := &cobra.Command{
		Use:   "merge <dest-dir> <source-dir>...",
		Short: "Merge stores into a destination store",
		Long:  "Append every container from each source store into the destination store, rewriting identifiers and event data references.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mc.run(cmd, args[0], args[1:])
		},
	}

	return cmd
}

func (mc *MergeCommand) run(cmd *cobra.Command, destDir string, sourceDirs []string) error {
	dest := file.NewStore(destDir)

	err := dest.Open()
	if err != nil {
		return fmt.Errorf("open destination store: %w", err)
	}

	mergeErr := mergeAll(dest, sourceDirs)
	closeErr := dest.Close()

	err = errors.Join(mergeErr, closeErr)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "merged %d stores into %s\n", len(sourceDirs), dest.Dir())

	return nil
}

func mergeAll(dest *file.Store, sourceDirs []string) error {
	for _, dir := range sourceDirs {
		src := file.NewStore(dir)

		err := src.OpenExisting()
		if err != nil {
			return fmt.Errorf("open source store %s: %w", dir, err)
		}

		mergeErr := dest.MergeFrom(src)
		closeErr := src.Close()

		err = errors.Join(mergeErr, closeErr)
		if err != nil {
			return fmt.Errorf("merge %s: %w", dir, err)
		}
	}

	return nil
}
