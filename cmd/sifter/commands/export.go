package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sifterlab/sifter/internal/export"
	"github.com/sifterlab/sifter/pkg/storage/file"
)

// Export output formats.
const (
	FormatJSON  = "json"
	FormatTable = "table"
	FormatHTML  = "html"
)

// ErrUnknownFormat indicates a requested export format is not supported.
var ErrUnknownFormat = errors.New("unknown export format")

// ExportCommand holds configuration for the export command.
type ExportCommand struct {
	format  string
	output  string
	noColor bool
}

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	xc := &ExportCommand{format: FormatJSON}

	cmd := &cobra.Command{
		Use:   "export <store-dir>",
		Short: "Export a store as JSON, a table, or an HTML timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return xc.run(cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&xc.format, "format", FormatJSON, "Output format: json, table, html")
	cmd.Flags().StringVarP(&xc.output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().BoolVar(&xc.noColor, "no-color", false, "Disable colored table output")

	return cmd
}

func (xc *ExportCommand) run(cmd *cobra.Command, dir string) error {
	store := file.NewStore(dir)

	err := store.OpenExisting()
	if err != nil {
		return err
	}

	writeErr := xc.write(cmd.OutOrStdout(), store)
	closeErr := store.Close()

	return errors.Join(writeErr, closeErr)
}

func (xc *ExportCommand) write(stdout io.Writer, store *file.Store) error {
	out := stdout

	var outFile *os.File

	if xc.output != "" {
		f, err := os.Create(xc.output)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}

		outFile = f
		out = f
	}

	writeErr := xc.writeFormat(out, store)

	var closeErr error
	if outFile != nil {
		closeErr = outFile.Close()
	}

	return errors.Join(writeErr, closeErr)
}

func (xc *ExportCommand) writeFormat(out io.Writer, store *file.Store) error {
	if xc.format == FormatTable {
		return export.WriteSummary(store, out, xc.noColor)
	}

	report, err := export.BuildReport(store)
	if err != nil {
		return err
	}

	switch xc.format {
	case FormatJSON:
		return export.WriteJSON(report, out)
	case FormatHTML:
		return export.WriteTimelinePage(report, out)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, xc.format)
	}
}
