package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"rtcontour/internal/models"
	"rtcontour/pkg/export"
)

func (c *CLI) exportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export contours or beam parameters as xlsx workbooks",
	}
	cmd.AddCommand(c.exportStructuresCommand())
	cmd.AddCommand(c.exportBeamsCommand())
	return cmd
}

// writeWorkbook creates path and streams a workbook into it.
func writeWorkbook(path string, fn func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating workbook: %w", err)
	}
	if err := fn(out); err != nil {
		out.Close()
		os.Remove(path)
		return err
	}
	return out.Close()
}

func (c *CLI) exportStructuresCommand() *cobra.Command {
	var f ioFlags
	cmd := &cobra.Command{
		Use:   "structures [NAME...]",
		Short: "Write one sheet per structure with its contour points",
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := c.load(cmd.Context(), f.inputs)
			if err != nil {
				return err
			}
			path := filepath.Join(c.outDir(&f), "structures.xlsx")
			err = writeWorkbook(path, func(w io.Writer) error {
				return export.Structures(rec, args, w)
			})
			if err != nil {
				return err
			}
			printSuccess(c.Out, "Exported %d structure(s)", exportedCount(rec, args))
			printFile(c.Out, path)
			return nil
		},
	}
	f.register(cmd, true)
	return cmd
}

func exportedCount(rec *models.PatientRecord, names []string) int {
	if len(names) > 0 {
		return len(names)
	}
	return rec.Structures.Len()
}

func (c *CLI) exportBeamsCommand() *cobra.Command {
	var f ioFlags
	cmd := &cobra.Command{
		Use:   "beams",
		Short: "Write one sheet per beam with gantry, table and MLC positions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := c.load(cmd.Context(), f.inputs)
			if err != nil {
				return err
			}
			path := filepath.Join(c.outDir(&f), "beams.xlsx")
			err = writeWorkbook(path, func(w io.Writer) error {
				return export.Beams(rec, w)
			})
			if err != nil {
				return err
			}
			printSuccess(c.Out, "Exported %d beam(s)", len(rec.Plan.Beams))
			printFile(c.Out, path)
			return nil
		},
	}
	f.register(cmd, true)
	return cmd
}
