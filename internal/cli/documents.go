package cli

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"rtcontour/internal/models"
	"rtcontour/pkg/codec"
	"rtcontour/pkg/identity"
	"rtcontour/pkg/rterr"
)

// ioFlags are the input/output flags shared by commands that read documents
type ioFlags struct {
	inputs  []string
	outDir  string
	format  string
	reissue bool
}

func (f *ioFlags) register(cmd *cobra.Command, output bool) {
	cmd.Flags().StringSliceVarP(&f.inputs, "in", "i", nil, "input documents (1 to 3: structure set, plan, dose)")
	cmd.MarkFlagRequired("in")
	if !output {
		return
	}
	cmd.Flags().StringVarP(&f.outDir, "out", "o", "", "output directory (default from config)")
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "output format: yaml or json (default from config)")
	cmd.Flags().BoolVar(&f.reissue, "reissue-uids", true, "give written documents fresh instance UIDs")
}

// load reads and merges the input documents. Identity notices are printed
// to the error stream.
func (c *CLI) load(ctx context.Context, paths []string) (*models.PatientRecord, error) {
	logger := loggerFromContext(ctx)
	if len(paths) == 0 {
		return nil, rterr.InvalidArgument("load", "no input documents")
	}
	docs := make([]*models.Document, 0, len(paths))
	for _, p := range paths {
		doc, err := codec.ReadFile(p)
		if err != nil {
			return nil, err
		}
		logger.Debug("loaded document", "path", p, "modality", doc.Modality)
		docs = append(docs, doc)
	}
	rec, notices, err := identity.Merge(docs...)
	if err != nil {
		return nil, err
	}
	printNotices(c.Err, notices)
	return rec, nil
}

// outDir returns the --out directory or the configured one.
func (c *CLI) outDir(f *ioFlags) string {
	if f.outDir != "" {
		return f.outDir
	}
	return c.Config.Output.Dir
}

// save writes one document per sub-record of rec and returns the paths.
func (c *CLI) save(cmd *cobra.Command, rec *models.PatientRecord, f *ioFlags) ([]string, error) {
	name := f.format
	if name == "" {
		name = c.Config.Output.Format
	}
	format, err := codec.ParseFormat(name)
	if err != nil {
		return nil, err
	}

	reissue := c.Config.Output.ReissueUIDs
	if cmd.Flags().Changed("reissue-uids") {
		reissue = f.reissue
	}
	if reissue {
		if rec, err = identity.Reissue(rec); err != nil {
			return nil, err
		}
	}

	dir := c.outDir(f)
	var paths []string
	for _, doc := range identity.Split(rec) {
		path := filepath.Join(dir, strings.ToLower(string(doc.Modality))+format.Ext())
		if err := codec.WriteFile(path, doc); err != nil {
			return nil, err
		}
		loggerFromContext(cmd.Context()).Debug("wrote document", "path", path)
		paths = append(paths, path)
	}
	return paths, nil
}
