package cli

import (
	"github.com/spf13/cobra"

	"rtcontour/pkg/identity"
	"rtcontour/pkg/rterr"
)

// anonymizeFields are the values --keep may name
var anonymizeFields = []string{"name", "birth", "operator", "creation"}

func (c *CLI) anonymizeOptions(keep []string) (identity.Options, error) {
	opts := identity.Options{
		Name:         c.Config.Anonymize.Name,
		BirthDate:    c.Config.Anonymize.BirthDate,
		OperatorName: c.Config.Anonymize.OperatorName,
		CreationDate: c.Config.Anonymize.CreationDate,
	}
	for _, k := range keep {
		switch k {
		case "name":
			opts.Name = ""
		case "birth":
			opts.BirthDate = ""
		case "operator":
			opts.OperatorName = ""
		case "creation":
			opts.CreationDate = ""
		default:
			return opts, rterr.InvalidArgument("anonymize", "cannot keep %q, expected one of %v", k, anonymizeFields)
		}
	}
	return opts, nil
}

func (c *CLI) anonymizeCommand() *cobra.Command {
	var f ioFlags
	var keep []string
	cmd := &cobra.Command{
		Use:   "anonymize",
		Short: "Replace patient name, birth date, operator and creation date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.anonymizeOptions(keep)
			if err != nil {
				return err
			}
			rec, err := c.load(cmd.Context(), f.inputs)
			if err != nil {
				return err
			}
			out, notices, err := identity.Anonymize(rec, opts)
			if err != nil {
				return err
			}
			printNotices(c.Err, notices)

			paths, err := c.save(cmd, out, &f)
			if err != nil {
				return err
			}
			printSuccess(c.Out, "Anonymized patient %s", out.Patient.ID)
			for _, p := range paths {
				printFile(c.Out, p)
			}
			return nil
		},
	}
	f.register(cmd, true)
	cmd.Flags().StringSliceVar(&keep, "keep", nil, "fields to leave untouched: name, birth, operator, creation")
	return cmd
}
