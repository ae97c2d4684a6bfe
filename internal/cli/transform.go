package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"rtcontour/pkg/engine"
	"rtcontour/pkg/rterr"
)

// transformFlags adds the axis and origin flags to ioFlags
type transformFlags struct {
	ioFlags
	axis   string
	origin []float64
}

func amount(op, what, arg string) (float64, error) {
	v, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return 0, rterr.InvalidArgument(op, "%s must be a number, got %q", what, arg)
	}
	return v, nil
}

// runOperation loads the inputs, applies ops and saves the result.
func (c *CLI) runOperation(cmd *cobra.Command, f *ioFlags, ops ...engine.Operation) error {
	ctx := cmd.Context()
	rec, err := c.load(ctx, f.inputs)
	if err != nil {
		return err
	}

	p := newProgress(loggerFromContext(ctx))
	out, err := c.engine(ctx).Apply(rec, ops...)
	if err != nil {
		return err
	}
	p.done(fmt.Sprintf("Applied %d operation(s)", len(ops)))

	paths, err := c.save(cmd, out, f)
	if err != nil {
		return err
	}
	for _, o := range ops {
		printSuccess(c.Out, "%s", o)
	}
	for _, path := range paths {
		printFile(c.Out, path)
	}
	return nil
}

func (c *CLI) singleOperation(op, what, defaultAxis, axisHelp string) *cobra.Command {
	var f transformFlags
	cmd := &cobra.Command{
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := amount(op, what, args[1])
			if err != nil {
				return err
			}
			o := engine.Operation{Op: op, Structure: args[0], Amount: v, Axis: f.axis}
			if len(f.origin) > 0 {
				o.Origin = f.origin
			}
			return c.runOperation(cmd, &f.ioFlags, o)
		},
	}
	f.register(cmd, true)
	cmd.Flags().StringVarP(&f.axis, "axis", "a", defaultAxis, axisHelp)
	cmd.Flags().Float64SliceVar(&f.origin, "origin", nil, "pivot as x,y,z in mm (default: first point of the last structure)")
	return cmd
}

func (c *CLI) rotateCommand() *cobra.Command {
	cmd := c.singleOperation(engine.OpRotate, "angle", "yaw", "rotation axis: roll, pitch or yaw")
	cmd.Use = "rotate STRUCTURE DEGREES"
	cmd.Short = "Rotate a structure about an origin"
	cmd.Example = "  rtcontour rotate PTV 1.5 --axis yaw -i rs.yaml -i rp.yaml"
	return cmd
}

func (c *CLI) translateCommand() *cobra.Command {
	cmd := c.singleOperation(engine.OpTranslate, "delta", "x", "translation axis: x, y or z")
	cmd.Use = "translate STRUCTURE MM"
	cmd.Short = "Translate a structure along an axis"
	cmd.Example = "  rtcontour translate PTV -- -2 --axis z -i rs.yaml"
	return cmd
}

func (c *CLI) marginCommand() *cobra.Command {
	var f ioFlags
	cmd := &cobra.Command{
		Use:   "margin STRUCTURE MM",
		Short: "Expand (positive) or contract (negative) a structure in every slice",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := amount(engine.OpMargin, "margin", args[1])
			if err != nil {
				return err
			}
			return c.runOperation(cmd, &f, engine.Operation{Op: engine.OpMargin, Structure: args[0], Amount: v})
		},
	}
	f.register(cmd, true)
	return cmd
}

func (c *CLI) applyCommand() *cobra.Command {
	var f ioFlags
	cmd := &cobra.Command{
		Use:   "apply SCRIPT",
		Short: "Apply a list of operations from a yaml script",
		Long: `Apply runs every operation of the script in order, each on the result of
the previous one. Nothing is written unless all operations succeed.

  operations:
    - {op: translate, structure: PTV, amount: 2, axis: x}
    - {op: rotate, structure: PTV, amount: 1, axis: yaw, origin: [0, 0, 0]}
    - {op: margin, structure: GTV, amount: 1.5}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("error reading script: %w", err)
			}
			ops, err := engine.LoadScript(data)
			if err != nil {
				return err
			}
			return c.runOperation(cmd, &f, ops...)
		},
	}
	f.register(cmd, true)
	return cmd
}
