package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"rtcontour/internal/models"
	"rtcontour/pkg/rterr"
	"rtcontour/pkg/stats"
)

type statsFlags struct {
	ioFlags
	structures []string
	targets    []string
	proximity  []string
	json       bool
}

// report is the stats command output
type report struct {
	Structures []stats.Summary  `json:"structures,omitempty"`
	Apertures  []stats.Aperture `json:"apertures,omitempty"`
	Targets    []stats.Target   `json:"targets,omitempty"`
	Proximity  *stats.Gap       `json:"proximity,omitempty"`
	Notices    []models.Notice  `json:"notices,omitempty"`
}

func (c *CLI) statsCommand() *cobra.Command {
	var f statsFlags
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize structures, MLC apertures and prescription targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := c.load(cmd.Context(), f.inputs)
			if err != nil {
				return err
			}
			r, err := buildReport(rec, &f)
			if err != nil {
				return err
			}
			if f.json {
				enc := json.NewEncoder(c.Out)
				enc.SetIndent("", "  ")
				return enc.Encode(r)
			}
			c.printReport(r)
			return nil
		},
	}
	f.register(cmd, false)
	cmd.Flags().StringSliceVarP(&f.structures, "structures", "s", nil, "structures to summarize (default all)")
	cmd.Flags().StringSliceVarP(&f.targets, "targets", "t", nil, "structure names matching the plan dose references, in order")
	cmd.Flags().StringSliceVar(&f.proximity, "proximity", nil, "two structures whose closest approach is reported")
	cmd.Flags().BoolVar(&f.json, "json", false, "print the report as json")
	return cmd
}

func buildReport(rec *models.PatientRecord, f *statsFlags) (*report, error) {
	if len(f.proximity) > 0 && len(f.proximity) != 2 {
		return nil, rterr.InvalidArgument("proximity", "need exactly two structure names")
	}
	r := &report{}
	var err error
	if rec.Structures != nil {
		if r.Structures, err = stats.Summarize(rec, f.structures...); err != nil {
			return nil, err
		}
	}
	if rec.Plan != nil {
		if r.Apertures, err = stats.ApertureAreas(rec.Plan); err != nil {
			return nil, err
		}
	}
	if rec.Plan != nil && rec.Structures != nil {
		if r.Targets, r.Notices, err = stats.Targets(rec, f.targets); err != nil {
			return nil, err
		}
	}
	if len(f.proximity) > 0 {
		gap, err := stats.Proximity(rec, f.proximity[0], f.proximity[1])
		if err != nil {
			return nil, err
		}
		r.Proximity = &gap
	}
	return r, nil
}

func (c *CLI) printReport(r *report) {
	w := c.Out
	for _, s := range r.Structures {
		printTitle(w, s.Name)
		printKeyValue(w, "Slices / points", fmt.Sprintf("%d / %d", s.Slices, s.Points))
		printKeyValue(w, "Centre of mass [mm]", formatPoint(s.CenterOfMass))
		printKeyValue(w, "Max radius", formatMM(s.MaxRadius))
		printKeyValue(w, "Min radius", formatMM(s.MinRadius))
		printKeyValue(w, "Mean radius", formatMM(s.MeanRadius))
		if s.HasIso {
			printKeyValue(w, "Distance to iso", formatMM(s.DistanceToIso))
		}
	}
	if len(r.Apertures) > 0 {
		printTitle(w, "MLC apertures")
		for _, a := range r.Apertures {
			printKeyValue(w, fmt.Sprintf("Beam %d / CP %d", a.Beam, a.ControlPoint),
				fmt.Sprintf("%s %s  gantry %.1f %s  table %.1f",
					StyleNumber.Render(fmt.Sprintf("%.4f", a.Area)), StyleDim.Render("mm²"),
					a.GantryAngle, a.GantryDirection, a.TableAngle))
		}
	}
	if len(r.Targets) > 0 {
		printTitle(w, "Targets")
		for _, t := range r.Targets {
			line := fmt.Sprintf("%.2f Gy prescribed", t.PrescriptionDose)
			if t.Structure != nil {
				line += fmt.Sprintf(", %s centre %s", t.Structure.Name, formatPoint(t.Structure.CenterOfMass))
			}
			printKeyValue(w, t.Name, line)
		}
	}
	if r.Proximity != nil {
		printTitle(w, "Proximity")
		printKeyValue(w, "Closest approach", formatMM(r.Proximity.Distance))
		printKeyValue(w, "Between", formatPoint(r.Proximity.From)+" "+formatPoint(r.Proximity.To))
	}
	printNotices(w, r.Notices)
}
