package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor/displacement"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor/normalize"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor/playback"
	"github.com/Takayuki-Minagawa/FloorModeAnime/internal/floor/validate"
	"github.com/spf13/cobra"
)

var errInvalidDataset = errors.New("dataset has validation errors")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "floorcheck",
		Short:        "Validate floor vibration datasets and evaluate mode shapes",
		SilenceUsage: true,
	}
	root.AddCommand(newValidateCmd(), newDisplaceCmd(), newPlayCmd())
	return root
}

// load reads, normalizes and validates a dataset file.
func load(path string) (*floor.Dataset, validate.Report, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, validate.Report{}, fmt.Errorf("read dataset: %w", err)
	}
	ds, err := normalize.Normalize(string(b))
	if err != nil {
		return nil, validate.Report{}, err
	}
	return ds, validate.Validate(ds), nil
}

func printReport(w io.Writer, r validate.Report) {
	for _, e := range r.Errors {
		fmt.Fprintf(w, "error   %-22s %s\n", e.Code, e.Message)
	}
	for _, e := range r.Warnings {
		fmt.Fprintf(w, "warning %-22s %s\n", e.Code, e.Message)
	}
}

func newValidateCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Report structural and numeric problems in a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, report, err := load(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				printReport(out, report)
				fmt.Fprintf(out, "%d node(s), %d line(s), %d mode(s): %d error(s), %d warning(s)\n",
					len(ds.Nodes), len(ds.Lines), len(ds.ModeNumbers()), len(report.Errors), len(report.Warnings))
			}
			if report.HasErrors() {
				return errInvalidDataset
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

// engineFor validates ds and resolves the requested mode, defaulting to
// the lowest one.
func engineFor(cmd *cobra.Command, path string, mode int) (*displacement.Engine, int, error) {
	ds, report, err := load(path)
	if err != nil {
		return nil, 0, err
	}
	if report.HasErrors() {
		printReport(cmd.ErrOrStderr(), report)
		return nil, 0, errInvalidDataset
	}
	eng := displacement.New(ds)
	modes := eng.Modes()
	if len(modes) == 0 {
		return nil, 0, errors.New("dataset defines no modes")
	}
	if mode == 0 {
		return eng, modes[0], nil
	}
	if !slices.Contains(modes, mode) {
		return nil, 0, fmt.Errorf("mode %d is not defined; available: %v", mode, modes)
	}
	return eng, mode, nil
}

func newDisplaceCmd() *cobra.Command {
	var (
		mode  int
		t     float64
		scale float64
	)
	cmd := &cobra.Command{
		Use:   "displace FILE",
		Short: "Print every node's displaced elevation at one instant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, m, err := engineFor(cmd, args[0], mode)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "mode %d  f=%.4g Hz  t=%.4g s  L_floor=%.4g  A_ref=%.4g  U_max=%.4g\n",
				m, eng.Frequency(m), t, eng.LFloor(), eng.ARef(), eng.UMax(m))
			for _, p := range eng.Frame(m, t, scale) {
				fmt.Fprintf(out, "%6d %12.6f %12.6f\n", p.ID, p.Z-p.DZ, p.Z)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&mode, "mode", 0, "mode number (default: lowest)")
	cmd.Flags().Float64Var(&t, "time", 0, "time in seconds")
	cmd.Flags().Float64Var(&scale, "scale", playback.DefaultScale, "displacement scale")
	return cmd
}

func newPlayCmd() *cobra.Command {
	var (
		mode   int
		fps    float64
		frames int
		speed  float64
		scale  float64
	)
	cmd := &cobra.Command{
		Use:   "play FILE",
		Short: "Drive playback with fixed frame deltas and print each frame",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if fps <= 0 {
				return errors.New("--fps must be positive")
			}
			eng, m, err := engineFor(cmd, args[0], mode)
			if err != nil {
				return err
			}
			ctrl := playback.New(eng)
			ctrl.SetMode(m)
			ctrl.SetScale(scale)
			ctrl.SetSpeed(speed)
			ctrl.Play()

			out := cmd.OutOrStdout()
			ids := eng.NodeIDs()
			fmt.Fprint(out, "frame time")
			for _, id := range ids {
				fmt.Fprintf(out, " z_%d", id)
			}
			fmt.Fprintln(out)
			for i := 0; i <= frames; i++ {
				if i > 0 {
					ctrl.Update(1 / fps)
				}
				fmt.Fprintf(out, "%d %.6f", i, ctrl.Time())
				for _, id := range ids {
					fmt.Fprintf(out, " %.6f", ctrl.DisplacedZ(id))
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&mode, "mode", 0, "mode number (default: lowest)")
	cmd.Flags().Float64Var(&fps, "fps", 60, "frames per second")
	cmd.Flags().IntVar(&frames, "frames", 30, "number of frames to advance")
	cmd.Flags().Float64Var(&speed, "speed", playback.DefaultSpeed, "playback speed")
	cmd.Flags().Float64Var(&scale, "scale", playback.DefaultScale, "displacement scale")
	return cmd
}
