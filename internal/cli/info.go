package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"zcomposite/pkg/ingest"
)

func (a *app) infoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info INPUT",
		Short: "Print the shape and per-channel statistics of a .npy volume",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInfo(cmd, args[0])
		},
	}
}

func (a *app) runInfo(cmd *cobra.Command, input string) error {
	fi, err := os.Stat(input)
	if err != nil {
		return fmt.Errorf("failed to stat volume file: %w", err)
	}

	vol, err := ingest.Load(input)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "File:   %s (%s)\n", input, humanize.Bytes(uint64(fi.Size())))
	fmt.Fprintf(out, "Shape:  %d slices, %d channels, %dx%d pixels\n", vol.Z, vol.C, vol.X, vol.Y)
	fmt.Fprintf(out, "Voxels: %s\n\n", humanize.Comma(int64(vol.NumVoxels())))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHANNEL\tMIN\tMAX\tMEAN\tSTDDEV")
	for _, cs := range vol.Stats() {
		fmt.Fprintf(w, "%d\t%.4g\t%.4g\t%.4g\t%.4g\n", cs.Channel, cs.Min, cs.Max, cs.Mean, cs.StdDev)
	}
	return w.Flush()
}
