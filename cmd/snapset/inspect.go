package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bamsammich/snapset/internal/codec"
	"github.com/bamsammich/snapset/internal/tarball"
	"github.com/bamsammich/snapset/internal/ui"
)

func newInspectCmd() *cobra.Command {
	var extractDir string

	cmd := &cobra.Command{
		Use:   "inspect [flags] <archive>",
		Short: "List (or extract) the members of a compressed set",
		Long: `inspect decodes an output file with the codec matching its extension
(.snappy, .s2, .zst, .lz4) and lists the tar members inside it.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args[0], extractDir)
		},
	}
	cmd.Flags().StringVarP(&extractDir, "extract", "x", "", "write the members into DIR")
	return cmd
}

func runInspect(cmd *cobra.Command, path, extractDir string) error {
	c, err := codec.ForPath(path)
	if err != nil {
		return err
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	container, err := c.Decode(blob)
	if err != nil {
		return fmt.Errorf("%s: decode %s: %w", path, c.Name(), err)
	}

	out := cmd.OutOrStdout()
	if extractDir != "" {
		written, err := tarball.Extract(container, extractDir)
		for _, p := range written {
			fmt.Fprintln(out, p)
		}
		return err
	}

	members, err := tarball.ReadAll(container)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	var total int64
	for _, m := range members {
		size := int64(len(m.Data))
		total += size
		fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Name, ui.FormatBytes(size), m.ModTime.Local().Format(time.DateTime))
	}
	_ = tw.Flush()
	fmt.Fprintf(out, "%d members  %s in %s (%s stored)\n",
		len(members), ui.FormatBytes(total), ui.FormatBytes(int64(len(container))), ui.FormatBytes(int64(len(blob))))
	return err
}
