package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"shrinkray/internal/config"
	"shrinkray/internal/model"
)

func newPresetsCmd() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List the built-in parameter presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if jsonOut {
				out := make(map[string]model.Params, len(config.Presets))
				for name, p := range config.Presets {
					out[name] = p.Params
				}
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tP\tQ\tC\tALPHA\tV_I\tV_U\tQ*\tSTRICT\tREGIME\tDESCRIPTION")
			for _, name := range config.PresetNames() {
				p := config.Presets[name]
				m := p.Params
				fmt.Fprintf(tw, "%s\t%.2f\t%g\t%.3f\t%.2f\t%.2f\t%.2f\t%g\t%t\t%s\t%s\n",
					name, m.P, m.Q, m.C, m.Alpha, m.VI, m.VU, m.QStar, m.StrictQStar,
					model.ClassifyRegime(m), p.Description)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON")
	return cmd
}
