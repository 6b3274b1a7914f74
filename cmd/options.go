package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/gst-filter/internal/pipeline"
)

var optionsStates []string

var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "List the states, cities, business types and slabs a filter accepts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initFilterEnv(ctx, "options", nil)
		if err != nil {
			return err
		}
		defer env.Close()

		opts, err := env.Service.Options(ctx)
		if err != nil {
			return eris.Wrap(err, "options")
		}
		return printOptions(cmd.OutOrStdout(), opts, optionsStates)
	},
}

// printOptions writes the vocabulary as YAML. With states given, cities
// are narrowed to those states.
func printOptions(w io.Writer, opts *pipeline.Options, states []string) error {
	if len(states) > 0 {
		cities := opts.CitiesFor(states)
		_, _ = fmt.Fprintf(w, "# cities in %s\n", strings.Join(states, ", "))
		enc := yaml.NewEncoder(w)
		defer enc.Close() //nolint:errcheck
		return enc.Encode(map[string][]string{"cities": cities})
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close() //nolint:errcheck
	return enc.Encode(opts)
}

func init() {
	optionsCmd.Flags().StringSliceVar(&optionsStates, "state", nil, "only list cities in these states (repeatable)")
	rootCmd.AddCommand(optionsCmd)
}
