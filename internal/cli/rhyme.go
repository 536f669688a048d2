package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func (c *CLI) newRhymeCommand() *cobra.Command {
	var modelPath string
	var snapshot string
	var all bool

	cmd := &cobra.Command{
		Use:   "rhyme <reading>...",
		Short: "Find dictionary words that rhyme with each reading",
		Args:  cobra.MinimumNArgs(1),
		Example: `  rapgen rhyme さとみ
  rapgen rhyme かおりもさ きょう --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := c.loadGenerator(cmd.Context(), modelPath, snapshot)
			if err != nil {
				return err
			}
			for _, reading := range args {
				if !all {
					w := g.Rhyme(reading)
					if w == "" {
						w = "-"
					}
					fmt.Printf("%s\t%s\n", reading, w)
					continue
				}
				var words []string
				for _, key := range g.RhymeKeys(reading) {
					words = append(words, g.Dictionary().Words(key)...)
				}
				if len(words) == 0 {
					fmt.Printf("%s\t-\n", reading)
					continue
				}
				fmt.Printf("%s\t%s\n", reading, strings.Join(words, " "))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&modelPath, "model", "", "Path to model file (default: config, auto-detect or download)")
	cmd.Flags().StringVar(&snapshot, "snapshot", "", "Load a model snapshot id (or \"latest\") from the database")
	cmd.Flags().BoolVar(&all, "all", false, "List every rhyming word instead of one random pick")
	return cmd
}
