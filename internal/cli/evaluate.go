package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/happyhackingspace/rapgen"
	"github.com/spf13/cobra"
)

func (c *CLI) newEvaluateCommand() *cobra.Command {
	var dataFolder string
	var cvFolds int
	var epochs int
	var shuffle bool

	cmd := &cobra.Command{
		Use:     "evaluate",
		Short:   "Evaluate model accuracy via cross-validation",
		Example: `  rapgen evaluate --data-folder data --cv 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			folder := c.dataFolder(cmd, dataFolder)
			folds := c.cfg.Evaluate.Folds
			if cmd.Flags().Changed("cv") {
				folds = cvFolds
			}
			slog.Info("Evaluating", "folds", folds, "data-folder", folder)
			start := time.Now()
			result, err := rapgen.Evaluate(folder, &rapgen.EvalConfig{
				Folds:   folds,
				Train:   c.trainConfig(cmd, epochs, shuffle),
				Verbose: c.verbose,
			})
			if err != nil {
				return err
			}
			slog.Debug("Evaluation completed", "duration", time.Since(start))

			fmt.Printf("Word accuracy: %.1f%% (%d/%d words)\n",
				result.WordAccuracy*100, result.WordCorrect, result.WordTotal)
			fmt.Printf("Sequence accuracy: %.1f%% (%d/%d lines)\n",
				result.SequenceAccuracy*100, result.SequenceCorrect, result.SequenceTotal)
			if result.Skipped > 0 {
				fmt.Printf("Lines without a path: %d\n", result.Skipped)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dataFolder, "data-folder", "data", "Path to training data folder")
	cmd.Flags().IntVar(&cvFolds, "cv", 5, "Number of cross-validation folds")
	cmd.Flags().IntVar(&epochs, "epochs", 20, "Number of training epochs per fold")
	cmd.Flags().BoolVar(&shuffle, "shuffle", false, "Shuffle examples every epoch")
	return cmd
}
