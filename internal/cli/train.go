package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/happyhackingspace/rapgen"
	"github.com/happyhackingspace/rapgen/internal/storage"
	"github.com/spf13/cobra"
)

func (c *CLI) newTrainCommand() *cobra.Command {
	var dataFolder string
	var epochs int
	var shuffle bool
	var toDB bool

	cmd := &cobra.Command{
		Use:   "train <modelfile>",
		Short: "Train a model on dict.tsv and train.tsv",
		Args:  cobra.ExactArgs(1),
		Example: `  rapgen train model.json --data-folder data
  rapgen train model.json --epochs 50 --shuffle
  rapgen train model.json --db -v`,
		RunE: func(cmd *cobra.Command, args []string) error {
			modelPath := args[0]
			folder := c.dataFolder(cmd, dataFolder)
			cfg := c.trainConfig(cmd, epochs, shuffle)
			slog.Info("Training generator", "data-folder", folder, "epochs", cfg.Epochs, "output", modelPath)
			start := time.Now()
			g, err := rapgen.Train(folder, &cfg, c.generatorOptions()...)
			if err != nil {
				return err
			}
			slog.Debug("Training completed", "duration", time.Since(start))
			if err := g.Save(modelPath); err != nil {
				return err
			}
			slog.Info("Model saved", "path", modelPath)

			if toDB {
				return c.saveSnapshot(cmd.Context(), g)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dataFolder, "data-folder", "data", "Path to training data folder")
	cmd.Flags().IntVar(&epochs, "epochs", 20, "Number of training epochs")
	cmd.Flags().BoolVar(&shuffle, "shuffle", false, "Shuffle examples every epoch")
	cmd.Flags().BoolVar(&toDB, "db", false, "Also store the model as a snapshot in the configured database")
	return cmd
}

func (c *CLI) saveSnapshot(ctx context.Context, g *rapgen.Generator) error {
	data, err := g.Marshal()
	if err != nil {
		return err
	}
	db, err := storage.OpenDB(c.cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()
	id, err := db.SaveModel(ctx, data)
	if err != nil {
		return err
	}
	slog.Info("Snapshot stored", "db", c.cfg.DB, "id", id)
	return nil
}
