package cli

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/happyhackingspace/rapgen/internal/storage"
	"github.com/spf13/cobra"
)

const hfDataURL = "https://huggingface.co/datasets/happyhackingspace/rapgen/resolve/main/data.tar.gz"

func (c *CLI) newDataCommand() *cobra.Command {
	dataCmd := &cobra.Command{
		Use:   "data",
		Short: "Manage training data and stored models",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	var downloadDataFolder string
	downloadCmd := &cobra.Command{
		Use:   "download",
		Short: "Download training data from Hugging Face",
		Example: `  rapgen data download
  rapgen data download --data-folder data`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return dataDownload(c.dataFolder(cmd, downloadDataFolder))
		},
	}
	downloadCmd.Flags().StringVar(&downloadDataFolder, "data-folder", "data", "Destination folder for training data")

	var importDataFolder string
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Copy dict.tsv from the data folder into the database",
		Example: `  rapgen data import --data-folder data
  rapgen data import -c rapgen.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			folder := c.dataFolder(cmd, importDataFolder)
			dict, err := storage.NewStorage(folder).LoadDictionary()
			if err != nil {
				return err
			}
			db, err := storage.OpenDB(c.cfg.DB)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.SaveDictionary(cmd.Context(), dict); err != nil {
				return err
			}
			slog.Info("Dictionary imported", "keys", dict.Len(), "db", c.cfg.DB)
			return nil
		},
	}
	importCmd.Flags().StringVar(&importDataFolder, "data-folder", "data", "Source folder for dict.tsv")

	var exportDataFolder string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write the database dictionary to dict.tsv in the data folder",
		Example: `  rapgen data export --data-folder out`,
		RunE: func(cmd *cobra.Command, args []string) error {
			folder := c.dataFolder(cmd, exportDataFolder)
			db, err := storage.OpenDB(c.cfg.DB)
			if err != nil {
				return err
			}
			defer db.Close()
			dict, err := db.LoadDictionary(cmd.Context())
			if err != nil {
				return err
			}
			if dict.Len() == 0 {
				return fmt.Errorf("database %s has no dictionary", c.cfg.DB)
			}
			if err := storage.NewStorage(folder).SaveDictionary(dict); err != nil {
				return err
			}
			slog.Info("Dictionary exported", "keys", dict.Len(), "folder", folder)
			return nil
		},
	}
	exportCmd.Flags().StringVar(&exportDataFolder, "data-folder", "data", "Destination folder for dict.tsv")

	var deleteID string
	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "List or delete model snapshots stored in the database",
		Example: `  rapgen data models
  rapgen data models --delete 0b5c7d2e-8f1a-4c3e-9d6b-2a7f1e4c8b90`,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := storage.OpenDB(c.cfg.DB)
			if err != nil {
				return err
			}
			defer db.Close()
			if deleteID != "" {
				if err := db.DeleteModel(cmd.Context(), deleteID); err != nil {
					return err
				}
				slog.Info("Snapshot deleted", "db", c.cfg.DB, "id", deleteID)
				return nil
			}
			infos, err := db.ListModels(cmd.Context())
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				fmt.Println("No snapshots.")
				return nil
			}
			for _, info := range infos {
				fmt.Printf("%s  %s  %.1fKB\n", info.ID, info.CreatedAt.Format("2006-01-02 15:04:05"), float64(info.Size)/1024)
			}
			return nil
		},
	}

	modelsCmd.Flags().StringVar(&deleteID, "delete", "", "Delete the snapshot with this id instead of listing")

	dataCmd.AddCommand(downloadCmd, importCmd, exportCmd, modelsCmd)
	return dataCmd
}

func dataDownload(dataFolder string) error {
	slog.Info("Downloading training data", "url", hfDataURL)
	resp, err := http.Get(hfDataURL)
	if err != nil {
		return fmt.Errorf("download data: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download data: HTTP %d", resp.StatusCode)
	}

	count, err := extractData(resp.Body, dataFolder)
	if err != nil {
		return err
	}
	slog.Info("Training data extracted", "files", count, "folder", dataFolder)
	return nil
}

// extractData unpacks a data.tar.gz stream, mapping the archive's data/
// prefix onto dataFolder. Entries escaping dataFolder are rejected.
func extractData(r io.Reader, dataFolder string) (int, error) {
	if err := os.RemoveAll(dataFolder); err != nil {
		return 0, fmt.Errorf("remove existing %s: %w", dataFolder, err)
	}

	gr, err := gzip.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("gzip reader: %w", err)
	}
	defer func() { _ = gr.Close() }()

	root := filepath.Clean(dataFolder)
	tr := tar.NewReader(gr)
	count := 0
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("read tar: %w", err)
		}

		name := strings.TrimPrefix(filepath.ToSlash(hdr.Name), "data/")
		target := filepath.Join(root, filepath.FromSlash(name))
		if target != root && !strings.HasPrefix(target, root+string(filepath.Separator)) {
			return count, fmt.Errorf("archive entry %q escapes %s", hdr.Name, dataFolder)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return count, fmt.Errorf("create dir %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return count, fmt.Errorf("create parent dir: %w", err)
			}
			f, err := os.Create(target)
			if err != nil {
				return count, fmt.Errorf("create file %s: %w", target, err)
			}
			if _, err := io.Copy(f, tr); err != nil {
				_ = f.Close()
				return count, fmt.Errorf("write file %s: %w", target, err)
			}
			_ = f.Close()
			count++
		}
	}
	return count, nil
}
