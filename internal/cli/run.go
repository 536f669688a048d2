package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/happyhackingspace/rapgen"
	"github.com/happyhackingspace/rapgen/internal/htmlutil"
	"github.com/happyhackingspace/rapgen/internal/storage"
	"github.com/spf13/cobra"
)

const modelURL = "https://huggingface.co/datasets/happyhackingspace/rapgen/resolve/main/model.json"

// lineResult is one line of run output.
type lineResult struct {
	Input   string   `json:"input"`
	Outputs []string `json:"outputs"`
}

func (c *CLI) newRunCommand() *cobra.Command {
	var modelPath string
	var snapshot string
	var nBest int
	var substitute bool
	var asHTML bool
	var selector string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "run [text-url-or-file]",
		Short: "Generate rhyming lines for text, a text or HTML file, a URL, or stdin",
		Args:  cobra.MaximumNArgs(1),
		Example: `  # Decode a reading
  rapgen run かおりもさ

  # Every line of a file
  rapgen run lyrics.txt

  # Lyrics from a web page
  rapgen run https://example.com/lyrics --selector .lyrics

  # Pipe text from stdin
  cat lyrics.txt | rapgen run

  # Three candidates per line
  rapgen run かおりもさ -n 3

  # Replace kana runs word by word, keeping other text
  rapgen run "今日はいい天気" --substitute

  # Use a snapshot from the configured database
  rapgen run かおりもさ --snapshot latest`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var lines []string
			var err error

			if len(args) == 0 {
				if isStdinTerminal() {
					return cmd.Help()
				}
				lines, err = readLines(os.Stdin, asHTML, selector)
			} else {
				lines, err = readTarget(args[0], asHTML, selector)
			}
			if err != nil {
				return err
			}
			slog.Debug("Input read", "lines", len(lines))

			start := time.Now()
			g, err := c.loadGenerator(cmd.Context(), modelPath, snapshot)
			if err != nil {
				return err
			}
			slog.Debug("Model loaded", "duration", time.Since(start))

			start = time.Now()
			results, err := generateLines(cmd.Context(), g, lines, c.nBest(cmd, nBest), substitute)
			if err != nil {
				return err
			}
			slog.Debug("Generation completed", "lines", len(results), "duration", time.Since(start))

			if asJSON {
				output, _ := json.MarshalIndent(results, "", "  ")
				fmt.Println(string(output))
				return nil
			}
			for _, r := range results {
				if len(r.Outputs) == 0 {
					fmt.Println("-")
					continue
				}
				fmt.Println(strings.Join(r.Outputs, "\t"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&modelPath, "model", "", "Path to model file (default: config, auto-detect or download)")
	cmd.Flags().StringVar(&snapshot, "snapshot", "", "Load a model snapshot id (or \"latest\") from the database")
	cmd.Flags().IntVarP(&nBest, "count", "n", 1, "Number of candidates per line (default: config n_best)")
	cmd.Flags().BoolVar(&substitute, "substitute", false, "Replace kana runs with rhyming words instead of decoding whole lines")
	cmd.Flags().BoolVar(&asHTML, "html", false, "Treat input as HTML")
	cmd.Flags().StringVar(&selector, "selector", "", "CSS selector for the HTML elements to read")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}

func generateLines(ctx context.Context, g *rapgen.Generator, lines []string, nBest int, substitute bool) ([]lineResult, error) {
	results := make([]lineResult, len(lines))
	for i, line := range lines {
		results[i].Input = line
	}

	switch {
	case substitute:
		for i, line := range lines {
			results[i].Outputs = []string{g.Substitute(line)}
		}
	case nBest > 1:
		for i, line := range lines {
			outs, err := g.GenerateN(line, nBest)
			if err != nil {
				slog.Debug("No generation", "line", line, "error", err)
				continue
			}
			results[i].Outputs = outs
		}
	default:
		outs, err := g.GenerateBatch(ctx, lines)
		if err != nil {
			return nil, err
		}
		for i, s := range outs {
			if s != "" {
				results[i].Outputs = []string{s}
			}
		}
	}
	return results, nil
}

func isStdinTerminal() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// loadGenerator picks the model source: a database snapshot, an explicit
// file, the configured file, a model.json found nearby, or a download.
func (c *CLI) loadGenerator(ctx context.Context, modelPath, snapshot string) (*rapgen.Generator, error) {
	opts := c.generatorOptions()
	if snapshot != "" {
		return loadSnapshot(ctx, c.cfg.DB, snapshot, opts)
	}
	if modelPath == "" {
		modelPath = c.cfg.Model
	}
	if modelPath != "" {
		slog.Debug("Loading custom model", "path", modelPath)
		return rapgen.Load(modelPath, opts...)
	}

	g, err := rapgen.New(opts...)
	if err == nil {
		return g, nil
	}
	if !errors.Is(err, rapgen.ErrModelNotFound) {
		return nil, err
	}

	dir, err := rapgen.ModelDir()
	if err != nil {
		return nil, err
	}
	dest := filepath.Join(dir, rapgen.ModelFile)
	slog.Info("Model not found locally")
	if err := downloadFile(modelURL, dest); err != nil {
		return nil, err
	}
	return rapgen.Load(dest, opts...)
}

func loadSnapshot(ctx context.Context, dsn, id string, opts []rapgen.Option) (*rapgen.Generator, error) {
	if id == "latest" {
		id = ""
	}
	db, err := storage.OpenDB(dsn)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	data, err := db.LoadModel(ctx, id)
	if err != nil {
		return nil, err
	}
	slog.Debug("Snapshot loaded", "db", dsn, "bytes", len(data))
	return rapgen.Unmarshal(data, opts...)
}

func downloadFile(url, dest string) error {
	slog.Info("Downloading model", "url", url, "dest", dest)

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}

	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("download model: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download model: HTTP %d", resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}

	written, err := io.Copy(f, resp.Body)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(dest)
		return fmt.Errorf("download model: %w", err)
	}
	_ = f.Close()

	slog.Info("Model downloaded", "size", fmt.Sprintf("%.1fMB", float64(written)/1024/1024))
	return nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func isHTMLFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".html" || ext == ".htm"
}

// readTarget reads lines from a URL, a file, or the argument itself.
func readTarget(target string, asHTML bool, selector string) ([]string, error) {
	if isURL(target) {
		slog.Debug("Fetching page", "url", target)
		resp, err := http.Get(target)
		if err != nil {
			return nil, fmt.Errorf("fetch URL: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch URL: HTTP %d", resp.StatusCode)
		}
		return readLines(resp.Body, true, selector)
	}
	if f, err := os.Open(target); err == nil {
		defer f.Close()
		return readLines(f, asHTML || isHTMLFile(target), selector)
	}
	return readLines(strings.NewReader(target), asHTML, selector)
}

// readLines returns the non-blank lines of r, or the visible text lines
// when r is HTML.
func readLines(r io.Reader, asHTML bool, selector string) ([]string, error) {
	if asHTML {
		doc, err := htmlutil.LoadHTML(r)
		if err != nil {
			return nil, fmt.Errorf("parse HTML: %w", err)
		}
		lines := htmlutil.DocumentLines(doc, selector)
		slog.Debug("HTML input", "title", htmlutil.Title(doc), "lines", len(lines))
		return lines, nil
	}
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return lines, nil
}
