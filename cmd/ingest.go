package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/voiceline/voiceline/internal/knowledge"
)

var (
	ingestUser    string
	ingestInclude string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <directory>",
	Short: "Index business documents into the knowledge store",
	Long: `Reads documents from a directory, chunks and embeds them, and adds
them to the knowledge store the agent searches during calls. Markdown files
are stripped to plain text before embedding.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		embedder, err := createEmbedderFromConfig(cfg)
		if err != nil {
			return fmt.Errorf("creating embedder: %w", err)
		}

		store, err := knowledge.NewStore(embedder)
		if err != nil {
			return fmt.Errorf("creating knowledge store: %w", err)
		}
		if err := store.Load(context.Background(), cfg.DataDir); err != nil {
			fmt.Fprintf(os.Stderr, "Starting a new knowledge store (%v)\n", err)
		}

		files, err := collectFiles(args[0], ingestInclude)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no files matching %q under %s", ingestInclude, args[0])
		}

		bar := progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription("Ingesting documents"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)

		ctx := context.Background()
		totalChunks := 0
		for _, path := range files {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}

			text := string(data)
			if strings.EqualFold(filepath.Ext(path), ".md") {
				text = knowledge.ExtractMarkdownText(data)
			}

			n, err := store.AddDocument(ctx, ingestUser, filepath.Base(path), text)
			if err != nil {
				return fmt.Errorf("indexing %s: %w", path, err)
			}
			totalChunks += n
			bar.Describe(filepath.Base(path))
			_ = bar.Add(1)
		}
		_ = bar.Finish()

		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
		if err := store.Persist(ctx, cfg.DataDir); err != nil {
			return fmt.Errorf("persisting knowledge store: %w", err)
		}

		fmt.Printf("Indexed %d files (%d chunks) for user %s\n", len(files), totalChunks, ingestUser)
		return nil
	},
}

// collectFiles walks root and returns files matching the include glob.
func collectFiles(root, include string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		ok, err := doublestar.Match(include, filepath.ToSlash(rel))
		if err != nil {
			return fmt.Errorf("invalid include pattern %q: %w", include, err)
		}
		if ok {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return files, nil
}

func init() {
	ingestCmd.Flags().StringVar(&ingestUser, "user", "default", "user ID the documents belong to")
	ingestCmd.Flags().StringVar(&ingestInclude, "include", "**/*.{md,txt}", "glob of files to ingest")
	rootCmd.AddCommand(ingestCmd)
}
