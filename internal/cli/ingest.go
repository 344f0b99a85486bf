package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cogsearch-go/internal/app"
	"cogsearch-go/internal/model"
	"cogsearch-go/pkg/tasks"
	"cogsearch-go/pkg/tika"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	ingestIndex string
	ingestKind  string
	ingestModel string
	ingestAsync bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <glob>...",
	Short: "Chunk files matching the globs and write them into an index",
	Long: `Each file is split into chunks and written into --index, creating the index
when needed. Non-text files are converted through Tika. With --async the files are
uploaded to the object store and queued on Kafka instead.

Examples:
  cogsearchctl ingest "docs/**/*.md" --index handbook --kind cogsearch
  cogsearchctl ingest report.pdf --index reports --kind cogsearchvs --async`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestIndex, "index", "", "target index name")
	ingestCmd.Flags().StringVar(&ingestKind, "kind", "cogsearchvs", "index kind: cogsearch or cogsearchvs")
	ingestCmd.Flags().StringVar(&ingestModel, "model", "", "embedding model type (default from config)")
	ingestCmd.Flags().BoolVar(&ingestAsync, "async", false, "queue ingestion tasks instead of running them")
	_ = ingestCmd.MarkFlagRequired("index")
	rootCmd.AddCommand(ingestCmd)
}

// expandGlobs resolves ** patterns against the filesystem and returns the
// sorted, de-duplicated list of regular files.
func expandGlobs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil || !info.Mode().IsRegular() || seen[m] {
				continue
			}
			seen[m] = true
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	kind, err := parseKind(ingestKind)
	if err != nil {
		return err
	}
	m, err := parseModel(ingestModel)
	if err != nil {
		return err
	}
	files, err := expandGlobs(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files match %v", args)
	}

	return withApp(cmd, func(a *app.App) error {
		if ingestAsync && (a.Producer == nil || a.Objects == nil) {
			return fmt.Errorf("--async needs kafka.enabled and a minio endpoint")
		}

		bar := progressbar.NewOptions(len(files),
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetDescription("Ingesting"),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(cmd.ErrOrStderr()) }),
		)

		var total model.IngestionReport
		var failed []string
		for _, path := range files {
			bar.Describe(filepath.Base(path))
			task := tasks.IngestTask{
				TaskID:    uuid.NewString(),
				IndexName: ingestIndex,
				IndexKind: kind.String(),
				ModelType: m.String(),
				FileName:  path,
			}
			var report model.IngestionReport
			if ingestAsync {
				err = enqueueFile(cmd.Context(), a, task)
			} else {
				report, err = ingestFile(cmd.Context(), a, task)
			}
			if err != nil {
				failed = append(failed, fmt.Sprintf("%s: %v", path, err))
			}
			for _, b := range report.Batches {
				total.Add(b)
			}
			_ = bar.Add(1)
		}

		if ingestAsync {
			fmt.Fprintf(cmd.OutOrStdout(), "queued %d file(s)\n", len(files)-len(failed))
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "ingested %d/%d record(s) from %d file(s) in %d batch(es)\n",
				total.Succeeded, total.Attempted, len(files)-len(failed), len(total.Batches))
		}
		for _, f := range failed {
			fmt.Fprintln(cmd.ErrOrStderr(), "failed:", f)
		}
		if len(failed) > 0 {
			return fmt.Errorf("%d file(s) failed", len(failed))
		}
		return nil
	})
}

func ingestFile(ctx context.Context, a *app.App, task tasks.IngestTask) (model.IngestionReport, error) {
	data, err := os.ReadFile(task.FileName)
	if err != nil {
		return model.IngestionReport{}, err
	}
	if tika.IsPlainText(task.FileName) {
		task.Text = string(data)
	} else {
		if !a.Tika.Enabled() {
			return model.IngestionReport{}, fmt.Errorf("tika.server_url is required for %s", filepath.Ext(task.FileName))
		}
		if task.Text, err = a.Tika.ExtractText(ctx, bytes.NewReader(data), task.FileName); err != nil {
			return model.IngestionReport{}, err
		}
	}
	if task.Text == "" {
		return model.IngestionReport{}, fmt.Errorf("no text in %s", task.FileName)
	}
	return a.Processor.Run(ctx, task)
}

func enqueueFile(ctx context.Context, a *app.App, task tasks.IngestTask) error {
	f, err := os.Open(task.FileName)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	task.ObjectName = "ingest/" + task.TaskID + "/" + filepath.Base(task.FileName)
	if err := a.Objects.Put(ctx, task.ObjectName, f, info.Size(), tika.DetectMimeType(task.FileName)); err != nil {
		return err
	}
	return a.Producer.Produce(ctx, task)
}
