package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yungbote/neurobridge-assistant/internal/app"
	"github.com/yungbote/neurobridge-assistant/internal/modules/assistant/ingest"
)

type ingestOptions struct {
	file   string
	source string
	async  bool
}

func newIngestCmd() *cobra.Command {
	var opts ingestOptions

	cmd := &cobra.Command{
		Use:   "ingest [title]",
		Short: "Add a document to the knowledge base",
		Long: `Store a document, chunk it and embed its chunks.

The title defaults to the file name when --file is given.

Examples:
  assistant ingest --file notes/photosynthesis.md
  assistant ingest "Course syllabus" --source gs://course-bucket/syllabus.txt
  assistant ingest "Week 3" --file week3.txt --async`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.file == "" && opts.source == "" {
				return fmt.Errorf("one of --file or --source is required")
			}
			title := strings.Join(args, " ")
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return runIngest(ctx, cmd, a, title, opts)
			})
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Read document content from a local file")
	cmd.Flags().StringVarP(&opts.source, "source", "s", "", "Read document content from a gs:// object")
	cmd.Flags().BoolVar(&opts.async, "async", false, "Queue ingestion instead of waiting for it")

	return cmd
}

func runIngest(ctx context.Context, cmd *cobra.Command, a *app.App, title string, opts ingestOptions) error {
	req := ingest.Request{Title: title, Source: opts.source}
	if opts.file != "" {
		data, err := os.ReadFile(opts.file)
		if err != nil {
			return fmt.Errorf("read %s: %w", opts.file, err)
		}
		req.Content = string(data)
		if req.Title == "" {
			req.Title = strings.TrimSuffix(filepath.Base(opts.file), filepath.Ext(opts.file))
		}
	}

	doc, err := a.Services.Ingest.Create(ctx, req)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	// Only a Temporal worker outlives this process.
	if opts.async && a.Clients.Temporal != nil {
		if err := a.Services.Dispatcher.Dispatch(ctx, doc.ID); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "%s\tpending\n", doc.ID)
		return nil
	}
	if opts.async {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "TEMPORAL_ADDRESS not set; ingesting synchronously")
	}

	res, err := a.Services.Ingest.IngestNow(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("ingest %s: %w", doc.ID, err)
	}
	_, _ = fmt.Fprintf(out, "%s\tready\t%d chunks\n", res.DocumentID, res.Chunks)
	return nil
}
