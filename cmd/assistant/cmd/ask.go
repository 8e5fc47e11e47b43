package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/neurobridge-assistant/internal/app"
	"github.com/yungbote/neurobridge-assistant/internal/domain"
	"github.com/yungbote/neurobridge-assistant/internal/modules/assistant/intent"
	"github.com/yungbote/neurobridge-assistant/internal/modules/assistant/synth"
)

type askOptions struct {
	rag        bool
	topK       int
	document   string
	mode       string
	skill      string
	skipSearch bool
	format     string // "text", "json"
}

func newAskCmd() *cobra.Command {
	var opts askOptions

	cmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "Ask the assistant a question",
		Long: `Ask the assistant a question and stream the answer to stdout.

Without --rag the answer may be augmented with web search results.
With --rag it is grounded only in ingested documents.

Examples:
  assistant ask "why does my recursive fibonacci overflow the stack"
  assistant ask "what does the syllabus say about grading" --rag
  assistant ask "summarize chapter 2" --rag --document 6f1c... --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != "text" && opts.format != "json" {
				return fmt.Errorf("unknown format %q (allowed: text, json)", opts.format)
			}
			query := strings.Join(args, " ")
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return runAsk(ctx, cmd, a, query, opts)
			})
		},
	}

	cmd.Flags().BoolVar(&opts.rag, "rag", false, "Answer from ingested documents only")
	cmd.Flags().IntVarP(&opts.topK, "top-k", "k", 0, "Chunks to retrieve with --rag (default 5)")
	cmd.Flags().StringVarP(&opts.document, "document", "d", "", "Restrict retrieval to one document id")
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "", "Force an assistant mode (e.g. debug-code, code-review)")
	cmd.Flags().StringVar(&opts.skill, "skill", "", "Skill level for --rag: beginner, intermediate, advanced")
	cmd.Flags().BoolVar(&opts.skipSearch, "no-web", false, "Skip web search augmentation")
	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format: text, json")

	return cmd
}

func runAsk(ctx context.Context, cmd *cobra.Command, a *app.App, query string, opts askOptions) error {
	if err := a.Services.Synth.ValidateQuery(query); err != nil {
		return err
	}

	var (
		stream *synth.Stream
		err    error
	)
	if opts.rag {
		stream, err = askRAG(ctx, a, query, opts)
	} else {
		var mode intent.Mode
		if opts.mode != "" {
			m, ok := intent.ParseMode(opts.mode)
			if !ok {
				return fmt.Errorf("unknown mode %q", opts.mode)
			}
			mode = m
		}
		stream, err = a.Services.Synth.AskAIAssistant(ctx, query, nil, synth.AskOptions{
			Mode:       mode,
			SkipSearch: opts.skipSearch,
		})
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.format == "json" {
		resp, err := synth.Collect(stream)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	for tok := range stream.Tokens() {
		_, _ = io.WriteString(out, tok)
	}
	resp, err := stream.Wait()
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out)
	printSources(out, resp)
	return nil
}

func askRAG(ctx context.Context, a *app.App, query string, opts askOptions) (*synth.Stream, error) {
	var docID *uuid.UUID
	if opts.document != "" {
		id, err := uuid.Parse(opts.document)
		if err != nil {
			return nil, fmt.Errorf("invalid document id %q: %w", opts.document, err)
		}
		docID = &id
	}
	var skill intent.SkillLevel
	if opts.skill != "" {
		s, ok := intent.ParseSkillLevel(opts.skill)
		if !ok {
			return nil, fmt.Errorf("unknown skill level %q", opts.skill)
		}
		skill = s
	}
	contexts, err := a.Services.Retrieval.FindRelevantChunks(ctx, query, opts.topK, docID)
	if err != nil {
		return nil, err
	}
	return a.Services.Synth.AskRAGAssistant(ctx, query, contexts, synth.RAGOptions{SkillLevel: skill})
}

func printSources(w io.Writer, resp *domain.AssistantResponse) {
	if resp == nil {
		return
	}
	if len(resp.Sources) > 0 {
		_, _ = fmt.Fprintln(w, "\nSources:")
		for _, s := range resp.Sources {
			_, _ = fmt.Fprintf(w, "  [%.2f] %s #%d\n", s.Similarity, s.DocumentTitle, s.ChunkIndex)
		}
	}
	if len(resp.WebSources) > 0 {
		_, _ = fmt.Fprintln(w, "\nWeb:")
		for _, s := range resp.WebSources {
			_, _ = fmt.Fprintf(w, "  %s <%s>\n", s.Title, s.URL)
		}
	}
}
