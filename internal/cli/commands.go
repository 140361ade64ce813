package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/mcq-rag-assistant/internal/core/domain"
)

func newIndexCommand(f *flags) *cobra.Command {
	index := &cobra.Command{
		Use:   "index",
		Short: "Manage the knowledge index",
	}

	var file string
	build := &cobra.Command{
		Use:   "build",
		Short: "Copy a knowledge source into storage and rebuild the index from it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd, f, false, func(svc *services) error {
				src, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("open knowledge source: %w", err)
				}
				defer src.Close()

				key := storageKeyFor(file)
				if err := svc.storage.Save(cmd.Context(), key, src); err != nil {
					return err
				}
				stats, err := svc.builder.BuildFromKey(cmd.Context(), key)
				if err != nil {
					return err
				}
				return printStats(cmd.OutOrStdout(), stats, f.jsonOutput)
			})
		},
	}
	build.Flags().StringVarP(&file, "file", "f", "", "knowledge source (.txt, .md, .pdf, .xlsx)")
	_ = build.MarkFlagRequired("file")

	index.AddCommand(build)
	return index
}

func newAskCommand(f *flags) *cobra.Command {
	var (
		useWeb bool
		topK   int
	)
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a multiple-choice question; options may follow the stem on new lines",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			if question == "-" {
				raw, err := readAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				question = raw
			}
			return withServices(cmd, f, true, func(svc *services) error {
				resp := svc.answerer.AnswerQuestion(cmd.Context(), domain.AskRequest{
					Question:     question,
					UseWebSearch: useWeb,
					TopK:         topK,
				})
				return printResponse(cmd.OutOrStdout(), resp, f.jsonOutput)
			})
		},
	}
	cmd.Flags().BoolVarP(&useWeb, "web", "w", false, "enrich the context with web search results")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "local chunks to retrieve (default from RAG_TOP_K)")
	return cmd
}

func newSearchCommand(f *flags) *cobra.Command {
	var topK int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Show the nearest knowledge chunks for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return withServices(cmd, f, true, func(svc *services) error {
				results, err := svc.searcher.Search(cmd.Context(), query, topK)
				if err != nil {
					return err
				}
				return printResults(cmd.OutOrStdout(), results, f.jsonOutput)
			})
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 3, "number of chunks to show")
	return cmd
}

func newStatsCommand(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print statistics for the loaded knowledge index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withServices(cmd, f, true, func(svc *services) error {
				stats, ok := svc.searcher.Stats()
				if !ok {
					return domain.ErrIndexUnavailable
				}
				return printStats(cmd.OutOrStdout(), stats, f.jsonOutput)
			})
		},
	}
}
