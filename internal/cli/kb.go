package cli

import (
	"fmt"

	"cogsearch-go/internal/app"
	"cogsearch-go/internal/service"

	"github.com/spf13/cobra"
)

var (
	kbQuestion string
	kbAnswer   string
	kbIndex    string
	kbKind     string
	kbModel    string
	kbName     string
)

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Read and write the question/answer cache",
}

var kbRecallCmd = &cobra.Command{
	Use:   "recall",
	Short: "Look up a cached answer for a question",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(kbKind)
		if err != nil {
			return err
		}
		m, err := parseModel(kbModel)
		if err != nil {
			return err
		}
		return withApp(cmd, func(a *app.App) error {
			r, err := a.Kb.Recall(cmd.Context(), service.RecallParams{
				Model:       m,
				Question:    kbQuestion,
				Kind:        kind,
				IndexName:   kbIndex,
				KbIndexName: kbName,
			})
			if err != nil {
				return err
			}
			if !r.Hit {
				fmt.Fprintf(cmd.ErrOrStderr(), "miss (best score %.4f)\n", r.Score)
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "hit (score %.4f): %s\n", r.Score, r.Question)
			fmt.Fprintln(cmd.OutOrStdout(), r.Answer)
			return nil
		})
	},
}

var kbRememberCmd = &cobra.Command{
	Use:   "remember",
	Short: "Store a question and its answer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(kbKind)
		if err != nil {
			return err
		}
		m, err := parseModel(kbModel)
		if err != nil {
			return err
		}
		return withApp(cmd, func(a *app.App) error {
			rec, err := a.Kb.Remember(cmd.Context(), service.RememberParams{
				Model:       m,
				Question:    kbQuestion,
				Answer:      kbAnswer,
				Kind:        kind,
				IndexName:   kbIndex,
				KbIndexName: kbName,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), rec.ID)
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{kbRecallCmd, kbRememberCmd} {
		c.Flags().StringVarP(&kbQuestion, "question", "q", "", "question text")
		c.Flags().StringVar(&kbIndex, "index", "", "document index the answer belongs to")
		c.Flags().StringVar(&kbKind, "kind", "cogsearchvs", "kind of the document index")
		c.Flags().StringVar(&kbModel, "model", "", "embedding model type (default from config)")
		c.Flags().StringVar(&kbName, "kb-index", "", "knowledge-base index (default from config)")
		_ = c.MarkFlagRequired("question")
		_ = c.MarkFlagRequired("index")
	}
	kbRememberCmd.Flags().StringVarP(&kbAnswer, "answer", "a", "", "answer text")
	_ = kbRememberCmd.MarkFlagRequired("answer")

	kbCmd.AddCommand(kbRecallCmd, kbRememberCmd)
	rootCmd.AddCommand(kbCmd)
}
