package cli

import (
	"fmt"

	"cogsearch-go/internal/app"
	"cogsearch-go/internal/model"
	"cogsearch-go/internal/service"

	"github.com/spf13/cobra"
)

var (
	queryQuestion string
	queryIndex    string
	queryKind     string
	queryModel    string
	queryK        int
	queryFields   []string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query an index the way its kind expects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd, func(a *app.App, p service.QueryParams) model.Result {
			return a.Query.Query(cmd.Context(), p)
		})
	},
}

var summaryQACmd = &cobra.Command{
	Use:   "summary-qa",
	Short: "Run the plain-text query used for summaries and QA",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd, func(a *app.App, p service.QueryParams) model.Result {
			return a.Query.QuerySummaryQA(cmd.Context(), p)
		})
	},
}

func runQuery(cmd *cobra.Command, do func(a *app.App, p service.QueryParams) model.Result) error {
	kind, err := parseKind(queryKind)
	if err != nil {
		return err
	}
	m, err := parseModel(queryModel)
	if err != nil {
		return err
	}
	p := service.QueryParams{
		Kind:         kind,
		Model:        m,
		Question:     queryQuestion,
		IndexName:    queryIndex,
		K:            queryK,
		ReturnFields: queryFields,
	}
	return withApp(cmd, func(a *app.App) error {
		res := do(a, p)
		if res.Failed() {
			return res.Err
		}
		if res.Outcome == model.OutcomeEmpty {
			fmt.Fprintln(cmd.ErrOrStderr(), "no results")
			return nil
		}
		return printJSON(cmd, res.Results)
	})
}

func init() {
	for _, c := range []*cobra.Command{queryCmd, summaryQACmd} {
		c.Flags().StringVarP(&queryQuestion, "question", "q", "", "question text")
		c.Flags().StringVar(&queryIndex, "index", "", "index name")
		c.Flags().StringVar(&queryKind, "kind", "cogsearchvs", "index kind: cogsearch or cogsearchvs")
		c.Flags().StringVar(&queryModel, "model", "", "embedding model type (default from config)")
		c.Flags().IntVarP(&queryK, "top", "k", service.DefaultTopK, "number of results")
		c.Flags().StringSliceVar(&queryFields, "fields", nil, "fields to return (default id,content,metadata)")
		_ = c.MarkFlagRequired("question")
		_ = c.MarkFlagRequired("index")
		rootCmd.AddCommand(c)
	}
}
