package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyike/CortexFolio/internal/analysis"
	"github.com/dyike/CortexFolio/internal/portfolio"
)

// newAnalyzeCmd creates the analyze command
func newAnalyzeCmd(state *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run AI analysis for a stock or a whole portfolio",
	}
	cmd.AddCommand(newAnalyzeStockCmd(state), newAnalyzePortfolioCmd(state))
	return cmd
}

func newAnalyzeStockCmd(state *appState) *cobra.Command {
	var (
		company, portfolioID string
		save                 bool
	)
	cmd := &cobra.Command{
		Use:   "stock [SYMBOL]",
		Short: "Analyze one stock against your profile",
		Long: `Collect recent news and price history for a stock, retrieve related documents and
ask the reasoning model for a structured recommendation. Results are cached per user.
Example: cortexfolio analyze stock AAPL --portfolio 3f2c...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var symbol string
			if len(args) == 1 {
				symbol = args[0]
			} else {
				var err error
				if symbol, err = PromptForTicker(); err != nil {
					return err
				}
			}

			engine, err := state.engine(cmd.Context())
			if err != nil {
				return err
			}
			if engine.Debugger.IsEnabled() {
				if err := engine.Debugger.Initialize(cmd.Context()); err != nil {
					DisplayWarning(cmd.OutOrStdout(), fmt.Sprintf("eino debug unavailable: %v", err))
				} else {
					DisplayInfo(cmd.OutOrStdout(), "Eino debug server at "+engine.Debugger.GetDebugURL())
				}
			}

			DisplayInfo(cmd.OutOrStdout(), fmt.Sprintf("🚀 Analyzing %s...", portfolio.NormalizeSymbol(symbol)))
			a, err := engine.Analysis.AnalyzeStock(cmd.Context(), analysis.StockRequest{
				Symbol:      symbol,
				CompanyName: company,
				UserID:      state.user(),
				PortfolioID: portfolioID,
			})
			if err != nil {
				return err
			}
			RenderStockAnalysis(cmd.OutOrStdout(), a)
			if save {
				path, err := saveStockReport(engine.Config.ResultsDir, a)
				if err != nil {
					return err
				}
				DisplaySuccess(cmd.OutOrStdout(), "Report written to "+path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&company, "company", "", "Company name (looked up when empty)")
	cmd.Flags().StringVar(&portfolioID, "portfolio", "", "Portfolio to consider for fit")
	cmd.Flags().BoolVar(&save, "save", false, "Also write a markdown report to the results directory")
	return cmd
}

func newAnalyzePortfolioCmd(state *appState) *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "portfolio PORTFOLIO_ID",
		Short: "Analyze every holding and summarize the portfolio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := state.engine(cmd.Context())
			if err != nil {
				return err
			}
			DisplayInfo(cmd.OutOrStdout(), "🚀 Analyzing portfolio holdings, this can take a while...")
			a, err := engine.Analysis.AnalyzePortfolio(cmd.Context(), state.user(), args[0])
			if err != nil {
				return err
			}
			RenderPortfolioAnalysis(cmd.OutOrStdout(), a)
			if save {
				path, err := savePortfolioReport(engine.Config.ResultsDir, a)
				if err != nil {
					return err
				}
				DisplaySuccess(cmd.OutOrStdout(), "Report written to "+path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "Also write a markdown report to the results directory")
	return cmd
}

func newRecommendCmd(state *appState) *cobra.Command {
	var (
		limit              int
		recommendationType string
	)
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Show market recommendations from popular stocks",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := state.engine(cmd.Context())
			if err != nil {
				return err
			}
			recs := engine.Analysis.MarketRecommendations(cmd.Context(), recommendationType, limit)
			RenderRecommendations(cmd.OutOrStdout(), recs)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 5, "Maximum number of recommendations")
	cmd.Flags().StringVar(&recommendationType, "type", "stocks", "Recommendation type label")
	return cmd
}
