package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/dyike/CortexFolio/internal/apperr"
	"github.com/dyike/CortexFolio/models"
	"github.com/dyike/CortexFolio/pkg/money"
)

const dateLayout = "2006-01-02"

func newPortfolioCmd(state *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "portfolio",
		Aliases: []string{"pf"},
		Short:   "Manage portfolios and holdings",
	}
	cmd.AddCommand(
		newPortfolioCreateCmd(state),
		newPortfolioListCmd(state),
		newPortfolioShowCmd(state),
		newPortfolioAddCmd(state),
		newPortfolioUpdateCmd(state),
		newPortfolioRemoveCmd(state),
		newPortfolioDeleteCmd(state),
		newPortfolioAnalyticsCmd(state),
	)
	return cmd
}

func newPortfolioCreateCmd(state *appState) *cobra.Command {
	var name, description string
	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Create an empty portfolio",
		Example: `  cortexfolio portfolio create --name "Retirement" --description "long term"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := state.engine(cmd.Context())
			if err != nil {
				return err
			}
			if strings.TrimSpace(name) == "" {
				if name, err = PromptForText("Portfolio name:", "", true); err != nil {
					return err
				}
			}
			p, err := engine.Portfolios.Create(cmd.Context(), state.user(), models.CreatePortfolioRequest{
				Name:        name,
				Description: description,
			})
			if err != nil {
				return err
			}
			DisplaySuccess(cmd.OutOrStdout(), fmt.Sprintf("Created portfolio %q with id %s", p.Name, p.ID))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Portfolio name")
	cmd.Flags().StringVar(&description, "description", "", "Optional description")
	return cmd
}

func newPortfolioListCmd(state *appState) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List portfolios with current totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := state.engine(cmd.Context())
			if err != nil {
				return err
			}
			summaries, err := engine.Portfolios.List(cmd.Context(), state.user())
			if err != nil {
				return err
			}
			RenderPortfolioList(cmd.OutOrStdout(), summaries)
			return nil
		},
	}
}

func newPortfolioShowCmd(state *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "show PORTFOLIO_ID",
		Short: "Revalue and show a portfolio",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := state.engine(cmd.Context())
			if err != nil {
				return err
			}
			p, err := engine.Portfolios.Get(cmd.Context(), state.user(), args[0])
			if err != nil {
				return err
			}
			RenderPortfolio(cmd.OutOrStdout(), p)
			return nil
		},
	}
}

func newPortfolioAddCmd(state *appState) *cobra.Command {
	var (
		company, sector, date string
		shares, price         string
	)
	cmd := &cobra.Command{
		Use:     "add PORTFOLIO_ID SYMBOL",
		Short:   "Add shares of a stock, averaging into an existing holding",
		Example: `  cortexfolio portfolio add 3f2c... AAPL --shares 10 --price 172.50 --date 2024-01-15`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := models.AddStockRequest{
				Symbol:      args[1],
				CompanyName: company,
				Sector:      sector,
			}
			var err error
			if req.Shares, err = parsePositive("shares", shares); err != nil {
				return err
			}
			if req.PurchasePrice, err = parsePositive("price", price); err != nil {
				return err
			}
			if date != "" {
				if req.PurchaseDate, err = parseDate(date); err != nil {
					return err
				}
			}

			engine, err := state.engine(cmd.Context())
			if err != nil {
				return err
			}
			p, err := engine.Portfolios.AddStock(cmd.Context(), state.user(), args[0], req)
			if err != nil {
				return err
			}
			h, _ := p.Holding(req.Symbol)
			if h != nil {
				DisplaySuccess(cmd.OutOrStdout(), fmt.Sprintf("%s now holds %s shares at an average of %s",
					h.Symbol, h.Shares, money.FormatUSD(h.PurchasePrice)))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&shares, "shares", "", "Number of shares (required)")
	cmd.Flags().StringVar(&price, "price", "", "Purchase price per share (required)")
	cmd.Flags().StringVar(&date, "date", "", "Purchase date YYYY-MM-DD (today if not provided)")
	cmd.Flags().StringVar(&company, "company", "", "Company name (looked up when empty)")
	cmd.Flags().StringVar(&sector, "sector", "", "Sector (looked up when empty)")
	_ = cmd.MarkFlagRequired("shares")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}

// newPortfolioUpdateCmd renames a portfolio, or with a SYMBOL argument
// edits that holding.
func newPortfolioUpdateCmd(state *appState) *cobra.Command {
	var (
		name, description   string
		shares, price, date string
		sector              string
	)
	cmd := &cobra.Command{
		Use:     "update PORTFOLIO_ID [SYMBOL]",
		Short:   "Update a portfolio's name/description or one of its holdings",
		Example: `  cortexfolio portfolio update 3f2c... --name "Growth"
  cortexfolio portfolio update 3f2c... AAPL --shares 12 --price 170`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			engine, err := state.engine(cmd.Context())
			if err != nil {
				return err
			}

			if len(args) == 1 {
				var namePtr, descPtr *string
				if flags.Changed("name") {
					namePtr = &name
				}
				if flags.Changed("description") {
					descPtr = &description
				}
				if namePtr == nil && descPtr == nil {
					return apperr.Validation("nothing to update: pass --name or --description")
				}
				p, err := engine.Portfolios.Update(cmd.Context(), state.user(), args[0], namePtr, descPtr)
				if err != nil {
					return err
				}
				DisplaySuccess(cmd.OutOrStdout(), fmt.Sprintf("Updated portfolio %q", p.Name))
				return nil
			}

			var req models.UpdateHoldingRequest
			if flags.Changed("shares") {
				v, err := parsePositive("shares", shares)
				if err != nil {
					return err
				}
				req.Shares = &v
			}
			if flags.Changed("price") {
				v, err := parsePositive("price", price)
				if err != nil {
					return err
				}
				req.PurchasePrice = &v
			}
			if flags.Changed("date") {
				v, err := parseDate(date)
				if err != nil {
					return err
				}
				req.PurchaseDate = &v
			}
			if flags.Changed("sector") {
				req.Sector = &sector
			}
			if req == (models.UpdateHoldingRequest{}) {
				return apperr.Validation("nothing to update: pass --shares, --price, --date or --sector")
			}
			p, err := engine.Portfolios.UpdateHolding(cmd.Context(), state.user(), args[0], args[1], req)
			if err != nil {
				return err
			}
			RenderPortfolio(cmd.OutOrStdout(), p)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "New portfolio name")
	cmd.Flags().StringVar(&description, "description", "", "New portfolio description")
	cmd.Flags().StringVar(&shares, "shares", "", "New share count for SYMBOL")
	cmd.Flags().StringVar(&price, "price", "", "New purchase price for SYMBOL")
	cmd.Flags().StringVar(&date, "date", "", "New purchase date for SYMBOL (YYYY-MM-DD)")
	cmd.Flags().StringVar(&sector, "sector", "", "New sector for SYMBOL")
	return cmd
}

func newPortfolioRemoveCmd(state *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "remove PORTFOLIO_ID SYMBOL",
		Short: "Remove a holding from a portfolio",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := state.engine(cmd.Context())
			if err != nil {
				return err
			}
			if _, err := engine.Portfolios.RemoveHolding(cmd.Context(), state.user(), args[0], args[1]); err != nil {
				return err
			}
			DisplaySuccess(cmd.OutOrStdout(), fmt.Sprintf("Removed %s", strings.ToUpper(args[1])))
			return nil
		},
	}
}

func newPortfolioDeleteCmd(state *appState) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete PORTFOLIO_ID",
		Short: "Delete a portfolio and its holdings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				ok, err := PromptForConfirmation(fmt.Sprintf("Delete portfolio %s and all its holdings?", args[0]))
				if err != nil {
					return err
				}
				if !ok {
					DisplayInfo(cmd.OutOrStdout(), "Cancelled")
					return nil
				}
			}
			engine, err := state.engine(cmd.Context())
			if err != nil {
				return err
			}
			if err := engine.Portfolios.Delete(cmd.Context(), state.user(), args[0]); err != nil {
				return err
			}
			DisplaySuccess(cmd.OutOrStdout(), "Portfolio deleted")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func newPortfolioAnalyticsCmd(state *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "analytics PORTFOLIO_ID",
		Short: "Show sector allocation, performers and risk/diversification scores",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := state.engine(cmd.Context())
			if err != nil {
				return err
			}
			a, err := engine.Portfolios.Analytics(cmd.Context(), state.user(), args[0])
			if err != nil {
				return err
			}
			RenderAnalytics(cmd.OutOrStdout(), a)
			return nil
		},
	}
}

func parsePositive(name, value string) (decimal.Decimal, error) {
	d, err := money.ParsePositive(value)
	if err != nil {
		return decimal.Zero, apperr.Validation("%s: %v", name, err)
	}
	return d, nil
}

func parseDate(value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, apperr.Validation("invalid date %q, use YYYY-MM-DD", value)
	}
	return t, nil
}
