package cli

import (
	"github.com/spf13/cobra"

	"github.com/dyike/CortexFolio/models"
)

func newProfileCmd(state *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage your investment profile",
	}
	cmd.AddCommand(newProfileSetCmd(state), newProfileShowCmd(state))
	return cmd
}

func newProfileSetCmd(state *appState) *cobra.Command {
	var p models.UserProfile
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set risk tolerance, horizon, goal and liquidity preference",
		Long: `Store the profile used to tailor analyses and chat answers. Without flags the
profile is edited interactively.
Example: cortexfolio profile set --risk moderate --horizon long --goal growth --liquidity low`,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := state.engine(cmd.Context())
			if err != nil {
				return err
			}
			user := state.user()

			if !anyChanged(cmd, "risk", "horizon", "goal", "liquidity") {
				current, err := engine.Users.GetProfile(cmd.Context(), user)
				if err != nil {
					return err
				}
				if p, err = PromptForProfile(current); err != nil {
					return err
				}
			}

			saved, err := engine.Users.SetProfile(cmd.Context(), user, p)
			if err != nil {
				return err
			}
			DisplaySuccess(cmd.OutOrStdout(), "Profile saved")
			RenderProfile(cmd.OutOrStdout(), user, saved)
			return nil
		},
	}
	cmd.Flags().StringVar(&p.RiskTolerance, "risk", "", "Risk tolerance: conservative, moderate or aggressive")
	cmd.Flags().StringVar(&p.InvestmentHorizon, "horizon", "", "Investment horizon, e.g. short, medium, long")
	cmd.Flags().StringVar(&p.PrimaryGoal, "goal", "", "Primary goal, e.g. growth, income, preservation")
	cmd.Flags().StringVar(&p.LiquidityPreference, "liquidity", "", "Liquidity preference, e.g. low, medium, high")
	return cmd
}

func newProfileShowCmd(state *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show your investment profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := state.engine(cmd.Context())
			if err != nil {
				return err
			}
			user := state.user()
			p, err := engine.Users.Profile(cmd.Context(), user)
			if err != nil {
				return err
			}
			RenderProfile(cmd.OutOrStdout(), user, p)
			return nil
		},
	}
}

func anyChanged(cmd *cobra.Command, names ...string) bool {
	for _, name := range names {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}
