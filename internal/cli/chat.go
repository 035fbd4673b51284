package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dyike/CortexFolio/internal/apperr"
	"github.com/dyike/CortexFolio/models"
)

func newChatCmd(state *appState) *cobra.Command {
	var sessionID, portfolioID, symbol, message string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant about a stock or your portfolio",
		Long: `Start an interactive chat. A session can be bound to a portfolio and/or a stock
symbol; bound sessions answer with the latest price and related documents.
Pass --message to send a single message without the interactive prompt.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := state.engine(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			user := state.user()

			if strings.TrimSpace(message) != "" {
				resp, err := engine.Chat.SendMessage(cmd.Context(), user, models.ChatRequest{
					SessionID:   sessionID,
					Message:     message,
					PortfolioID: portfolioID,
					StockSymbol: symbol,
				})
				if err != nil {
					return err
				}
				RenderChatReply(out, resp)
				DisplayInfo(out, "Session "+resp.SessionID)
				return nil
			}

			if sessionID == "" {
				session, err := engine.Chat.CreateSession(cmd.Context(), user, portfolioID, symbol)
				if err != nil {
					return err
				}
				sessionID = session.ID
			} else {
				session, err := engine.Chat.GetSession(cmd.Context(), user, sessionID)
				if err != nil {
					return err
				}
				RenderTranscript(out, session.Messages)
			}

			// Idle sessions are swept in the background while the chat is open.
			state.runtime.StartJobs()

			fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("💬 Chat session %s  (type 'exit' to leave)", sessionID)))
			for {
				text, done, err := PromptForChatMessage()
				if err != nil {
					return err
				}
				if done {
					DisplayInfo(out, "👋 Session saved. Resume with --session "+sessionID)
					return nil
				}
				if text == "" {
					continue
				}
				resp, err := state.runtime.Engine().Chat.SendMessage(cmd.Context(), user, models.ChatRequest{
					SessionID: sessionID,
					Message:   text,
				})
				if err != nil {
					if apperr.Kind(err) == "validation" {
						DisplayWarning(out, err.Error())
						continue
					}
					return err
				}
				RenderChatReply(out, resp)
			}
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Resume an existing session")
	cmd.Flags().StringVar(&portfolioID, "portfolio", "", "Bind a new session to a portfolio")
	cmd.Flags().StringVar(&symbol, "symbol", "", "Bind a new session to a stock symbol")
	cmd.Flags().StringVarP(&message, "message", "m", "", "Send one message and exit")
	return cmd
}

func newSessionsCmd(state *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage chat sessions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List your chat sessions, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := state.engine(cmd.Context())
			if err != nil {
				return err
			}
			sessions, err := engine.Chat.ListSessions(cmd.Context(), state.user())
			if err != nil {
				return err
			}
			RenderSessions(cmd.OutOrStdout(), sessions)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show SESSION_ID",
		Short: "Print a session transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := state.engine(cmd.Context())
			if err != nil {
				return err
			}
			session, err := engine.Chat.GetSession(cmd.Context(), state.user(), args[0])
			if err != nil {
				return err
			}
			RenderTranscript(cmd.OutOrStdout(), session.Messages)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete SESSION_ID",
		Short: "Delete a chat session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := state.engine(cmd.Context())
			if err != nil {
				return err
			}
			ok, err := engine.Chat.DeleteSession(cmd.Context(), state.user(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return apperr.NotFound("session %s", args[0])
			}
			DisplaySuccess(cmd.OutOrStdout(), "Session deleted")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Delete sessions idle longer than the configured TTL",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := state.engine(cmd.Context())
			if err != nil {
				return err
			}
			removed, err := engine.Chat.SweepIdle(cmd.Context())
			if err != nil {
				return err
			}
			DisplaySuccess(cmd.OutOrStdout(), fmt.Sprintf("Removed %d idle sessions", removed))
			return nil
		},
	})

	return cmd
}
