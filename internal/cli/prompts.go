package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/dyike/CortexFolio/internal/portfolio"
	"github.com/dyike/CortexFolio/internal/users"
	"github.com/dyike/CortexFolio/models"
)

// PromptForText asks for a single line of text.
func PromptForText(message, help string, required bool) (string, error) {
	var answer string
	prompt := &survey.Input{
		Message: message,
		Help:    help,
	}
	var opts []survey.AskOpt
	if required {
		opts = append(opts, survey.WithValidator(func(val interface{}) error {
			if strings.TrimSpace(val.(string)) == "" {
				return fmt.Errorf("value cannot be empty")
			}
			return nil
		}))
	}
	if err := survey.AskOne(prompt, &answer, opts...); err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

// PromptForTicker prompts the user to enter a stock ticker symbol
func PromptForTicker() (string, error) {
	var ticker string
	prompt := &survey.Input{
		Message: "Enter the stock ticker symbol (e.g., AAPL, MSFT, GOOGL):",
	}
	err := survey.AskOne(prompt, &ticker, survey.WithValidator(func(val interface{}) error {
		return portfolio.ValidateSymbol(val.(string))
	}))
	if err != nil {
		return "", err
	}
	return portfolio.NormalizeSymbol(ticker), nil
}

// PromptForConfirmation asks a yes/no question, defaulting to no.
func PromptForConfirmation(message string) (bool, error) {
	var confirmed bool
	prompt := &survey.Confirm{
		Message: message,
		Default: false,
	}
	err := survey.AskOne(prompt, &confirmed)
	return confirmed, err
}

func promptForChoice(message, help string, options []string, current string) (string, error) {
	var selected string
	prompt := &survey.Select{
		Message: message,
		Options: options,
		Help:    help,
	}
	for _, o := range options {
		if o == current {
			prompt.Default = current
		}
	}
	if err := survey.AskOne(prompt, &selected); err != nil {
		return "", err
	}
	return selected, nil
}

// PromptForProfile walks the user through every profile field, starting
// from current when one is stored.
func PromptForProfile(current *models.UserProfile) (models.UserProfile, error) {
	var p models.UserProfile
	if current != nil {
		p = *current
	}
	var err error
	if p.RiskTolerance, err = promptForChoice("Risk tolerance:",
		"How much volatility you accept in exchange for potential return.",
		users.RiskTolerances, p.RiskTolerance); err != nil {
		return p, err
	}
	if p.InvestmentHorizon, err = promptForChoice("Investment horizon:",
		"short: under 3 years, medium: 3 to 10 years, long: over 10 years.",
		users.InvestmentHorizons, p.InvestmentHorizon); err != nil {
		return p, err
	}
	if p.PrimaryGoal, err = promptForChoice("Primary goal:", "",
		users.PrimaryGoals, p.PrimaryGoal); err != nil {
		return p, err
	}
	if p.LiquidityPreference, err = promptForChoice("Liquidity preference:",
		"How quickly you may need to turn holdings into cash.",
		users.LiquidityPreferences, p.LiquidityPreference); err != nil {
		return p, err
	}
	return p, nil
}

// PromptForChatMessage reads the next chat line. It reports done when the
// user types exit/quit or interrupts the prompt.
func PromptForChatMessage() (message string, done bool, err error) {
	prompt := &survey.Input{
		Message: "You:",
		Help:    "Ask about your portfolio or the bound stock. Type 'exit' to leave.",
	}
	if err := survey.AskOne(prompt, &message); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return "", true, nil
		}
		return "", false, err
	}
	message = strings.TrimSpace(message)
	switch strings.ToLower(message) {
	case "exit", "quit", "/exit", "/quit":
		return "", true, nil
	}
	return message, false, nil
}
