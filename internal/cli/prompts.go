package cli

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
)

// PromptForEmail asks for the address that identifies the user.
func PromptForEmail() (string, error) {
	var email string
	prompt := &survey.Input{
		Message: "Enter your email:",
		Help:    "Your favorites and history are stored under this address.",
	}
	if err := survey.AskOne(prompt, &email, survey.WithValidator(validateEmail)); err != nil {
		return "", err
	}
	return strings.TrimSpace(email), nil
}

// PromptForQuery asks for the next question.
func PromptForQuery() (string, error) {
	var query string
	prompt := &survey.Input{
		Message: "What would you like to know?",
		Help:    "e.g. What is the stock price of QQQ? / Add NVDA to my favorites with a low alert at 800",
	}
	if err := survey.AskOne(prompt, &query, survey.WithValidator(validateQuery)); err != nil {
		return "", err
	}
	return strings.TrimSpace(query), nil
}

// PromptContinue asks whether to ask another question.
func PromptContinue() (bool, error) {
	another := true
	prompt := &survey.Confirm{
		Message: "Ask another question?",
		Default: true,
	}
	if err := survey.AskOne(prompt, &another); err != nil {
		return false, err
	}
	return another, nil
}

func validateEmail(val interface{}) error {
	str, ok := val.(string)
	if !ok {
		return fmt.Errorf("email must be text")
	}
	str = strings.TrimSpace(str)
	if !strings.Contains(str, "@") {
		return fmt.Errorf("please enter a valid email address")
	}
	return nil
}

func validateQuery(val interface{}) error {
	str, ok := val.(string)
	if !ok {
		return fmt.Errorf("query must be text")
	}
	if strings.TrimSpace(str) == "" {
		return fmt.Errorf("query cannot be empty")
	}
	return nil
}
