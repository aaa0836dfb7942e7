package cli

import (
	"context"
	"errors"

	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/dyike/finreact/internal/display"
	"github.com/dyike/finreact/internal/models"
	"github.com/dyike/finreact/internal/service"
)

// InteractiveSession is the chat loop: sign in once, then ask until the
// user declines to continue.
type InteractiveSession struct {
	runner  *service.Runner
	dir     service.Directory
	printer *display.Printer

	askEmail    func() (string, error)
	askQuery    func() (string, error)
	askContinue func() (bool, error)
}

func NewInteractiveSession(runner *service.Runner, dir service.Directory, printer *display.Printer) *InteractiveSession {
	return &InteractiveSession{
		runner:      runner,
		dir:         dir,
		printer:     printer,
		askEmail:    PromptForEmail,
		askQuery:    PromptForQuery,
		askContinue: PromptContinue,
	}
}

// Start runs until the user stops, ctx is cancelled or input ends. A failed
// question is reported and the loop carries on.
func (s *InteractiveSession) Start(ctx context.Context, email string) error {
	s.printer.Title("📈 finreact - your financial research assistant")

	if email == "" {
		var err error
		if email, err = s.askEmail(); err != nil {
			return quietInterrupt(err)
		}
	}
	user, err := service.SignIn(ctx, s.dir, email)
	if err != nil {
		return err
	}
	s.printer.Info("Signed in as " + user.Email)

	for {
		if ctx.Err() != nil {
			return nil
		}
		query, err := s.askQuery()
		if err != nil {
			return quietInterrupt(err)
		}
		s.ask(ctx, query, *user)

		another, err := s.askContinue()
		if err != nil {
			return quietInterrupt(err)
		}
		if !another {
			s.printer.Info("👋 Goodbye!")
			return nil
		}
	}
}

func (s *InteractiveSession) ask(ctx context.Context, query string, user models.User) {
	out, err := s.runner.Run(ctx, query, user)
	if err != nil {
		s.printer.Error(err)
		return
	}
	s.printer.Answer(out.Answer, out.ToolsUsed, out.Elapsed)
}

func quietInterrupt(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return nil
	}
	return err
}
