// internal/fill/prompt.go
//
// Prompt abstraction for the terminal respondent.
//
// Prompter hides the terminal library so the fill loop can be tested with a
// scripted answer list.  Survey is the production implementation; an
// interrupt (Ctrl-C) surfaces as ErrAborted.

package fill

import (
	"errors"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// ErrAborted is returned when the respondent interrupts a prompt.
var ErrAborted = errors.New("fill: aborted")

// Prompter asks one question at a time.
type Prompter interface {
	Input(msg, help, def string) (string, error)
	Multiline(msg, help, def string) (string, error)
	Password(msg string) (string, error)
	Select(msg, help string, options []string, def string) (string, error)
	MultiSelect(msg, help string, options []string, def []string) ([]string, error)
	Confirm(msg string, def bool) (bool, error)
}

// Survey prompts on the controlling terminal.
type Survey struct{}

var _ Prompter = Survey{}

func (Survey) Input(msg, help, def string) (string, error) {
	var out string
	err := survey.AskOne(&survey.Input{Message: msg, Help: help, Default: def}, &out)
	return out, translate(err)
}

func (Survey) Multiline(msg, help, def string) (string, error) {
	var out string
	err := survey.AskOne(&survey.Multiline{Message: msg, Help: help, Default: def}, &out)
	return out, translate(err)
}

func (Survey) Password(msg string) (string, error) {
	var out string
	err := survey.AskOne(&survey.Password{Message: msg}, &out)
	return out, translate(err)
}

func (Survey) Select(msg, help string, options []string, def string) (string, error) {
	var out string
	p := &survey.Select{Message: msg, Help: help, Options: options}
	if def != "" {
		p.Default = def
	}
	err := survey.AskOne(p, &out)
	return out, translate(err)
}

func (Survey) MultiSelect(msg, help string, options []string, def []string) ([]string, error) {
	var out []string
	p := &survey.MultiSelect{Message: msg, Help: help, Options: options}
	if len(def) > 0 {
		p.Default = def
	}
	err := survey.AskOne(p, &out)
	return out, translate(err)
}

func (Survey) Confirm(msg string, def bool) (bool, error) {
	var out bool
	err := survey.AskOne(&survey.Confirm{Message: msg, Default: def}, &out)
	return out, translate(err)
}

func translate(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return ErrAborted
	}
	return err
}
