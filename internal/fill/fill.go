// internal/fill/fill.go
//
// Terminal respondent loop.
//
// Context
// -------
// Run walks a form.Flow the way the browser page does, one prompt per
// field:
//
//	Load ─► (PasswordRequired: ask up to three times) ─► Ready
//	Ready ─► ask every field ─► Submit
//	   ▲                          │ ValidationError: re-ask only the
//	   └──────────────────────────┘ fields that carry a message
//	Submitted ─► print receipt ─► "another?" (multi-submit forms only)
//
// File fields take a local path; only the file's metadata (name, size,
// content type) is sent.  Terminal copy is Portuguese, matching the web
// pages.

package fill

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/yanizio/formaly/internal/fieldtype"
	"github.com/yanizio/formaly/internal/form"
	"github.com/yanizio/formaly/internal/logger"
)

const (
	passwordAttempts = 3
	blankOption      = "(em branco)"
)

// ErrNotFound is returned for unknown, inactive, or deleted forms.
var ErrNotFound = errors.New("formulário não encontrado")

// ErrLocked is returned after too many wrong passwords.
var ErrLocked = errors.New("senha incorreta")

// Run drives flow to completion.  It returns the receipts of every accepted
// submission.
func Run(ctx context.Context, flow *form.Flow, p Prompter, out io.Writer) ([]form.Receipt, error) {
	log := logger.FromContext(ctx)

	state, err := flow.Load(ctx)
	if err != nil {
		return nil, err
	}
	if state == form.StateNotFound {
		return nil, ErrNotFound
	}

	pf := flow.Form()
	fmt.Fprintf(out, "\n%s\n", pf.Name)
	if pf.Description != "" {
		fmt.Fprintf(out, "%s\n", pf.Description)
	}
	fmt.Fprintln(out)

	if err := unlock(ctx, flow, p, out); err != nil {
		return nil, err
	}

	var receipts []form.Receipt
	for {
		if err := answer(ctx, flow, p, nil); err != nil {
			return receipts, err
		}
		for {
			_, err := flow.Submit(ctx)
			if err == nil {
				break
			}
			if _, ok := form.IsValidationError(err); !ok {
				return receipts, err
			}
			log.Debugw("submission rejected, re-asking", "fields", len(flow.Errors()))
			if err := answer(ctx, flow, p, flow.Errors()); err != nil {
				return receipts, err
			}
		}

		r := flow.Receipt()
		receipts = append(receipts, r)
		fmt.Fprintf(out, "\n%s\n", r.Message)

		if !pf.AllowMultipleSubmissions {
			return receipts, nil
		}
		again, err := p.Confirm("Enviar outra resposta?", false)
		if err != nil || !again {
			return receipts, err
		}
		if _, err := flow.SubmitAnother(); err != nil {
			return receipts, err
		}
	}
}

func unlock(ctx context.Context, flow *form.Flow, p Prompter, out io.Writer) error {
	for i := 0; flow.State() == form.StatePasswordRequired; i++ {
		if i == passwordAttempts {
			return ErrLocked
		}
		pw, err := p.Password("Senha")
		if err != nil {
			return err
		}
		_, err = flow.Unlock(ctx, pw)
		switch {
		case errors.Is(err, form.ErrWrongPassword):
			fmt.Fprintln(out, "Senha incorreta.")
		case err != nil:
			return err
		}
	}
	return nil
}

// answer asks every field, or only those in only when it is non-nil.
func answer(ctx context.Context, flow *form.Flow, p Prompter, only map[string]string) error {
	values := flow.Values()
	for _, f := range flow.Fields() {
		if err := ctx.Err(); err != nil {
			return err
		}
		help := ""
		if only != nil {
			msg, ok := only[f.ID]
			if !ok {
				continue
			}
			help = msg
		}
		v, err := ask(p, f, values[f.ID], help)
		if err != nil {
			return err
		}
		if err := flow.Set(f.ID, v); err != nil {
			return err
		}
	}
	return nil
}

// ask prompts for one field.  A nil result leaves the field empty.
func ask(p Prompter, f form.Field, cur any, problem string) (any, error) {
	msg := f.Label
	if f.Required {
		msg += " *"
	}
	if problem != "" {
		msg += " (" + problem + ")"
	}
	help := f.Placeholder

	switch f.Type {
	case fieldtype.Textarea:
		return nonEmpty(p.Multiline(msg, help, asString(cur)))

	case fieldtype.Select, fieldtype.Radio:
		opts := f.Options
		if !f.Required {
			opts = append([]string{blankOption}, opts...)
		}
		s, err := p.Select(msg, help, opts, asString(cur))
		if err != nil || s == blankOption {
			return nil, err
		}
		return s, nil

	case fieldtype.Checkbox:
		cur, _ := cur.([]string)
		sel, err := p.MultiSelect(msg, help, f.Options, cur)
		if err != nil || len(sel) == 0 {
			return nil, err
		}
		return sel, nil

	case fieldtype.File:
		path, err := p.Input(msg, "Caminho do arquivo", "")
		if err != nil || strings.TrimSpace(path) == "" {
			return nil, err
		}
		return describeFile(strings.TrimSpace(path))

	default:
		return nonEmpty(p.Input(msg, help, asString(cur)))
	}
}

// describeFile stats path and returns the metadata that is submitted.
func describeFile(path string) (any, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("arquivo %s: %w", path, err)
	}
	return form.FileHandle{
		Name:        filepath.Base(path),
		Size:        fi.Size(),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
	}, nil
}

func nonEmpty(s string, err error) (any, error) {
	if err != nil || s == "" {
		return nil, err
	}
	return s, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
