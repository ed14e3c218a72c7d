// internal/form/renderer.go
//
// Formaly – forms core: HTML renderer.
//
// Context
//   Given a field sequence this file converts each field into safe,
//   accessible HTML markup.  The renderer is shared by the public form page
//   and the owner's response viewer, so it supports an editable mode and a
//   read-only replay mode.
//
// Workflow
//   •  Render writes one control per field via writeField, in field order.
//   •  Inputs are named by field id, matching payload keys, so a posted form
//      decodes with PayloadFromValues.
//   •  Required, minlength, maxlength, pattern, min, max, and placeholder
//      attributes are attached where relevant.
//   •  A field message from the last submit is written into the field's error
//      span.
//   •  Read-only mode disables every control and adds a copy button per
//      value.
//   •  An unknown type renders a visible “type not supported” marker.  It is
//      never skipped, because a missing control hides a data drift bug.
//
// Style
//   Output HTML is plain: no framework classes.  Each input gets
//   id="fld-{id}" and is wrapped in <div class="form-field">.
//
//------------------------------------------------------------------------------

package form

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/yanizio/formaly/internal/fieldtype"
)

// RenderOptions bundles optional parameters influencing HTML output.
type RenderOptions struct {
	// Values pre-fills controls, keyed by field id.
	Values Payload
	// Errors holds per-field messages, keyed by field id.
	Errors map[string]string
	// ReadOnly disables inputs and adds copy buttons.
	ReadOnly bool
	// CSRFToken, when set, is embedded as a hidden input.
	CSRFToken string
}

// Render returns the markup for fields.  Callers embed the result in a page
// template; template.HTML prevents double escaping.
func Render(fields []Field, opts RenderOptions) template.HTML {
	var buf bytes.Buffer
	buf.WriteString(`<div class="formaly-form">` + "\n")

	for i := range fields {
		writeField(&buf, &fields[i], opts)
	}

	if opts.CSRFToken != "" {
		fmt.Fprintf(&buf, `<input type="hidden" name="csrf_token" value="%s">`+"\n", html.EscapeString(opts.CSRFToken))
	}

	buf.WriteString(`</div>`)
	return template.HTML(buf.String())
}

// writeField emits HTML for an individual field into buf.
func writeField(buf *bytes.Buffer, f *Field, opts RenderOptions) {
	val := displayValue(opts.Values[f.ID])
	id := "fld-" + html.EscapeString(f.ID)
	idAttr := `id="` + id + `"`
	nameAttr := `name="` + html.EscapeString(f.ID) + `"`

	buf.WriteString(`<div class="form-field" data-type="` + html.EscapeString(string(f.Type)) + `">` + "\n")
	buf.WriteString(`<label for="` + id + `">` + html.EscapeString(f.Label))
	if f.Required {
		buf.WriteString(` <span class="required">*</span>`)
	}
	buf.WriteString(`</label>` + "\n")

	switch f.Type {
	case fieldtype.Text, fieldtype.Email, fieldtype.Phone, fieldtype.Number, fieldtype.Date:
		buf.WriteString(`<input ` + idAttr + ` ` + nameAttr + ` type="` + inputType(f.Type) + `"`)
		commonAttrs(buf, f, opts.ReadOnly)
		constraintAttrs(buf, f)
		if val != "" {
			buf.WriteString(` value="` + html.EscapeString(val) + `"`)
		}
		buf.WriteString(`>` + "\n")

	case fieldtype.Textarea:
		buf.WriteString(`<textarea ` + idAttr + ` ` + nameAttr)
		commonAttrs(buf, f, opts.ReadOnly)
		constraintAttrs(buf, f)
		buf.WriteString(`>` + html.EscapeString(val) + `</textarea>` + "\n")

	case fieldtype.Select:
		buf.WriteString(`<select ` + idAttr + ` ` + nameAttr)
		if f.Required {
			buf.WriteString(` required`)
		}
		if opts.ReadOnly {
			buf.WriteString(` disabled`)
		}
		buf.WriteString(`>` + "\n")
		buf.WriteString(`<option value="">` + html.EscapeString(orDefault(f.Placeholder, "—")) + `</option>` + "\n")
		for _, opt := range f.Options {
			sel := ""
			if val == opt {
				sel = ` selected`
			}
			buf.WriteString(`<option value="` + html.EscapeString(opt) + `"` + sel + `>` + html.EscapeString(opt) + `</option>` + "\n")
		}
		buf.WriteString(`</select>` + "\n")

	case fieldtype.Radio, fieldtype.Checkbox:
		kind := "radio"
		selected := []string{val}
		if f.Type == fieldtype.Checkbox {
			kind = "checkbox"
			selected = displayList(opts.Values[f.ID])
		}
		for i, opt := range f.Options {
			optID := fmt.Sprintf("%s-%d", id, i)
			checked := ""
			if slices.Contains(selected, opt) {
				checked = ` checked`
			}
			buf.WriteString(`<div class="` + kind + `-option">` + "\n")
			buf.WriteString(`<input id="` + optID + `" ` + nameAttr + ` type="` + kind + `" value="` + html.EscapeString(opt) + `"` + checked)
			if f.Required && kind == "radio" {
				buf.WriteString(` required`)
			}
			if opts.ReadOnly {
				buf.WriteString(` disabled`)
			}
			buf.WriteString(`>` + "\n")
			buf.WriteString(`<label for="` + optID + `">` + html.EscapeString(opt) + `</label>` + "\n")
			buf.WriteString(`</div>` + "\n")
		}

	case fieldtype.File:
		if opts.ReadOnly {
			buf.WriteString(`<span ` + idAttr + ` class="file-name">` + html.EscapeString(val) + `</span>` + "\n")
			break
		}
		buf.WriteString(`<input ` + idAttr + ` ` + nameAttr + ` type="file"`)
		if f.Required {
			buf.WriteString(` required`)
		}
		buf.WriteString(`>` + "\n")

	default:
		buf.WriteString(`<div class="unsupported" role="alert">type not supported: ` + html.EscapeString(string(f.Type)) + `</div>` + "\n")
	}

	if opts.ReadOnly && val != "" {
		buf.WriteString(`<button type="button" class="copy" data-copy="` + html.EscapeString(val) + `">Copiar</button>` + "\n")
	}

	buf.WriteString(`<span class="error" aria-live="polite">` + html.EscapeString(opts.Errors[f.ID]) + `</span>` + "\n")
	buf.WriteString(`</div>` + "\n")
}

func inputType(t FieldType) string {
	if d, ok := fieldtype.Describe(t); ok {
		return d.HTMLType
	}
	return "text"
}

func commonAttrs(buf *bytes.Buffer, f *Field, readOnly bool) {
	if f.Placeholder != "" {
		buf.WriteString(` placeholder="` + html.EscapeString(f.Placeholder) + `"`)
	}
	if f.Required {
		buf.WriteString(` required`)
	}
	if readOnly {
		buf.WriteString(` readonly disabled`)
	}
}

func constraintAttrs(buf *bytes.Buffer, f *Field) {
	switch c := f.Config.(type) {
	case TextConfig:
		if c.MinLength > 0 {
			buf.WriteString(` minlength="` + strconv.Itoa(c.MinLength) + `"`)
		}
		if c.MaxLength > 0 {
			buf.WriteString(` maxlength="` + strconv.Itoa(c.MaxLength) + `"`)
		}
		if c.Pattern != "" && f.Type != fieldtype.Textarea {
			buf.WriteString(` pattern="` + html.EscapeString(c.Pattern) + `"`)
		}
	case NumberConfig:
		if c.Min != nil {
			buf.WriteString(` min="` + strconv.FormatFloat(*c.Min, 'f', -1, 64) + `"`)
		}
		if c.Max != nil {
			buf.WriteString(` max="` + strconv.FormatFloat(*c.Max, 'f', -1, 64) + `"`)
		}
	}
}

// displayValue flattens a payload value into the string a control shows.
func displayValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return x.Format(DateLayout)
	case FileHandle:
		return x.Name
	case []string:
		return strings.Join(x, ", ")
	case []any:
		return strings.Join(displayList(x), ", ")
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case map[string]any:
		if name, ok := x["name"].(string); ok {
			return name
		}
		return ""
	default:
		return fmt.Sprint(x)
	}
}

func displayList(v any) []string {
	switch x := v.(type) {
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, e := range x {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{x}
	default:
		return nil
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
