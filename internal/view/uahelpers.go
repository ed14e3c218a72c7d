// internal/view/uahelpers.go
//
// Respondent-related template helpers.  Response pages show who answered
// in one short line without templates reaching into the struct.
package view

import (
	"html/template"
	"strings"

	"github.com/yanizio/formaly/internal/store"
)

// respondentFuncMap returns helpers keyed off store.Respondent.
func respondentFuncMap() template.FuncMap {
	return template.FuncMap{
		"browser": func(r store.Respondent) string { return r.Browser },
		"device":  func(r store.Respondent) string { return r.Device },
		"country": func(r store.Respondent) string { return r.Country },
		"isBot":   func(r store.Respondent) bool { return r.IsBot },
		"respondent": func(r store.Respondent) string {
			var parts []string
			for _, p := range []string{r.Browser, r.OS, r.Device, r.Country} {
				if p != "" {
					parts = append(parts, p)
				}
			}
			return strings.Join(parts, " · ")
		},
	}
}
