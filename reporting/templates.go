package reporting

import (
	"embed"
	"fmt"
	"html/template"

	"github.com/saythanks/mobile-harness/templates"
)

// SummaryTemplateName is the embedded template used for the run summary page.
const SummaryTemplateName = "summary.html.tmpl"

//go:embed templates/*.html.tmpl
var templateFS embed.FS

// GetHTMLTemplate returns the named embedded template with the shared
// template functions installed.
func GetHTMLTemplate(name string) (*template.Template, error) {
	tmpl, err := template.New(name).
		Funcs(templates.GetTemplateFunc()).
		ParseFS(templateFS, "templates/"+name)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	return tmpl, nil
}
