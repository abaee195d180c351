package events

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// MessageTemplateEngine renders human-readable notification messages. The
// templates are standard text/template with the sprig function map, so
// custom templates may use helpers like default, trunc or pluralize.
type MessageTemplateEngine struct {
	funcs     template.FuncMap
	templates map[Reason]*template.Template
}

// defaultTemplates is the engine used by the notification constructors.
var defaultTemplates = NewMessageTemplateEngine()

// NewMessageTemplateEngine creates an engine preloaded with the default
// per-reason templates.
func NewMessageTemplateEngine() *MessageTemplateEngine {
	e := &MessageTemplateEngine{
		funcs:     sprig.TxtFuncMap(),
		templates: make(map[Reason]*template.Template),
	}
	e.loadDefaults()
	return e
}

func (e *MessageTemplateEngine) loadDefaults() {
	defaults := map[Reason]string{
		ReasonShellAdded:   "Shell {{.Shell}} added with {{len .Settings.Features}} features{{if .Err}}: {{.Err}}{{end}}",
		ReasonShellRemoved: "Shell {{.Shell}} removed{{if .Err}}: {{.Err}}{{end}}",
		ReasonShellUpdated: "Shell {{.Shell}} updated{{if .Err}}: {{.Err}}{{end}}",
		ReasonShellsReloaded: "Shells reloaded: {{.Added}} added, {{.Removed}} removed, " +
			"{{.Changed}} changed{{if .Err}}; errors: {{.Err}}{{end}}",
	}
	for reason, text := range defaults {
		// Defaults are compile-time constants; a parse failure is a bug.
		e.templates[reason] = template.Must(
			template.New(string(reason)).Funcs(e.funcs).Parse(text))
	}
}

// SetTemplate replaces the template for one reason. Returns an error when
// the template text does not parse.
func (e *MessageTemplateEngine) SetTemplate(reason Reason, text string) error {
	tmpl, err := template.New(string(reason)).Funcs(e.funcs).Parse(text)
	if err != nil {
		return fmt.Errorf("parsing template for %s: %w", reason, err)
	}
	e.templates[reason] = tmpl
	return nil
}

// Render produces the message for a notification. Unknown reasons and
// execution failures fall back to a generic summary rather than erroring:
// a broken message template must never block the notification itself.
func (e *MessageTemplateEngine) Render(n Notification) string {
	tmpl, ok := e.templates[n.Reason]
	if !ok {
		return fallback(n)
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, n); err != nil {
		return fallback(n)
	}
	return sb.String()
}

func fallback(n Notification) string {
	if n.Shell != "" {
		return fmt.Sprintf("Event %s for shell %s", n.Reason, n.Shell)
	}
	return fmt.Sprintf("Event %s", n.Reason)
}
