// Package form serves the server-rendered intake form: it resolves the field
// schema, renders grouped controls, validates and submits the applicant
// record, and shows the provider's decision.
package form

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"idintake/internal/application"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

//go:embed assets
var assetFS embed.FS

var pageTemplate = template.Must(template.New("_root").ParseFS(templateFS, "templates/*.tmpl"))

// Phase is the state of the form a page shows. Loading and submitting happen
// server-side within one request and never reach a page.
type Phase string

const (
	PhaseAwaitingSubmission Phase = "awaiting-submission"
	PhaseShowingOutcome     Phase = "showing-outcome"
)

// Page is the template view model.
type Page struct {
	Phase   Phase
	Origin  Origin
	Groups  Groups
	Error   string
	Outcome *OutcomeView
	Hidden  []application.Field // record carried through the outcome screen
}

// ShowingOutcome reports whether the page shows a decision.
func (p Page) ShowingOutcome() bool {
	return p.Phase == PhaseShowingOutcome && p.Outcome != nil
}

// executePage renders into a buffer so a template error never leaves a
// half-written response.
func executePage(page Page) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	if err := pageTemplate.ExecuteTemplate(&buf, "base", page); err != nil {
		return nil, err
	}
	return &buf, nil
}

// AssetsHandler serves the embedded script and stylesheet under /assets/.
func AssetsHandler() http.Handler {
	sub, err := fs.Sub(assetFS, "assets")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/assets/", http.FileServer(http.FS(sub)))
}
