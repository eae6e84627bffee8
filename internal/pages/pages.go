// Package pages renders the HTML pages of the web flow.
//
// Both pages are pure functions of their input: rendering the same input twice
// yields byte-identical output. User-visible text is Spanish.
package pages

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

// Paths the pages link to.
const (
	HomePath      = "/"
	AuthorizePath = "/authorize"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

type landingData struct {
	AuthorizePath string
}

type errorData struct {
	Title    string
	Detail   string
	HomePath string
}

// RenderLanding renders the start page with the link to the consent flow.
func RenderLanding() ([]byte, error) {
	return render("landing.html", landingData{AuthorizePath: AuthorizePath})
}

// RenderError renders the error page. Title and detail are HTML-escaped; line
// breaks in detail are preserved by the page's CSS.
func RenderError(title, detail string) ([]byte, error) {
	return render("error.html", errorData{
		Title:    title,
		Detail:   detail,
		HomePath: HomePath,
	})
}

func render(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
