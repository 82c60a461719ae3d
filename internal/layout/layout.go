// Package layout owns the page shell: static site metadata, the embedded
// templates and assets, and the template engine that renders them.
package layout

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/gofiber/template/html/v2"

	"github.com/latestcomment/lexarena/internal/models"
	"github.com/latestcomment/lexarena/internal/theme"
)

// Shell is the layout template every page is wrapped in.
const Shell = "layouts/main"

//go:embed views assets
var content embed.FS

type Metadata struct {
	Title       string
	Description string
}

var Site = Metadata{
	Title:       "LexArena",
	Description: "AI-powered legal simulation platform",
}

// NewEngine builds the html engine over the embedded views with the helper
// functions the templates use.
func NewEngine(tokens theme.Tokens) *html.Engine {
	views, err := fs.Sub(content, "views")
	if err != nil {
		panic(err) // embedded path is fixed at build time
	}
	engine := html.NewFileSystem(http.FS(views), ".html")
	engine.AddFunc("themeCSS", func() template.CSS {
		return template.CSS(tokens.CSSVariables())
	})
	engine.AddFunc("roleClass", RoleClass)
	return engine
}

// Assets serves the embedded stylesheet and scripts.
func Assets() http.FileSystem {
	assets, err := fs.Sub(content, "assets")
	if err != nil {
		panic(err)
	}
	return http.FS(assets)
}

// RoleClass maps a transcript role to its CSS modifier.
func RoleClass(role models.Role) string {
	switch role {
	case models.RoleYou:
		return "msg--you"
	case models.RoleJudge:
		return "msg--judge"
	case models.RoleSystem:
		return "msg--system"
	default:
		return "msg--counsel"
	}
}
