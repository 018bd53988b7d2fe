// Package web serves the HTML pages, static assets and API documentation.
package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"calculator_app/internal/calc"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

//go:embed docs/openapi.yaml
var openAPI []byte

const redocPage = `<!DOCTYPE html>
<html>
<head>
  <title>Calculations API</title>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <script src="https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"></script>
</head>
<body>
  <redoc spec-url='/docs/openapi.yaml'></redoc>
</body>
</html>`

// Register installs templates, static files, docs and page routes on r.
func Register(r *gin.Engine) error {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return err
	}
	r.SetHTMLTemplate(tmpl)

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		return err
	}
	r.StaticFS("/static", http.FS(static))

	r.GET("/docs", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(redocPage))
	})
	r.GET("/docs/openapi.yaml", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/yaml", openAPI)
	})

	r.GET("/", page("index.html", "Home"))
	r.GET("/login", page("login.html", "Log in"))
	r.GET("/register", page("register.html", "Register"))
	r.GET("/dashboard", page("dashboard.html", "Dashboard"))
	r.GET("/dashboard/view/:id", page("view_calculation.html", "Calculation"))
	r.GET("/dashboard/edit/:id", page("edit_calculation.html", "Edit calculation"))
	return nil
}

// page renders a template; data lookups happen client side against the API.
func page(name, title string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, name, gin.H{
			"Title":  title,
			"CalcID": c.Param("id"),
			"Types":  calc.Types(),
		})
	}
}
