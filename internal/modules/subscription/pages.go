package subscription

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
)

// The verify and unsubscribe flows are opened from email clients, so they
// degrade to a styled HTML page instead of raw JSON.

const pageTpl = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>{{.Title}} · {{.SiteTitle}}</title>
</head>
<body style="font-family:sans-serif;background:#f5f5f5;padding:40px 20px">
<div style="max-width:480px;margin:0 auto;background:#fff;border-radius:8px;padding:32px;text-align:center">
  {{if .Success}}
  <div style="font-size:40px">&#10003;</div>
  {{else}}
  <div style="font-size:40px">&#9888;</div>
  {{end}}
  <h1 style="color:#333;font-size:22px">{{.Title}}</h1>
  <p style="color:#666">{{.Body}}</p>
</div>
</body>
</html>`

var pageTemplate = template.Must(template.New("page").Parse(pageTpl))

type pageData struct {
	Title     string
	Body      string
	Success   bool
	SiteTitle string
}

func renderPage(c *gin.Context, status int, data pageData) {
	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(c.Writer, data); err != nil {
		c.String(http.StatusInternalServerError, "internal error")
	}
}
