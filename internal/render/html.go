package render

import (
	"embed"
	"html/template"
	"io"
	"time"

	"github.com/naka-gawa/team-pulse/internal/domain"
)

//go:embed templates/report.html.tmpl
var templateFS embed.FS

var reportTemplate = template.Must(template.New("report.html.tmpl").Funcs(template.FuncMap{
	"percent": func(v, of int) int {
		if of <= 0 {
			return 0
		}
		return min(100, v*100/of)
	},
	"datetime": func(t time.Time) string { return t.Format(time.DateTime + " MST") },
	"maxTotal": func() int { return maxTotal },
	"inc":      func(i int) int { return i + 1 },
}).ParseFS(templateFS, "templates/report.html.tmpl"))

func writeHTML(w io.Writer, r *domain.Report, _ Options) error {
	return reportTemplate.Execute(w, r)
}
