package status

import (
	"context"
	"fmt"
	htmltemplate "html/template"
	"log"
	"net/http"
	"time"

	"github.com/PowerDNS/simpleblob"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/prtracker/prdemo/config"
)

func StartHTTPServer(c config.Config) {
	if c.HTTP.Address == "" {
		logrus.Info("HTTP stats server disabled")
		return
	}
	logrus.WithField("address", c.HTTP.Address).Info("HTTP stats server enabled")
	http.Handle("/metrics", promhttp.Handler())
	http.Handle("/", NewPage(c))
	go func() {
		err := http.ListenAndServe(c.HTTP.Address, nil)
		logrus.Fatalf("HTTP server error: %v", err)
	}()
}

// NewPage returns the status page handler
func NewPage(c config.Config) *Page {
	return &Page{c: c}
}

type Page struct {
	c config.Config
}

const statusTemplateString = `<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<title>prdemo status</title>
	<style>
		body          { font-family: sans-serif; }
		table, td, th { border: 1px solid #ccc; border-collapse: collapse; }
		td, th        { padding: 5px; text-align: left; }
		td.size       { text-align: right; }
		td.error      { background-color: #ffb8b8; }
		td.done       { background-color: #a6f3a6; }
		a             { text-decoration: none; color: #3c6ac5; }
	</style>
</head>
<body>
	<h1>prdemo status</h1>
	<p>
		<a href="/metrics">Prometheus metrics</a>
		| <a href="/healthz">Health</a>
	</p>

	<h2>Progress</h2>
	{{ with .Progress }}
	<table>
		<tr><th>Demo</th><th>Worlds</th><th>Groups</th><th>Updated</th></tr>
		<tr>
			<td class="{{ if .Final }}done{{ end }}">{{ .Demo }}</td>
			<td>{{ .Worlds }}</td>
			<td>{{ .Groups }}</td>
			<td>{{ .Time.Format "15:04:05" }}</td>
		</tr>
	</table>
	{{ else }}
	<p>Nothing parsed yet</p>
	{{ end }}

	<h2>Exports</h2>
	{{ if .ListError }}
	<table><tr><td class="error">{{ .ListError }}</td></tr></table>
	{{ else }}
	<table>
		<tr><th>Name</th><th>Size</th></tr>
		{{ range .Exports }}
		<tr><td>{{ .Name }}</td><td class="size">{{ .Size }}</td></tr>
		{{ end }}
	</table>
	{{ end }}

	<h2>Config</h2>
	<pre>{{ .Config.String }}</pre>

</body>
</html>`

var statusTemplate *htmltemplate.Template

func init() {
	var err error
	statusTemplate, err = htmltemplate.New("status").Parse(statusTemplateString)
	if err != nil {
		log.Fatalf("BUG: Error in status HTML template: %v", err)
	}
}

func (p *Page) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	data := struct {
		Config    config.Config
		Progress  *Progress
		Exports   simpleblob.BlobList
		ListError error
	}{
		Config: p.c,
	}
	if last, ok := LastProgress(); ok {
		data.Progress = &last
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	data.Exports, data.ListError = gi.ListBlobs(ctx, p.c.Storage.ExportPrefix)

	err := statusTemplate.Execute(w, data)
	if err != nil {
		w.WriteHeader(500)
		_, _ = w.Write([]byte(fmt.Sprintf("Template execution error: %v", err)))
	}
}
