// Package web serves the control interface: an HTML page for launching and
// stopping TensorBoard instances, plus a Prometheus metrics endpoint.
package web

import (
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/parsiad/tbman"
)

// Supervisor is the subset of the manager the control interface needs.
type Supervisor interface {
	Host() string
	Launch(cfg tbman.Config) (tbman.Instance, error)
	Stop(id int) error
	StopAll()
	Instances() []tbman.Instance
	Save() error
}

// Server handles the control interface requests.
type Server struct {
	sup     Supervisor
	log     *slog.Logger
	metrics *metrics
	tmpl    *template.Template
}

// NewHandler builds the control interface router around sup and registers
// its metrics on reg.
func NewHandler(sup Supervisor, logger *slog.Logger, reg *prometheus.Registry) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		sup:     sup,
		log:     logger,
		metrics: newMetrics(reg, sup),
		tmpl:    template.Must(template.New("index").Parse(indexHTML)),
	}

	r := chi.NewRouter()
	r.Get("/", s.index)
	r.Post("/", s.launch)
	r.Get("/stop/{id}", s.stop)
	r.Get("/cleanup", s.cleanup)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return r
}

// indexData is the template payload for the main page.
type indexData struct {
	Host      string
	Instances []tbman.Instance
	Error     string
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	s.render(w, indexData{Host: s.sup.Host(), Instances: s.sup.Instances()})
}

// launch starts a new instance from the submitted form and persists the
// session so a crash after launch does not lose the configuration.
func (s *Server) launch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	paths := splitPaths(r.PostFormValue("paths"))
	if len(paths) == 0 {
		w.WriteHeader(http.StatusBadRequest)
		s.render(w, indexData{
			Host:      s.sup.Host(),
			Instances: s.sup.Instances(),
			Error:     "at least one log directory is required",
		})
		return
	}
	title := strings.TrimSpace(r.PostFormValue("title"))

	inst, err := s.sup.Launch(tbman.Config{Paths: paths, Title: title})
	if err != nil {
		s.metrics.launchFailures.Inc()
		s.log.Error("launch failed", "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, tbman.ErrPortExhausted) {
			status = http.StatusServiceUnavailable
		}
		w.WriteHeader(status)
		s.render(w, indexData{
			Host:      s.sup.Host(),
			Instances: s.sup.Instances(),
			Error:     err.Error(),
		})
		return
	}
	s.metrics.launches.Inc()
	s.log.Info("launched instance", "id", inst.ID, "port", inst.Port, "title", title)

	if err := s.sup.Save(); err != nil {
		s.log.Error("session save failed", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) stop(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid instance id", http.StatusBadRequest)
		return
	}

	if err := s.sup.Stop(id); err != nil {
		if errors.Is(err, tbman.ErrInstanceNotFound) {
			http.Error(w, fmt.Sprintf("no instance %d", id), http.StatusNotFound)
			return
		}
		s.log.Error("stop failed", "id", id, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.metrics.stops.Inc()
	s.log.Info("stopped instance", "id", id)

	if err := s.sup.Save(); err != nil {
		s.log.Error("session save failed", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// cleanup stops every instance and persists the now-empty configuration
// list, leaving a blank session for the next run.
func (s *Server) cleanup(w http.ResponseWriter, r *http.Request) {
	n := len(s.sup.Instances())
	s.sup.StopAll()
	s.metrics.stops.Add(float64(n))
	s.log.Info("stopped all instances", "count", n)

	if err := s.sup.Save(); err != nil {
		s.log.Error("session save failed", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) render(w http.ResponseWriter, data indexData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, data); err != nil {
		s.log.Error("template render failed", "error", err)
	}
}

// splitPaths parses the form's path list: one or more directories separated
// by whitespace or commas.
func splitPaths(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	paths := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			paths = append(paths, f)
		}
	}
	return paths
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8" />
<title>tbman</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
td, th { border: 1px solid #ccc; padding: 0.4em 0.8em; text-align: left; }
.error { color: #b00; }
</style>
</head>
<body>
<h1>tbman</h1>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
<form method="post" action="/">
<p><label>Log directories (space or comma separated):<br/>
<input type="text" name="paths" size="80" /></label></p>
<p><label>Title: <input type="text" name="title" /></label>
<button type="submit">Launch</button></p>
</form>
{{if .Instances}}
<table>
<tr><th>ID</th><th>Title</th><th>Paths</th><th>Link</th><th></th></tr>
{{range .Instances}}
<tr>
<td>{{.ID}}</td>
<td>{{.Config.Title}}</td>
<td>{{range .Config.Paths}}{{.}}<br/>{{end}}</td>
<td><a href="http://{{$.Host}}:{{.Port}}/" target="_blank">{{$.Host}}:{{.Port}}</a></td>
<td><a href="/stop/{{.ID}}">stop</a></td>
</tr>
{{end}}
</table>
<p><a href="/cleanup">stop all</a></p>
{{else}}
<p>No instances running.</p>
{{end}}
</body>
</html>
`
