// Package server exposes the stored analysis over a JSON API and a
// small HTML dashboard.
package server

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"

	"github.com/yuin/goldmark"

	"github.com/niagalab/niaga/internal/database"
	"github.com/niagalab/niaga/internal/recommend"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

const (
	summaryStockoutThreshold = 0.8
	summaryBundlingMinLift   = 1.5
)

// Server serves forecasts, rules, recommendations and the planning
// report.
type Server struct {
	db    *database.DB
	pages map[string]*template.Template
	mux   *http.ServeMux
}

// New creates a new Server.
func New(db *database.DB) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// For each page template, clone the base and parse the page into the clone.
	// This gives each page its own {{define "content"}} and {{define "title"}}.
	pageNames := []string{"index.html", "report.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{db: db, pages: pages, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	// Static files
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	// HTML pages
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/report", s.handleReport)

	// JSON API
	s.mux.HandleFunc("/api/summary", s.handleSummary)
	s.mux.HandleFunc("/api/regions", s.handleRegions)
	s.mux.HandleFunc("/api/forecasts", s.handleForecasts)
	s.mux.HandleFunc("/api/metrics", s.handleMetrics)
	s.mux.HandleFunc("/api/rules", s.handleRules)
	s.mux.HandleFunc("/api/recommendations", s.handleRecommendations)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	stats, err := s.db.GetStats()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	recs, _ := s.db.GetRecommendations(nil)

	s.render(w, "index.html", map[string]any{
		"Stats":           stats,
		"Recommendations": recs,
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.db.GetLatestReport()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, "report.html", map[string]any{
		"Report": report,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetStats()
	if err != nil {
		writeError(w, err)
		return
	}
	forecasts, err := s.db.GetForecasts(nil)
	if err != nil {
		writeError(w, err)
		return
	}
	rules, err := s.db.GetRules(nil)
	if err != nil {
		writeError(w, err)
		return
	}

	risks := recommend.StockoutRisks(forecasts, summaryStockoutThreshold)
	opportunities := recommend.BundlingOpportunities(rules, summaryBundlingMinLift)

	writeJSON(w, map[string]any{
		"transactions":           stats.Transactions,
		"regions":                stats.Regions,
		"categories":             stats.Categories,
		"rules":                  stats.Rules,
		"recommendations":        stats.Recommendations,
		"stockout_risks":         risks,
		"bundling_opportunities": opportunities,
	})
}

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := s.db.GetRegions()
	if err != nil {
		writeError(w, err)
		return
	}
	if regions == nil {
		regions = []string{}
	}
	writeJSON(w, regions)
}

func (s *Server) handleForecasts(w http.ResponseWriter, r *http.Request) {
	forecasts, err := s.db.GetForecasts(regionFilter(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, orEmpty(forecasts))
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := s.db.GetMetrics(regionFilter(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, orEmpty(metrics))
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.db.GetRules(regionFilter(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, orEmpty(rules))
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	recs, err := s.db.GetRecommendations(regionFilter(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, orEmpty(recs))
}

// regionFilter extracts the optional ?region= query parameter.
func regionFilter(r *http.Request) *string {
	region := r.URL.Query().Get("region")
	if region == "" {
		return nil
	}
	return &region
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	log.Printf("Request failed: %v", err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Printf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
	}
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve starts the HTTP server on the given port.
func Serve(db *database.DB, port int) error {
	srv, err := New(db)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
