package handlers

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"github.com/markdave123-py/aspiro/internal/pkg/response"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PagesHandler serves the static front end and the health probe.
type PagesHandler struct {
	landingPage string
	staticDir   string
	db          Pinger
}

func NewPagesHandler(landingPage, staticDir string, db Pinger) *PagesHandler {
	return &PagesHandler{landingPage: landingPage, staticDir: staticDir, db: db}
}

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Health stays 200 while the process serves; a failing database flips it to 503.
func (h *PagesHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			response.JSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unhealthy", Message: "database unavailable"})
			return
		}
	}
	response.OK(w, healthResponse{Status: "healthy", Message: "Aspiro AI is running!"})
}

func (h *PagesHandler) Landing(w http.ResponseWriter, r *http.Request) {
	serveIfExists(w, r, h.landingPage)
}

// App serves the chat application shell.
func (h *PagesHandler) App(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, r, "index.html")
}

func (h *PagesHandler) Pricing(w http.ResponseWriter, r *http.Request) {
	h.serveFile(w, r, "pricing.html")
}

// Static serves everything under the static directory at /static/.
func (h *PagesHandler) Static() http.Handler {
	return http.StripPrefix("/static/", http.FileServer(http.Dir(h.staticDir)))
}

func (h *PagesHandler) serveFile(w http.ResponseWriter, r *http.Request, name string) {
	serveIfExists(w, r, filepath.Join(h.staticDir, name))
}

// serveIfExists answers 404 for a missing page rather than leaking a
// directory listing.
func serveIfExists(w http.ResponseWriter, r *http.Request, path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, path)
}
