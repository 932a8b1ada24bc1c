package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/mux"
)

// RegisterStatic mounts the bundled web UI under /web when the directory
// exists, plus the usual convenience redirects and favicon route.
func RegisterStatic(r *mux.Router, webDir string) {
	redirect := func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/web/index.html", http.StatusFound)
	}
	r.HandleFunc("/", redirect).Methods(http.MethodGet)
	r.HandleFunc("/web", redirect).Methods(http.MethodGet)

	r.HandleFunc("/favicon.ico", func(w http.ResponseWriter, req *http.Request) {
		ico := filepath.Join(webDir, "assets", "icons", "favicon.ico")
		if _, err := os.Stat(ico); err != nil {
			respondError(w, http.StatusNotFound, "favicon not found")
			return
		}
		http.ServeFile(w, req, ico)
	}).Methods(http.MethodGet)

	if info, err := os.Stat(webDir); err == nil && info.IsDir() {
		fs := http.StripPrefix("/web/", http.FileServer(http.Dir(webDir)))
		r.PathPrefix("/web/").Handler(fs).Methods(http.MethodGet)
	}
}

// Health reports liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "api"})
}
