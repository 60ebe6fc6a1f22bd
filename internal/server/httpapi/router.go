package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns the full handler chain. CORS wraps the router so that
// preflights are answered before route matching.
func (s *HTTPServer) Handler() http.Handler {
	return s.logRequests(s.cors(s.NewRouter()))
}

func (s *HTTPServer) NewRouter() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "OK")
	}).Methods("GET")
	if s.opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}

	a := r.PathPrefix("/api/auth").Subrouter()
	a.HandleFunc("/google", s.beginLogin).Methods("GET")
	a.HandleFunc("/google/callback", s.completeLogin).Methods("GET")
	a.HandleFunc("/me", s.optionalSession(s.me)).Methods("GET")
	a.HandleFunc("/logout", s.optionalSession(s.logout)).Methods("POST")
	a.HandleFunc("/account", s.requireSession(s.deleteAccount)).Methods("DELETE")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/set-drive-file", s.requireSession(s.setDriveFile)).Methods("POST")
	api.HandleFunc("/create-drive-file", s.requireSession(s.createDriveFile)).Methods("POST")
	api.HandleFunc("/sync-drive", s.requireSession(s.syncDrive)).Methods("POST")
	api.HandleFunc("/load-from-drive", s.requireSession(s.loadFromDrive)).Methods("GET")
	api.HandleFunc("/load-drive-file-by-id", s.requireSession(s.loadDriveFileByID)).Methods("POST")
	api.HandleFunc("/list-drive-files", s.requireSession(s.listDriveFiles)).Methods("GET")
	api.HandleFunc("/list-drive-folders", s.requireSession(s.listDriveFolders)).Methods("GET")
	api.HandleFunc("/browse-drive", s.requireSession(s.browseDrive)).Methods("GET", "POST")

	return r
}
