package handlers

import (
	"net/http"

	"xc-gate/work/middleware"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the route table. The JSON action surface gets CORS and
// gzip; exports get CORS (players fetch them cross-origin too); the
// path-style stream routes are redirects or small manifests and stay bare.
// The bare base URL falls through to the player API for legacy clients that
// call it with nothing but query parameters.
func NewRouter(h *Handlers) *mux.Router {
	r := mux.NewRouter()

	api := middleware.CORS(middleware.Gzip(h.PlayerAPI))
	r.HandleFunc("/player_api.php", api).Methods(http.MethodGet, http.MethodPost, http.MethodOptions)
	r.HandleFunc("/panel_api.php", api).Methods(http.MethodGet, http.MethodPost, http.MethodOptions)

	r.HandleFunc("/get.php", middleware.CORS(middleware.Gzip(h.Playlist))).Methods(http.MethodGet, http.MethodOptions)
	xmltv := middleware.CORS(middleware.Gzip(h.XMLTV))
	r.HandleFunc("/xmltv.php", xmltv).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/xmltv", xmltv).Methods(http.MethodGet, http.MethodOptions)

	r.PathPrefix("/live/").HandlerFunc(h.Live).Methods(http.MethodGet)
	r.PathPrefix("/movie/").HandlerFunc(h.Movie).Methods(http.MethodGet)
	r.PathPrefix("/series/").HandlerFunc(h.Series).Methods(http.MethodGet)
	r.PathPrefix("/timeshift/").HandlerFunc(h.Timeshift).Methods(http.MethodGet)

	r.HandleFunc("/healthz", h.Healthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.PathPrefix("/").HandlerFunc(api).Methods(http.MethodGet, http.MethodPost, http.MethodOptions)

	return r
}
