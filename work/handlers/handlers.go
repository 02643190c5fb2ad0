// Package handlers is the HTTP entry point: the query-action player API,
// the playlist and XMLTV exports, and the path-style stream routes.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"xc-gate/work/auth"
	"xc-gate/work/codec"
	"xc-gate/work/config"
	"xc-gate/work/logger"
	"xc-gate/work/metrics"
	"xc-gate/work/responder"
	"xc-gate/work/store"
	"xc-gate/work/xtream"
)

// Catalog is the read surface the action handlers need.
type Catalog interface {
	LoadActiveChannels() ([]*store.ChannelRow, error)
	UpcomingPrograms(channelID string, now time.Time, limit int) ([]*store.ProgramRow, error)
}

// ConnectionCounter reports per-subscriber active connections for user_info.
type ConnectionCounter interface {
	ActiveConnections(username string) int64
}

// Renderer produces the cached XMLTV document.
type Renderer interface {
	Render(now time.Time) (string, error)
}

// Pinger is the store liveness check behind /healthz.
type Pinger interface {
	Ping() error
}

// Handlers owns every HTTP route. The query-action surface always answers
// HTTP 200 with auth inside the JSON body; only the path-style stream and
// export routes speak real status codes.
type Handlers struct {
	cfg     *config.Config
	catalog Catalog
	gate    *auth.Gate
	conns   ConnectionCounter // may be nil
	guide   Renderer
	streams *responder.Responder
	health  Pinger
	now     func() time.Time
}

// New wires the handler set.
func New(cfg *config.Config, catalog Catalog, gate *auth.Gate, conns ConnectionCounter, guide Renderer, streams *responder.Responder, health Pinger) *Handlers {
	return NewAt(cfg, catalog, gate, conns, guide, streams, health, time.Now)
}

// NewAt is New with an injectable clock.
func NewAt(cfg *config.Config, catalog Catalog, gate *auth.Gate, conns ConnectionCounter, guide Renderer, streams *responder.Responder, health Pinger, now func() time.Time) *Handlers {
	return &Handlers{
		cfg:     cfg,
		catalog: catalog,
		gate:    gate,
		conns:   conns,
		guide:   guide,
		streams: streams,
		health:  health,
		now:     now,
	}
}

// simpleDataTableLimit bounds get_simple_data_table, which has no client
// supplied count. Large enough for a week of half-hour slots.
const simpleDataTableLimit = 500

// knownActions bounds the api-request metric label to the documented set.
var knownActions = map[string]struct{}{
	"get_live_categories":    {},
	"get_live_streams":       {},
	"get_vod_categories":     {},
	"get_vod_streams":        {},
	"get_series_categories":  {},
	"get_series":             {},
	"get_series_info":        {},
	"get_short_epg":          {},
	"get_simple_data_table":  {},
	"get_vod_info":           {},
	"get_all_channels":       {},
	"get_bouquets":           {},
	"get_channel_categories": {},
}

func actionLabel(action string) string {
	if action == "" {
		return "default"
	}
	if _, ok := knownActions[action]; ok {
		return action
	}
	return "unknown"
}

// param reads a request parameter: query string first, then POST form body.
func param(r *http.Request, key string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	if r.Method == http.MethodPost {
		return r.PostFormValue(key)
	}
	return ""
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("{handlers - writeJSON} response encode failed: %v", err)
	}
}

// PlayerAPI serves player_api.php (and the bare base URL, which legacy
// clients hit with the same query parameters). Every response, including
// rejections and backend failures, is HTTP 200 JSON.
func (h *Handlers) PlayerAPI(w http.ResponseWriter, r *http.Request) {
	username := param(r, "username")
	password := param(r, "password")
	action := param(r, "action")
	metrics.APIRequests.WithLabelValues(actionLabel(action)).Inc()

	sub, ent, err := h.gate.Authenticate(username, password)
	if err != nil {
		if auth.IsRejection(err) {
			writeJSON(w, xtream.Rejected(username, password, auth.RejectionMessage(err)))
			return
		}
		logger.Error("{handlers - PlayerAPI} authentication backend failure: %v", err)
		writeJSON(w, xtream.Rejected(username, password, "Server error"))
		return
	}

	switch action {
	case "get_live_categories", "get_channel_categories":
		channels, ok := h.snapshot(w, username, password)
		if !ok {
			return
		}
		writeJSON(w, xtream.Categories(xtream.BuildCategoryIndex(channels)))

	case "get_live_streams":
		channels, ok := h.snapshot(w, username, password)
		if !ok {
			return
		}
		idx := xtream.BuildCategoryIndex(channels)
		writeJSON(w, xtream.LiveStreams(channels, idx, param(r, "category_id")))

	case "get_all_channels":
		channels, ok := h.snapshot(w, username, password)
		if !ok {
			return
		}
		idx := xtream.BuildCategoryIndex(channels)
		writeJSON(w, xtream.LiveStreams(channels, idx, ""))

	case "get_short_epg":
		h.serveEPG(w, r, username, password, false)

	case "get_simple_data_table":
		h.serveEPG(w, r, username, password, true)

	case "get_vod_categories", "get_series_categories":
		writeJSON(w, xtream.EmptyCategories())

	case "get_vod_streams":
		writeJSON(w, xtream.EmptyVODStreams())

	case "get_series":
		writeJSON(w, xtream.EmptySeries())

	case "get_series_info":
		writeJSON(w, xtream.EmptySeriesInfo())

	case "get_vod_info":
		writeJSON(w, xtream.EmptyVODInfo())

	case "get_bouquets":
		writeJSON(w, xtream.EmptyBouquets())

	default:
		// empty or unrecognized action: the authentication envelope
		var active int64
		if h.conns != nil {
			active = h.conns.ActiveConnections(sub.Username)
		}
		writeJSON(w, xtream.Authenticated(sub, ent, h.cfg, active, h.now()))
	}
}

// snapshot loads the active channel set, converting a backend failure into
// the action-surface "Server error" envelope.
func (h *Handlers) snapshot(w http.ResponseWriter, username, password string) ([]*store.ChannelRow, bool) {
	channels, err := h.catalog.LoadActiveChannels()
	if err != nil {
		metrics.BackendErrors.WithLabelValues("api").Inc()
		logger.Error("{handlers - snapshot} catalog load failed: %v", err)
		writeJSON(w, xtream.Rejected(username, password, "Server error"))
		return nil, false
	}
	return channels, true
}

// serveEPG handles get_short_epg and get_simple_data_table. A missing or
// undecodable stream_id yields empty listings, never an error body.
func (h *Handlers) serveEPG(w http.ResponseWriter, r *http.Request, username, password string, simple bool) {
	now := h.now()

	streamID, err := strconv.ParseInt(param(r, "stream_id"), 10, 64)
	if err != nil {
		writeJSON(w, xtream.EPGListings(nil, "", now, simple))
		return
	}

	channels, ok := h.snapshot(w, username, password)
	if !ok {
		return
	}
	ch := findChannel(streamID, channels)
	if ch == nil {
		writeJSON(w, xtream.EPGListings(nil, "", now, simple))
		return
	}

	limit := h.cfg.ShortEPGLimit
	if simple {
		limit = simpleDataTableLimit
	}
	if v := param(r, "limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	programs, err := h.catalog.UpcomingPrograms(ch.ID, now, limit)
	if err != nil {
		metrics.BackendErrors.WithLabelValues("api").Inc()
		logger.Error("{handlers - serveEPG} program load failed for channel %s: %v", ch.ID, err)
		writeJSON(w, xtream.Rejected(username, password, "Server error"))
		return
	}

	writeJSON(w, xtream.EPGListings(programs, ch.EPGChannelID, now, simple))
}

// findChannel resolves a numeric stream id against the snapshot by
// re-encoding each catalog id, same linear scan the stream routes use.
func findChannel(streamID int64, channels []*store.ChannelRow) *store.ChannelRow {
	ids := make([]string, len(channels))
	for i, ch := range channels {
		ids[i] = ch.ID
	}
	catalogID, found := codec.Decode(streamID, ids)
	if !found {
		return nil
	}
	for _, ch := range channels {
		if ch.ID == catalogID {
			return ch
		}
	}
	return nil
}

// Playlist serves get.php: an M3U playlist whose entries point back at this
// gateway's /live routes. It is a text surface, so failures use real
// status codes.
func (h *Handlers) Playlist(w http.ResponseWriter, r *http.Request) {
	username := param(r, "username")
	password := param(r, "password")

	_, _, err := h.gate.Authenticate(username, password)
	if err != nil {
		if auth.IsRejection(err) {
			http.Error(w, auth.RejectionMessage(err), http.StatusUnauthorized)
			return
		}
		logger.Error("{handlers - Playlist} authentication backend failure: %v", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	channels, err := h.catalog.LoadActiveChannels()
	if err != nil {
		metrics.BackendErrors.WithLabelValues("playlist").Inc()
		logger.Error("{handlers - Playlist} catalog load failed: %v", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	base := strings.TrimRight(h.cfg.BaseURL, "/")
	creds := url.Values{"username": {username}, "password": {password}}.Encode()

	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	for _, ch := range channels {
		id, err := codec.Encode(ch.ID)
		if err != nil {
			logger.Warn("{handlers - Playlist} skipping channel %s: %v", ch.ID, err)
			continue
		}
		fmt.Fprintf(&b, "#EXTINF:-1 tvg-id=\"%s\" tvg-name=\"%s\" tvg-logo=\"%s\" group-title=\"%s\",%s\n",
			ch.EPGChannelID, ch.Name, ch.LogoURL, ch.Category, ch.Name)
		fmt.Fprintf(&b, "%s/live/%d.ts?%s\n", base, id, creds)
	}

	w.Header().Set("Content-Type", "audio/x-mpegurl")
	if _, err := w.Write([]byte(b.String())); err != nil {
		logger.Error("{handlers - Playlist} response write failed: %v", err)
	}
}

// XMLTV serves xmltv.php: the full EPG export, cacheable for an hour.
func (h *Handlers) XMLTV(w http.ResponseWriter, r *http.Request) {
	username := param(r, "username")
	password := param(r, "password")

	_, _, err := h.gate.Authenticate(username, password)
	if err != nil {
		if auth.IsRejection(err) {
			http.Error(w, auth.RejectionMessage(err), http.StatusUnauthorized)
			return
		}
		logger.Error("{handlers - XMLTV} authentication backend failure: %v", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	doc, err := h.guide.Render(h.now())
	if err != nil {
		metrics.BackendErrors.WithLabelValues("xmltv").Inc()
		logger.Error("{handlers - XMLTV} render failed: %v", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := w.Write([]byte(doc)); err != nil {
		logger.Error("{handlers - XMLTV} response write failed: %v", err)
	}
}

// Live hands /live/<id>.<ext> to the stream responder.
func (h *Handlers) Live(w http.ResponseWriter, r *http.Request) {
	h.streams.ServeLive(w, r, path.Base(r.URL.Path))
}

func (h *Handlers) Movie(w http.ResponseWriter, r *http.Request) {
	h.streams.ServeVOD(w, r)
}

func (h *Handlers) Series(w http.ResponseWriter, r *http.Request) {
	h.streams.ServeSeries(w, r)
}

func (h *Handlers) Timeshift(w http.ResponseWriter, r *http.Request) {
	h.streams.ServeTimeshift(w, r)
}

// Healthz reports store liveness for the hosting platform.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.Ping(); err != nil {
			logger.Error("{handlers - Healthz} store ping failed: %v", err)
			http.Error(w, "unhealthy", http.StatusInternalServerError)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "ok")
}
