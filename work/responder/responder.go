// Package responder resolves path-style playback requests: live manifests
// and segments, plus the documented VOD/series/timeshift gaps.
package responder

import (
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"xc-gate/work/auth"
	"xc-gate/work/codec"
	"xc-gate/work/logger"
	"xc-gate/work/metrics"
	"xc-gate/work/store"

	"github.com/grafana/regexp"
	"github.com/grafov/m3u8"
)

// Catalog is the channel snapshot surface the responder needs.
type Catalog interface {
	LoadActiveChannels() ([]*store.ChannelRow, error)
}

// Recorder receives the fire-and-forget side effects of a successful
// stream resolution.
type Recorder interface {
	RecordSession(subscriberID, channelID, clientAddr string)
	TrackConnect(username string)
}

// Responder serves the /live, /movie, /series and /timeshift path surfaces.
type Responder struct {
	catalog  Catalog
	gate     *auth.Gate
	recorder Recorder // may be nil
}

// New creates a Responder. recorder may be nil (tests).
func New(catalog Catalog, gate *auth.Gate, recorder Recorder) *Responder {
	return &Responder{catalog: catalog, gate: gate, recorder: recorder}
}

// streamPathRe matches the final path segment of a live request:
// a numeric stream id with a .m3u8 or .ts extension.
var streamPathRe = regexp.MustCompile(`^(\d+)\.(m3u8|ts)$`)

// synthesized manifests advertise a fixed segment duration; players refresh
// from the upstream URL itself, so the figure only has to be plausible.
const segmentDuration = 10.0

// ServeLive handles GET /live/<streamId>.m3u8 and /live/<streamId>.ts.
// Credentials come from the username/password query params. Unlike the
// query-action surface this one speaks real HTTP status codes.
func (rp *Responder) ServeLive(w http.ResponseWriter, r *http.Request, last string) {
	segment := strings.HasSuffix(last, ".ts")
	kind := "live"
	if segment {
		kind = "segment"
	}

	// credentials are checked before the path is even parsed
	sub, _, err := rp.authenticate(w, r, kind)
	if err != nil {
		return
	}

	m := streamPathRe.FindStringSubmatch(last)
	if m == nil {
		metrics.StreamRequests.WithLabelValues(kind, "not_found").Inc()
		http.Error(w, "Stream not found", http.StatusNotFound)
		return
	}
	streamID, _ := strconv.ParseInt(m[1], 10, 64)

	channels, err := rp.catalog.LoadActiveChannels()
	if err != nil {
		metrics.BackendErrors.WithLabelValues("stream").Inc()
		logger.Error("{responder - ServeLive} catalog snapshot failed: %v", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	channel := resolveChannel(streamID, channels)
	if channel == nil {
		// no session record is written for a decode miss
		metrics.StreamRequests.WithLabelValues(kind, "not_found").Inc()
		http.Error(w, "Stream not found", http.StatusNotFound)
		return
	}

	if rp.recorder != nil {
		rp.recorder.RecordSession(sub.ID, channel.ID, clientAddr(r))
		rp.recorder.TrackConnect(sub.Username)
	}
	metrics.StreamRequests.WithLabelValues(kind, "ok").Inc()

	// Segments always go straight to the upstream.
	if segment {
		http.Redirect(w, r, channel.StreamURL, http.StatusFound)
		return
	}

	// An upstream that is itself an HLS manifest is redirected to as-is;
	// anything else gets wrapped in a minimal single-entry manifest.
	if isHLSManifest(channel.StreamURL) {
		http.Redirect(w, r, channel.StreamURL, http.StatusFound)
		return
	}

	rp.writeManifest(w, channel)
}

// ServeVOD handles /movie/... requests. The catalog does not model VOD
// playback yet; this is an explicit, documented gap, distinct from 404.
func (rp *Responder) ServeVOD(w http.ResponseWriter, r *http.Request) {
	rp.notImplemented(w, r, "vod", "VOD playback not implemented")
}

// ServeSeries handles /series/... requests; same documented gap as VOD.
func (rp *Responder) ServeSeries(w http.ResponseWriter, r *http.Request) {
	rp.notImplemented(w, r, "series", "Series playback not implemented")
}

// ServeTimeshift handles /timeshift/... requests; archive is not kept.
func (rp *Responder) ServeTimeshift(w http.ResponseWriter, r *http.Request) {
	rp.notImplemented(w, r, "timeshift", "Timeshift not implemented")
}

func (rp *Responder) notImplemented(w http.ResponseWriter, r *http.Request, kind, msg string) {
	if _, _, err := rp.authenticate(w, r, kind); err != nil {
		return
	}
	metrics.StreamRequests.WithLabelValues(kind, "not_implemented").Inc()
	http.Error(w, msg, http.StatusNotImplemented)
}

// authenticate runs the full entitlement gate against the query credentials
// and writes the plain-text error itself on failure.
func (rp *Responder) authenticate(w http.ResponseWriter, r *http.Request, kind string) (*store.SubscriberRow, *store.EntitlementRow, error) {
	q := r.URL.Query()
	sub, ent, err := rp.gate.Authenticate(q.Get("username"), q.Get("password"))
	if err != nil {
		if auth.IsRejection(err) {
			metrics.StreamRequests.WithLabelValues(kind, "unauthorized").Inc()
			http.Error(w, auth.RejectionMessage(err), http.StatusUnauthorized)
		} else {
			metrics.BackendErrors.WithLabelValues("stream").Inc()
			logger.Error("{responder - authenticate} backend failure: %v", err)
			http.Error(w, "Server error", http.StatusInternalServerError)
		}
		return nil, nil, err
	}
	return sub, ent, nil
}

func (rp *Responder) writeManifest(w http.ResponseWriter, channel *store.ChannelRow) {
	pl, err := m3u8.NewMediaPlaylist(1, 1)
	if err != nil {
		logger.Error("{responder - writeManifest} playlist alloc failed: %v", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}
	if err := pl.Append(channel.StreamURL, segmentDuration, channel.Name); err != nil {
		logger.Error("{responder - writeManifest} playlist append failed: %v", err)
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}
	pl.Close()

	w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(pl.Encode().Bytes())
}

// resolveChannel decodes a numeric stream id against the snapshot.
func resolveChannel(streamID int64, channels []*store.ChannelRow) *store.ChannelRow {
	ids := make([]string, len(channels))
	for i, ch := range channels {
		ids[i] = ch.ID
	}
	id, ok := codec.Decode(streamID, ids)
	if !ok {
		return nil
	}
	for _, ch := range channels {
		if ch.ID == id {
			return ch
		}
	}
	return nil
}

// isHLSManifest reports whether the upstream URL already points at an HLS
// manifest (by path extension).
func isHLSManifest(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return strings.HasSuffix(strings.ToLower(rawURL), ".m3u8")
	}
	return strings.HasSuffix(strings.ToLower(u.Path), ".m3u8")
}

func clientAddr(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
