package xtream

import (
	"fmt"
	"strconv"
	"time"

	"xc-gate/work/codec"
	"xc-gate/work/config"
	"xc-gate/work/store"
)

// CategoryIndex is the positional category-id assignment for one catalog
// snapshot: distinct labels in order of first appearance, ids 1-based.
// Both the categories and the live-streams projections for a single request
// must be built from the same index, otherwise filtering by category_id can
// drift when the catalog changes between queries.
type CategoryIndex struct {
	labels []string
	pos    map[string]int
}

// BuildCategoryIndex walks the snapshot once and assigns positional ids.
func BuildCategoryIndex(channels []*store.ChannelRow) *CategoryIndex {
	idx := &CategoryIndex{pos: make(map[string]int)}
	for _, ch := range channels {
		if ch.Category == "" {
			continue
		}
		if _, seen := idx.pos[ch.Category]; seen {
			continue
		}
		idx.labels = append(idx.labels, ch.Category)
		idx.pos[ch.Category] = len(idx.labels)
	}
	return idx
}

// IDFor returns the positional id for a label as a string, or "" when the
// label is not in the snapshot.
func (ci *CategoryIndex) IDFor(label string) string {
	p, ok := ci.pos[label]
	if !ok {
		return ""
	}
	return strconv.Itoa(p)
}

// LabelFor resolves a positional id string back to its label.
func (ci *CategoryIndex) LabelFor(id string) (string, bool) {
	n, err := strconv.Atoi(id)
	if err != nil || n < 1 || n > len(ci.labels) {
		return "", false
	}
	return ci.labels[n-1], true
}

// Categories projects the snapshot's distinct category labels.
func Categories(idx *CategoryIndex) []Category {
	cats := make([]Category, 0, len(idx.labels))
	for i, label := range idx.labels {
		cats = append(cats, Category{
			CategoryID:   strconv.Itoa(i + 1),
			CategoryName: label,
			ParentID:     0,
		})
	}
	return cats
}

// LiveStreams projects the snapshot's channels. categoryID filters by the
// positional id from the same index; empty means all channels. Channels
// whose catalog id cannot be encoded are skipped.
func LiveStreams(channels []*store.ChannelRow, idx *CategoryIndex, categoryID string) []LiveStream {
	var wantLabel string
	if categoryID != "" {
		label, ok := idx.LabelFor(categoryID)
		if !ok {
			return []LiveStream{}
		}
		wantLabel = label
	}

	streams := make([]LiveStream, 0, len(channels))
	for _, ch := range channels {
		if wantLabel != "" && ch.Category != wantLabel {
			continue
		}
		streamID, err := codec.Encode(ch.ID)
		if err != nil {
			continue
		}
		streams = append(streams, LiveStream{
			Num:          len(streams) + 1,
			Name:         ch.Name,
			StreamType:   "live",
			StreamID:     streamID,
			StreamIcon:   ch.LogoURL,
			EPGChannelID: ch.EPGChannelID,
			Added:        strconv.FormatInt(ch.CreatedAt.Unix(), 10),
			IsAdult:      "0",
			CategoryID:   idx.IDFor(ch.Category),
		})
	}
	return streams
}

const wireTimeLayout = "2006-01-02 15:04:05"

// EPGListings projects current-and-future programs for one channel.
// simpleDataTable additionally flags the first in-progress entry as now
// playing; has_archive is always 0 because timeshift is not implemented.
func EPGListings(programs []*store.ProgramRow, epgChannelID string, now time.Time, simpleDataTable bool) EPGResponse {
	listings := make([]EPGListing, 0, len(programs))
	for _, p := range programs {
		l := EPGListing{
			ID:             p.ID,
			EPGID:          p.ExternalID,
			Title:          p.Title,
			Lang:           "",
			Start:          p.StartsAt.UTC().Format(wireTimeLayout),
			End:            p.EndsAt.UTC().Format(wireTimeLayout),
			Description:    p.Description,
			ChannelID:      epgChannelID,
			StartTimestamp: p.StartsAt.Unix(),
			StopTimestamp:  p.EndsAt.Unix(),
		}
		if simpleDataTable && len(listings) == 0 && !p.StartsAt.After(now) && p.EndsAt.After(now) {
			l.NowPlaying = 1
		}
		listings = append(listings, l)
	}
	return EPGResponse{EPGListings: listings}
}

// Authenticated builds the success envelope for the default/login action.
func Authenticated(sub *store.SubscriberRow, ent *store.EntitlementRow, cfg *config.Config, activeConns int64, now time.Time) AuthResponse {
	isTrial := "0"
	if sub.IsTrial {
		isTrial = "1"
	}
	return AuthResponse{
		UserInfo: UserInfo{
			Username:             sub.Username,
			Password:             sub.Password,
			Message:              fmt.Sprintf("Welcome to %s", cfg.ServerName),
			Auth:                 1,
			Status:               "Active",
			ExpDate:              strconv.FormatInt(ent.EndsAt.Unix(), 10),
			IsTrial:              isTrial,
			ActiveConns:          strconv.FormatInt(activeConns, 10),
			CreatedAt:            strconv.FormatInt(sub.CreatedAt.Unix(), 10),
			MaxConnections:       strconv.Itoa(ent.MaxConnections),
			AllowedOutputFormats: ent.OutputFormats,
		},
		ServerInfo: serverInfo(cfg, now),
	}
}

// Rejected builds the uniform failure envelope. Same outer shape as the
// success path; only auth=0 and the message distinguish it.
func Rejected(username, password, message string) AuthResponse {
	return AuthResponse{
		UserInfo: UserInfo{
			Username:             username,
			Password:             password,
			Message:              message,
			Auth:                 0,
			Status:               "Disabled",
			AllowedOutputFormats: []string{},
		},
	}
}

func serverInfo(cfg *config.Config, now time.Time) *ServerInfo {
	return &ServerInfo{
		URL:          cfg.BaseURL,
		Port:         cfg.HTTPPort,
		HTTPSPort:    cfg.HTTPSPort,
		Protocol:     "http",
		RTMPPort:     cfg.RTMPPort,
		Timezone:     cfg.Timezone,
		ServerName:   cfg.ServerName,
		TimestampNow: now.Unix(),
		TimeNow:      now.UTC().Format(wireTimeLayout),
	}
}

// Placeholder projections for content types the catalog does not model yet.
// These keep client parsers fed with schema-correct shapes.

func EmptyCategories() []Category { return []Category{} }

func EmptyVODStreams() []VODStream { return []VODStream{} }

func EmptyBouquets() []Bouquet { return []Bouquet{} }

func EmptySeries() []SeriesItem { return []SeriesItem{} }

func EmptySeriesInfo() SeriesInfo {
	return SeriesInfo{
		Seasons:  []any{},
		Info:     map[string]any{},
		Episodes: map[string]any{},
	}
}

func EmptyVODInfo() VODInfo {
	return VODInfo{
		Info:      map[string]any{},
		MovieData: map[string]any{},
	}
}
