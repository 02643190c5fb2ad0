// Package xtream projects catalog and account records into the Xtream Codes
// JSON dialect. Field names follow the wire convention expected by deployed
// players (TiviMate, IPTV Smarters, Kodi's Simple Client); do not rename them.
package xtream

// UserInfo is the subscriber profile returned on login and on every
// rejection. Failure is signaled by Auth=0 inside an HTTP 200 body — players
// never see an HTTP error status on this surface.
type UserInfo struct {
	Username             string   `json:"username"`
	Password             string   `json:"password"`
	Message              string   `json:"message"`
	Auth                 int      `json:"auth"` // 1 = valid, 0 = invalid
	Status               string   `json:"status"`
	ExpDate              string   `json:"exp_date"`
	IsTrial              string   `json:"is_trial"`
	ActiveConns          string   `json:"active_cons"`
	CreatedAt            string   `json:"created_at"`
	MaxConnections       string   `json:"max_connections"`
	AllowedOutputFormats []string `json:"allowed_output_formats"`
}

// ServerInfo is the static service metadata returned on login.
type ServerInfo struct {
	URL          string `json:"url"`
	Port         string `json:"port"`
	HTTPSPort    string `json:"https_port"`
	Protocol     string `json:"protocol"`
	RTMPPort     string `json:"rtmp_port"`
	Timezone     string `json:"timezone"`
	ServerName   string `json:"server_name"`
	TimestampNow int64  `json:"timestamp_now"`
	TimeNow      string `json:"time_now"`
}

// AuthResponse is the default/login envelope.
type AuthResponse struct {
	UserInfo   UserInfo    `json:"user_info"`
	ServerInfo *ServerInfo `json:"server_info,omitempty"`
}

// Category represents a channel category. CategoryID is the label's 1-based
// position within the current snapshot, rendered as a string. The id is
// transient: stable within one response, not across requests.
type Category struct {
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"category_name"`
	ParentID     int    `json:"parent_id"`
}

// LiveStream represents one live channel.
type LiveStream struct {
	Num               int    `json:"num"`
	Name              string `json:"name"`
	StreamType        string `json:"stream_type"`
	StreamID          int64  `json:"stream_id"`
	StreamIcon        string `json:"stream_icon"`
	EPGChannelID      string `json:"epg_channel_id"`
	Added             string `json:"added"`
	IsAdult           string `json:"is_adult"`
	CategoryID        string `json:"category_id"`
	CustomSID         string `json:"custom_sid"`
	TVArchive         int    `json:"tv_archive"`
	DirectSource      string `json:"direct_source"` // always empty, sources are never exposed
	TVArchiveDuration int    `json:"tv_archive_duration"`
}

// EPGListing is one program entry for get_short_epg / get_simple_data_table.
type EPGListing struct {
	ID             string `json:"id"`
	EPGID          string `json:"epg_id"`
	Title          string `json:"title"`
	Lang           string `json:"lang"`
	Start          string `json:"start"`
	End            string `json:"end"`
	Description    string `json:"description"`
	ChannelID      string `json:"channel_id"`
	StartTimestamp int64  `json:"start_timestamp"`
	StopTimestamp  int64  `json:"stop_timestamp"`
	NowPlaying     int    `json:"now_playing"`
	HasArchive     int    `json:"has_archive"`
}

// EPGResponse wraps listings the way player_api returns them.
type EPGResponse struct {
	EPGListings []EPGListing `json:"epg_listings"`
}

// VODStream represents one VOD entry. The catalog does not model VOD yet;
// the projector still emits this schema so client parsers do not fail.
type VODStream struct {
	Num                int    `json:"num"`
	Name               string `json:"name"`
	StreamType         string `json:"stream_type"`
	StreamID           int64  `json:"stream_id"`
	StreamIcon         string `json:"stream_icon"`
	Added              string `json:"added"`
	CategoryID         string `json:"category_id"`
	ContainerExtension string `json:"container_extension"`
	DirectSource       string `json:"direct_source"`
}

// SeriesItem represents one series entry, same sparse-catalog caveat as VOD.
type SeriesItem struct {
	Num        int    `json:"num"`
	Name       string `json:"name"`
	SeriesID   int64  `json:"series_id"`
	Cover      string `json:"cover"`
	Plot       string `json:"plot"`
	CategoryID string `json:"category_id"`
	Genre      string `json:"genre"`
}

// SeriesInfo is the get_series_info envelope.
type SeriesInfo struct {
	Seasons  []any          `json:"seasons"`
	Info     map[string]any `json:"info"`
	Episodes map[string]any `json:"episodes"`
}

// VODInfo is the get_vod_info envelope.
type VODInfo struct {
	Info      map[string]any `json:"info"`
	MovieData map[string]any `json:"movie_data"`
}

// Bouquet is one get_bouquets entry. Bouquets are not modelled; only the
// empty list is ever emitted.
type Bouquet struct {
	BouquetID       int     `json:"bouquet_id"`
	BouquetName     string  `json:"bouquet_name"`
	BouquetChannels []int64 `json:"bouquet_channels"`
	BouquetSeries   []int64 `json:"bouquet_series"`
}
