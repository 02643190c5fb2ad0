// Package xmltv renders the catalog's EPG as an XMLTV document covering a
// trailing 24-hour window through a forward 7-day window.
package xmltv

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"xc-gate/work/codec"
	"xc-gate/work/logger"
	"xc-gate/work/store"

	"github.com/maypok86/otter/v2"
)

// Catalog is the read surface the generator needs.
type Catalog interface {
	LoadActiveChannels() ([]*store.ChannelRow, error)
	ProgramsInWindow(from, to time.Time) ([]*store.ProgramRow, error)
}

// Generator builds and caches the XMLTV export. The rendered document is
// cached for the configured TTL (the HTTP surface advertises the same
// max-age), so catalog churn shows up within the hour.
type Generator struct {
	catalog Catalog
	past    time.Duration
	ahead   time.Duration
	cache   *otter.Cache[string, string]
}

const cacheKey = "xmltv:document"

// New creates a Generator with a TTL-bounded document cache.
func New(catalog Catalog, past, ahead, ttl time.Duration) *Generator {
	cache := otter.Must(&otter.Options[string, string]{
		MaximumSize:      4,
		ExpiryCalculator: otter.ExpiryWriting[string, string](ttl),
	})
	return &Generator{
		catalog: catalog,
		past:    past,
		ahead:   ahead,
		cache:   cache,
	}
}

// Render returns the XMLTV document for now, serving from cache when the
// cached copy is still inside its TTL.
func (g *Generator) Render(now time.Time) (string, error) {
	if doc, ok := g.cache.GetIfPresent(cacheKey); ok {
		return doc, nil
	}

	doc, err := g.Build(now)
	if err != nil {
		return "", err
	}

	g.cache.Set(cacheKey, doc)
	return doc, nil
}

// Invalidate drops the cached document. Test hook.
func (g *Generator) Invalidate() {
	g.cache.Invalidate(cacheKey)
}

const xmltvTimeLayout = "20060102150405 +0000"

// Build renders the document without touching the cache. It emits one
// <channel> element per distinct channel referenced by in-window programs,
// keyed by the channel's EPG reference when present and its encoded stream
// id otherwise, followed by one <programme> element per program.
func (g *Generator) Build(now time.Time) (string, error) {
	from := now.Add(-g.past)
	to := now.Add(g.ahead)

	channels, err := g.catalog.LoadActiveChannels()
	if err != nil {
		return "", fmt.Errorf("xmltv channel snapshot: %w", err)
	}
	programs, err := g.catalog.ProgramsInWindow(from, to)
	if err != nil {
		return "", fmt.Errorf("xmltv program window: %w", err)
	}

	byID := make(map[string]*store.ChannelRow, len(channels))
	for _, ch := range channels {
		byID[ch.ID] = ch
	}

	// Channels first, each exactly once, in first-reference order.
	var referenced []*store.ChannelRow
	seen := make(map[string]bool)
	for _, p := range programs {
		ch, ok := byID[p.ChannelID]
		if !ok || seen[ch.ID] {
			continue
		}
		seen[ch.ID] = true
		referenced = append(referenced, ch)
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<tv generator-info-name="xc-gate">` + "\n")

	for _, ch := range referenced {
		key, ok := channelKey(ch)
		if !ok {
			continue
		}
		b.WriteString(fmt.Sprintf("  <channel id=\"%s\">\n", escape(key)))
		b.WriteString(fmt.Sprintf("    <display-name>%s</display-name>\n", escape(ch.Name)))
		if ch.LogoURL != "" {
			b.WriteString(fmt.Sprintf("    <icon src=\"%s\"/>\n", escape(ch.LogoURL)))
		}
		b.WriteString("  </channel>\n")
	}

	emitted := 0
	for _, p := range programs {
		ch, ok := byID[p.ChannelID]
		if !ok {
			continue
		}
		key, ok := channelKey(ch)
		if !ok {
			continue
		}
		b.WriteString(fmt.Sprintf("  <programme start=\"%s\" stop=\"%s\" channel=\"%s\">\n",
			p.StartsAt.UTC().Format(xmltvTimeLayout),
			p.EndsAt.UTC().Format(xmltvTimeLayout),
			escape(key)))
		b.WriteString(fmt.Sprintf("    <title>%s</title>\n", escape(p.Title)))
		if p.Description != "" {
			b.WriteString(fmt.Sprintf("    <desc>%s</desc>\n", escape(p.Description)))
		}
		if p.Category != "" {
			b.WriteString(fmt.Sprintf("    <category>%s</category>\n", escape(p.Category)))
		}
		if p.Rating != "" {
			b.WriteString(fmt.Sprintf("    <rating><value>%s</value></rating>\n", escape(p.Rating)))
		}
		b.WriteString("  </programme>\n")
		emitted++
	}

	b.WriteString("</tv>\n")

	logger.Debug("{xmltv - Build} rendered %d channels, %d programmes (%d bytes)",
		len(referenced), emitted, b.Len())
	return b.String(), nil
}

// channelKey picks the XMLTV channel id: the EPG reference when present,
// otherwise the encoded numeric stream id.
func channelKey(ch *store.ChannelRow) (string, bool) {
	if ch.EPGChannelID != "" {
		return ch.EPGChannelID, true
	}
	id, err := codec.Encode(ch.ID)
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("%d", id), true
}

// escape XML-escapes free text (< > & ' ").
func escape(s string) string {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return ""
	}
	return b.String()
}
