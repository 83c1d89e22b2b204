package feed

import (
	"bytes"
	"cmp"
	"fmt"
	"log/slog"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
)

const (
	untitledEpisodeTitle = "Untitled Episode"
	unknownPodcastTitle  = "Unknown Podcast"
)

type Parser struct {
	gofeedParser *gofeed.Parser
	now          func() time.Time
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
		now:          time.Now,
	}
}

// Run parses raw feed data into the normalized representation. A document
// with no recognizable feed structure is an error; a feed that parses but
// lacks a title is a degraded success and is logged as such.
func (p *Parser) Run(data []byte) (*Feed, error) {
	src, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	feed := &Feed{
		Title:       src.Title,
		Description: src.Description,
		ArtworkURL:  p.extractArtwork(src),
	}

	if feed.Title == "" {
		slog.Warn("Feed has no title, using placeholder")
		feed.Title = unknownPodcastTitle
	}

	episodes := make([]Episode, 0, len(src.Items))
	for _, item := range src.Items {
		episodes = append(episodes, p.normalizeItem(item))
	}
	feed.Episodes = episodes

	return feed, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item) Episode {
	episode := Episode{
		Title:       cmp.Or(item.Title, untitledEpisodeTitle),
		Description: item.Description,
		PubDate:     p.resolvePubDate(item),
		EpisodeURL:  item.Link,
	}

	// Fall back to the first enclosure when the item has no canonical link
	if episode.EpisodeURL == "" && len(item.Enclosures) > 0 && item.Enclosures[0] != nil {
		episode.EpisodeURL = item.Enclosures[0].URL
	}

	if item.ITunesExt != nil && item.ITunesExt.Duration != "" {
		duration := item.ITunesExt.Duration
		episode.Duration = &duration
	}

	return episode
}

// resolvePubDate applies the publication date policy: published, then
// updated, then the ingestion-time clock. A missing date never rejects
// the item.
func (p *Parser) resolvePubDate(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.UTC()
	}
	if item.Published != "" {
		if t, err := dateparse.ParseAny(item.Published); err == nil {
			return t.UTC()
		}
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed.UTC()
	}
	if item.Updated != "" {
		if t, err := dateparse.ParseAny(item.Updated); err == nil {
			return t.UTC()
		}
	}
	return p.now().UTC()
}

// extractArtwork looks for feed-level artwork, preferring the channel image
// over the itunes one. Best effort, an absent image is not an error.
func (p *Parser) extractArtwork(src *gofeed.Feed) string {
	if src.Image != nil && src.Image.URL != "" {
		return src.Image.URL
	}
	if src.ITunesExt != nil && src.ITunesExt.Image != "" {
		return src.ITunesExt.Image
	}
	return ""
}
