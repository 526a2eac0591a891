package parser

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"
)

const ytNamespace = "http://www.youtube.com/xml/schemas/2015"

// ChannelFeed is the public Atom feed of a YouTube channel
// (https://www.youtube.com/feeds/videos.xml?channel_id=...).
type ChannelFeed struct {
	XMLName   xml.Name    `xml:"http://www.w3.org/2005/Atom feed"`
	ChannelID string      `xml:"http://www.youtube.com/xml/schemas/2015 channelId"`
	Title     string      `xml:"title"`
	Author    AtomAuthor  `xml:"author"`
	Entries   []AtomEntry `xml:"entry"`
}

// AtomEntry represents a video entry in the Atom feed.
type AtomEntry struct {
	VideoID   string     `xml:"http://www.youtube.com/xml/schemas/2015 videoId"`
	ChannelID string     `xml:"http://www.youtube.com/xml/schemas/2015 channelId"`
	Title     string     `xml:"title"`
	Link      AtomLink   `xml:"link"`
	Author    AtomAuthor `xml:"author"`
	Published string     `xml:"published"`
	Updated   string     `xml:"updated"`
}

// AtomLink represents a link element in the Atom feed.
type AtomLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
}

// AtomAuthor is the author element of a feed or entry.
type AtomAuthor struct {
	Name string `xml:"name"`
	URI  string `xml:"uri"`
}

// VideoData contains the parsed video information from an Atom entry.
// PublishedAt is zero when the entry carried no parseable timestamp.
type VideoData struct {
	VideoID      string
	ChannelID    string
	Title        string
	ChannelTitle string
	VideoURL     string
	PublishedAt  time.Time
	UpdatedAt    time.Time
}

// ParseChannelFeed parses a channel's Atom feed into its entries, in feed
// order (newest first). Entries are returned even when fields are missing;
// callers decide which entries are usable.
func ParseChannelFeed(rawXML []byte) ([]*VideoData, error) {
	var feed ChannelFeed
	if err := xml.Unmarshal(rawXML, &feed); err != nil {
		return nil, fmt.Errorf("unmarshal atom feed: %w", err)
	}

	channelTitle := strings.TrimSpace(feed.Author.Name)
	if channelTitle == "" {
		channelTitle = strings.TrimSpace(feed.Title)
	}

	videos := make([]*VideoData, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		video := &VideoData{
			VideoID:      strings.TrimSpace(entry.VideoID),
			ChannelID:    strings.TrimSpace(entry.ChannelID),
			Title:        strings.TrimSpace(entry.Title),
			ChannelTitle: strings.TrimSpace(entry.Author.Name),
			VideoURL:     entry.Link.Href,
			PublishedAt:  parseAtomTime(entry.Published),
			UpdatedAt:    parseAtomTime(entry.Updated),
		}
		if video.ChannelID == "" {
			video.ChannelID = feed.ChannelID
		}
		if video.ChannelTitle == "" {
			video.ChannelTitle = channelTitle
		}
		if video.VideoURL == "" && video.VideoID != "" {
			video.VideoURL = fmt.Sprintf("https://www.youtube.com/watch?v=%s", video.VideoID)
		}
		videos = append(videos, video)
	}

	return videos, nil
}

func parseAtomTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t
}
