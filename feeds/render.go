package feeds

import (
	"bytes"
	"encoding/xml"
	"strings"
	"time"
	"unicode/utf8"

	"ao3rss/models"

	gorilla "github.com/gorilla/feeds"
	"github.com/samber/lo"
)

// XMLDeclaration is the prolog gorilla/feeds writes in front of every document
var XMLDeclaration = []byte(strings.TrimSuffix(xml.Header, "\n"))

// RenderError means the feed could not be serialized
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return "render feed: " + e.Err.Error()
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Render serializes feed as an RSS 2.0 document. Items carry no pubDate.
func Render(feed *models.Feed) ([]byte, error) {
	rss := &gorilla.RssFeed{
		Title:         xmlSafe(feed.Title),
		Link:          feed.Link,
		Description:   xmlSafe(feed.Description),
		Generator:     feed.Generator,
		PubDate:       rfc822(feed.Published),
		LastBuildDate: rfc822(feed.Updated),
		Items: lo.Map(feed.Items, func(item models.Item, _ int) *gorilla.RssItem {
			return rssItem(item, feed.Author)
		}),
	}

	var buf bytes.Buffer
	if err := gorilla.WriteXML(rss, &buf); err != nil {
		return nil, &RenderError{Err: err}
	}
	return buf.Bytes(), nil
}

func rssItem(item models.Item, author string) *gorilla.RssItem {
	rss := &gorilla.RssItem{
		Title:       xmlSafe(item.Title),
		Link:        item.Link,
		Description: xmlSafe(item.Description),
		Author:      xmlSafe(author),
		Guid: &gorilla.RssGuid{
			Id:          item.GUID,
			IsPermaLink: "false",
		},
	}
	if item.Content != "" {
		rss.Content = &gorilla.RssContent{Content: xmlSafe(item.Content)}
	}
	return rss
}

func rfc822(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC1123Z)
}

// xmlSafe drops characters XML 1.0 cannot represent at all. encoding/xml
// escapes markup characters itself, but writes CDATA sections verbatim.
func xmlSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == utf8.RuneError:
			return -1
		case r == '\t' || r == '\n' || r == '\r':
			return r
		case r < 0x20:
			return -1
		case r >= 0xD800 && r <= 0xDFFF, r == 0xFFFE, r == 0xFFFF:
			return -1
		}
		return r
	}, s)
}
