// Package scraper turns the archive's full-work page into a models.Work
package scraper

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"time"

	"ao3rss/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

// ParseError means the page does not have the shape the extractor expects,
// usually because the archive changed its markup
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "parse work page: " + e.Reason
}

// Extract parses a full-work page. Only missing structural anchors fail the
// extraction; a malformed chapter still yields a best-effort Chapter.
func Extract(raw []byte, workID string) (*models.Work, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("invalid html: %v", err)}
	}

	titleSel, outcome := workTitle.locate(doc.Selection)
	if outcome == AbsentFatal {
		return nil, workTitle.missing()
	}
	title := cleanText(titleSel.First().Text())
	if title == "" {
		return nil, &ParseError{Reason: "work title is empty"}
	}

	chapters, err := extractChapters(doc.Selection, workID)
	if err != nil {
		return nil, err
	}

	work := &models.Work{
		ID:        workID,
		Title:     title,
		Author:    extractAuthor(doc.Selection),
		Summary:   extractSummary(doc.Selection),
		Published: extractDate(doc.Selection, workPublished, workID),
		Updated:   extractDate(doc.Selection, workUpdated, workID),
		Chapters:  chapters,
	}

	log.WithFields(log.Fields{
		"work":     workID,
		"title":    work.Title,
		"chapters": len(work.Chapters),
	}).Debug("Extracted work")

	return work, nil
}

func extractChapters(doc *goquery.Selection, workID string) ([]models.Chapter, error) {
	list, outcome := chapterList.locate(doc)
	if outcome == AbsentFatal {
		return nil, chapterList.missing()
	}
	list = list.First()

	containers, outcome := chapterContainers.locateChild(list)
	if outcome == AbsentFatal {
		// One-shots have no chapter wrappers, the text sits directly in #chapters
		if _, body := chapterBody.locateChild(list); body != Found {
			return nil, chapterContainers.missing()
		}
		containers = list
	}

	chapters := make([]models.Chapter, 0, containers.Length())
	containers.Each(func(i int, sel *goquery.Selection) {
		chapters = append(chapters, extractChapter(sel, i+1, workID))
	})
	return chapters, nil
}

func extractChapter(sel *goquery.Selection, ordinal int, workID string) models.Chapter {
	chapter := models.Chapter{Ordinal: ordinal}

	if title, outcome := chapterTitle.locate(sel); outcome == Found {
		chapter.Title = cleanText(title.First().Text())
	}

	if summary, outcome := chapterSummary.locate(sel); outcome == Found {
		chapter.Summary = fragment(summary.First())
	}

	body, outcome := chapterBody.locateChild(sel)
	if outcome == Found {
		body = body.First().Clone()
		if heading, outcome := chapterLabel.locate(body); outcome == Found {
			heading.Remove()
		}
		chapter.Body = fragment(body)
	} else {
		log.WithFields(log.Fields{
			"work":    workID,
			"chapter": ordinal,
		}).Warn("Chapter has no body node, using its text")
		chapter.Body = escapedText(sel)
	}

	return chapter
}

func extractAuthor(doc *goquery.Selection) string {
	byline, outcome := workByline.locate(doc)
	if outcome != Found {
		return ""
	}
	byline = byline.First()

	// Anonymous and orphaned works have a byline without author links
	authors, outcome := workAuthors.locate(byline)
	if outcome != Found {
		return cleanText(byline.Text())
	}

	names := authors.Map(func(_ int, a *goquery.Selection) string {
		return cleanText(a.Text())
	})
	return strings.Join(lo.Compact(names), ", ")
}

func extractSummary(doc *goquery.Selection) string {
	summary, outcome := workSummary.locate(doc)
	if outcome != Found {
		return ""
	}
	return cleanText(summary.First().Text())
}

func extractDate(doc *goquery.Selection, a anchor, workID string) time.Time {
	sel, outcome := a.locate(doc)
	if outcome != Found {
		return time.Time{}
	}

	raw := cleanText(sel.First().Text())
	date, err := time.Parse(dateLayout, raw)
	if err != nil {
		log.WithFields(log.Fields{
			"work":  workID,
			"field": a.name,
			"value": raw,
		}).Warn("Could not parse date")
		return time.Time{}
	}
	return date
}

// fragment renders the inner HTML of sel, falling back to its escaped text
func fragment(sel *goquery.Selection) string {
	h, err := sel.Html()
	if err != nil {
		return escapedText(sel)
	}
	return strings.TrimSpace(h)
}

func escapedText(sel *goquery.Selection) string {
	return html.EscapeString(cleanText(sel.Text()))
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
