// Package feeds maps scraped works to RSS feeds and renders them
package feeds

import (
	"fmt"

	"ao3rss/archive"
	"ao3rss/models"

	"github.com/microcosm-cc/bluemonday"
	"github.com/samber/lo"
)

// Separates a chapter summary from the chapter body in item descriptions
const summarySeparator = "<hr/>"

// AssemblerConfig configures how works are turned into feeds
type AssemblerConfig struct {
	// Base URL of the archive, used for channel and item links
	BaseURL   string
	Generator string
	// Pass chapter markup through a UGC sanitizing policy
	Sanitize bool
}

// Assembler maps a Work to a Feed. It never fails for a work with chapters.
type Assembler struct {
	baseURL   string
	generator string
	policy    *bluemonday.Policy
}

func NewAssembler(cfg AssemblerConfig) *Assembler {
	a := &Assembler{
		baseURL:   cfg.BaseURL,
		generator: cfg.Generator,
	}
	if cfg.Sanitize {
		a.policy = bluemonday.UGCPolicy()
	}
	return a
}

func (a *Assembler) Assemble(work *models.Work) *models.Feed {
	link := archive.WorkURL(a.baseURL, work.ID)

	return &models.Feed{
		Title:       work.Title,
		Link:        link,
		Description: work.Summary,
		Author:      work.Author,
		Generator:   a.generator,
		Published:   work.Published,
		Updated:     work.Updated,
		Items: lo.Map(work.Chapters, func(chapter models.Chapter, _ int) models.Item {
			return a.item(work.ID, link, chapter)
		}),
	}
}

func (a *Assembler) item(workID, workLink string, chapter models.Chapter) models.Item {
	summary := a.sanitize(chapter.Summary)
	body := a.sanitize(chapter.Body)

	return models.Item{
		Title:       ChapterLabel(chapter),
		Link:        fmt.Sprintf("%s#chapter-%d", workLink, chapter.Ordinal),
		Description: describe(summary, body),
		Content:     body,
		GUID:        fmt.Sprintf("%s-%d", workID, chapter.Ordinal),
	}
}

func (a *Assembler) sanitize(fragment string) string {
	if a.policy == nil || fragment == "" {
		return fragment
	}
	return a.policy.Sanitize(fragment)
}

// ChapterLabel is the scraped chapter title, or "Chapter N" when there is none
func ChapterLabel(chapter models.Chapter) string {
	if chapter.Title != "" {
		return chapter.Title
	}
	return fmt.Sprintf("Chapter %d", chapter.Ordinal)
}

func describe(summary, body string) string {
	if summary == "" {
		return body
	}
	return summary + summarySeparator + body
}
