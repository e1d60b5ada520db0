package scraper

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

// Outcome is the result of looking up an anchor in the page
type Outcome int

const (
	Found Outcome = iota
	AbsentOptional
	AbsentFatal
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case AbsentOptional:
		return "absent (optional)"
	case AbsentFatal:
		return "absent (required)"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// anchor is one structural assumption about the archive's markup. Every
// selector the extractor relies on is declared here.
type anchor struct {
	name     string
	selector string
	required bool
}

var (
	workTitle     = anchor{name: "work title", selector: "h2.title", required: true}
	workByline    = anchor{name: "byline", selector: "h3.byline"}
	workAuthors   = anchor{name: "authors", selector: `a[rel="author"]`}
	workSummary   = anchor{name: "work summary", selector: "#workskin > .preface .summary .userstuff"}
	workPublished = anchor{name: "published date", selector: "dd.published"}
	workUpdated   = anchor{name: "updated date", selector: "dd.status"}
	chapterList   = anchor{name: "chapter list", selector: "#chapters", required: true}

	// Direct children of #chapters
	chapterContainers = anchor{name: "chapter containers", selector: ".chapter", required: true}

	// Relative to a chapter container
	chapterTitle   = anchor{name: "chapter title", selector: ".title"}
	chapterSummary = anchor{name: "chapter summary", selector: ".summary .userstuff"}
	chapterBody    = anchor{name: "chapter body", selector: ".userstuff"}
	chapterLabel   = anchor{name: "chapter text heading", selector: "h3.landmark"}
)

// locate finds the anchor below sel. The returned selection is empty unless
// the outcome is Found.
func (a anchor) locate(sel *goquery.Selection) (*goquery.Selection, Outcome) {
	found := sel.Find(a.selector)
	return found, a.outcome(found)
}

// locateChild is like locate but only matches direct children of sel
func (a anchor) locateChild(sel *goquery.Selection) (*goquery.Selection, Outcome) {
	found := sel.ChildrenFiltered(a.selector)
	return found, a.outcome(found)
}

func (a anchor) outcome(found *goquery.Selection) Outcome {
	if found.Length() > 0 {
		return Found
	}
	if a.required {
		return AbsentFatal
	}
	return AbsentOptional
}

func (a anchor) missing() *ParseError {
	return &ParseError{Reason: fmt.Sprintf("missing %s (%s)", a.name, a.selector)}
}
