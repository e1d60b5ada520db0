package models

import "time"

// Chapter is one chapter of a work as scraped from the full-work view
type Chapter struct {
	Ordinal int
	// Empty when the page has no title node for the chapter
	Title   string
	Summary string // HTML fragment
	Body    string // HTML fragment
}

// Work is the scraped unit. Chapters are in document order.
type Work struct {
	ID        string
	Title     string
	Author    string
	Summary   string
	Published time.Time
	Updated   time.Time
	Chapters  []Chapter
}

// Feed is the channel built from a Work
type Feed struct {
	Title       string
	Link        string
	Description string
	Author      string
	Generator   string
	Published   time.Time
	Updated     time.Time
	Items       []Item
}

// Item maps 1:1 to a Chapter. There is deliberately no date field: the
// full-work view does not expose per-chapter dates.
type Item struct {
	Title       string
	Link        string
	Description string
	Content     string
	GUID        string
}
