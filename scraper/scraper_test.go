package scraper_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ao3rss/scraper"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return raw
}

func TestExtractWork(t *testing.T) {
	work, err := scraper.Extract(readFixture(t, "work_12345.html"), "12345")
	require.NoError(t, err)

	assert.Equal(t, "12345", work.ID)
	assert.Equal(t, "The Long Way Round", work.Title)
	assert.Equal(t, "wanderer, cartographer", work.Author)
	assert.Equal(t, "Two travellers & one map. Nobody agrees on the route.", work.Summary)
	assert.Equal(t, time.Date(2020, 3, 14, 0, 0, 0, 0, time.UTC), work.Published)
	assert.Equal(t, time.Date(2021, 1, 2, 0, 0, 0, 0, time.UTC), work.Updated)

	require.Len(t, work.Chapters, 3)

	first := work.Chapters[0]
	assert.Equal(t, 1, first.Ordinal)
	assert.Equal(t, "Chapter 1: Departure", first.Title)
	assert.Equal(t, "<p>They set off.</p>", first.Summary)
	assert.Equal(t, "<p>The road was <em>long</em>.</p>", first.Body)

	second := work.Chapters[1]
	assert.Equal(t, 2, second.Ordinal)
	assert.Empty(t, second.Title)
	assert.Empty(t, second.Summary)
	assert.Equal(t, "<p>Halfway there.</p>", second.Body)

	third := work.Chapters[2]
	assert.Equal(t, 3, third.Ordinal)
	assert.Equal(t, "Chapter 3: Arrival", third.Title)
	assert.Equal(t, "<p>They argued about whether 3 &lt; 4.</p>", third.Body)
	assert.NotContains(t, third.Body, "Chapter Text")
}

func TestExtractOneShot(t *testing.T) {
	work, err := scraper.Extract(readFixture(t, "oneshot_777.html"), "777")
	require.NoError(t, err)

	assert.Equal(t, "Short and Sweet", work.Title)
	assert.Equal(t, "Anonymous", work.Author)
	assert.Empty(t, work.Summary)
	assert.True(t, work.Published.IsZero())

	require.Len(t, work.Chapters, 1)
	assert.Equal(t, 1, work.Chapters[0].Ordinal)
	assert.Empty(t, work.Chapters[0].Title)
	assert.Contains(t, work.Chapters[0].Body, "Just the one chapter.")
}

func TestExtractStructuralFailures(t *testing.T) {
	tests := []struct {
		name string
		page string
	}{
		{
			name: "no title",
			page: `<div id="chapters"><div class="chapter"><div class="userstuff">x</div></div></div>`,
		},
		{
			name: "empty title",
			page: `<h2 class="title">  </h2><div id="chapters"><div class="chapter"><div class="userstuff">x</div></div></div>`,
		},
		{
			name: "no chapter list",
			page: `<h2 class="title">Work</h2><div class="userstuff">x</div>`,
		},
		{
			name: "no chapter containers",
			page: `<h2 class="title">Work</h2><div id="chapters"></div>`,
		},
		{
			name: "not html at all",
			page: ``,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			work, err := scraper.Extract([]byte(tt.page), "1")
			assert.Nil(t, work)

			var parseErr *scraper.ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.NotEmpty(t, parseErr.Reason)
		})
	}
}

func TestExtractMalformedChapterIsKept(t *testing.T) {
	page := `
<h2 class="title">Work</h2>
<div id="chapters">
  <div class="chapter"><h3 class="title">One</h3><div class="userstuff"><p>first</p></div></div>
  <div class="chapter"><h3 class="title">Two</h3> <p>stray <b>text</b> &amp; more</p></div>
  <div class="chapter"><div class="userstuff"><p>third</p></div></div>
</div>`

	work, err := scraper.Extract([]byte(page), "1")
	require.NoError(t, err)
	require.Len(t, work.Chapters, 3)

	broken := work.Chapters[1]
	assert.Equal(t, "Two", broken.Title)
	assert.Equal(t, "Two stray text &amp; more", broken.Body)
	assert.Equal(t, "<p>third</p>", work.Chapters[2].Body)
}

func TestExtractIgnoresBadDates(t *testing.T) {
	page := `
<h2 class="title">Work</h2>
<dd class="published">sometime</dd>
<div id="chapters"><div class="chapter"><div class="userstuff">x</div></div></div>`

	work, err := scraper.Extract([]byte(page), "1")
	require.NoError(t, err)
	assert.True(t, work.Published.IsZero())
	assert.True(t, work.Updated.IsZero())
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "found", scraper.Found.String())
	assert.Equal(t, "absent (optional)", scraper.AbsentOptional.String())
	assert.Equal(t, "absent (required)", scraper.AbsentFatal.String())
}
