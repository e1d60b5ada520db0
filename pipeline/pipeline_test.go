package pipeline_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"ao3rss/archive"
	"ao3rss/feeds"
	"ao3rss/pipeline"
	"ao3rss/scraper"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	page  []byte
	err   error
	calls int
}

func (s *stubFetcher) Fetch(ctx context.Context, workID string) ([]byte, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.page, nil
}

func fixture(t *testing.T) []byte {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("..", "scraper", "testdata", "work_12345.html"))
	require.NoError(t, err)
	return raw
}

func newPipeline(fetcher pipeline.Fetcher) *pipeline.Pipeline {
	return pipeline.New(fetcher, feeds.NewAssembler(feeds.AssemblerConfig{
		BaseURL:   "https://archiveofourown.org",
		Generator: "ao3rss-test",
		Sanitize:  true,
	}))
}

func TestRun(t *testing.T) {
	payload, err := newPipeline(&stubFetcher{page: fixture(t)}).Run(context.Background(), "12345")
	require.NoError(t, err)

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(payload))
	require.NoError(t, err)

	assert.Equal(t, "The Long Way Round", feed.Title)
	assert.Equal(t, "https://archiveofourown.org/works/12345", feed.Link)

	require.Len(t, feed.Items, 3)
	assert.Equal(t, "Chapter 1: Departure", feed.Items[0].Title)
	assert.Equal(t, "Chapter 2", feed.Items[1].Title)
	assert.Equal(t, "Chapter 3: Arrival", feed.Items[2].Title)
	assert.Equal(t, "12345-1", feed.Items[0].GUID)
	assert.Equal(t, "12345-2", feed.Items[1].GUID)
	assert.Equal(t, "12345-3", feed.Items[2].GUID)
}

func TestRunIsIdempotent(t *testing.T) {
	p := newPipeline(&stubFetcher{page: fixture(t)})

	first, err := p.Run(context.Background(), "12345")
	require.NoError(t, err)
	second, err := p.Run(context.Background(), "12345")
	require.NoError(t, err)

	parser := gofeed.NewParser()
	a, err := parser.Parse(bytes.NewReader(first))
	require.NoError(t, err)
	b, err := parser.Parse(bytes.NewReader(second))
	require.NoError(t, err)

	if diff := cmp.Diff(a, b, cmpopts.IgnoreUnexported(gofeed.Feed{})); diff != "" {
		t.Errorf("feeds differ between runs (-first +second):\n%s", diff)
	}
}

func TestRunFetchErrorSkipsExtraction(t *testing.T) {
	fetcher := &stubFetcher{err: &archive.FetchError{Kind: archive.NotFound, WorkID: "12345", StatusCode: 404}}

	payload, err := newPipeline(fetcher).Run(context.Background(), "12345")
	assert.Nil(t, payload)

	var fetchErr *archive.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, archive.NotFound, fetchErr.Kind)

	var parseErr *scraper.ParseError
	assert.NotErrorAs(t, err, &parseErr)
	assert.Equal(t, 1, fetcher.calls)
}

func TestRunZeroChaptersIsParseError(t *testing.T) {
	page := []byte(`<h2 class="title">Empty</h2><div id="chapters"></div>`)

	payload, err := newPipeline(&stubFetcher{page: page}).Run(context.Background(), "1")
	assert.Nil(t, payload)

	var parseErr *scraper.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestRunStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &stubFetcher{page: fixture(t)}
	payload, err := newPipeline(fetcher).Run(ctx, "12345")

	assert.Nil(t, payload)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, fetcher.calls)
}
