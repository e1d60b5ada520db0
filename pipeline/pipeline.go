// Package pipeline runs fetch, extract, assemble and render for one work
package pipeline

import (
	"context"

	"ao3rss/feeds"
	"ao3rss/models"
	"ao3rss/scraper"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("ao3rss/pipeline")

// Fetcher retrieves the raw full-work page for a work id
type Fetcher interface {
	Fetch(ctx context.Context, workID string) ([]byte, error)
}

// Pipeline turns a work id into a rendered RSS document. Each stage runs
// exactly once; any error ends the run.
type Pipeline struct {
	fetcher   Fetcher
	assembler *feeds.Assembler
}

func New(fetcher Fetcher, assembler *feeds.Assembler) *Pipeline {
	return &Pipeline{
		fetcher:   fetcher,
		assembler: assembler,
	}
}

// Run returns the rendered feed for workID. It stops between stages once
// ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, workID string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "pipeline.Run", trace.WithAttributes(
		attribute.String("work.id", workID),
	))
	defer span.End()

	payload, err := p.run(ctx, workID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return payload, nil
}

func (p *Pipeline) run(ctx context.Context, workID string) ([]byte, error) {
	raw, err := p.fetch(ctx, workID)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	work, err := extract(ctx, raw, workID)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	feed := p.assemble(ctx, work)

	payload, err := render(ctx, feed)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"work":     workID,
		"chapters": len(feed.Items),
		"bytes":    len(payload),
	}).Info("Built feed")

	return payload, nil
}

func (p *Pipeline) fetch(ctx context.Context, workID string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "fetch")
	defer span.End()
	return p.fetcher.Fetch(ctx, workID)
}

func extract(ctx context.Context, raw []byte, workID string) (*models.Work, error) {
	_, span := tracer.Start(ctx, "extract")
	defer span.End()

	work, err := scraper.Extract(raw, workID)
	if err != nil {
		log.WithFields(log.Fields{
			"work":  workID,
			"error": err,
		}).Error("Work page does not match the expected layout")
		return nil, err
	}
	span.SetAttributes(attribute.Int("work.chapters", len(work.Chapters)))
	return work, nil
}

func (p *Pipeline) assemble(ctx context.Context, work *models.Work) *models.Feed {
	_, span := tracer.Start(ctx, "assemble")
	defer span.End()
	return p.assembler.Assemble(work)
}

func render(ctx context.Context, feed *models.Feed) ([]byte, error) {
	_, span := tracer.Start(ctx, "render")
	defer span.End()
	return feeds.Render(feed)
}
