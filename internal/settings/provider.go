package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"

	"shellhost/pkg/logging"
)

// Provider is the external settings source. The core treats it as opaque:
// it only ever pulls the full document.
type Provider interface {
	FetchAll(ctx context.Context) (Document, error)
}

// FileProvider reads the settings document from a YAML file. Reads are
// retried with exponential backoff so a reload racing a writer's partial
// write settles instead of failing the reload outright.
type FileProvider struct {
	path       string
	maxElapsed time.Duration
}

// NewFileProvider returns a provider over the given settings file.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{
		path:       path,
		maxElapsed: 5 * time.Second,
	}
}

// FetchAll implements Provider.
func (p *FileProvider) FetchAll(ctx context.Context) (Document, error) {
	var doc Document

	operation := func() error {
		data, err := os.ReadFile(p.path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				// A missing file will not appear by itself; do not retry.
				return backoff.Permanent(err)
			}
			return err
		}
		doc, err = ParseDocument(data)
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = p.maxElapsed

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return Document{}, fmt.Errorf("fetching settings from %s: %w", p.path, err)
	}

	logging.Debug("Settings", "Fetched %d shells from %s", len(doc.Shells), p.path)
	return doc, nil
}

// StaticProvider serves a fixed document. Useful for embedding and tests.
type StaticProvider struct {
	Doc Document
}

// FetchAll implements Provider.
func (p *StaticProvider) FetchAll(ctx context.Context) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	return p.Doc, nil
}
