// Package loader fetches the static JSON documents that drive the
// dashboard. A fetch is a single attempt: no retry, no caching, and no
// timeout beyond the caller's context.
package loader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/kangxh75/NextPM/internal/spec"
)

// ErrLoad is matched by every *LoadError.
var ErrLoad = errors.New("load failed")

// LoadError reports a failed fetch: transport error, non-success status,
// unreadable file or malformed JSON. An absent array field is not an
// error.
type LoadError struct {
	Source string
	Status int
	Err    error
}

func (e *LoadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("load %s: HTTP status %d", e.Source, e.Status)
	}
	return fmt.Sprintf("load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool { return target == ErrLoad }

// Loader reads documents from http(s) URLs, file:// URLs or plain paths.
type Loader struct {
	client *http.Client
}

// New returns a loader. A nil client means http.DefaultClient.
func New(client *http.Client) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Loader{client: client}
}

// Index loads a search index document. A missing "index" field yields an
// empty record list.
func (l *Loader) Index(ctx context.Context, source string) (spec.Index, error) {
	var idx spec.Index
	if err := l.fetchJSON(ctx, source, &idx); err != nil {
		return spec.Index{}, err
	}
	if idx.Records == nil {
		idx.Records = []spec.Record{}
	}
	idx.Records = spec.NormalizeAll(idx.Records)
	return idx, nil
}

// Timeline loads an activity timeline document. A missing "events" field
// yields an empty event list.
func (l *Loader) Timeline(ctx context.Context, source string) (spec.Timeline, error) {
	var tl spec.Timeline
	if err := l.fetchJSON(ctx, source, &tl); err != nil {
		return spec.Timeline{}, err
	}
	if tl.Events == nil {
		tl.Events = []spec.Event{}
	}
	return tl, nil
}

func (l *Loader) fetchJSON(ctx context.Context, source string, target any) error {
	body, err := l.read(ctx, source)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := json.NewDecoder(body).Decode(target); err != nil {
		return &LoadError{Source: source, Err: fmt.Errorf("decode json: %w", err)}
	}
	return nil
}

func (l *Loader) read(ctx context.Context, source string) (io.ReadCloser, error) {
	if strings.TrimSpace(source) == "" {
		return nil, &LoadError{Source: source, Err: errors.New("empty source")}
	}

	parsed, err := url.Parse(source)
	if err == nil && (parsed.Scheme == "http" || parsed.Scheme == "https") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, &LoadError{Source: source, Err: err}
		}
		resp, err := l.client.Do(req)
		if err != nil {
			return nil, &LoadError{Source: source, Err: err}
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			resp.Body.Close()
			return nil, &LoadError{Source: source, Status: resp.StatusCode}
		}
		return resp.Body, nil
	}

	path := source
	if err == nil && parsed.Scheme == "file" {
		path = parsed.Path
	}
	if err := ctx.Err(); err != nil {
		return nil, &LoadError{Source: source, Err: err}
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Source: source, Err: err}
	}
	return file, nil
}
