// Package workspace tracks the parsed documents of a state file tree and
// resolves include references between them. The core pipeline owns nothing
// across parses; the latest-committed-tree policy lives here.
package workspace

import (
	"context"
	"path"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/saltls/pkg/document"
	"gitlab.com/tozd/go/errors"
)

// Workspace holds the latest successfully parsed document per URI. A parse
// superseded by a newer edit simply never commits; readers keep seeing the
// previous tree until a replacement lands.
type Workspace struct {
	fs afero.Fs
	id string

	mu   sync.RWMutex
	docs map[string]*document.Document
}

func New(fsys afero.Fs) *Workspace {
	return &Workspace{
		fs:   fsys,
		id:   xid.New().String(),
		docs: make(map[string]*document.Document),
	}
}

// normalizeURI strips the file scheme so documents are keyed by plain path.
func normalizeURI(uri string) string {
	uri = strings.TrimPrefix(uri, "file://")
	uri = strings.TrimPrefix(uri, "file:")
	return uri
}

// Open parses text and commits the result under uri.
func (w *Workspace) Open(ctx context.Context, uri, text string) (*document.Document, error) {
	doc, err := document.Parse(ctx, text)
	if err != nil {
		return nil, errors.Errorf("parsing %s: %w", uri, err)
	}

	w.mu.Lock()
	w.docs[normalizeURI(uri)] = doc
	w.mu.Unlock()

	zerolog.Ctx(ctx).Debug().
		Str("workspace", w.id).
		Str("uri", uri).
		Int("defects", len(doc.Defects)).
		Msg("committed document")

	return doc, nil
}

// Update is Open under a different name: a full reparse replaces the
// committed tree on success and leaves it untouched on cancellation.
func (w *Workspace) Update(ctx context.Context, uri, text string) (*document.Document, error) {
	return w.Open(ctx, uri, text)
}

// Document returns the latest committed document for uri.
func (w *Workspace) Document(uri string) (*document.Document, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	doc, ok := w.docs[normalizeURI(uri)]
	return doc, ok
}

// Close drops the committed document for uri.
func (w *Workspace) Close(uri string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.docs, normalizeURI(uri))
}

// Refresh parses every state file under root, committing each success and
// collecting the failures.
func (w *Workspace) Refresh(ctx context.Context, root string) error {
	pattern := strings.TrimPrefix(path.Join(root, "**", "*.sls"), "/")
	matches, err := doublestar.Glob(afero.NewIOFS(w.fs), pattern)
	if err != nil {
		return errors.Errorf("globbing %s: %w", root, err)
	}

	var result *multierror.Error
	for _, match := range matches {
		text, err := afero.ReadFile(w.fs, match)
		if err != nil {
			result = multierror.Append(result, errors.Errorf("reading %s: %w", match, err))
			continue
		}
		if _, err := w.Open(ctx, match, string(text)); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
