// Package gateway implements the persistence collaborator: annotation JSON
// files on local disk, with an optional remote endpoint that previously
// saved files can be pushed to.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/docpane/layoutstudio/annot"
)

var (
	// ErrBadFilename reports an annotation filename that is not a plain
	// ".json" basename.
	ErrBadFilename = errors.New("gateway: annotation filename must be a plain .json name")
	// ErrNotFound reports a missing annotation file.
	ErrNotFound = errors.New("gateway: file not found")
	// ErrNoRemote reports a sync attempt without a configured remote.
	ErrNoRemote = errors.New("gateway: no remote sync endpoint configured")
)

// Local serves annotation JSON from dataDir and lists PDFs from pdfDir.
type Local struct {
	dataDir string
	pdfDir  string
	remote  string
	client  *http.Client
	log     zerolog.Logger
}

// Option configures a Local gateway.
type Option func(*Local)

// WithRemote sets the base URL files are pushed to on sync.
func WithRemote(url string) Option {
	return func(g *Local) { g.remote = strings.TrimRight(url, "/") }
}

// WithHTTPClient overrides the client used for sync uploads.
func WithHTTPClient(c *http.Client) Option { return func(g *Local) { g.client = c } }

// WithLogger sets the structured logger.
func WithLogger(l zerolog.Logger) Option { return func(g *Local) { g.log = l } }

// NewLocal creates a gateway over the two directories.
func NewLocal(dataDir, pdfDir string, opts ...Option) *Local {
	g := &Local{
		dataDir: dataDir,
		pdfDir:  pdfDir,
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// ListFiles enumerates the available PDFs and annotation files. The two
// directories are read concurrently; names come back sorted.
func (g *Local) ListFiles(ctx context.Context) (pdfs, jsons []string, err error) {
	eg, _ := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		pdfs, err = listDir(g.pdfDir, ".pdf")
		return err
	})
	eg.Go(func() error {
		var err error
		jsons, err = listDir(g.dataDir, ".json")
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, nil, fmt.Errorf("gateway: list files: %w", err)
	}
	return pdfs, jsons, nil
}

func listDir(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ext) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// LoadAnnotations returns the raw contents of the named annotation file.
func (g *Local) LoadAnnotations(ctx context.Context, filename string) ([]byte, error) {
	path, err := g.annotationPath(filename)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, filename)
		}
		return nil, fmt.Errorf("gateway: read %s: %w", filename, err)
	}
	return data, nil
}

// SaveAnnotations writes the items to the named file. The write goes to a
// temp file first and renames into place, so a crash mid-write never leaves
// a truncated annotation file behind.
func (g *Local) SaveAnnotations(ctx context.Context, filename string, items []annot.Annotation) error {
	path, err := g.annotationPath(filename)
	if err != nil {
		return err
	}
	data, err := annot.EncodeList(items)
	if err != nil {
		return fmt.Errorf("gateway: encode %s: %w", filename, err)
	}
	if err := os.MkdirAll(g.dataDir, 0o755); err != nil {
		return fmt.Errorf("gateway: mkdir %s: %w", g.dataDir, err)
	}

	tmp, err := os.CreateTemp(g.dataDir, filename+".tmp-*")
	if err != nil {
		return fmt.Errorf("gateway: temp file for %s: %w", filename, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("gateway: write %s: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("gateway: close %s: %w", filename, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("gateway: rename %s: %w", filename, err)
	}
	g.log.Debug().Str("file", filename).Int("count", len(items)).Msg("annotation file written")
	return nil
}

// SyncFile uploads the previously saved local file to the remote endpoint.
// The upload is a plain PUT of the file body, idempotent on retry.
func (g *Local) SyncFile(ctx context.Context, filename string) error {
	if g.remote == "" {
		return ErrNoRemote
	}
	data, err := g.LoadAnnotations(ctx, filename)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, g.remote+"/"+filename, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("gateway: sync %s: %w", filename, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway: sync %s: %w", filename, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("gateway: sync %s: remote returned %s", filename, resp.Status)
	}
	g.log.Info().Str("file", filename).Str("remote", g.remote).Msg("file synced")
	return nil
}

// annotationPath validates the filename and resolves it inside dataDir.
func (g *Local) annotationPath(filename string) (string, error) {
	if filename == "" ||
		filename != filepath.Base(filename) ||
		!strings.HasSuffix(filename, ".json") {
		return "", fmt.Errorf("%w: %q", ErrBadFilename, filename)
	}
	return filepath.Join(g.dataDir, filename), nil
}
