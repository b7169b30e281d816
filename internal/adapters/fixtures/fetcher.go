package fixtures

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"sentinel/internal/domain/profile"
	"sentinel/pkg/errors"
	"sentinel/pkg/logger"
)

// Fetcher serves profile records from JSON files laid out as
// <dir>/<platform>/<username>.json
type Fetcher struct {
	dir string
	log *logger.Logger
}

// NewFetcher creates a fetcher rooted at dir
func NewFetcher(dir string, log *logger.Logger) (*Fetcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "fixtures dir %s: %v", dir, err)
	}
	if !info.IsDir() {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "fixtures dir %s is not a directory", dir)
	}
	if log == nil {
		log = logger.Get()
	}
	return &Fetcher{dir: dir, log: log.With("component", "fixtures_fetcher")}, nil
}

// Fetch loads one record. Counts missing from the file stay Unknown.
func (f *Fetcher) Fetch(ctx context.Context, identifier string, platform profile.Platform) (*profile.RawProfileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrTransient, err.Error())
	}
	if identifier == "" || strings.ContainsAny(identifier, `/\`) || identifier != filepath.Base(identifier) {
		return nil, errors.Wrapf(errors.ErrMalformedInput, "identifier %q", identifier)
	}

	path := filepath.Join(f.dir, platform.String(), strings.ToLower(identifier)+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrNotFound, "%s/%s", platform, identifier)
		}
		return nil, errors.Wrapf(errors.ErrTransient, "read %s: %v", path, err)
	}

	rec := profile.NewRecord(platform, identifier)
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrapf(errors.ErrMalformedInput, "decode %s: %v", path, err)
	}

	f.log.Debugw("Loaded fixture", "platform", platform, "username", rec.Username, "posts", len(rec.Posts))
	return &rec, nil
}
