package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/satishbabariya/kmigrator/internal/core/migration/domain"
	"github.com/satishbabariya/kmigrator/internal/core/views"
	"github.com/satishbabariya/kmigrator/internal/debug"
)

// Reconciler rebuilds the oracle's history from the migration archive.
type Reconciler struct {
	fs    afero.Fs
	dir   string
	store domain.HistoryStore
}

// Result is the state recovered from the archive.
type Result struct {
	// Recovered holds every definition name found in the archive.
	Recovered map[string]bool
	// Baseline is the views state of the highest-numbered migration.
	Baseline views.State
	// BaselineName is the migration the baseline came from, if any.
	BaselineName string
}

// NewReconciler creates a reconciler reading migration files from dir.
func NewReconciler(fs afero.Fs, dir string, store domain.HistoryStore) *Reconciler {
	return &Reconciler{fs: fs, dir: dir, store: store}
}

// Reconcile clears the store and restores it from the archive. Running it
// twice on an unchanged archive yields the same store and baseline.
func (r *Reconciler) Reconcile(ctx context.Context) (*Result, error) {
	log := debug.With("stage", "reconcile", "dir", r.dir)

	if err := r.store.Reset(ctx); err != nil {
		return nil, err
	}

	res := &Result{Recovered: map[string]bool{}, Baseline: views.EmptyState()}
	entries, err := afero.ReadDir(r.fs, r.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Debug("no migration archive")
			return res, nil
		}
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	latest := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := afero.ReadFile(r.fs, filepath.Join(r.dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}
		text := string(data)

		ids, err := IdentityTags(text)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		for _, tag := range ids {
			if err := r.store.Put(ctx, tag.Name, tag.Payload); err != nil {
				return nil, err
			}
			res.Recovered[tag.Name] = true
		}

		tags, err := ViewsTags(text)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		for _, tag := range tags {
			if len(tag.Payload) == 0 {
				continue
			}
			seq, ok := domain.Sequence(tag.Name)
			if !ok {
				log.Warn("views tag without sequence number", "file", e.Name(), "name", tag.Name)
				continue
			}
			if seq <= latest {
				continue
			}
			state, err := views.ParseState(tag.Payload)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", e.Name(), err)
			}
			latest = seq
			res.Baseline = state
			res.BaselineName = tag.Name
		}
	}

	log.Debug("archive restored", "definitions", len(res.Recovered), "baseline", res.BaselineName)
	return res, nil
}
