package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/Ayato-AI-for-Auto/LogicHive/internal/storage"
)

const publishConcurrency = 4

// Mediator is the remote side of a sync exchange.
type Mediator interface {
	FetchIndex(ctx context.Context) ([]string, error)
	FetchDocument(ctx context.Context, name string) (*Document, error)
	PushDocument(ctx context.Context, doc *Document) error
}

// Syncer moves function documents between the local store and a remote
// mediator. Pull merges remote changes in; Push and PublishAll submit
// local functions for mediated review.
type Syncer struct {
	store    *storage.Store
	lock     *storage.WriteLock
	mediator Mediator
}

// NewSyncer wires a syncer over the given store, write lock and mediator.
func NewSyncer(store *storage.Store, lock *storage.WriteLock, mediator Mediator) *Syncer {
	return &Syncer{store: store, lock: lock, mediator: mediator}
}

// Pull fetches the remote index and merges every changed document into
// the local store, returning the number of functions updated. A failure
// on one document is logged and does not abort the batch; an index
// fetch failure aborts the whole pull.
func (s *Syncer) Pull(ctx context.Context) (int, error) {
	names, err := s.mediator.FetchIndex(ctx)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, name := range names {
		doc, err := s.mediator.FetchDocument(ctx, name)
		if err != nil {
			log.Printf("Warning: sync pull skipped %q: %v", name, err)
			continue
		}

		local, err := s.store.GetFunction(ctx, name)
		if err == nil && local.Code == doc.Code && local.Description == doc.Description {
			continue // unchanged
		}
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			log.Printf("Warning: sync pull skipped %q: %v", name, err)
			continue
		}

		if err := s.merge(ctx, doc); err != nil {
			log.Printf("Warning: sync pull failed to merge %q: %v", name, err)
			continue
		}
		updated++
	}

	log.Printf("sync: pulled %d updated functions (%d remote)", updated, len(names))
	return updated, nil
}

func (s *Syncer) merge(ctx context.Context, doc *Document) error {
	release, err := s.lock.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return s.store.UpsertRemote(ctx, doc.Record())
}

// Push submits one named local function upstream.
func (s *Syncer) Push(ctx context.Context, name string) error {
	rec, err := s.store.GetFunction(ctx, name)
	if err != nil {
		return err
	}
	return s.mediator.PushDocument(ctx, DocumentFromRecord(rec))
}

// PublishAll submits every non-deleted local function upstream with
// bounded concurrency, returning how many were accepted. Individual
// failures are logged and do not stop the batch.
func (s *Syncer) PublishAll(ctx context.Context) (int, error) {
	recs, err := s.store.ListFunctions(ctx, 10000, true)
	if err != nil {
		return 0, fmt.Errorf("list functions: %w", err)
	}

	var pushed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(publishConcurrency)
	for _, rec := range recs {
		rec := rec
		g.Go(func() error {
			if err := s.mediator.PushDocument(gctx, DocumentFromRecord(rec)); err != nil {
				log.Printf("Warning: publish failed for %q: %v", rec.Name, err)
				return nil
			}
			pushed.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(pushed.Load()), err
	}

	log.Printf("sync: published %d/%d functions", pushed.Load(), len(recs))
	return int(pushed.Load()), nil
}
