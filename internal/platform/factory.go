package platform

import (
	"context"
	"io"

	"github.com/aretw0/promptvault/pkg/core"
	"github.com/aretw0/promptvault/pkg/metadata"
	"github.com/aretw0/promptvault/pkg/reconcile"
)

// New opens a library and returns the service over it.
//
//	svc, err := platform.New(".promptvault", platform.WithAdapter("sqlite"))
//
// The uri argument is adapter-specific (see Init).
func New(ctx context.Context, uri string, opts ...Option) (*core.Service, error) {
	o := apply(opts)

	store, err := initStore(ctx, uri, o)
	if err != nil {
		return nil, err
	}

	lib := core.NewLibrary(store, core.LibraryConfig{
		Logger:   o.logger,
		ReadOnly: o.readOnly,
	})
	if err := lib.Load(ctx); err != nil {
		_ = closeStore(store)
		return nil, err
	}

	var trackerOpts []metadata.Option
	if o.clock != nil {
		trackerOpts = append(trackerOpts, metadata.WithClock(o.clock))
	}
	return core.NewService(lib, core.ServiceConfig{
		Tracker:     metadata.NewTracker(trackerOpts...),
		Clock:       o.clock,
		EventBuffer: o.eventBuffer,
	}), nil
}

// NewEngine builds a reconciliation engine that publishes to svc and shares
// its logger, clock and decision timeout with opts.
func NewEngine(svc *core.Service, opts ...Option) *reconcile.Engine {
	o := apply(opts)
	engineOpts := []reconcile.Option{
		reconcile.WithPublisher(svc),
		reconcile.WithDecisionTimeout(o.decisionTimeout),
	}
	if o.logger != nil {
		engineOpts = append(engineOpts, reconcile.WithLogger(o.logger))
	}
	if o.clock != nil {
		engineOpts = append(engineOpts, reconcile.WithClock(o.clock))
	}
	return reconcile.New(engineOpts...)
}

// Close releases the store behind svc, if it holds any resources.
func Close(svc *core.Service) error {
	return closeStore(svc.Library().Store())
}

func closeStore(store core.Store) error {
	if c, ok := store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
