package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-scriptform/pkg/cache"
	"github.com/goliatone/go-scriptform/pkg/model"
	"github.com/goliatone/go-scriptform/pkg/scripts"
	"github.com/goliatone/go-scriptform/pkg/storage"
)

// BuildObserver is notified after every form build attempt.
type BuildObserver interface {
	BuildCompleted(pk int64, duration time.Duration, err error)
}

// Option customises the factory configuration.
type Option func(*Factory)

// WithStore injects the parameter store. Required.
func WithStore(store scripts.ParameterStore) Option {
	return func(f *Factory) {
		f.store = store
	}
}

// WithCache injects the form cache. The cache is owned by the caller so its
// lifetime can match the application's; a private cache is created otherwise.
func WithCache(c *cache.FormCache) Option {
	return func(f *Factory) {
		f.cache = c
	}
}

// WithBuilder injects a custom field builder.
func WithBuilder(builder *model.Builder) Option {
	return func(f *Factory) {
		f.builder = builder
	}
}

// WithResolver configures the storage resolver used by the default builder.
// Ignored when WithBuilder is supplied.
func WithResolver(resolver storage.Resolver) Option {
	return func(f *Factory) {
		f.resolver = resolver
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Factory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithBuildObserver registers a build observer, typically metrics.
func WithBuildObserver(observer BuildObserver) Option {
	return func(f *Factory) {
		f.observer = observer
	}
}

// WithClock overrides the time source used for build timestamps.
func WithClock(now func() time.Time) Option {
	return func(f *Factory) {
		if now != nil {
			f.now = now
		}
	}
}

// Factory builds and caches the grouped and master forms of scripts.
type Factory struct {
	store    scripts.ParameterStore
	cache    *cache.FormCache
	builder  *model.Builder
	resolver storage.Resolver
	logger   *slog.Logger
	observer BuildObserver
	now      func() time.Time
	flights  singleflight.Group
}

// New constructs a Factory. A parameter store is required; everything else
// falls back to built-in defaults.
func New(options ...Option) (*Factory, error) {
	f := &Factory{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(f)
	}

	if f.store == nil {
		return nil, errors.New("factory: parameter store is required")
	}
	if f.cache == nil {
		f.cache = cache.New()
	}
	if f.builder == nil {
		f.builder = model.NewBuilder(model.WithResolver(f.resolver))
	}
	return f, nil
}

// GroupForms returns the grouped forms of script. Without initial values the
// cached structure is returned, building it on first use. With initial values
// (keyed by parameter slug) the groups are built fresh and never cached; the
// canonical entry is still ensured.
func (f *Factory) GroupForms(ctx context.Context, script scripts.Identity, initial map[string]any) (model.GroupForms, error) {
	entry, err := f.Ensure(ctx, script)
	if err != nil {
		return model.GroupForms{}, err
	}
	if len(initial) == 0 {
		return entry.Groups, nil
	}

	params, err := f.parameters(ctx, script)
	if err != nil {
		return model.GroupForms{}, err
	}
	fields, err := f.buildFields(ctx, params, initial)
	if err != nil {
		return model.GroupForms{}, err
	}
	return assembleGroups(script, params, fields)
}

// MasterForm returns the cached master form of script, building it on first
// use.
func (f *Factory) MasterForm(ctx context.Context, script scripts.Identity) (model.Form, error) {
	entry, err := f.Ensure(ctx, script)
	if err != nil {
		return model.Form{}, err
	}
	return entry.Master, nil
}

// Ensure makes sure both forms of script are cached and returns them. Both are
// built from a single parameter query; concurrent first calls for the same
// script share one build. Failed builds leave the cache untouched, as do
// builds overtaken by Invalidate or InvalidateAll.
func (f *Factory) Ensure(ctx context.Context, script scripts.Identity) (cache.Entry, error) {
	if script == nil {
		return cache.Entry{}, errors.New("factory: script is required")
	}
	if err := ctx.Err(); err != nil {
		return cache.Entry{}, err
	}

	pk := script.PrimaryKey()
	if entry, ok := f.cache.Get(pk); ok {
		return entry, nil
	}

	// Flights are keyed by generation: callers arriving after an
	// invalidation start a new build. The shared build outlives any one
	// caller's cancellation.
	gen := f.cache.Generation(pk)
	key := strconv.FormatInt(pk, 10) + "@" + gen.String()
	build := context.WithoutCancel(ctx)
	results := f.flights.DoChan(key, func() (any, error) {
		return f.build(build, script, gen)
	})

	select {
	case <-ctx.Done():
		return cache.Entry{}, ctx.Err()
	case res := <-results:
		if res.Err != nil {
			return cache.Entry{}, res.Err
		}
		return res.Val.(cache.Entry), nil
	}
}

// Invalidate drops the cached forms of the script with primary key pk.
func (f *Factory) Invalidate(pk int64) bool {
	removed := f.cache.Invalidate(pk)
	if removed {
		f.logger.Info("form cache invalidated", slog.Int64("script_id", pk))
	}
	return removed
}

// InvalidateAll drops every cached form.
func (f *Factory) InvalidateAll() int {
	removed := f.cache.Purge()
	f.logger.Info("form cache purged", slog.Int("entries", removed))
	return removed
}

func (f *Factory) build(ctx context.Context, script scripts.Identity, gen cache.Generation) (entry cache.Entry, err error) {
	pk := script.PrimaryKey()
	start := f.now()
	defer func() {
		elapsed := f.now().Sub(start)
		if f.observer != nil {
			f.observer.BuildCompleted(pk, elapsed, err)
		}
		if err != nil {
			f.logger.Error("form build failed", slog.Int64("script_id", pk), slog.Any("error", err))
			return
		}
		f.logger.Debug("form build completed",
			slog.Int64("script_id", pk),
			slog.Int("fields", entry.Master.Len()),
			slog.Int("groups", entry.Groups.Len()),
			slog.Duration("elapsed", elapsed),
		)
	}()

	params, err := f.parameters(ctx, script)
	if err != nil {
		return cache.Entry{}, err
	}
	fields, err := f.buildFields(ctx, params, nil)
	if err != nil {
		return cache.Entry{}, err
	}

	master, err := model.NewForm(append([]model.Field{model.IdentityField(pk)}, fields...)...)
	if err != nil {
		return cache.Entry{}, fmt.Errorf("factory: script %d master form: %w", pk, err)
	}
	groups, err := assembleGroups(script, params, fields)
	if err != nil {
		return cache.Entry{}, err
	}

	entry = cache.Entry{Groups: groups, Master: master, BuiltAt: f.now()}
	if !f.cache.StoreIf(pk, gen, entry) {
		f.logger.Debug("discarding form build invalidated in flight", slog.Int64("script_id", pk))
	}
	return entry, nil
}

func (f *Factory) parameters(ctx context.Context, script scripts.Identity) ([]scripts.Parameter, error) {
	params, err := f.store.Parameters(ctx, script)
	if err != nil {
		return nil, fmt.Errorf("factory: query parameters for script %d: %w", script.PrimaryKey(), err)
	}
	return params, nil
}

func (f *Factory) buildFields(ctx context.Context, params []scripts.Parameter, initial map[string]any) ([]model.Field, error) {
	fields := make([]model.Field, 0, len(params))
	for _, param := range params {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		field, err := f.builder.BuildField(ctx, param, initial[param.Slug])
		if err != nil {
			return nil, fmt.Errorf("factory: script %d: %w", param.ScriptID, err)
		}
		fields = append(fields, field)
	}
	return fields, nil
}
