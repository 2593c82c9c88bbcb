package scriptform

import (
	"github.com/goliatone/go-scriptform/pkg/cache"
	"github.com/goliatone/go-scriptform/pkg/factory"
	"github.com/goliatone/go-scriptform/pkg/scripts"
)

// NewFactory builds the application-wide form factory over store. Create it
// once at startup and inject it wherever forms are needed; extra options
// (logger, resolver, observers) are applied after the defaults.
func NewFactory(store scripts.ParameterStore, options ...factory.Option) (*factory.Factory, error) {
	base := []factory.Option{
		factory.WithStore(store),
		factory.WithCache(cache.New()),
	}
	return factory.New(append(base, options...)...)
}
