package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-scriptform/pkg/scripts"
	"github.com/goliatone/go-scriptform/pkg/storage"
)

// ErrNoResolver is returned when a file initial value needs resolving but the
// builder has no storage resolver.
var ErrNoResolver = errors.New("model: storage resolver is not configured")

// ErrInvalidInitial wraps initial values that cannot be used for their field:
// non-scalar file identifiers, blank identifiers and paths the storage root
// rejects.
var ErrInvalidInitial = errors.New("model: invalid initial value")

// BuilderOption configures the builder behaviour.
type BuilderOption func(*Builder)

// WithResolver sets the storage resolver used for file initial values.
func WithResolver(resolver storage.Resolver) BuilderOption {
	return func(b *Builder) {
		b.resolver = resolver
	}
}

// WithLabeler overrides the default label generation function.
func WithLabeler(labeler func(string) string) BuilderOption {
	return func(b *Builder) {
		if labeler != nil {
			b.labeler = labeler
		}
	}
}

// Builder converts script parameters into field descriptors.
type Builder struct {
	resolver storage.Resolver
	labeler  func(string) string
}

// NewBuilder returns a Builder using Titleize for labels.
func NewBuilder(options ...BuilderOption) *Builder {
	b := &Builder{labeler: Titleize}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(b)
	}
	return b
}

// BuildField converts param into a Field. A nil initial means no initial
// value. Unknown kinds, malformed choices and storage failures are returned
// unchanged in the error chain.
func (b *Builder) BuildField(ctx context.Context, param scripts.Parameter, initial any) (Field, error) {
	kind, err := ParseFieldKind(param.Kind)
	if err != nil {
		return Field{}, fmt.Errorf("model: parameter %q: %w", param.Slug, err)
	}
	values, err := param.DecodeChoices()
	if err != nil {
		return Field{}, err
	}

	spec := FieldSpec{
		Name:     param.Slug,
		Label:    b.labeler(param.Title),
		Required: param.Required,
		HelpText: param.HelpText,
	}

	if len(values) > 0 {
		kind = KindChoice
		if param.MultipleChoice {
			kind = KindMultipleChoice
		}
		spec.Choices = buildChoices(values, !param.Required && !param.MultipleChoice)
	}

	if kind == KindFile {
		if param.IsOutput {
			kind = KindText
			initial = nil
		} else if initial != nil {
			file, err := b.resolveFile(ctx, initial)
			if err != nil {
				return Field{}, fmt.Errorf("model: parameter %q: %w", param.Slug, err)
			}
			initial = file
			spec.Clearable = true
		}
	}

	spec.Kind = kind
	spec.Initial = initial
	if param.MultipleChoice && kind != KindMultipleChoice {
		spec.Attrs = map[string]string{AttrMultiple: "true"}
	}

	return NewField(spec)
}

func (b *Builder) resolveFile(ctx context.Context, initial any) (storage.File, error) {
	var identifier string
	switch v := initial.(type) {
	case storage.File:
		return v, nil
	case string:
		identifier = v
	case []string:
		if len(v) != 1 {
			return nil, fmt.Errorf("%w: expected one file identifier, got %d", ErrInvalidInitial, len(v))
		}
		identifier = v[0]
	case []any:
		if len(v) != 1 {
			return nil, fmt.Errorf("%w: expected one file identifier, got %d", ErrInvalidInitial, len(v))
		}
		identifier = fmt.Sprint(v[0])
	case fmt.Stringer:
		identifier = v.String()
	case int, int64, float64:
		identifier = fmt.Sprint(v)
	default:
		return nil, fmt.Errorf("%w: unsupported file identifier type %T", ErrInvalidInitial, initial)
	}

	if b.resolver == nil {
		return nil, ErrNoResolver
	}
	file, err := b.resolver.Resolve(ctx, identifier)
	if errors.Is(err, storage.ErrOutsideRoot) || errors.Is(err, storage.ErrEmptyIdentifier) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInitial, err)
	}
	return file, err
}

func buildChoices(values []string, withBlank bool) []Choice {
	out := make([]Choice, 0, len(values)+1)
	if withBlank {
		out = append(out, BlankChoice())
	}
	for _, value := range values {
		out = append(out, Choice{Value: value, Label: Titleize(value)})
	}
	return out
}
