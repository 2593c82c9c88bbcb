package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-scriptform/pkg/model"
	"github.com/goliatone/go-scriptform/pkg/render"
	"github.com/goliatone/go-scriptform/pkg/storage"
)

// Renderer implements render.Renderer for terminal sessions. Instead of
// markup it prompts for every visible field and returns the collected values.
type Renderer struct {
	driver       PromptDriver
	outputFormat OutputFormat
	maxAttempts  int
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs a TUI renderer with defaults (survey driver, JSON output).
func New(options ...Option) (*Renderer, error) {
	r := &Renderer{
		driver:       newSurveyDriver(),
		outputFormat: OutputFormatJSON,
		maxAttempts:  defaultMaxAttempts,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	switch r.outputFormat {
	case OutputFormatJSON, OutputFormatFormURLEncoded, OutputFormatPrettyText:
	default:
		return nil, fmt.Errorf("tui: unknown output format %q", r.outputFormat)
	}
	return r, nil
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return "tui"
}

// ContentType reports the serialization format used by Render.
func (r *Renderer) ContentType() string {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return "application/x-www-form-urlencoded"
	case OutputFormatPrettyText:
		return "text/plain; charset=utf-8"
	default:
		return "application/json"
	}
}

// Render prompts for each field of form in order. Hidden fields are not
// prompted; they keep their preset or initial value. Values in opts act as
// defaults and errors in opts are shown before the matching prompt.
func (r *Renderer) Render(ctx context.Context, form model.Form, opts render.RenderOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.driver == nil {
		return nil, errors.New("tui: prompt driver is nil")
	}

	values := make(map[string]any, form.Len())
	for field := range form.All() {
		preset, hasPreset := opts.Values[field.Name()]
		if !hasPreset {
			preset, hasPreset = field.Initial()
		}
		for _, message := range opts.Errors[field.Name()] {
			if err := r.driver.Info(ctx, fmt.Sprintf("%s: %s", displayLabel(field), message)); err != nil {
				return nil, err
			}
		}

		value, keep, err := r.promptField(ctx, field, preset, hasPreset)
		if err != nil {
			return nil, fmt.Errorf("tui: field %q: %w", field.Name(), err)
		}
		if keep {
			values[field.Name()] = value
		}
	}
	return r.serialize(values)
}

// promptField dispatches on the field's option variant. keep is false when
// an optional field was left empty.
func (r *Renderer) promptField(ctx context.Context, field model.Field, preset any, hasPreset bool) (any, bool, error) {
	switch opts := field.Options().(type) {
	case model.HiddenOptions:
		return jsonValue(preset), hasPreset, nil
	case model.TextOptions:
		return r.promptText(ctx, field, preset, hasPreset)
	case model.NumberOptions:
		return r.promptNumber(ctx, field, opts.Integer, preset, hasPreset)
	case model.BooleanOptions:
		return r.promptBoolean(ctx, field, preset, hasPreset)
	case model.ChoiceOptions:
		if opts.Multiple {
			return r.promptMultiChoice(ctx, field, opts.Choices, preset)
		}
		return r.promptChoice(ctx, field, opts.Choices, preset)
	case model.FileOptions:
		return r.promptFile(ctx, field, preset, hasPreset)
	default:
		return nil, false, fmt.Errorf("%w: %q", model.ErrUnknownFieldKind, field.Kind())
	}
}

func (r *Renderer) promptText(ctx context.Context, field model.Field, preset any, hasPreset bool) (any, bool, error) {
	multiple := field.AcceptsMultiple()
	help := displayHelp(field)
	if multiple {
		help = strings.TrimSpace(help + " (comma separated)")
	}
	def := ""
	if hasPreset {
		def = presetString(preset)
	}

	return r.retry(ctx, field, func() (any, bool, error) {
		input, err := r.driver.Input(ctx, InputConfig{Message: displayLabel(field), Default: def, Help: help})
		if err != nil {
			return nil, false, err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			if field.Required() {
				return nil, false, errRequired
			}
			return nil, false, nil
		}
		if multiple {
			return splitList(input), true, nil
		}
		return input, true, nil
	})
}

func (r *Renderer) promptNumber(ctx context.Context, field model.Field, integer bool, preset any, hasPreset bool) (any, bool, error) {
	def := ""
	if hasPreset {
		def = presetString(preset)
	}
	return r.retry(ctx, field, func() (any, bool, error) {
		input, err := r.driver.Input(ctx, InputConfig{Message: displayLabel(field), Default: def, Help: displayHelp(field)})
		if err != nil {
			return nil, false, err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			if field.Required() {
				return nil, false, errRequired
			}
			return nil, false, nil
		}
		if integer {
			parsed, err := strconv.ParseInt(input, 10, 64)
			if err != nil {
				return nil, false, invalid(fmt.Errorf("%q is not an integer", input))
			}
			return parsed, true, nil
		}
		parsed, err := strconv.ParseFloat(input, 64)
		if err != nil {
			return nil, false, invalid(fmt.Errorf("%q is not a number", input))
		}
		return parsed, true, nil
	})
}

func (r *Renderer) promptBoolean(ctx context.Context, field model.Field, preset any, hasPreset bool) (any, bool, error) {
	def := false
	if hasPreset {
		def = presetBool(preset)
	}
	answer, err := r.driver.Confirm(ctx, ConfirmConfig{Message: displayLabel(field), Default: def, Help: displayHelp(field)})
	if err != nil {
		return nil, false, err
	}
	return answer, true, nil
}

func (r *Renderer) promptChoice(ctx context.Context, field model.Field, choices []model.Choice, preset any) (any, bool, error) {
	labels := choiceLabels(choices)
	def := -1
	if preset != nil {
		def = choiceIndex(choices, presetString(preset))
	}

	return r.retry(ctx, field, func() (any, bool, error) {
		idx, err := r.driver.Select(ctx, SelectConfig{Message: displayLabel(field), Options: labels, DefaultIndex: def, Help: displayHelp(field)})
		if err != nil {
			return nil, false, err
		}
		if idx < 0 || idx >= len(choices) {
			return nil, false, invalid(fmt.Errorf("selection %d out of range", idx))
		}
		choice := choices[idx]
		if choice.Blank {
			if field.Required() {
				return nil, false, errRequired
			}
			return nil, false, nil
		}
		return choice.Value, true, nil
	})
}

func (r *Renderer) promptMultiChoice(ctx context.Context, field model.Field, choices []model.Choice, preset any) (any, bool, error) {
	labels := choiceLabels(choices)
	var defaults []int
	for _, value := range presetList(preset) {
		if idx := choiceIndex(choices, value); idx >= 0 {
			defaults = append(defaults, idx)
		}
	}

	return r.retry(ctx, field, func() (any, bool, error) {
		indices, err := r.driver.MultiSelect(ctx, SelectConfig{Message: displayLabel(field), Options: labels, Defaults: defaults, Help: displayHelp(field)})
		if err != nil {
			return nil, false, err
		}
		selected := make([]string, 0, len(indices))
		for _, idx := range indices {
			if idx < 0 || idx >= len(choices) {
				return nil, false, invalid(fmt.Errorf("selection %d out of range", idx))
			}
			selected = append(selected, choices[idx].Value)
		}
		if len(selected) == 0 {
			if field.Required() {
				return nil, false, errRequired
			}
			return nil, false, nil
		}
		return selected, true, nil
	})
}

// promptFile asks for a storage identifier. An existing file is offered as
// the default so pressing enter keeps it.
func (r *Renderer) promptFile(ctx context.Context, field model.Field, preset any, hasPreset bool) (any, bool, error) {
	def := ""
	if hasPreset {
		def = presetString(preset)
	}
	return r.retry(ctx, field, func() (any, bool, error) {
		input, err := r.driver.Input(ctx, InputConfig{Message: displayLabel(field), Default: def, Help: displayHelp(field)})
		if err != nil {
			return nil, false, err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			if field.Required() {
				return nil, false, errRequired
			}
			return nil, false, nil
		}
		return input, true, nil
	})
}

type invalidInputError struct{ err error }

func (e invalidInputError) Error() string { return e.err.Error() }

var errRequired = invalidInputError{errors.New("a value is required")}

func invalid(err error) error { return invalidInputError{err} }

// retry re-runs ask while it reports invalid input, telling the user why.
// Driver errors end the session immediately.
func (r *Renderer) retry(ctx context.Context, field model.Field, ask func() (any, bool, error)) (any, bool, error) {
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		value, keep, err := ask()
		var bad invalidInputError
		if !errors.As(err, &bad) {
			return value, keep, err
		}
		if infoErr := r.driver.Info(ctx, fmt.Sprintf("Invalid %s: %v", displayLabel(field), bad)); infoErr != nil {
			return nil, false, infoErr
		}
	}
	return nil, false, ErrTooManyAttempts
}

func (r *Renderer) serialize(values map[string]any) ([]byte, error) {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return []byte(formEncode(values)), nil
	case OutputFormatPrettyText:
		return []byte(prettyPrint(values)), nil
	default:
		return json.Marshal(values)
	}
}

func displayLabel(field model.Field) string {
	if field.Label() != "" {
		return field.Label()
	}
	return field.Name()
}

func displayHelp(field model.Field) string {
	return strings.TrimSpace(field.HelpText())
}

func choiceLabels(choices []model.Choice) []string {
	out := make([]string, 0, len(choices))
	for _, choice := range choices {
		out = append(out, choice.Label)
	}
	return out
}

func choiceIndex(choices []model.Choice, value string) int {
	for i, choice := range choices {
		if !choice.Blank && choice.Value == value {
			return i
		}
	}
	return -1
}

func splitList(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func presetString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case storage.File:
		return v.Name()
	case []string:
		return strings.Join(v, ", ")
	default:
		return fmt.Sprint(v)
	}
}

func presetBool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && parsed
	default:
		return false
	}
}

func presetList(value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, presetString(item))
		}
		return out
	default:
		return []string{presetString(v)}
	}
}

func jsonValue(value any) any {
	if file, ok := value.(storage.File); ok {
		return file.Name()
	}
	return value
}

func formEncode(values map[string]any) string {
	out := url.Values{}
	for name, value := range values {
		switch v := value.(type) {
		case []string:
			for _, item := range v {
				out.Add(name, item)
			}
		default:
			out.Set(name, fmt.Sprint(v))
		}
	}
	return out.Encode()
}

func prettyPrint(values map[string]any) string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		switch v := values[name].(type) {
		case []string:
			fmt.Fprintf(&b, "%s=%s\n", name, strings.Join(v, ","))
		default:
			fmt.Fprintf(&b, "%s=%v\n", name, v)
		}
	}
	return b.String()
}
