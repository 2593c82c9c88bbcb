package scripts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// RequiredGroupID is the reserved group key collecting every required
// parameter regardless of its declared group. Real group IDs are positive.
const RequiredGroupID int64 = -1

// RequiredGroupName is the display name of the RequiredGroupID bucket.
const RequiredGroupName = "Required"

var (
	// ErrScriptNotFound reports an unknown script identifier.
	ErrScriptNotFound = errors.New("scripts: script not found")
	// ErrInvalidChoices reports a choices payload that is not a JSON list.
	ErrInvalidChoices = errors.New("scripts: invalid choices payload")
	// ErrMissingGroup reports a non-required parameter without a group.
	ErrMissingGroup = errors.New("scripts: parameter group missing")
)

// Identity is the minimal view of a script the form factory needs.
type Identity interface {
	PrimaryKey() int64
	SubmissionURL() string
}

// Script describes a runnable unit whose inputs are modelled by parameters.
type Script struct {
	ID          int64  `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	URL         string `json:"url,omitempty" yaml:"url,omitempty"`
}

// PrimaryKey implements Identity.
func (s Script) PrimaryKey() int64 {
	return s.ID
}

// SubmissionURL implements Identity. Scripts without an explicit URL submit to
// /scripts/{id}/submissions.
func (s Script) SubmissionURL() string {
	if url := strings.TrimSpace(s.URL); url != "" {
		return url
	}
	return "/scripts/" + strconv.FormatInt(s.ID, 10) + "/submissions"
}

// ParameterGroup is a named bucket used for form layout.
type ParameterGroup struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Parameter is a single configurable input or output of a script. The ID is
// the ordering key used when parameters are queried.
type Parameter struct {
	ID             int64           `json:"id" yaml:"id"`
	ScriptID       int64           `json:"scriptId" yaml:"script_id"`
	Slug           string          `json:"slug" yaml:"slug"`
	Title          string          `json:"title" yaml:"title"`
	Kind           string          `json:"kind" yaml:"kind"`
	Required       bool            `json:"required" yaml:"required"`
	HelpText       string          `json:"helpText,omitempty" yaml:"help_text,omitempty"`
	Choices        string          `json:"choices,omitempty" yaml:"choices,omitempty"`
	MultipleChoice bool            `json:"multipleChoice,omitempty" yaml:"multiple_choice,omitempty"`
	IsOutput       bool            `json:"isOutput,omitempty" yaml:"is_output,omitempty"`
	Group          *ParameterGroup `json:"group,omitempty" yaml:"group,omitempty"`
}

// GroupKey returns the partition key and display name for the parameter.
// Required parameters always map to RequiredGroupID.
func (p Parameter) GroupKey() (int64, string, error) {
	if p.Required {
		return RequiredGroupID, RequiredGroupName, nil
	}
	if p.Group == nil {
		return 0, "", fmt.Errorf("%w: parameter %q", ErrMissingGroup, p.Slug)
	}
	return p.Group.ID, p.Group.Name, nil
}

// DecodeChoices parses the JSON encoded choices list. Blank payloads decode to
// no choices. Scalars are stringified: null becomes "None", booleans
// "True"/"False" and numbers keep their literal text.
func (p Parameter) DecodeChoices() ([]string, error) {
	raw := strings.TrimSpace(p.Choices)
	if raw == "" {
		return nil, nil
	}

	decoder := json.NewDecoder(bytes.NewReader([]byte(raw)))
	decoder.UseNumber()

	var values []any
	if err := decoder.Decode(&values); err != nil {
		return nil, fmt.Errorf("%w: parameter %q: %v", ErrInvalidChoices, p.Slug, err)
	}
	if decoder.More() {
		return nil, fmt.Errorf("%w: parameter %q: trailing data", ErrInvalidChoices, p.Slug)
	}

	out := make([]string, 0, len(values))
	for _, value := range values {
		out = append(out, choiceString(value))
	}
	return out, nil
}

// EncodeChoices renders a choices list in the stored JSON representation.
func EncodeChoices(values []string) string {
	if len(values) == 0 {
		return ""
	}
	data, err := json.Marshal(values)
	if err != nil {
		return ""
	}
	return string(data)
}

func choiceString(value any) string {
	switch v := value.(type) {
	case nil:
		return "None"
	case bool:
		if v {
			return "True"
		}
		return "False"
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}
