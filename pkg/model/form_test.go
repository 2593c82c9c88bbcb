package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustField(t *testing.T, spec FieldSpec) Field {
	t.Helper()
	field, err := NewField(spec)
	if err != nil {
		t.Fatalf("new field: %v", err)
	}
	return field
}

func TestNewForm_OrderAndLookup(t *testing.T) {
	form, err := NewForm(
		IdentityField(9),
		mustField(t, FieldSpec{Name: "b", Kind: KindText}),
		mustField(t, FieldSpec{Name: "a", Kind: KindInteger}),
	)
	if err != nil {
		t.Fatalf("new form: %v", err)
	}
	if diff := cmp.Diff([]string{IdentityFieldName, "b", "a"}, form.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	field, ok := form.Field("a")
	if !ok || field.Kind() != KindInteger {
		t.Fatalf("lookup failed: %v %v", ok, field.Kind())
	}
	if pk, ok := form.ScriptID(); !ok || pk != 9 {
		t.Fatalf("expected identity 9, got %d (ok=%v)", pk, ok)
	}

	var seen []string
	for f := range form.All() {
		seen = append(seen, f.Name())
		if len(seen) == 2 {
			break
		}
	}
	if diff := cmp.Diff([]string{IdentityFieldName, "b"}, seen); diff != "" {
		t.Fatalf("iteration mismatch (-want +got):\n%s", diff)
	}

	if _, err := NewForm(form.Fields()...); err != nil {
		t.Fatalf("rebuilding from fields: %v", err)
	}
	if _, err := NewForm(field, field); err == nil {
		t.Fatalf("expected duplicate field error")
	}
}

func TestForm_AccessorsReturnCopies(t *testing.T) {
	choice := mustField(t, FieldSpec{
		Name:    "mode",
		Kind:    KindChoice,
		Choices: []Choice{{Value: "a", Label: "A"}},
		Attrs:   map[string]string{"class": "wide"},
	})
	form, err := NewForm(choice)
	if err != nil {
		t.Fatalf("new form: %v", err)
	}

	fields := form.Fields()
	fields[0] = mustField(t, FieldSpec{Name: "other", Kind: KindText})

	got, _ := form.Field("mode")
	choices := got.Choices()
	choices[0].Label = "mutated"
	attrs := got.Widget().Attrs()
	attrs["class"] = "mutated"
	opts := got.Options().(ChoiceOptions)
	opts.Choices[0].Value = "mutated"

	again, _ := form.Field("mode")
	if form.Names()[0] != "mode" {
		t.Fatalf("form order changed through returned slice")
	}
	if again.Choices()[0].Label != "A" || again.Choices()[0].Value != "a" {
		t.Fatalf("choices changed through returned slice: %+v", again.Choices())
	}
	if class, _ := again.Widget().Attr("class"); class != "wide" {
		t.Fatalf("widget attrs changed through returned map: %q", class)
	}
}

func TestNewField_RejectsUnknownKind(t *testing.T) {
	if _, err := NewField(FieldSpec{Name: "x", Kind: "date"}); !errors.Is(err, ErrUnknownFieldKind) {
		t.Fatalf("expected ErrUnknownFieldKind, got %v", err)
	}
	if _, err := NewField(FieldSpec{Kind: KindText}); err == nil {
		t.Fatalf("expected error for missing name")
	}
}

func TestParseFieldKind(t *testing.T) {
	cases := map[string]FieldKind{
		"CharField":            KindText,
		" multiplechoicefield": KindMultipleChoice,
		"DecimalField":         KindNumber,
		"file":                 KindFile,
	}
	for name, want := range cases {
		got, err := ParseFieldKind(name)
		if err != nil || got != want {
			t.Fatalf("ParseFieldKind(%q) = %s, %v; want %s", name, got, err, want)
		}
		if !got.Valid() {
			t.Fatalf("%s should be valid", got)
		}
	}
	if _, err := ParseFieldKind("ImageField"); !errors.Is(err, ErrUnknownFieldKind) {
		t.Fatalf("expected ErrUnknownFieldKind, got %v", err)
	}
	if FieldKind("date").Valid() {
		t.Fatalf("date should not be valid")
	}
}

func TestTitleize(t *testing.T) {
	cases := map[string]string{
		"":           "",
		"a":          "A",
		"input file": "Input File",
		"input_FILE": "Input_File",
		"2nd pass":   "2Nd Pass",
		"o'neil":     "O'Neil",
		"élan vital": "Élan Vital",
	}
	for in, want := range cases {
		if got := Titleize(in); got != want {
			t.Fatalf("Titleize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGroupFormsJSON(t *testing.T) {
	required, err := NewForm(IdentityField(4), mustField(t, FieldSpec{
		Name:     "mode",
		Kind:     KindChoice,
		Label:    "Mode",
		Choices:  []Choice{BlankChoice(), {Value: "a", Label: "A"}},
		Required: false,
	}))
	if err != nil {
		t.Fatalf("new form: %v", err)
	}
	groups := NewGroupForms("/scripts/4/submissions", GroupForm{Name: "Required", Form: required})

	data, err := json.Marshal(groups)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded struct {
		Action string `json:"action"`
		Groups []struct {
			GroupName string `json:"groupName"`
			Form      struct {
				Fields []struct {
					Name    string `json:"name"`
					Kind    string `json:"kind"`
					Initial any    `json:"initial"`
					Choices []struct {
						Value *string `json:"value"`
						Label string  `json:"label"`
					} `json:"choices"`
				} `json:"fields"`
			} `json:"form"`
		} `json:"groups"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Action != "/scripts/4/submissions" || len(decoded.Groups) != 1 {
		t.Fatalf("unexpected payload %s", data)
	}
	fields := decoded.Groups[0].Form.Fields
	if fields[0].Name != IdentityFieldName || fields[0].Kind != "hidden" || fields[0].Initial != float64(4) {
		t.Fatalf("unexpected identity field %+v", fields[0])
	}
	if fields[1].Choices[0].Value != nil || fields[1].Choices[0].Label != "----" {
		t.Fatalf("blank choice should encode a null value: %+v", fields[1].Choices[0])
	}
	if fields[1].Choices[1].Value == nil || *fields[1].Choices[1].Value != "a" {
		t.Fatalf("unexpected choice %+v", fields[1].Choices[1])
	}
}
