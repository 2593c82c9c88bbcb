package factory

import (
	"fmt"
	"sort"

	"github.com/goliatone/go-scriptform/pkg/model"
	"github.com/goliatone/go-scriptform/pkg/scripts"
)

type bucket struct {
	name   string
	fields []model.Field
}

// assembleGroups partitions fields (parallel to params) into layout groups.
// Required parameters go to the sentinel group, which is emitted first; the
// remaining groups follow by ascending ID. The first emitted group carries the
// identity field.
func assembleGroups(script scripts.Identity, params []scripts.Parameter, fields []model.Field) (model.GroupForms, error) {
	if len(params) != len(fields) {
		return model.GroupForms{}, fmt.Errorf("factory: %d parameters but %d fields", len(params), len(fields))
	}

	pk := script.PrimaryKey()
	buckets := make(map[int64]*bucket)
	var keys []int64

	for idx, param := range params {
		key, name, err := param.GroupKey()
		if err != nil {
			return model.GroupForms{}, fmt.Errorf("factory: script %d: %w", pk, err)
		}
		b, ok := buckets[key]
		if !ok {
			b = &bucket{name: name}
			buckets[key] = b
			keys = append(keys, key)
		}
		b.fields = append(b.fields, fields[idx])
	}

	sort.Slice(keys, func(i, j int) bool {
		switch {
		case keys[i] == scripts.RequiredGroupID:
			return keys[j] != scripts.RequiredGroupID
		case keys[j] == scripts.RequiredGroupID:
			return false
		default:
			return keys[i] < keys[j]
		}
	})

	groups := make([]model.GroupForm, 0, len(keys))
	for idx, key := range keys {
		b := buckets[key]
		groupFields := b.fields
		if idx == 0 {
			groupFields = append([]model.Field{model.IdentityField(pk)}, groupFields...)
		}
		form, err := model.NewForm(groupFields...)
		if err != nil {
			return model.GroupForms{}, fmt.Errorf("factory: script %d group %q: %w", pk, b.name, err)
		}
		groups = append(groups, model.GroupForm{Name: b.name, Form: form})
	}

	return model.NewGroupForms(script.SubmissionURL(), groups...), nil
}
