// Package audit records who read or changed which feature, namespace or
// environment, and what changed.
package audit

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"gorm.io/datatypes"
)

var ErrNotObject = errors.New("value does not encode to a JSON object")

// skippedFields never appear in a diff: identity, timestamps and parent
// relations.
var skippedFields = map[string]struct{}{
	"id":             {},
	"created_at":     {},
	"updated_at":     {},
	"namespace":      {},
	"environment":    {},
	"namespace_id":   {},
	"environment_id": {},
}

// Changes holds the old and new values of every field that differs.
type Changes struct {
	Old map[string]any
	New map[string]any
}

func (c Changes) Empty() bool {
	return len(c.Old) == 0 && len(c.New) == 0
}

// Diff compares the JSON representations of two entities field by field.
// Fields missing from newValue are ignored.
func Diff(oldValue, newValue any) (Changes, error) {
	oldTree, err := toTree(oldValue)
	if err != nil {
		return Changes{}, fmt.Errorf("old value: %w", err)
	}
	newTree, err := toTree(newValue)
	if err != nil {
		return Changes{}, fmt.Errorf("new value: %w", err)
	}

	changes := Changes{Old: map[string]any{}, New: map[string]any{}}
	for field, nv := range newTree {
		if _, skip := skippedFields[field]; skip {
			continue
		}
		ov, existed := oldTree[field]
		if existed && reflect.DeepEqual(ov, nv) {
			continue
		}
		if existed {
			changes.Old[field] = ov
		}
		changes.New[field] = nv
	}
	return changes, nil
}

func toTree(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree map[string]any
	if err := dec.Decode(&tree); err != nil {
		return nil, errors.Join(ErrNotObject, err)
	}
	if tree == nil {
		return nil, ErrNotObject
	}
	return tree, nil
}

// encode returns v's JSON form. Values that cannot be marshalled are recorded
// as their printed form so the entry is never lost.
func encode(v any) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err == nil {
		return raw
	}
	raw, _ = json.Marshal(fmt.Sprintf("%+v", v))
	return raw
}

// encodeMap returns nil for an empty map so the column stays NULL.
func encodeMap(m map[string]any) datatypes.JSON {
	if len(m) == 0 {
		return nil
	}
	return encode(m)
}
