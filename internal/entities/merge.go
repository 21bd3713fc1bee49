package entities

import (
	"encoding/json"
	"fmt"
)

// MergeDocuments deep-merges overlay into base. Objects are merged key by key,
// everything else (arrays included) is replaced wholesale. base is modified in
// place and returned.
func MergeDocuments(base, overlay map[string]interface{}) map[string]interface{} {
	if base == nil {
		base = make(map[string]interface{}, len(overlay))
	}
	for k, v := range overlay {
		if vm, ok := v.(map[string]interface{}); ok {
			if bm, ok := base[k].(map[string]interface{}); ok {
				base[k] = MergeDocuments(bm, vm)
				continue
			}
		}
		base[k] = v
	}
	return base
}

// SettingsFromJSON decodes a stored document on top of the defaults, so that
// fields missing from older documents take their default values.
func SettingsFromJSON(raw []byte) (*Settings, error) {
	var overlay map[string]interface{}
	if err := json.Unmarshal(raw, &overlay); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return SettingsFromMap(overlay)
}

// SettingsFromMap is SettingsFromJSON for an already decoded document
func SettingsFromMap(overlay map[string]interface{}) (*Settings, error) {
	base, err := DefaultSettings().ToMap()
	if err != nil {
		return nil, err
	}
	merged, err := json.Marshal(MergeDocuments(base, overlay))
	if err != nil {
		return nil, fmt.Errorf("encode merged settings: %w", err)
	}
	s := &Settings{}
	if err := json.Unmarshal(merged, s); err != nil {
		return nil, fmt.Errorf("decode merged settings: %w", err)
	}
	s.Normalize()
	return s, nil
}

// ToMap converts the document to its generic JSON form
func (s *Settings) ToMap() (map[string]interface{}, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode settings map: %w", err)
	}
	return m, nil
}
