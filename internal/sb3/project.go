// Package sb3 reads and writes Scratch 3.0 project archives: a zip
// container holding project.json plus costume/sound assets named by the
// MD5 hash of their content.
package sb3

import (
	"encoding/json"
	"sort"
	"strings"
)

// Project is the root of a project.json graph. Unknown fields are ignored
// on read; optional fields default to their zero values.
type Project struct {
	Targets    []Target          `json:"targets"`
	Monitors   []json.RawMessage `json:"monitors"`
	Extensions []string          `json:"extensions"`
	Meta       *Meta             `json:"meta,omitempty"`
}

// Meta carries project provenance.
type Meta struct {
	Semver       string `json:"semver"`
	VM           string `json:"vm"`
	Agent        string `json:"agent"`
	ProjectTitle string `json:"projectTitle,omitempty"`
}

// Target is a Stage or a Sprite. Variables, lists and broadcasts keep their
// raw positional encodings; use the Name helpers to read them tolerantly.
type Target struct {
	IsStage        bool                       `json:"isStage"`
	Name           string                     `json:"name"`
	Variables      map[string]json.RawMessage `json:"variables,omitempty"`
	Lists          map[string]json.RawMessage `json:"lists,omitempty"`
	Broadcasts     map[string]json.RawMessage `json:"broadcasts,omitempty"`
	Blocks         map[string]json.RawMessage `json:"blocks,omitempty"`
	Comments       map[string]Comment         `json:"comments,omitempty"`
	CurrentCostume int                        `json:"currentCostume"`
	Costumes       []Costume                  `json:"costumes"`
	Sounds         []json.RawMessage          `json:"sounds"`
	Volume         float64                    `json:"volume"`
	LayerOrder     int                        `json:"layerOrder"`

	// Stage-only.
	Tempo                int     `json:"tempo,omitempty"`
	VideoTransparency    float64 `json:"videoTransparency,omitempty"`
	VideoState           string  `json:"videoState,omitempty"`
	TextToSpeechLanguage *string `json:"textToSpeechLanguage"`

	// Sprite-only.
	Visible       *bool   `json:"visible,omitempty"`
	X             float64 `json:"x,omitempty"`
	Y             float64 `json:"y,omitempty"`
	Size          float64 `json:"size,omitempty"`
	Direction     float64 `json:"direction,omitempty"`
	Draggable     *bool   `json:"draggable,omitempty"`
	RotationStyle string  `json:"rotationStyle,omitempty"`
}

// Block is one executable unit in a script. Blocks form a forest per
// target: each topLevel block roots a linked list through Next/Parent ids.
// Ids are plain data resolved against the owning target's block map.
type Block struct {
	Opcode   string                     `json:"opcode"`
	Next     *string                    `json:"next"`
	Parent   *string                    `json:"parent"`
	Inputs   map[string]json.RawMessage `json:"inputs"`
	Fields   map[string]json.RawMessage `json:"fields"`
	Shadow   bool                       `json:"shadow"`
	TopLevel bool                       `json:"topLevel"`
	X        float64                    `json:"x,omitempty"`
	Y        float64                    `json:"y,omitempty"`
}

// Comment is a workspace note, optionally anchored to a block.
type Comment struct {
	BlockID   *string `json:"blockId"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	Minimized bool    `json:"minimized"`
	Text      string  `json:"text"`
}

// Costume describes one costume asset reference.
type Costume struct {
	Name             string  `json:"name"`
	AssetID          string  `json:"assetId"`
	Md5Ext           string  `json:"md5ext"`
	DataFormat       string  `json:"dataFormat"`
	RotationCenterX  float64 `json:"rotationCenterX"`
	RotationCenterY  float64 `json:"rotationCenterY"`
	BitmapResolution int     `json:"bitmapResolution,omitempty"`
}

// DecodedBlocks parses the target's raw block map into Block records.
// Entries that are not objects (top-level variable reporters are stored as
// arrays) or fail to parse are skipped rather than failing the whole read.
func (t *Target) DecodedBlocks() map[string]*Block {
	out := make(map[string]*Block, len(t.Blocks))
	for id, raw := range t.Blocks {
		var b Block
		if err := json.Unmarshal(raw, &b); err != nil {
			continue
		}
		out[id] = &b
	}
	return out
}

// VariableNames reads names out of the positional variables map.
func (t *Target) VariableNames() []string { return nameList(t.Variables) }

// ListNames reads names out of the positional lists map.
func (t *Target) ListNames() []string { return nameList(t.Lists) }

// BroadcastName decodes one broadcasts-map value. The format stores a plain
// name string, but positional arrays and {name} objects show up in the wild.
func BroadcastName(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		idx := 0
		if len(arr) > 1 {
			idx = 1
		}
		if idx < len(arr) {
			if err := json.Unmarshal(arr[idx], &s); err == nil {
				return strings.TrimSpace(s)
			}
		}
		return ""
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.Name)
	}
	return ""
}

// nameList extracts display names from a positional variables/lists map,
// dropping entries whose name cannot be decoded or is blank.
func nameList(record map[string]json.RawMessage) []string {
	var names []string
	for _, raw := range record {
		var arr []json.RawMessage
		if err := json.Unmarshal(raw, &arr); err == nil && len(arr) > 0 {
			var name string
			if err := json.Unmarshal(arr[0], &name); err == nil {
				if name = strings.TrimSpace(name); name != "" {
					names = append(names, name)
				}
			}
			continue
		}
		var obj struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(raw, &obj); err == nil {
			if name := strings.TrimSpace(obj.Name); name != "" {
				names = append(names, name)
			}
		}
	}
	// Map iteration order is random; keep name lists stable.
	sort.Strings(names)
	return names
}
