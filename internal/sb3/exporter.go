package sb3

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrEmptyInput means the exporter was handed zero command sequences.
var ErrEmptyInput = errors.New("sb3: no command sequences to export")

const (
	helperSpriteName = "MindX Helper"
	exporterAgent    = "stemchat-exporter"
	formatSemver     = "3.0.0"
	formatVM         = "1.6.0"
)

// Export builds a minimal runnable .sb3 archive from command sequences: a
// blank white stage plus one helper sprite carrying, per sequence, a green
// flag hat chained to a say block that speaks the joined tokens. Pure
// function of its inputs aside from the random block ids.
func Export(sequences [][]string, projectTitle string) ([]byte, error) {
	if len(sequences) == 0 {
		return nil, ErrEmptyInput
	}
	if projectTitle = strings.TrimSpace(projectTitle); projectTitle == "" {
		projectTitle = "Scratch Project"
	}

	backdrop := newSVGAsset(stageBackdropSVG)
	helper := newSVGAsset(helperSpriteSVG)

	blocks := make(map[string]json.RawMessage, len(sequences)*2)
	comments := make(map[string]Comment, len(sequences))
	for i, seq := range sequences {
		text := strings.Join(seq, " -> ")
		hatID := uuid.NewString()
		sayID := uuid.NewString()
		y := 120.0 + 120.0*float64(i)

		blocks[hatID] = mustMarshal(Block{
			Opcode:   "event_whenflagclicked",
			Next:     &sayID,
			Inputs:   map[string]json.RawMessage{},
			Fields:   map[string]json.RawMessage{},
			TopLevel: true,
			X:        60,
			Y:        y,
		})
		blocks[sayID] = mustMarshal(Block{
			Opcode: "looks_say",
			Parent: &hatID,
			Inputs: map[string]json.RawMessage{
				"MESSAGE": mustMarshal([]any{1, []any{10, text}}),
			},
			Fields: map[string]json.RawMessage{},
		})
		comments[uuid.NewString()] = Comment{
			BlockID: &hatID,
			X:       320,
			Y:       y,
			Width:   240,
			Height:  120,
			Text:    text,
		}
	}

	visible := true
	draggable := false
	project := Project{
		Targets: []Target{
			{
				IsStage:    true,
				Name:       "Stage",
				Variables:  map[string]json.RawMessage{},
				Lists:      map[string]json.RawMessage{},
				Broadcasts: map[string]json.RawMessage{},
				Blocks:     map[string]json.RawMessage{},
				Costumes:   []Costume{backdrop.costume("backdrop1", 240, 180)},
				Sounds:     []json.RawMessage{},
				Volume:     100,
				Tempo:      60,
				VideoState: "on",
			},
			{
				Name:          helperSpriteName,
				Variables:     map[string]json.RawMessage{},
				Lists:         map[string]json.RawMessage{},
				Broadcasts:    map[string]json.RawMessage{},
				Blocks:        blocks,
				Comments:      comments,
				Costumes:      []Costume{helper.costume("helper", 48, 48)},
				Sounds:        []json.RawMessage{},
				Volume:        100,
				LayerOrder:    1,
				Visible:       &visible,
				Size:          100,
				Direction:     90,
				Draggable:     &draggable,
				RotationStyle: "all around",
			},
		},
		Monitors:   []json.RawMessage{},
		Extensions: []string{},
		Meta: &Meta{
			Semver:       formatSemver,
			VM:           formatVM,
			Agent:        exporterAgent,
			ProjectTitle: projectTitle,
		},
	}

	projectJSON, err := json.Marshal(&project)
	if err != nil {
		return nil, fmt.Errorf("marshal project: %w", err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := []struct {
		name string
		data []byte
	}{
		{"project.json", projectJSON},
		{backdrop.Md5Ext, backdrop.Data},
		{helper.Md5Ext, helper.Data},
	}
	for _, f := range files {
		w, err := zw.Create(f.name)
		if err != nil {
			return nil, fmt.Errorf("zip entry %s: %w", f.name, err)
		}
		if _, err := w.Write(f.data); err != nil {
			return nil, fmt.Errorf("zip entry %s: %w", f.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize zip: %w", err)
	}
	return buf.Bytes(), nil
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
