package sb3

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

var (
	// ErrMalformedArchive means the buffer is not a valid zip or lacks
	// project.json. Fatal for the analyze call, no partial result.
	ErrMalformedArchive = errors.New("sb3: malformed archive")
	// ErrInvalidProjectSchema means project.json is not a parseable
	// project graph. Fatal, no partial result.
	ErrInvalidProjectSchema = errors.New("sb3: invalid project schema")
)

// Analysis is the result of analyzing an uploaded project archive.
type Analysis struct {
	Summary Summary `json:"summary"`
	Report  string  `json:"report"`
}

// Summary is a read-only structural view of a project.
type Summary struct {
	ProjectName         string          `json:"projectName"`
	ScratchVersion      string          `json:"scratchVersion,omitempty"`
	SpriteCount         int             `json:"spriteCount"`
	TotalScripts        int             `json:"totalScripts"`
	TotalBlocks         int             `json:"totalBlocks"`
	EmptySprites        []string        `json:"emptySprites"`
	UnusedBroadcasts    []string        `json:"unusedBroadcasts"`
	UndefinedBroadcasts []string        `json:"undefinedBroadcasts"`
	Broadcasts          []string        `json:"broadcasts"`
	GlobalVariables     []string        `json:"globalVariables"`
	GlobalLists         []string        `json:"globalLists"`
	Sprites             []SpriteSummary `json:"spriteSummaries"`
	Stage               *StageSummary   `json:"stage"`
}

// SpriteSummary holds per-sprite structural counts.
type SpriteSummary struct {
	Name         string   `json:"name"`
	Costumes     int      `json:"costumes"`
	Sounds       int      `json:"sounds"`
	Blocks       int      `json:"blocks"`
	Scripts      int      `json:"scripts"`
	HatBlocks    int      `json:"hatBlocks"`
	CustomBlocks int      `json:"customBlocks"`
	Variables    []string `json:"variables"`
	Lists        []string `json:"lists"`
	Comments     int      `json:"comments"`
}

// StageSummary holds the stage's structural counts.
type StageSummary struct {
	Name      string   `json:"name"`
	Backdrops int      `json:"backdrops"`
	Sounds    int      `json:"sounds"`
	Blocks    int      `json:"blocks"`
	Scripts   int      `json:"scripts"`
	Variables []string `json:"variables"`
	Lists     []string `json:"lists"`
}

// Analyze unpacks a .sb3 buffer and computes its structural summary plus a
// human-readable report. Pure function of the input: any unzip or JSON
// error fails the whole call, while malformed blocks, missing optional
// fields and dangling broadcast references degrade to zero values or
// anomaly entries.
func Analyze(buf []byte) (*Analysis, error) {
	zr, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedArchive, err)
	}

	var projectFile *zip.File
	for _, f := range zr.File {
		if f.Name == "project.json" {
			projectFile = f
			break
		}
	}
	if projectFile == nil {
		return nil, fmt.Errorf("%w: project.json not found", ErrMalformedArchive)
	}

	rc, err := projectFile.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedArchive, err)
	}
	content, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedArchive, err)
	}

	// Probe for the required targets key before the typed decode so an
	// unrelated JSON document is rejected, not summarized as empty.
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(content, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProjectSchema, err)
	}
	if _, ok := probe["targets"]; !ok {
		return nil, fmt.Errorf("%w: missing targets", ErrInvalidProjectSchema)
	}

	var project Project
	if err := json.Unmarshal(content, &project); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProjectSchema, err)
	}

	summary := summarize(&project)
	return &Analysis{Summary: summary, Report: buildReport(&summary)}, nil
}

func summarize(project *Project) Summary {
	var stage *Target
	var sprites []*Target
	for i := range project.Targets {
		t := &project.Targets[i]
		if t.IsStage && stage == nil {
			stage = t
		} else if !t.IsStage {
			sprites = append(sprites, t)
		}
	}

	broadcastNames := collectBroadcasts(project.Targets)
	unused, undefined := broadcastAnomalies(project.Targets, broadcastNames)

	spriteSummaries := make([]SpriteSummary, 0, len(sprites))
	var emptySprites []string
	for _, sprite := range sprites {
		ss := summarizeSprite(sprite)
		if ss.Scripts == 0 {
			emptySprites = append(emptySprites, ss.Name)
		}
		spriteSummaries = append(spriteSummaries, ss)
	}

	var stageSummary *StageSummary
	if stage != nil {
		blocks := stage.DecodedBlocks()
		name := stage.Name
		if name == "" {
			name = "Stage"
		}
		stageSummary = &StageSummary{
			Name:      name,
			Backdrops: len(stage.Costumes),
			Sounds:    len(stage.Sounds),
			Blocks:    len(blocks),
			Scripts:   countScripts(blocks),
			Variables: stage.VariableNames(),
			Lists:     stage.ListNames(),
		}
	}

	totalScripts := 0
	totalBlocks := 0
	for _, ss := range spriteSummaries {
		totalScripts += ss.Scripts
		totalBlocks += ss.Blocks
	}
	if stageSummary != nil {
		totalScripts += stageSummary.Scripts
		totalBlocks += stageSummary.Blocks
	}

	projectName := ""
	version := ""
	if project.Meta != nil {
		projectName = project.Meta.ProjectTitle
		version = project.Meta.Semver
	}
	if projectName == "" && stageSummary != nil {
		projectName = stageSummary.Name
	}
	if projectName == "" {
		projectName = "Scratch project"
	}

	declared := make([]string, 0, len(broadcastNames))
	for _, name := range broadcastNames {
		declared = append(declared, name)
	}
	sort.Strings(declared)

	summary := Summary{
		ProjectName:         projectName,
		ScratchVersion:      version,
		SpriteCount:         len(sprites),
		TotalScripts:        totalScripts,
		TotalBlocks:         totalBlocks,
		EmptySprites:        emptySprites,
		UnusedBroadcasts:    unused,
		UndefinedBroadcasts: undefined,
		Broadcasts:          declared,
		Sprites:             spriteSummaries,
		Stage:               stageSummary,
	}
	if stageSummary != nil {
		summary.GlobalVariables = stageSummary.Variables
		summary.GlobalLists = stageSummary.Lists
	}
	return summary
}

func summarizeSprite(sprite *Target) SpriteSummary {
	blocks := sprite.DecodedBlocks()
	scripts := 0
	hats := 0
	custom := 0
	for _, b := range blocks {
		if b.TopLevel {
			scripts++
			if strings.HasPrefix(b.Opcode, "event_") {
				hats++
			}
		}
		if b.Opcode == "procedures_definition" {
			custom++
		}
	}
	return SpriteSummary{
		Name:         sprite.Name,
		Costumes:     len(sprite.Costumes),
		Sounds:       len(sprite.Sounds),
		Blocks:       len(blocks),
		Scripts:      scripts,
		HatBlocks:    hats,
		CustomBlocks: custom,
		Variables:    sprite.VariableNames(),
		Lists:        sprite.ListNames(),
		Comments:     len(sprite.Comments),
	}
}

func countScripts(blocks map[string]*Block) int {
	n := 0
	for _, b := range blocks {
		if b.TopLevel {
			n++
		}
	}
	return n
}

// collectBroadcasts builds the global broadcast-id to name map. Ids are
// expected unique project-wide, so last-write-wins on a clash is fine.
func collectBroadcasts(targets []Target) map[string]string {
	idToName := make(map[string]string)
	for i := range targets {
		for id, raw := range targets[i].Broadcasts {
			if name := BroadcastName(raw); name != "" {
				idToName[id] = name
			}
		}
	}
	return idToName
}

// broadcastAnomalies scans every block for broadcast usage and classifies
// each declared id never used as "unused" and each used id never declared
// as "undefined". The format tolerates dangling references, so they are
// surfaced as anomalies rather than errors.
func broadcastAnomalies(targets []Target, idToName map[string]string) (unused, undefined []string) {
	used := make(map[string]bool)
	missing := make(map[string]bool)

	mark := func(id string) {
		if id == "" {
			return
		}
		if _, ok := idToName[id]; ok {
			used[id] = true
		} else {
			missing[id] = true
		}
	}

	for i := range targets {
		for _, b := range targets[i].DecodedBlocks() {
			switch b.Opcode {
			case "event_broadcast", "event_broadcastandwait":
				mark(broadcastInputID(b.Inputs["BROADCAST_INPUT"]))
			case "event_whenbroadcastreceived":
				mark(broadcastFieldID(b.Fields["BROADCAST_OPTION"]))
			}
		}
	}

	for id, name := range idToName {
		if !used[id] {
			unused = append(unused, name)
		}
	}
	for id := range missing {
		name := idToName[id]
		if name == "" {
			name = id
		}
		undefined = append(undefined, name)
	}
	sort.Strings(unused)
	sort.Strings(undefined)
	return unused, undefined
}

// broadcastInputID reads the broadcast id out of a BROADCAST_INPUT value
// shaped [shadow, [11, name, id]]. Older emitters omit the id slot, in
// which case the name doubles as the id.
func broadcastInputID(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}
	var outer []json.RawMessage
	if err := json.Unmarshal(raw, &outer); err != nil || len(outer) < 2 {
		return ""
	}
	var inner []json.RawMessage
	if err := json.Unmarshal(outer[1], &inner); err != nil {
		return ""
	}
	return stringAt(inner, 2, 1)
}

// broadcastFieldID reads the broadcast id out of a BROADCAST_OPTION field
// shaped [name, id].
func broadcastFieldID(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return ""
	}
	return stringAt(arr, 1, 0)
}

// stringAt decodes arr[idx] as a string, falling back to arr[fallback]
// when idx is out of range or not a string.
func stringAt(arr []json.RawMessage, idx, fallback int) string {
	for _, i := range []int{idx, fallback} {
		if i >= 0 && i < len(arr) {
			var s string
			if err := json.Unmarshal(arr[i], &s); err == nil && s != "" {
				return s
			}
		}
	}
	return ""
}
