package sb3

import (
	"archive/zip"
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"testing"
)

func unpackProject(t *testing.T, buf []byte) (*Project, map[string][]byte) {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	files := make(map[string][]byte)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		files[f.Name] = data
	}
	raw, ok := files["project.json"]
	if !ok {
		t.Fatal("archive has no project.json")
	}
	var project Project
	if err := json.Unmarshal(raw, &project); err != nil {
		t.Fatalf("parse project.json: %v", err)
	}
	return &project, files
}

func TestExport_EmptyInput(t *testing.T) {
	if _, err := Export(nil, "Test"); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestExport_RoundTripShape(t *testing.T) {
	buf, err := Export([][]string{{"Events > When Green Flag Clicked", "Motion > Move 10 Steps"}}, "Test")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	project, _ := unpackProject(t, buf)

	if len(project.Targets) != 2 {
		t.Fatalf("targets = %d, want 2", len(project.Targets))
	}
	stage, sprite := project.Targets[0], project.Targets[1]
	if !stage.IsStage {
		t.Fatal("first target is not the stage")
	}
	if sprite.IsStage || sprite.Name != "MindX Helper" {
		t.Fatalf("unexpected sprite target: %+v", sprite.Name)
	}

	blocks := sprite.DecodedBlocks()
	var hat *Block
	for _, b := range blocks {
		if b.TopLevel {
			if hat != nil {
				t.Fatal("more than one top-level block")
			}
			hat = b
		}
	}
	if hat == nil || hat.Opcode != "event_whenflagclicked" {
		t.Fatalf("expected one event_whenflagclicked hat, got %+v", hat)
	}
	if hat.Next == nil {
		t.Fatal("hat block has no next")
	}
	say := blocks[*hat.Next]
	if say == nil || say.Opcode != "looks_say" {
		t.Fatalf("expected looks_say after hat, got %+v", say)
	}

	var message []json.RawMessage
	if err := json.Unmarshal(say.Inputs["MESSAGE"], &message); err != nil || len(message) < 2 {
		t.Fatalf("bad MESSAGE input: %v", err)
	}
	var inner []any
	if err := json.Unmarshal(message[1], &inner); err != nil || len(inner) < 2 {
		t.Fatalf("bad MESSAGE literal: %v", err)
	}
	want := "Events > When Green Flag Clicked -> Motion > Move 10 Steps"
	if inner[1] != want {
		t.Fatalf("say text = %v, want %q", inner[1], want)
	}
}

func TestExport_ScriptsOffsetAndCommented(t *testing.T) {
	buf, err := Export([][]string{
		{"Events > A", "Looks > One"},
		{"Events > B", "Looks > Two"},
	}, "Layout")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	project, _ := unpackProject(t, buf)
	sprite := project.Targets[1]

	ys := make(map[float64]bool)
	for _, b := range sprite.DecodedBlocks() {
		if b.TopLevel {
			ys[b.Y] = true
		}
	}
	if !ys[120] || !ys[240] {
		t.Fatalf("script y offsets = %v, want 120 and 240", ys)
	}

	if len(sprite.Comments) != 2 {
		t.Fatalf("comments = %d, want 2", len(sprite.Comments))
	}
	for _, c := range sprite.Comments {
		if c.BlockID == nil {
			t.Fatal("comment not anchored to a block")
		}
		if b, ok := sprite.DecodedBlocks()[*c.BlockID]; !ok || b.Opcode != "event_whenflagclicked" {
			t.Fatalf("comment anchored to %v, want a hat block", c.BlockID)
		}
	}
}

func TestExport_AssetNamesMatchContentHash(t *testing.T) {
	buf, err := Export([][]string{{"Events > A", "Looks > B"}}, "Assets")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	project, files := unpackProject(t, buf)

	for _, target := range project.Targets {
		for _, c := range target.Costumes {
			data, ok := files[c.Md5Ext]
			if !ok {
				t.Fatalf("costume asset %s missing from archive", c.Md5Ext)
			}
			sum := md5.Sum(data)
			if got := hex.EncodeToString(sum[:]); got != c.AssetID {
				t.Errorf("asset %s: content hash %s != assetId %s", c.Md5Ext, got, c.AssetID)
			}
		}
	}
}

func TestExport_ReanalyzesCleanly(t *testing.T) {
	buf, err := Export([][]string{{"Events > A", "Looks > B"}}, "Round Trip")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	got, err := Analyze(buf)
	if err != nil {
		t.Fatalf("Analyze of exported archive: %v", err)
	}
	if got.Summary.ProjectName != "Round Trip" {
		t.Errorf("project name = %q", got.Summary.ProjectName)
	}
	if got.Summary.SpriteCount != 1 || got.Summary.TotalScripts != 1 || got.Summary.TotalBlocks != 2 {
		t.Errorf("unexpected totals: %+v", got.Summary)
	}
	if len(got.Summary.UnusedBroadcasts) != 0 || len(got.Summary.UndefinedBroadcasts) != 0 {
		t.Errorf("exported project should have no broadcast anomalies: %+v", got.Summary)
	}
}
