package sb3

import (
	"fmt"
	"strings"
)

// buildReport renders a summary as the multi-line text shown in chat after
// an upload: project header, stage stats, aggregate totals, global names,
// broadcasts, anomalies, then one detail line per sprite.
func buildReport(s *Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Project: %s", s.ProjectName)
	if s.ScratchVersion != "" {
		fmt.Fprintf(&b, " (format %s)", s.ScratchVersion)
	}
	b.WriteByte('\n')

	if s.Stage != nil {
		fmt.Fprintf(&b, "Stage %q: %d backdrops, %d sounds, %d scripts, %d blocks\n",
			s.Stage.Name, s.Stage.Backdrops, s.Stage.Sounds, s.Stage.Scripts, s.Stage.Blocks)
	}
	fmt.Fprintf(&b, "Totals: %d sprites, %d scripts, %d blocks\n", s.SpriteCount, s.TotalScripts, s.TotalBlocks)

	if len(s.GlobalVariables) > 0 {
		fmt.Fprintf(&b, "Global variables: %s\n", strings.Join(s.GlobalVariables, ", "))
	} else {
		b.WriteString("Global variables: none\n")
	}
	if len(s.GlobalLists) > 0 {
		fmt.Fprintf(&b, "Global lists: %s\n", strings.Join(s.GlobalLists, ", "))
	} else {
		b.WriteString("Global lists: none\n")
	}

	if len(s.Broadcasts) > 0 {
		fmt.Fprintf(&b, "Broadcasts: %s\n", strings.Join(s.Broadcasts, ", "))
	}
	if len(s.UnusedBroadcasts) > 0 {
		fmt.Fprintf(&b, "Unused broadcasts (declared but never sent or received): %s\n",
			strings.Join(s.UnusedBroadcasts, ", "))
	}
	if len(s.UndefinedBroadcasts) > 0 {
		fmt.Fprintf(&b, "Undefined broadcasts (used but never declared): %s\n",
			strings.Join(s.UndefinedBroadcasts, ", "))
	}

	if len(s.EmptySprites) > 0 {
		fmt.Fprintf(&b, "Sprites without scripts: %s\n", strings.Join(s.EmptySprites, ", "))
	} else if s.SpriteCount > 0 {
		b.WriteString("All sprites have scripts.\n")
	}

	for _, sp := range s.Sprites {
		fmt.Fprintf(&b, "- %s: %d scripts (%d hat blocks), %d blocks, %d costumes, %d sounds",
			sp.Name, sp.Scripts, sp.HatBlocks, sp.Blocks, sp.Costumes, sp.Sounds)
		if sp.CustomBlocks > 0 {
			fmt.Fprintf(&b, ", %d custom blocks", sp.CustomBlocks)
		}
		if len(sp.Variables) > 0 {
			fmt.Fprintf(&b, ", variables: %s", strings.Join(sp.Variables, ", "))
		}
		if len(sp.Lists) > 0 {
			fmt.Fprintf(&b, ", lists: %s", strings.Join(sp.Lists, ", "))
		}
		if sp.Comments > 0 {
			fmt.Fprintf(&b, ", %d comments", sp.Comments)
		}
		b.WriteByte('\n')
	}

	return strings.TrimRight(b.String(), "\n")
}
