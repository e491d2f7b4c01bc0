package shell

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/DoyleJ11/valorant-veto/internal/mappool"
)

// Render writes f as plain text. A failed poll adds a stale marker and keeps
// the last good room on screen.
func Render(w io.Writer, f Frame) error {
	var b strings.Builder
	snap := f.Snapshot

	switch {
	case snap.Gone:
		b.WriteString("Room no longer exists.\n")
		_, err := io.WriteString(w, b.String())
		return err
	case !snap.HasRoom:
		b.WriteString("Loading room...\n")
		if snap.Err != nil {
			fmt.Fprintf(&b, "  (last attempt failed: %v)\n", snap.Err)
		}
		_, err := io.WriteString(w, b.String())
		return err
	}

	v := f.View
	fmt.Fprintf(&b, "ROOM %s\n", v.RoomCode)
	for _, p := range v.Presence {
		state := "Waiting"
		if p.Ready {
			state = "Ready"
		}
		fmt.Fprintf(&b, "  %-7s %s [%s]\n", p.Label+":", p.Name, state)
	}
	b.WriteString("\n" + v.Headline + "\n")
	if v.BansLeft > 0 {
		fmt.Fprintf(&b, "%d bans left\n", v.BansLeft)
	}

	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	for _, t := range v.Tiles {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", marker(t), t.Map.ID, t.Map.Name, strings.ToUpper(string(t.Status)))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if v.SideHeadline != "" {
		b.WriteString("\n" + v.SideHeadline + "\n")
		for _, o := range v.SideOptions {
			mark := " "
			if o.Selectable {
				mark = ">"
			}
			fmt.Fprintf(&b, "  %s %s: %s\n", mark, o.Side, o.Label)
		}
	}
	if v.Summary != nil {
		b.WriteString("\nVeto complete. " + v.Summary.String() + "\n")
	}
	if f.CanStart {
		b.WriteString("\nEveryone is ready. Type 'start' to begin the veto.\n")
	}
	if snap.Err != nil {
		fmt.Fprintf(&b, "\n(stale: last refresh failed: %v)\n", snap.Err)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func marker(t mappool.Tile) string {
	switch {
	case t.Selected:
		return "*"
	case t.Selectable:
		return ">"
	default:
		return " "
	}
}
