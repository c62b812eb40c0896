package cli

import (
	"fmt"
	"time"

	gancube "github.com/SeamusWaldron/gancube_ble_library"
)

// formatResult renders one decoded stream item as a single line.
func formatResult(seq int64, r gancube.Result) string {
	if r.Err != nil {
		return fmt.Sprintf("%4d  error  %v", seq, r.Err)
	}
	m := r.Move()
	if m == nil {
		return fmt.Sprintf("%4d  event  %v", seq, r.Event)
	}
	return fmt.Sprintf("%4d  move   #%-3d %-2s  %s", seq, m.Serial, m.Notation(), formatElapsed(m.Elapsed))
}

func formatElapsed(d time.Duration) string {
	return fmt.Sprintf("%dms", d.Milliseconds())
}
