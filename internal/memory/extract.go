package memory

import (
	"fmt"
	"slices"
	"strings"
)

// NoDialogue is the sentinel returned when no dialogue entries exist.
// Absence of dialogue is a normal empty result, never an error.
const NoDialogue = "No recent dialogue."

// Resolver maps a bare sender ID to an agent kind. A lookup miss is not a
// failure; the extractor falls back to a generic label.
type Resolver func(id uint64) (kind string, ok bool)

// Extract returns up to maxMessages formatted dialogue lines in chronological
// order (oldest first), joined with newlines. It inspects at most
// maxMessages*2 of the newest entries, so cost stays bounded no matter how
// much the backend retains; non-dialogue entries in that window are skipped.
func Extract(log RecencyLog, resolve Resolver, maxMessages int) string {
	if log == nil || maxMessages <= 0 {
		return NoDialogue
	}

	lines := make([]string, 0, maxMessages)
	for _, e := range log.Recent(maxMessages * 2) {
		if len(lines) >= maxMessages {
			break
		}
		if !e.IsDialogue() {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", senderLabel(e.Sender, resolve), e.Message))
	}

	if len(lines) == 0 {
		return NoDialogue
	}

	// Collected newest-first; flip back to chronological order.
	slices.Reverse(lines)
	return strings.Join(lines, "\n")
}

func senderLabel(s Sender, resolve Resolver) string {
	if s.Resolved() {
		return fmt.Sprintf("%s %d", s.Kind, s.ID)
	}
	if resolve != nil {
		if kind, ok := resolve(s.ID); ok {
			return fmt.Sprintf("%s %d", kind, s.ID)
		}
	}
	return fmt.Sprintf("Agent %d", s.ID)
}
