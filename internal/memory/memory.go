// Package memory provides agent interaction logs and the bounded recency
// extractor that turns them into dialogue context for decision-making.
package memory

// Sender identifies who wrote a dialogue entry. Kind is filled in at write
// time when the writer had the agent in hand; otherwise only the bare ID is
// recorded and readers resolve the kind at extraction time.
type Sender struct {
	ID   uint64 `json:"id"`
	Kind string `json:"kind,omitempty"`
}

// Resolved reports whether the sender's kind is already known.
func (s Sender) Resolved() bool { return s.Kind != "" }

// Entry is one log record. Dialogue entries carry a Sender and Message;
// everything else (observations, movements, trade notes) is a bare Note.
type Entry struct {
	Seq     uint64 `json:"seq"`
	Tick    uint64 `json:"tick"`
	Sender  Sender `json:"sender,omitzero"`
	Message string `json:"message,omitempty"`
	Note    string `json:"note,omitempty"`
}

// IsDialogue reports whether the entry is a structured message.
func (e Entry) IsDialogue() bool { return e.Message != "" }

// RecencyLog is implemented by any memory backend that can report its most
// recent entries, newest first. The extractor depends only on this; which
// backend stores the entries is the agent's business.
type RecencyLog interface {
	Recent(k int) []Entry
}

// ShortTermLog is a bounded ring of entries. Appending past capacity drops
// the oldest entry.
type ShortTermLog struct {
	capacity int
	entries  []Entry
	nextSeq  uint64
}

// NewShortTermLog creates a log retaining at most capacity entries.
func NewShortTermLog(capacity int) *ShortTermLog {
	if capacity < 1 {
		capacity = 1
	}
	return &ShortTermLog{capacity: capacity}
}

// Append adds an entry, assigning it the next sequence number.
func (l *ShortTermLog) Append(e Entry) {
	e.Seq = l.nextSeq
	l.nextSeq++
	l.entries = append(l.entries, e)
	if len(l.entries) > l.capacity {
		l.entries = l.entries[len(l.entries)-l.capacity:]
	}
}

// Recent returns up to k entries, newest first.
func (l *ShortTermLog) Recent(k int) []Entry {
	return recentOf(l.entries, k)
}

// Len returns the number of retained entries.
func (l *ShortTermLog) Len() int { return len(l.entries) }

// EpisodicLog is an unbounded append-only entry list.
type EpisodicLog struct {
	entries []Entry
	nextSeq uint64
}

// Append adds an entry, assigning it the next sequence number.
func (l *EpisodicLog) Append(e Entry) {
	e.Seq = l.nextSeq
	l.nextSeq++
	l.entries = append(l.entries, e)
}

// Recent returns up to k entries, newest first.
func (l *EpisodicLog) Recent(k int) []Entry {
	return recentOf(l.entries, k)
}

// Len returns the number of stored entries.
func (l *EpisodicLog) Len() int { return len(l.entries) }

func recentOf(entries []Entry, k int) []Entry {
	if k <= 0 || len(entries) == 0 {
		return nil
	}
	if k > len(entries) {
		k = len(entries)
	}
	out := make([]Entry, 0, k)
	for i := len(entries) - 1; i >= len(entries)-k; i-- {
		out = append(out, entries[i])
	}
	return out
}
