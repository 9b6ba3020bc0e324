package history

// Mode is the state the Navigator inferred from the line buffer.
type Mode int

const (
	// ModeIdle means no gesture happened since the last reset.
	ModeIdle Mode = iota
	// ModeRecall walks the history one entry at a time.
	ModeRecall
	// ModePrefix only visits entries starting with the anchor text.
	ModePrefix
)

func (m Mode) String() string {
	switch m {
	case ModeRecall:
		return "recall"
	case ModePrefix:
		return "prefix"
	default:
		return "idle"
	}
}

// Navigator drives previous/next recall over a Store.
//
// The caller passes the current line buffer to each gesture and displays the
// returned text. The navigator works out on its own whether the user is
// walking the history or searching by prefix: as long as the buffer still
// holds what the navigator last returned the current walk continues,
// otherwise a new one starts from the newest entry.
type Navigator struct {
	store *Store

	mode   Mode
	anchor string
	last   string

	// pos is the displayed position in recall mode and the position of the
	// last match in prefix mode. Size() stands for "past the newest entry".
	pos     int
	matched bool
}

// NewNavigator creates a navigator over store.
func NewNavigator(store *Store) *Navigator {
	return &Navigator{store: store}
}

// Mode returns the current navigation mode.
func (n *Navigator) Mode() Mode {
	return n.mode
}

// Anchor returns the text prefix searches match against.
func (n *Navigator) Anchor() string {
	return n.anchor
}

// Reset forgets the cursor; the next gesture starts a fresh walk.
func (n *Navigator) Reset() {
	n.mode = ModeIdle
	n.anchor = ""
	n.last = ""
	n.pos = 0
	n.matched = false
}

// Previous returns the text to show after moving toward older entries.
func (n *Navigator) Previous(buffer string) string {
	if n.store.Size() == 0 {
		return buffer
	}
	n.begin(buffer)

	if n.mode == ModePrefix {
		return n.search(buffer, Up)
	}

	if n.pos > n.store.Size() {
		n.pos = n.store.Size()
	}
	if n.pos > 0 {
		n.pos--
	}
	entry, _ := n.store.At(n.pos)
	return n.emit(entry.Text)
}

// Next returns the text to show after moving toward newer entries. Moving
// past the newest entry yields an empty line.
func (n *Navigator) Next(buffer string) string {
	if n.store.Size() == 0 {
		return buffer
	}
	n.begin(buffer)

	if n.mode == ModePrefix {
		return n.search(buffer, Down)
	}

	if n.pos < n.store.Size()-1 {
		n.pos++
		entry, _ := n.store.At(n.pos)
		return n.emit(entry.Text)
	}
	n.pos = n.store.Size()
	return n.emit("")
}

// begin picks the mode for a gesture on buffer.
func (n *Navigator) begin(buffer string) {
	// An empty buffer always means plain recall, even if a failed prefix
	// search is what emptied it.
	continuing := n.mode != ModeIdle && buffer == n.last
	if continuing && !(buffer == "" && n.mode == ModePrefix) {
		return
	}

	n.pos = n.store.Size()
	n.matched = false
	if buffer == "" {
		n.mode = ModeRecall
		n.anchor = ""
		return
	}
	n.mode = ModePrefix
	n.anchor = buffer
}

func (n *Navigator) search(buffer string, dir Direction) string {
	start := n.pos + 1
	if dir == Up {
		start = n.pos - 1
	}

	pos, entry, ok := n.store.LookupPrefixFrom(n.anchor, start, dir)
	switch {
	case ok:
		n.pos = pos
		n.matched = true
		return n.emit(entry.Text)
	case n.matched:
		return n.emit(n.last)
	case dir == Up:
		return n.emit(buffer)
	default:
		return n.emit("")
	}
}

func (n *Navigator) emit(text string) string {
	n.last = text
	return text
}
