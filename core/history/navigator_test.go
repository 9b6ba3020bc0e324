package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// gestures replays a sequence of "up"/"down" keys against nav, feeding each
// result back as the next buffer like a line editor would.
func gestures(nav *Navigator, buffer string, keys ...string) []string {
	var out []string
	for _, key := range keys {
		if key == "up" {
			buffer = nav.Previous(buffer)
		} else {
			buffer = nav.Next(buffer)
		}
		out = append(out, buffer)
	}
	return out
}

func TestNavigator_EmptyStore(t *testing.T) {
	nav := NewNavigator(newTestStore(t, 3))

	assert.Equal(t, "", nav.Previous(""))
	assert.Equal(t, "typed", nav.Previous("typed"))
	assert.Equal(t, "typed", nav.Next("typed"))
	assert.Equal(t, ModeIdle, nav.Mode())
}

func TestNavigator_PlainRecall(t *testing.T) {
	store := newTestStore(t, 5, "one", "two", "three")

	cases := []struct {
		name string
		keys []string
		want []string
	}{
		{"walk-up", []string{"up", "up", "up"}, []string{"three", "two", "one"}},
		{"pinned-at-oldest", []string{"up", "up", "up", "up", "up"}, []string{"three", "two", "one", "one", "one"}},
		{"down-from-blank", []string{"down"}, []string{""}},
		{"up-then-down", []string{"up", "up", "down", "down"}, []string{"three", "two", "three", ""}},
		{"past-newest-then-up", []string{"up", "down", "up"}, []string{"three", "", "three"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			nav := NewNavigator(store)
			assert.Equal(t, tc.want, gestures(nav, "", tc.keys...))
			assert.Equal(t, ModeRecall, nav.Mode())
		})
	}
}

func TestNavigator_PrefixSearchDirection(t *testing.T) {
	store := newTestStore(t, 5, "git add", "git commit", "ls")
	nav := NewNavigator(store)

	got := gestures(nav, "git", "up", "up", "up")

	assert.Equal(t, []string{"git commit", "git add", "git add"}, got)
	assert.Equal(t, ModePrefix, nav.Mode())
	assert.Equal(t, "git", nav.Anchor())
}

func TestNavigator_PrefixSearch(t *testing.T) {
	store := newTestStore(t, 10, "git add", "ls", "git commit", "make", "git push", "pwd")

	cases := []struct {
		name   string
		buffer string
		keys   []string
		want   []string
	}{
		{"reverse-direction", "git", []string{"up", "up", "down", "down"}, []string{"git push", "git commit", "git push", "git push"}},
		{"first-up-miss-keeps-buffer", "docker", []string{"up", "up"}, []string{"docker", "docker"}},
		{"first-down-miss-clears", "git", []string{"down"}, []string{""}},
		{"walk-to-oldest", "git", []string{"up", "up", "up", "up"}, []string{"git push", "git commit", "git add", "git add"}},
		{"exact-match", "make", []string{"up", "up"}, []string{"make", "make"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			nav := NewNavigator(store)
			assert.Equal(t, tc.want, gestures(nav, tc.buffer, tc.keys...))
		})
	}
}

func TestNavigator_EmptyBufferAfterPrefixMiss(t *testing.T) {
	store := newTestStore(t, 5, "one", "two")
	nav := NewNavigator(store)

	// A failed downward prefix search blanks the line; the blank line then
	// walks the history normally.
	assert.Equal(t, "", nav.Next("tw"))
	assert.Equal(t, "two", nav.Previous(""))
	assert.Equal(t, ModeRecall, nav.Mode())
}

func TestNavigator_ResetOnEdit(t *testing.T) {
	store := newTestStore(t, 10, "git add", "ls -l", "git commit", "ls -a", "make")

	histories := [][]string{
		{},
		{"up"},
		{"up", "up", "up"},
		{"up", "down"},
		{"down", "down"},
		{"up", "up", "up", "up", "up", "up", "up"},
	}

	for _, keys := range histories {
		nav := NewNavigator(store)
		gestures(nav, "", keys...)
		gestures(nav, "git", keys...)

		// Whatever happened before, an edited buffer anchors a fresh search.
		assert.Equal(t, "ls -a", nav.Previous("ls"))
		assert.Equal(t, ModePrefix, nav.Mode())
		assert.Equal(t, "ls", nav.Anchor())
		assert.Equal(t, "ls -l", nav.Previous("ls -a"))
	}
}

func TestNavigator_Reset(t *testing.T) {
	store := newTestStore(t, 5, "one", "two", "three")
	nav := NewNavigator(store)

	gestures(nav, "", "up", "up")
	nav.Reset()

	assert.Equal(t, ModeIdle, nav.Mode())
	assert.Equal(t, "three", nav.Previous(""))
}

func TestNavigator_SeesNewEntries(t *testing.T) {
	store := newTestStore(t, 2, "one", "two")
	nav := NewNavigator(store)

	assert.Equal(t, "two", nav.Previous(""))
	nav.Reset()

	store.Append("three")
	assert.Equal(t, []string{"three", "two", "two"}, gestures(nav, "", "up", "up", "up"))
}
