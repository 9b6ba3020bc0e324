package shell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	cases := []struct {
		name   string
		tokens []string
		want   Pipeline
	}{
		{
			name:   "pipe-into-redirect",
			tokens: []string{"ls", "|", "grep", "x", ">", "out.txt"},
			want: Pipeline{
				{Argv: []string{"ls"}},
				{Argv: []string{"grep", "x"}, Stdout: &Redirect{Path: "out.txt"}},
			},
		},
		{
			name:   "append",
			tokens: []string{"echo", "hi", ">>", "log"},
			want: Pipeline{
				{Argv: []string{"echo", "hi"}, Stdout: &Redirect{Path: "log", Append: true}},
			},
		},
		{
			name:   "input-and-output",
			tokens: []string{"sort", "<", "in", ">", "out"},
			want: Pipeline{
				{Argv: []string{"sort"}, Stdin: &Redirect{Path: "in"}, Stdout: &Redirect{Path: "out"}},
			},
		},
		{
			name:   "redirect-before-args",
			tokens: []string{"wc", "<", "in", "-l"},
			want: Pipeline{
				{Argv: []string{"wc", "-l"}, Stdin: &Redirect{Path: "in"}},
			},
		},
		{
			name:   "three-stages",
			tokens: []string{"cat", "<", "in", "|", "sort", "|", "uniq", "-c"},
			want: Pipeline{
				{Argv: []string{"cat"}, Stdin: &Redirect{Path: "in"}},
				{Argv: []string{"sort"}},
				{Argv: []string{"uniq", "-c"}},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Build(Plain(tc.tokens...))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBuild_Malformed(t *testing.T) {
	cases := map[string][]string{
		"empty":                 {},
		"trailing-pipe":         {"ls", "|"},
		"leading-pipe":          {"|", "wc"},
		"double-pipe":           {"ls", "|", "|", "wc"},
		"missing-out-target":    {"ls", ">"},
		"missing-in-target":     {"wc", "<"},
		"operator-as-target":    {"ls", ">", "|", "wc"},
		"only-redirect":         {">", "out"},
		"two-outputs":           {"ls", ">", "a", ">>", "b"},
		"two-inputs":            {"wc", "<", "a", "<", "b"},
		"output-mid-pipeline":   {"ls", ">", "out", "|", "wc"},
		"input-mid-pipeline":    {"ls", "|", "wc", "<", "in"},
		"redirect-after-a-pipe": {"ls", "|", ">", "out"},
	}

	for name, tokens := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Build(Plain(tokens...))
			assert.ErrorIs(t, err, ErrMalformedPipeline)
		})
	}
}

func TestBuild_QuotedOperators(t *testing.T) {
	tokens, err := Tokenize(`echo '|' ">" out '<' in`)
	require.NoError(t, err)

	got, err := Build(tokens)
	require.NoError(t, err)
	assert.Equal(t, Single([]string{"echo", "|", ">", "out", "<", "in"}), got)

	tokens, err = Tokenize(`echo hi > '|'`)
	require.NoError(t, err)

	got, err = Build(tokens)
	require.NoError(t, err)
	assert.Equal(t, Pipeline{{Argv: []string{"echo", "hi"}, Stdout: &Redirect{Path: "|"}}}, got)
}

func TestPipeline_String(t *testing.T) {
	p, err := Build(Plain("cat", "<", "in", "|", "grep", "-v", "x", ">>", "out"))
	require.NoError(t, err)

	assert.Equal(t, "cat < in | grep -v x >> out", p.String())
	assert.Equal(t, "ls -l", Single([]string{"ls", "-l"}).String())
}
