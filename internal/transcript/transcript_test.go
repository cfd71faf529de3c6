package transcript

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "collapses whitespace", raw: "  guard  \n lagana\tzaroori ", want: "guard lagana zaroori"},
		{name: "drops annotations", raw: "[BLANK_AUDIO] wear gloves (music)", want: "wear gloves"},
		{name: "annotation only", raw: "[Music]", want: ""},
		{name: "empty", raw: "", want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Normalize(tc.raw))
		})
	}
}

func TestIsInaudible(t *testing.T) {
	t.Parallel()

	require.True(t, IsInaudible(""))
	require.True(t, IsInaudible("  ok "))
	require.True(t, IsInaudible("..."))
	require.True(t, IsInaudible("a. b!"))
	require.False(t, IsInaudible("yes"))
	require.False(t, IsInaudible("हाँ जी"))
	require.False(t, IsInaudible("120"))
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	require.Equal(t, "short", Truncate(" short ", 100))
	require.Equal(t, "abc...", Truncate("abcdef", 3))
	require.Equal(t, "सुरक्षा...", Truncate("सुरक्षा चश्मा", 7))
	require.Empty(t, Truncate("anything", 0))
}
