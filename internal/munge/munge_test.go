package munge

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMungeRenamePolicy(t *testing.T) {
	cases := map[string]string{
		".":     "_.",
		"..":    "_..",
		"a/b":   "a_SLASH_b",
		"dot":   "dot",
		"plain": "plain",
	}
	for in, want := range cases {
		got, ok := Munge(in, Rename)
		require.True(t, ok)
		require.Equal(t, want, got)
	}
}

func TestMungeFilterPolicyDropsReserved(t *testing.T) {
	_, ok := Munge(".", Filter)
	require.False(t, ok)

	got, ok := Munge("dotdot", Filter)
	require.True(t, ok)
	require.Equal(t, "dotdot", got)
}

// P8: round trip for non-targets is identity; for targets, exact
// under rename.
func TestMungeRoundTrip(t *testing.T) {
	keys := []string{".", "..", "dot", "dotdot"}
	for _, k := range keys {
		name, ok := Munge(k, Rename)
		require.True(t, ok)
		restored := Restore(name, k, NeedsMunge(k))
		require.Equal(t, k, restored)
	}
}

func TestEscapeSequenceInNewFileIsLiteral(t *testing.T) {
	// A user-created file literally named "_SLASH_" has no reserved
	// shape, so Munge leaves it untouched and Restore (present=false)
	// returns the filename as-is: the escape token is not reserved
	// for new files.
	name, ok := Munge("_SLASH_", Rename)
	require.True(t, ok)
	require.Equal(t, "_SLASH_", name)
	require.Equal(t, "_SLASH_", Restore(name, "", false))
}

func TestUnmungeInvertsMunge(t *testing.T) {
	for _, k := range []string{".", "..", "a/b"} {
		name, ok := Munge(k, Rename)
		require.True(t, ok)
		require.Equal(t, k, Unmunge(name))
	}
	// Unaffected names pass through unchanged.
	require.Equal(t, "plain", Unmunge("plain"))
}

func TestParsePolicy(t *testing.T) {
	p, ok := ParsePolicy("filter")
	require.True(t, ok)
	require.Equal(t, Filter, p)

	_, ok = ParsePolicy("bogus")
	require.False(t, ok)
}
