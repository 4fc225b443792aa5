package flags

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_Enabled(t *testing.T) {
	tests := []struct {
		name     string
		registry *Registry
		flag     string
		expected bool
	}{
		{
			name:     "known flag set to true returns true",
			registry: New(map[string]bool{FlagSequenceAPI: true}),
			flag:     FlagSequenceAPI,
			expected: true,
		},
		{
			name:     "known flag set to false returns false",
			registry: New(map[string]bool{FlagSequenceAPI: false}),
			flag:     FlagSequenceAPI,
			expected: false,
		},
		{
			name:     "absent flag returns false",
			registry: New(map[string]bool{FlagSequenceAPI: true}),
			flag:     FlagWatchSequential,
			expected: false,
		},
		{
			name:     "config keys are case-insensitive",
			registry: New(map[string]bool{"Sequence-API": true}),
			flag:     FlagSequenceAPI,
			expected: true,
		},
		{
			name:     "nil registry returns false",
			registry: nil,
			flag:     FlagSequenceAPI,
			expected: false,
		},
		{
			name:     "nil map returns false",
			registry: New(nil),
			flag:     FlagSequenceAPI,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, tt.registry.Enabled(tt.flag))
		})
	}
}

func TestRegistry_UnknownFlagsAreKept(t *testing.T) {
	r := New(map[string]bool{"from-the-future": true})
	require.True(t, r.Enabled("from-the-future"))
}

func TestRegistry_AllReturnsCopy(t *testing.T) {
	r := New(map[string]bool{FlagSequenceAPI: true})

	all := r.All()
	all[FlagSequenceAPI] = false

	require.True(t, r.Enabled(FlagSequenceAPI))
	require.Empty(t, (*Registry)(nil).All())
}

func TestRegistry_With(t *testing.T) {
	base := New(map[string]bool{FlagSequenceAPI: true, FlagWatchSequential: true})

	r := base.With(map[string]bool{FlagWatchSequential: false})

	require.True(t, r.Enabled(FlagSequenceAPI))
	require.False(t, r.Enabled(FlagWatchSequential))
	require.True(t, base.Enabled(FlagWatchSequential), "base registry is unchanged")
	require.True(t, (*Registry)(nil).With(map[string]bool{FlagSequenceAPI: true}).Enabled(FlagSequenceAPI))
}

func TestParseOverrides(t *testing.T) {
	got, err := ParseOverrides([]string{"sequence-api", "WATCH-SEQUENTIAL=false"})
	require.NoError(t, err)
	require.Equal(t, map[string]bool{FlagSequenceAPI: true, FlagWatchSequential: false}, got)

	_, err = ParseOverrides([]string{"sequnce-api"})
	require.ErrorContains(t, err, "unknown feature flag")

	_, err = ParseOverrides([]string{"sequence-api=maybe"})
	require.ErrorContains(t, err, "sequence-api")
}

func TestKnown(t *testing.T) {
	names := make([]string, 0)
	for _, f := range Known() {
		require.NotEmpty(t, f.Description)
		names = append(names, f.Name)
	}
	require.Contains(t, names, FlagSequenceAPI)
	require.Contains(t, names, FlagWatchSequential)
}
