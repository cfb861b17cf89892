package pattern_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snitchgen/internal/pattern"
)

func TestMatcher(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		pattern string
		id      string
		want    bool
	}{
		{pattern: "apple-telemetry", id: "apple-telemetry", want: true},
		{pattern: "apple-telemetry", id: "apple-telemetry2", want: false},
		{pattern: "apple-telemetry", id: "Apple-Telemetry", want: false},
		{pattern: "*-telemetry", id: "apple-telemetry", want: true},
		{pattern: "*-telemetry", id: "google-telemetry", want: true},
		{pattern: "*-telemetry", id: "apple-ads", want: false},
		{pattern: "apple-*", id: "apple-ads", want: true},
		{pattern: "apple-*", id: "pineapple-ads", want: false},
		{pattern: "sir?", id: "siri", want: true},
		{pattern: "sir?", id: "sirix", want: false},
		{pattern: "[ag]*-telemetry", id: "google-telemetry", want: true},
		{pattern: "[ag]*-telemetry", id: "meta-telemetry", want: false},
		{pattern: "*", id: "anything", want: true},
	}

	for _, tc := range tcs {
		m, err := pattern.Compile(tc.pattern)
		require.NoError(t, err, tc.pattern)
		assert.Equal(t, tc.want, m.Match(tc.id), "%s vs %s", tc.pattern, tc.id)
	}
}

func TestIsLiteral(t *testing.T) {
	t.Parallel()

	literal, err := pattern.Compile("apple-telemetry")
	require.NoError(t, err)
	assert.True(t, literal.IsLiteral())
	assert.Equal(t, "apple-telemetry", literal.String())

	wild, err := pattern.Compile("apple-*")
	require.NoError(t, err)
	assert.False(t, wild.IsLiteral())
}

func TestCompileBadPattern(t *testing.T) {
	t.Parallel()

	_, err := pattern.Compile("[unclosed")
	require.Error(t, err)

	var bad *pattern.BadPatternError
	require.ErrorAs(t, err, &bad)
	assert.Equal(t, "[unclosed", bad.Pattern)
}

func TestCompileAll(t *testing.T) {
	t.Parallel()

	matchers, err := pattern.CompileAll([]string{"siri", "apple-*"})
	require.NoError(t, err)
	require.Len(t, matchers, 2)

	assert.True(t, pattern.MatchAny(matchers, "siri"))
	assert.True(t, pattern.MatchAny(matchers, "apple-ads"))
	assert.False(t, pattern.MatchAny(matchers, "google-telemetry"))
	assert.False(t, pattern.MatchAny(nil, "siri"))

	_, err = pattern.CompileAll([]string{"ok", "[broken"})
	assert.Error(t, err)
}
