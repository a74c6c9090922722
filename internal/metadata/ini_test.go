package metadata

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeINI(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session_XYT_001.ini")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestParseINITypedValues(t *testing.T) {
	path := writeINI(t, `
[DEFAULT]
vendor = capture-tool
frame.count = 4

[acquisition]
frame.count = 512
exposure.ms = 33.3
bidirectional = true
channels = red;green
label = plain text
`)

	values, err := ParseINI(path, ";")
	require.NoError(t, err)

	assert.Equal(t, int64(512), values["frame.count"], "section value overrides DEFAULT")
	assert.Equal(t, 33.3, values["exposure.ms"])
	assert.Equal(t, true, values["bidirectional"])
	assert.Equal(t, "capture-tool", values["vendor"])
	assert.Equal(t, "plain text", values["label"])
	assert.Equal(t, []any{"red", "green"}, values["channels"])
}

func TestParseININoSections(t *testing.T) {
	path := writeINI(t, "key = value\n")

	_, err := ParseINI(path, ";")
	var noSections *NoINISectionsFoundError
	require.ErrorAs(t, err, &noSections)
	assert.Equal(t, path, noSections.Path)
}

func TestParseINIDefaultOnlyFails(t *testing.T) {
	path := writeINI(t, "[DEFAULT]\nkey = value\n")

	_, err := ParseINI(path, ";")
	var noSections *NoINISectionsFoundError
	require.ErrorAs(t, err, &noSections)
}

func TestParseINITooManySections(t *testing.T) {
	path := writeINI(t, "[one]\na = 1\n[two]\nb = 2\n")

	_, err := ParseINI(path, ";")
	var tooMany *TooManyINISectionsFoundError
	require.ErrorAs(t, err, &tooMany)
	assert.Equal(t, []string{"one", "two"}, tooMany.Sections)
	assert.Contains(t, err.Error(), "one two")
}

func TestParseINISeparatorTooLong(t *testing.T) {
	path := writeINI(t, "[acquisition]\na = 1\n")

	_, err := ParseINI(path, ";;")
	var tooLong *SeparatorTooLongError
	require.ErrorAs(t, err, &tooLong)
}

func TestSplitEscaped(t *testing.T) {
	cases := []struct {
		input     string
		separator string
		want      []string
	}{
		{"foo;bar", ";", []string{"foo", "bar"}},
		{`foo;b\;ar`, ";", []string{"foo", `b\;ar`}},
		{`foo bar foo\ bar`, " ", []string{"foo", "bar", `foo\ bar`}},
		{"single", ";", []string{"single"}},
		{"", ";", []string{""}},
	}
	for _, tc := range cases {
		got, err := SplitEscaped(tc.input, tc.separator)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "splitting %q on %q", tc.input, tc.separator)
	}
}

func TestSplitEscapedSeparatorLength(t *testing.T) {
	_, err := SplitEscaped("a;b", ";;")
	var tooLong *SeparatorTooLongError
	require.True(t, errors.As(err, &tooLong))
	assert.True(t, strings.Contains(err.Error(), ";;"))

	_, err = SplitEscaped("a;b", "")
	require.Error(t, err)
}
