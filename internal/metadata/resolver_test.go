package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drim2p/drim2p/internal/rawio"
)

const omeFixture = `<?xml version="1.0"?>
<OME xmlns="http://www.openmicroscopy.org/Schemas/OME/2016-06">
  <Image ID="Image:0">
    <Pixels ID="Pixels:0" DimensionOrder="XYZCT" Type="uint16" SizeT="8" SizeY="256" SizeX="512" SizeC="1" SizeZ="1"/>
  </Image>
</OME>`

func TestParseOME(t *testing.T) {
	shape, dtype, err := ParseOME(omeFixture)
	require.NoError(t, err)
	assert.Equal(t, []int{8, 256, 512}, shape)
	assert.Equal(t, rawio.Uint16, dtype)
}

func TestParseOMEMultiChannel(t *testing.T) {
	doc := `<OME><Image><Pixels Type="int16" SizeT="4" SizeY="16" SizeX="32" SizeC="2"/></Image></OME>`
	shape, dtype, err := ParseOME(doc)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 16, 32, 2}, shape)
	assert.Equal(t, rawio.Int16, dtype)
}

func TestParseOMEInvalid(t *testing.T) {
	_, _, err := ParseOME("not xml at all <")
	require.Error(t, err)

	_, _, err = ParseOME(`<OME><Image><Pixels Type="uint16" SizeT="0" SizeY="1" SizeX="1"/></Image></OME>`)
	require.Error(t, err)

	_, _, err = ParseOME(`<OME><Image><Pixels Type="complex" SizeT="1" SizeY="1" SizeX="1"/></Image></OME>`)
	require.Error(t, err)
}

func TestSiblingDescriptorPath(t *testing.T) {
	got := SiblingDescriptorPath(filepath.Join("data", "mouse1_XYT_001.raw"))
	assert.Equal(t, filepath.Join("data", "mouse1_OME_001.xml"), got)
}

// writeRecordingFixture lays out a RAW file plus INI metadata; the descriptor
// is either embedded in the INI or written as a sibling XML file.
func writeRecordingFixture(t *testing.T, embedDescriptor, siblingDescriptor bool) string {
	t.Helper()
	dir := t.TempDir()
	rawPath := filepath.Join(dir, "mouse1_XYT_001.raw")
	require.NoError(t, os.WriteFile(rawPath, nil, 0o644))

	ini := "[acquisition]\nframe.count = 8\n"
	if embedDescriptor {
		ini += "ome.xml.string = " + `<OME><Image><Pixels Type="uint16" SizeT="8" SizeY="256" SizeX="512"/></Image></OME>` + "\n"
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mouse1_XYT_001.ini"), []byte(ini), 0o644))

	if siblingDescriptor {
		sibling := `<OME><Image><Pixels Type="int16" SizeT="8" SizeY="128" SizeX="128"/></Image></OME>`
		require.NoError(t, os.WriteFile(filepath.Join(dir, "mouse1_OME_001.xml"), []byte(sibling), 0o644))
	}

	return rawPath
}

func TestResolveEmbeddedDescriptorWins(t *testing.T) {
	// Both sources present: the embedded string is first in the resolution
	// order, so the sibling file's differing shape must not be used.
	rawPath := writeRecordingFixture(t, true, true)

	bundle, err := Resolver{}.Resolve(rawPath)
	require.NoError(t, err)
	assert.Equal(t, []int{8, 256, 512}, bundle.Shape)
	assert.Equal(t, rawio.Uint16, bundle.DType)
	assert.Equal(t, 8, bundle.FrameCount())
}

func TestResolveSiblingDescriptorFallback(t *testing.T) {
	rawPath := writeRecordingFixture(t, false, true)

	bundle, err := Resolver{}.Resolve(rawPath)
	require.NoError(t, err)
	assert.Equal(t, []int{8, 128, 128}, bundle.Shape)
	assert.Equal(t, rawio.Int16, bundle.DType)
}

func TestResolveDescriptorMissing(t *testing.T) {
	rawPath := writeRecordingFixture(t, false, false)

	_, err := Resolver{}.Resolve(rawPath)
	var missing *DescriptorNotFoundError
	require.ErrorAs(t, err, &missing)
	assert.Contains(t, err.Error(), EmbeddedDescriptorKey)
	assert.Contains(t, err.Error(), "mouse1_OME_001.xml")
}

func TestResolveMissingINI(t *testing.T) {
	dir := t.TempDir()
	rawPath := filepath.Join(dir, "mouse1_XYT_001.raw")
	require.NoError(t, os.WriteFile(rawPath, nil, 0o644))

	_, err := Resolver{}.Resolve(rawPath)
	require.Error(t, err)
}

func TestResolveExplicitOverridePaths(t *testing.T) {
	dir := t.TempDir()
	rawPath := filepath.Join(dir, "recording.raw")
	require.NoError(t, os.WriteFile(rawPath, nil, 0o644))

	iniPath := filepath.Join(dir, "elsewhere.ini")
	require.NoError(t, os.WriteFile(iniPath, []byte("[acquisition]\na = 1\n"), 0o644))
	xmlPath := filepath.Join(dir, "elsewhere.xml")
	sibling := `<OME><Image><Pixels Type="uint16" SizeT="2" SizeY="4" SizeX="4"/></Image></OME>`
	require.NoError(t, os.WriteFile(xmlPath, []byte(sibling), 0o644))

	bundle, err := Resolver{INIPath: iniPath, XMLPath: xmlPath}.Resolve(rawPath)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4, 4}, bundle.Shape)
}
