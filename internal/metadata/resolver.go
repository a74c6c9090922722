package metadata

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/drim2p/drim2p/internal/rawio"
)

// EmbeddedDescriptorKey is the INI entry that may carry the OME-XML
// descriptor inline.
const EmbeddedDescriptorKey = "ome.xml.string"

// Filename tokens used to locate the sibling descriptor: the acquisition-mode
// token in the RAW file stem is replaced with the descriptor token and the
// extension switched to .xml.
const (
	acquisitionModeToken = "XYT"
	descriptorToken      = "OME"
	descriptorExtension  = ".xml"
)

// Bundle is the fully resolved description of one recording. It is built once
// per ingestion attempt and never mutated afterwards.
type Bundle struct {
	// Shape is (T, Y, X) or (T, Y, X, C).
	Shape []int
	// DType is the fixed-width sample type of the RAW stream.
	DType rawio.DType
	// Values holds the typed INI key/values, including any embedded
	// descriptor string.
	Values map[string]any
}

// FrameCount returns the declared frame count, preferring the "frame.count"
// INI entry and falling back to the descriptor's time axis.
func (b *Bundle) FrameCount() int {
	if v, ok := b.Values["frame.count"]; ok {
		if n, ok := v.(int64); ok && n > 0 {
			return int(n)
		}
	}
	if len(b.Shape) > 0 {
		return b.Shape[0]
	}
	return 0
}

// Resolver locates and cross-references the sidecar metadata of recordings.
// Explicit INIPath/XMLPath override the default sibling locations; Separator
// configures list splitting in INI values.
type Resolver struct {
	INIPath   string
	XMLPath   string
	Separator string
}

// Resolve produces the metadata bundle for the recording at rawPath.
//
// The dimension/type descriptor is resolved from an ordered list of sources:
// first the descriptor string embedded in the INI metadata, then the sibling
// descriptor file. The first source that yields a descriptor wins; if both
// are missing the failure names both attempted sources.
func (r Resolver) Resolve(rawPath string) (*Bundle, error) {
	separator := r.Separator
	if separator == "" {
		separator = DefaultSeparator
	}

	iniPath := r.INIPath
	if iniPath == "" {
		iniPath = replaceExtension(rawPath, ".ini")
	}
	if _, err := os.Stat(iniPath); err != nil {
		return nil, fmt.Errorf("failed to locate INI metadata for %q at %q: %w", rawPath, iniPath, err)
	}

	values, err := ParseINI(iniPath, separator)
	if err != nil {
		return nil, err
	}

	descriptor, err := r.resolveDescriptor(rawPath, values)
	if err != nil {
		return nil, err
	}

	shape, dtype, err := ParseOME(descriptor)
	if err != nil {
		return nil, err
	}

	return &Bundle{Shape: shape, DType: dtype, Values: values}, nil
}

// resolveDescriptor walks the ordered descriptor sources.
func (r Resolver) resolveDescriptor(rawPath string, values map[string]any) (string, error) {
	if v, ok := values[EmbeddedDescriptorKey]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s, nil
		}
	}

	siblingPath := r.XMLPath
	if siblingPath == "" {
		siblingPath = SiblingDescriptorPath(rawPath)
	}
	if data, err := os.ReadFile(siblingPath); err == nil {
		return string(data), nil
	}

	return "", &DescriptorNotFoundError{
		Recording:   rawPath,
		EmbeddedKey: EmbeddedDescriptorKey,
		SiblingPath: siblingPath,
	}
}

// SiblingDescriptorPath derives the descriptor file location from a RAW path:
// the XYT token in the stem becomes OME and the extension becomes .xml, so
// "mouse1_XYT_001.raw" maps to "mouse1_OME_001.xml".
func SiblingDescriptorPath(rawPath string) string {
	dir := filepath.Dir(rawPath)
	stem := strings.TrimSuffix(filepath.Base(rawPath), filepath.Ext(rawPath))
	stem = strings.Replace(stem, acquisitionModeToken, descriptorToken, 1)
	return filepath.Join(dir, stem+descriptorExtension)
}

// NotesPath derives the notes file location from a RAW path by swapping the
// extension for ".notes.txt".
func NotesPath(rawPath string) string {
	return replaceExtension(rawPath, ".notes.txt")
}

func replaceExtension(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
