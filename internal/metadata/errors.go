package metadata

import (
	"fmt"
	"strings"
)

// NoINISectionsFoundError reports an INI file with no named sections.
type NoINISectionsFoundError struct {
	Path string
}

func (e *NoINISectionsFoundError) Error() string {
	return fmt.Sprintf("failed to parse INI metadata: no sections found. (%s)", e.Path)
}

// TooManyINISectionsFoundError reports an INI file with more than one named
// section.
type TooManyINISectionsFoundError struct {
	Path     string
	Sections []string
}

func (e *TooManyINISectionsFoundError) Error() string {
	return fmt.Sprintf(
		"failed to parse INI metadata: too many sections found. Only a single "+
			"section (other than [DEFAULT]) is supported. Found: %s. (%s)",
		strings.Join(e.Sections, " "), e.Path,
	)
}

// SeparatorTooLongError reports a list separator longer than one character.
type SeparatorTooLongError struct {
	Separator string
}

func (e *SeparatorTooLongError) Error() string {
	return fmt.Sprintf("separator should be a single character. Found: %s.", e.Separator)
}

// DescriptorNotFoundError reports that neither descriptor source produced
// shape and sample-type information for a recording.
type DescriptorNotFoundError struct {
	Recording   string
	EmbeddedKey string
	SiblingPath string
}

func (e *DescriptorNotFoundError) Error() string {
	return fmt.Sprintf(
		"failed to resolve a shape descriptor for %q: no %q entry in the INI "+
			"metadata and no sibling descriptor file at %q",
		e.Recording, e.EmbeddedKey, e.SiblingPath,
	)
}

// NotesMatchError reports that a recording matched an unexpected number of
// notes entries. Exactly one match is required.
type NotesMatchError struct {
	Recording string
	Found     int
}

func (e *NotesMatchError) Error() string {
	return fmt.Sprintf(
		"expected exactly one notes entry matching %q, found %d",
		e.Recording, e.Found,
	)
}
