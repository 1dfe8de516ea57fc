package models

import (
	"path"
	"strings"
)

// RefShape identifies the textual shape a reference was written in.
type RefShape int

const (
	// RefLink is a bracketed link: [[target]] or [[target|display]].
	RefLink RefShape = iota
	// RefPath is a relative path: ./x/y.md or ../x/y.md.
	RefPath
	// RefFile is a bare filename: y.md.
	RefFile
)

// Reference is a polymorphic pointer to another document. The shape found in
// the source text is preserved; re-serialising reproduces it byte-exactly.
type Reference struct {
	shape   RefShape
	target  string
	display string
}

// ParseReference classifies s into one of the three reference shapes.
func ParseReference(s string) Reference {
	if strings.HasPrefix(s, "[[") && strings.HasSuffix(s, "]]") {
		inner := s[2 : len(s)-2]
		target, display := inner, ""
		if i := strings.Index(inner, "|"); i >= 0 {
			target, display = inner[:i], inner[i+1:]
		}
		return Reference{shape: RefLink, target: target, display: display}
	}
	if strings.HasPrefix(s, "./") || strings.HasPrefix(s, "../") {
		return Reference{shape: RefPath, target: s}
	}
	return Reference{shape: RefFile, target: s}
}

// LinkTo builds a bracketed-link reference programmatically.
func LinkTo(target, display string) Reference {
	return Reference{shape: RefLink, target: target, display: display}
}

// Shape returns the reference's textual shape.
func (r Reference) Shape() RefShape { return r.shape }

// Target returns the link target, or the raw path/filename text.
func (r Reference) Target() string { return r.target }

// Display returns the link display text (empty for non-links).
func (r Reference) Display() string { return r.display }

// IsZero reports whether the reference is unset.
func (r Reference) IsZero() bool { return r.target == "" && r.display == "" }

// String reproduces the original textual shape.
func (r Reference) String() string {
	if r.shape == RefLink {
		if r.display != "" {
			return "[[" + r.target + "|" + r.display + "]]"
		}
		return "[[" + r.target + "]]"
	}
	return r.target
}

// DisplayName returns, in priority order: the link display text, the link
// target, or the path/filename with a trailing .md extension stripped.
func (r Reference) DisplayName() string {
	if r.shape == RefLink {
		if r.display != "" {
			return r.display
		}
		return r.target
	}
	return strings.TrimSuffix(r.target, ".md")
}

// Filename returns the last path element of the reference text. For links
// this is the target plus the document extension.
func (r Reference) Filename() string {
	if r.shape == RefLink {
		return r.target + ".md"
	}
	return path.Base(r.target)
}

// Equal compares by shape-specific semantics: all stored fields must match.
func (r Reference) Equal(o Reference) bool { return r == o }
