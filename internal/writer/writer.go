// Package writer serialises typed documents back to raw text. Output is
// deterministic: required fields first in a fixed variant order, optional
// fields next, extra fields sorted by name, then the body verbatim.
package writer

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/models"
)

// WriteTask renders a task document. The project reference is always emitted
// as a one-element list under the multi-valued field name.
func WriteTask(t *models.Task) ([]byte, error) {
	var b strings.Builder
	b.WriteString("---\n")
	writeScalar(&b, "title", t.Title)
	writeScalar(&b, "status", string(t.Status))
	writeScalar(&b, "created-at", t.CreatedAt.String())
	writeScalar(&b, "updated-at", t.UpdatedAt.String())
	writeOptDate(&b, "due", t.Due)
	writeOptDate(&b, "defer-until", t.DeferUntil)
	writeOptDate(&b, "completed-at", t.CompletedAt)
	if t.Project != nil {
		b.WriteString("projects:\n  - ")
		b.WriteString(scalar(t.Project.String()))
		b.WriteString("\n")
	}
	if t.Area != nil {
		writeScalar(&b, "area", t.Area.String())
	}
	if len(t.Tags) > 0 {
		b.WriteString("tags:\n")
		for _, tag := range t.Tags {
			b.WriteString("  - ")
			b.WriteString(scalar(tag))
			b.WriteString("\n")
		}
	}
	if t.TypeTag != "" {
		writeScalar(&b, "type", t.TypeTag)
	}
	if err := writeExtras(&b, t.Extra); err != nil {
		return nil, err
	}
	b.WriteString("---\n")
	b.WriteString(t.Body)
	return []byte(b.String()), nil
}

// WriteProject renders a project document.
func WriteProject(p *models.Project) ([]byte, error) {
	var b strings.Builder
	b.WriteString("---\n")
	writeScalar(&b, "title", p.Title)
	writeScalar(&b, "created-at", p.CreatedAt.String())
	writeScalar(&b, "updated-at", p.UpdatedAt.String())
	writeOptDate(&b, "due", p.Due)
	if p.Area != nil {
		writeScalar(&b, "area", p.Area.String())
	}
	if p.TypeTag != "" {
		writeScalar(&b, "type", p.TypeTag)
	}
	if err := writeExtras(&b, p.Extra); err != nil {
		return nil, err
	}
	b.WriteString("---\n")
	b.WriteString(p.Body)
	return []byte(b.String()), nil
}

// WriteArea renders an area document.
func WriteArea(a *models.Area) ([]byte, error) {
	var b strings.Builder
	b.WriteString("---\n")
	writeScalar(&b, "title", a.Title)
	writeScalar(&b, "created-at", a.CreatedAt.String())
	writeScalar(&b, "updated-at", a.UpdatedAt.String())
	if a.TypeTag != "" {
		writeScalar(&b, "type", a.TypeTag)
	}
	if err := writeExtras(&b, a.Extra); err != nil {
		return nil, err
	}
	b.WriteString("---\n")
	b.WriteString(a.Body)
	return []byte(b.String()), nil
}

func writeScalar(b *strings.Builder, name, value string) {
	b.WriteString(name)
	b.WriteString(": ")
	b.WriteString(scalar(value))
	b.WriteString("\n")
}

func writeOptDate(b *strings.Builder, name string, v *models.DateValue) {
	if v != nil {
		writeScalar(b, name, v.String())
	}
}

// writeExtras emits the unrecognised fields sorted by name. Values go
// through the yaml encoder so list and mapping extras stay real YAML.
func writeExtras(b *strings.Builder, extra models.Extra) error {
	for _, key := range extra.SortedKeys() {
		var buf strings.Builder
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(map[string]any{key: extra[key]}); err != nil {
			return fmt.Errorf("%w: extra field %s: %v", apperr.ErrWriteFailure, key, err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("%w: extra field %s: %v", apperr.ErrWriteFailure, key, err)
		}
		b.WriteString(buf.String())
	}
	return nil
}

// yamlReserved are bare spellings that yaml would resolve to non-strings.
var yamlReserved = map[string]struct{}{
	"true": {}, "false": {}, "yes": {}, "no": {}, "on": {}, "off": {},
	"null": {}, "~": {},
}

// scalar emits s bare when safe, otherwise double-quoted with escapes.
func scalar(s string) string {
	if needsQuote(s) {
		return quote(s)
	}
	return s
}

func needsQuote(s string) bool {
	if s == "" {
		return true
	}
	if strings.TrimSpace(s) != s {
		return true
	}
	if _, ok := yamlReserved[strings.ToLower(s)]; ok {
		return true
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return true
	}
	if strings.ContainsAny(s, ":#\"'[]{}\n\t") {
		return true
	}
	// Leading indicator characters start flow collections, anchors, etc.
	switch s[0] {
	case '-', '?', '&', '*', '!', '|', '>', '%', '@', '`', ',':
		return true
	}
	return false
}

func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
