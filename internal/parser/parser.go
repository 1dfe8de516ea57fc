// Package parser turns raw document text into typed task, project, and area
// documents. Every metadata field the typed model does not recognise is kept
// verbatim in the document's extra bag; parsing only fails on malformed
// syntax or on a required/typed field going wrong.
package parser

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/dagaz/internal/apperr"
	"github.com/starford/dagaz/internal/models"
)

const delim = "---"

// splitContent separates the metadata block (between --- delimiter lines)
// from the body. The body is preserved byte-for-byte; a document without a
// metadata block is a parse failure.
func splitContent(data []byte) (meta, body string, err error) {
	lines := strings.Split(string(data), "\n")
	if len(lines) == 0 || strings.TrimRight(lines[0], "\r") != delim {
		return "", "", fmt.Errorf("%w: no metadata block", apperr.ErrParse)
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimRight(lines[i], "\r") == delim {
			return strings.Join(lines[1:i], "\n"), strings.Join(lines[i+1:], "\n"), nil
		}
	}
	return "", "", fmt.Errorf("%w: unterminated metadata block", apperr.ErrParse)
}

// fieldMap holds the decoded metadata mapping. Values stay as yaml nodes so
// typed extraction sees the raw scalar spelling, not yaml's resolved types.
type fieldMap map[string]*yaml.Node

func decodeFields(meta string) (fieldMap, error) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(meta), &root); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrParse, err)
	}
	fields := make(fieldMap)
	if len(root.Content) == 0 {
		return fields, nil
	}
	mapping := root.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: metadata block is not a mapping", apperr.ErrParse)
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		fields[mapping.Content[i].Value] = mapping.Content[i+1]
	}
	return fields, nil
}

// take removes and returns the node for name, so that whatever remains in
// the map afterwards is by definition an extra field.
func (f fieldMap) take(name string) (*yaml.Node, bool) {
	n, ok := f[name]
	if ok {
		delete(f, name)
	}
	return n, ok
}

func (f fieldMap) takeScalar(name string) (string, bool, error) {
	n, ok := f.take(name)
	if !ok {
		return "", false, nil
	}
	if n.Kind != yaml.ScalarNode {
		return "", false, fmt.Errorf("%w: %s: expected a scalar value", apperr.ErrInvalidField, name)
	}
	if n.Tag == "!!null" {
		return "", false, nil
	}
	return n.Value, true, nil
}

func (f fieldMap) requireScalar(name string) (string, error) {
	s, ok, err := f.takeScalar(name)
	if err != nil {
		return "", err
	}
	if !ok || s == "" {
		return "", fmt.Errorf("%w: %s", apperr.ErrMissingField, name)
	}
	return s, nil
}

func (f fieldMap) takeDate(name string) (*models.DateValue, error) {
	s, ok, err := f.takeScalar(name)
	if err != nil || !ok {
		return nil, err
	}
	v, err := models.ParseDateValue(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperr.ErrInvalidField, name, err)
	}
	return &v, nil
}

func (f fieldMap) requireDate(name string) (models.DateValue, error) {
	s, err := f.requireScalar(name)
	if err != nil {
		return models.DateValue{}, err
	}
	v, err := models.ParseDateValue(s)
	if err != nil {
		return models.DateValue{}, fmt.Errorf("%w: %s: %v", apperr.ErrInvalidField, name, err)
	}
	return v, nil
}

func (f fieldMap) takeReference(name string) (*models.Reference, error) {
	s, ok, err := f.takeScalar(name)
	if err != nil || !ok {
		return nil, err
	}
	r := models.ParseReference(s)
	return &r, nil
}

func (f fieldMap) takeStringList(name string) ([]string, error) {
	n, ok := f.take(name)
	if !ok {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%w: %s: expected a list", apperr.ErrInvalidField, name)
	}
	out := make([]string, 0, len(n.Content))
	for _, item := range n.Content {
		if item.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: %s: expected a list of scalars", apperr.ErrInvalidField, name)
		}
		out = append(out, item.Value)
	}
	return out, nil
}

// extras decodes every remaining field into the untyped extra bag.
func (f fieldMap) extras() (models.Extra, error) {
	extra := make(models.Extra, len(f))
	for name, n := range f {
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("%w: field %s: %v", apperr.ErrParse, name, err)
		}
		extra[name] = v
	}
	return extra, nil
}

// ParseTask parses raw bytes into a task. path becomes the task's identity
// and is never read from the text itself.
func ParseTask(path string, data []byte) (*models.Task, error) {
	meta, body, err := splitContent(data)
	if err != nil {
		return nil, err
	}
	fields, err := decodeFields(meta)
	if err != nil {
		return nil, err
	}

	t := &models.Task{Path: path, Body: body}

	if t.Title, err = fields.requireScalar("title"); err != nil {
		return nil, err
	}
	rawStatus, err := fields.requireScalar("status")
	if err != nil {
		return nil, err
	}
	if t.Status, err = models.ParseTaskStatus(rawStatus); err != nil {
		return nil, fmt.Errorf("%w: status: %v", apperr.ErrInvalidField, err)
	}
	if t.CreatedAt, err = fields.requireDate("created-at"); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = fields.requireDate("updated-at"); err != nil {
		return nil, err
	}

	if t.Due, err = fields.takeDate("due"); err != nil {
		return nil, err
	}
	if t.DeferUntil, err = fields.takeDate("defer-until"); err != nil {
		return nil, err
	}
	if t.CompletedAt, err = fields.takeDate("completed-at"); err != nil {
		return nil, err
	}

	// Backward-compatible project shim: the multi-valued projects field wins
	// when present (first entry only, original count retained for validation);
	// the legacy single-valued field is consulted only when projects is absent.
	if _, ok := fields["projects"]; ok {
		entries, err := fields.takeStringList("projects")
		if err != nil {
			return nil, err
		}
		t.ProjectCount = len(entries)
		if len(entries) > 0 {
			ref := models.ParseReference(entries[0])
			t.Project = &ref
		}
		delete(fields, "project")
	} else if t.Project, err = fields.takeReference("project"); err != nil {
		return nil, err
	} else if t.Project != nil {
		t.ProjectCount = 1
	}

	if t.Area, err = fields.takeReference("area"); err != nil {
		return nil, err
	}
	if t.Tags, err = fields.takeStringList("tags"); err != nil {
		return nil, err
	}
	if t.TypeTag, _, err = fields.takeScalar("type"); err != nil {
		return nil, err
	}

	if t.Extra, err = fields.extras(); err != nil {
		return nil, err
	}
	return t, nil
}

// ParseProject parses raw bytes into a project document.
func ParseProject(path string, data []byte) (*models.Project, error) {
	meta, body, err := splitContent(data)
	if err != nil {
		return nil, err
	}
	fields, err := decodeFields(meta)
	if err != nil {
		return nil, err
	}

	p := &models.Project{Path: path, Body: body}

	if p.Title, err = fields.requireScalar("title"); err != nil {
		return nil, err
	}
	if p.CreatedAt, err = fields.requireDate("created-at"); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = fields.requireDate("updated-at"); err != nil {
		return nil, err
	}
	if p.Due, err = fields.takeDate("due"); err != nil {
		return nil, err
	}
	if p.Area, err = fields.takeReference("area"); err != nil {
		return nil, err
	}
	if p.TypeTag, _, err = fields.takeScalar("type"); err != nil {
		return nil, err
	}
	if p.Extra, err = fields.extras(); err != nil {
		return nil, err
	}
	return p, nil
}

// ParseArea parses raw bytes into an area document.
func ParseArea(path string, data []byte) (*models.Area, error) {
	meta, body, err := splitContent(data)
	if err != nil {
		return nil, err
	}
	fields, err := decodeFields(meta)
	if err != nil {
		return nil, err
	}

	a := &models.Area{Path: path, Body: body}

	if a.Title, err = fields.requireScalar("title"); err != nil {
		return nil, err
	}
	if a.CreatedAt, err = fields.requireDate("created-at"); err != nil {
		return nil, err
	}
	if a.UpdatedAt, err = fields.requireDate("updated-at"); err != nil {
		return nil, err
	}
	if a.TypeTag, _, err = fields.takeScalar("type"); err != nil {
		return nil, err
	}
	if a.Extra, err = fields.extras(); err != nil {
		return nil, err
	}
	return a, nil
}
