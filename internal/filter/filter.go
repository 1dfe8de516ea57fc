// Package filter implements pure predicate evaluation over typed documents.
// Distinct fields combine with AND, multiple values within a field with OR,
// and unset fields impose no constraint. Nothing in this package performs
// I/O; container membership matches on the stored reference value only.
package filter

import (
	"github.com/starford/dagaz/internal/models"
)

// TaskFilter is a transient value object expressing query criteria.
// The zero value matches every non-archived task.
type TaskFilter struct {
	Statuses []models.TaskStatus
	Project  *models.Reference
	Area     *models.Reference
	Tags     []string

	// DueOnOrBefore and DueBefore compare the date portion only, even when
	// the stored due value carries a time of day.
	DueOnOrBefore *models.DateValue
	DueBefore     *models.DateValue

	// VisibleAsOf is satisfied when defer-until is absent or not after it.
	VisibleAsOf *models.DateValue

	// IncludeArchived opts archive-directory tasks into the result. The
	// default exclusion is by location, independent of any status field.
	IncludeArchived bool
}

// WithStatus adds allowed statuses (OR semantics within the field).
func (f TaskFilter) WithStatus(statuses ...models.TaskStatus) TaskFilter {
	f.Statuses = append(f.Statuses, statuses...)
	return f
}

// WithProject constrains to tasks whose stored project reference equals ref.
func (f TaskFilter) WithProject(ref models.Reference) TaskFilter {
	f.Project = &ref
	return f
}

// WithArea constrains to tasks whose stored area reference equals ref.
func (f TaskFilter) WithArea(ref models.Reference) TaskFilter {
	f.Area = &ref
	return f
}

// WithTag adds an allowed tag (OR semantics within the field).
func (f TaskFilter) WithTag(tags ...string) TaskFilter {
	f.Tags = append(f.Tags, tags...)
	return f
}

// WithDueOnOrBefore constrains to tasks due on or before d.
func (f TaskFilter) WithDueOnOrBefore(d models.DateValue) TaskFilter {
	f.DueOnOrBefore = &d
	return f
}

// WithDueBefore constrains to tasks due strictly before d.
func (f TaskFilter) WithDueBefore(d models.DateValue) TaskFilter {
	f.DueBefore = &d
	return f
}

// WithVisibleAsOf constrains to tasks not deferred past d.
func (f TaskFilter) WithVisibleAsOf(d models.DateValue) TaskFilter {
	f.VisibleAsOf = &d
	return f
}

// WithArchived opts archived tasks into the result.
func (f TaskFilter) WithArchived() TaskFilter {
	f.IncludeArchived = true
	return f
}

// Matches reports whether t satisfies every set criterion.
func (f TaskFilter) Matches(t *models.Task) bool {
	if !f.IncludeArchived && t.Archived() {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, t.Status) {
		return false
	}
	if f.Project != nil && (t.Project == nil || !t.Project.Equal(*f.Project)) {
		return false
	}
	if f.Area != nil && (t.Area == nil || !t.Area.Equal(*f.Area)) {
		return false
	}
	if len(f.Tags) > 0 && !anyTag(f.Tags, t.Tags) {
		return false
	}
	if f.DueOnOrBefore != nil && (t.Due == nil || !t.Due.OnOrBeforeDate(*f.DueOnOrBefore)) {
		return false
	}
	if f.DueBefore != nil && (t.Due == nil || !t.Due.BeforeDate(*f.DueBefore)) {
		return false
	}
	if f.VisibleAsOf != nil && t.DeferUntil != nil && !t.DeferUntil.OnOrBeforeDate(*f.VisibleAsOf) {
		return false
	}
	return true
}

func containsStatus(set []models.TaskStatus, s models.TaskStatus) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func anyTag(want, have []string) bool {
	for _, w := range want {
		for _, h := range have {
			if w == h {
				return true
			}
		}
	}
	return false
}

// openStatuses are the states an actionable task can be in.
var openStatuses = []models.TaskStatus{models.StatusInbox, models.StatusReady, models.StatusStarted}

// Overdue matches open tasks whose due date has passed as of today.
func Overdue(today models.DateValue) TaskFilter {
	return TaskFilter{}.WithStatus(openStatuses...).WithDueBefore(today)
}

// Available matches tasks that are ready to work on and not deferred.
func Available(today models.DateValue) TaskFilter {
	return TaskFilter{}.WithStatus(models.StatusReady, models.StatusStarted).WithVisibleAsOf(today)
}

// Inbox matches unprocessed tasks.
func Inbox() TaskFilter {
	return TaskFilter{}.WithStatus(models.StatusInbox)
}

// DueBy matches open tasks due on or before d.
func DueBy(d models.DateValue) TaskFilter {
	return TaskFilter{}.WithStatus(openStatuses...).WithDueOnOrBefore(d)
}
