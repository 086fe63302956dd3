// Package filter holds the conjunctive predicates behind the activity log and
// roster searches. An empty field never constrains the result.
package filter

import (
	"strings"

	"golang.org/x/text/cases"

	"gatelog/internal/model"
)

// TypeAll disables the record type constraint.
const TypeAll = "all"

// Criteria is the search shared by entries and people.
type Criteria struct {
	Search   string `form:"search" json:"search,omitempty"`
	Course   string `form:"course" json:"course,omitempty"`
	Branch   string `form:"branch" json:"branch,omitempty"`
	Semester string `form:"semester" json:"semester,omitempty"`
}

// IsZero reports whether no constraint is set.
func (c Criteria) IsZero() bool {
	return strings.TrimSpace(c.Search) == "" && c.Course == "" && c.Branch == "" && c.Semester == ""
}

// EntryQuery adds the record type to Criteria.
type EntryQuery struct {
	Criteria
	Type string `form:"type" json:"type,omitempty"`
}

// IsZero reports whether no constraint is set.
func (q EntryQuery) IsZero() bool {
	return q.Criteria.IsZero() && (q.Type == "" || q.Type == TypeAll)
}

func (c Criteria) matchesFacets(course, branch, semester string) bool {
	return (c.Course == "" || course == c.Course) &&
		(c.Branch == "" || branch == c.Branch) &&
		(c.Semester == "" || semester == c.Semester)
}

// Entries returns the entries matching q, keeping their order.
func Entries(entries []model.Entry, q EntryQuery) []model.Entry {
	if q.IsZero() {
		return entries
	}
	fold := cases.Fold()
	term := fold.String(strings.TrimSpace(q.Search))

	out := make([]model.Entry, 0, len(entries))
	for _, e := range entries {
		if term != "" &&
			!strings.Contains(fold.String(e.PersonName), term) &&
			!strings.Contains(fold.String(e.EnrollmentNo), term) {
			continue
		}
		if !q.matchesFacets(e.Course, e.Branch, e.Semester) {
			continue
		}
		if q.Type != "" && q.Type != TypeAll && string(e.Type) != q.Type {
			continue
		}
		out = append(out, e)
	}
	return out
}

// People returns the people matching c, keeping their order. The search also
// looks at the email address.
func People(people []model.Person, c Criteria) []model.Person {
	if c.IsZero() {
		return people
	}
	fold := cases.Fold()
	term := fold.String(strings.TrimSpace(c.Search))

	out := make([]model.Person, 0, len(people))
	for _, p := range people {
		if term != "" &&
			!strings.Contains(fold.String(p.Name), term) &&
			!strings.Contains(fold.String(p.EnrollmentNo), term) &&
			!strings.Contains(fold.String(p.Email), term) {
			continue
		}
		if !c.matchesFacets(p.Course, p.Branch, p.Semester) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Options are the distinct facet values present in a list.
type Options struct {
	Courses   []string `json:"courses"`
	Branches  []string `json:"branches"`
	Semesters []string `json:"semesters"`
}

// EntryOptions collects facet values from entries in first-seen order.
func EntryOptions(entries []model.Entry) Options {
	var c, b, s distinct
	for _, e := range entries {
		c.add(e.Course)
		b.add(e.Branch)
		s.add(e.Semester)
	}
	return Options{Courses: c.list(), Branches: b.list(), Semesters: s.list()}
}

// PersonOptions collects facet values from people in first-seen order.
func PersonOptions(people []model.Person) Options {
	var c, b, s distinct
	for _, p := range people {
		c.add(p.Course)
		b.add(p.Branch)
		s.add(p.Semester)
	}
	return Options{Courses: c.list(), Branches: b.list(), Semesters: s.list()}
}

type distinct struct {
	seen map[string]struct{}
	vals []string
}

func (d *distinct) add(v string) {
	if v == "" {
		return
	}
	if d.seen == nil {
		d.seen = make(map[string]struct{})
	}
	if _, ok := d.seen[v]; ok {
		return
	}
	d.seen[v] = struct{}{}
	d.vals = append(d.vals, v)
}

func (d *distinct) list() []string {
	if d.vals == nil {
		return []string{}
	}
	return d.vals
}
