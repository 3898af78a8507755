// pkg/inject/types.go
package inject

import (
	"path/filepath"

	"github.com/arc-language/zule/pkg/payload"
)

// Target is the bundle being patched
type Target struct {
	Root       string // .app directory
	Executable string // Main executable inside Root
}

// Requirement records that a payload needs a support library at runtime
type Requirement struct {
	Payload string
	Library payload.SupportLibrary
}

// RequirementSet aggregates requirements across payloads, keeping the first
// occurrence order of each library
type RequirementSet struct {
	libs  []payload.SupportLibrary
	index map[string]int
	reqs  []Requirement
}

// NewRequirementSet creates an empty set
func NewRequirementSet() *RequirementSet {
	return &RequirementSet{index: make(map[string]int)}
}

// Add records r
func (s *RequirementSet) Add(r Requirement) {
	s.reqs = append(s.reqs, r)
	if _, ok := s.index[r.Library.Key]; ok {
		return
	}
	s.index[r.Library.Key] = len(s.libs)
	s.libs = append(s.libs, r.Library)
}

// Has reports whether the library with key is required
func (s *RequirementSet) Has(key string) bool {
	_, ok := s.index[key]
	return ok
}

// Libraries returns each distinct required library once
func (s *RequirementSet) Libraries() []payload.SupportLibrary {
	return append([]payload.SupportLibrary(nil), s.libs...)
}

// Requirements returns every recorded requirement
func (s *RequirementSet) Requirements() []Requirement {
	return append([]Requirement(nil), s.reqs...)
}

// Len returns the number of distinct required libraries
func (s *RequirementSet) Len() int {
	return len(s.libs)
}

// PlanItem is one payload's final placement
type PlanItem struct {
	Name      string
	Kind      payload.Kind
	Source    string // Staged copy
	Binary    string // Executable to rewrite and register; empty for copy-only kinds
	Dest      string // Final location inside the bundle
	Reference string // Runtime reference registered on the main executable; empty for copy-only kinds
}

// Registered reports whether the item becomes a load dependency of the main executable
func (i PlanItem) Registered() bool {
	return i.Reference != ""
}

// Plan is the ordered set of placements plus the required support
// libraries. Names are unique.
type Plan struct {
	Items    []PlanItem
	Required *RequirementSet
	names    map[string]bool
}

// NewPlan creates an empty plan
func NewPlan() *Plan {
	return &Plan{Required: NewRequirementSet(), names: make(map[string]bool)}
}

// Add appends item unless an item with the same name is already planned
func (p *Plan) Add(item PlanItem) bool {
	if p.names[item.Name] {
		return false
	}
	p.names[item.Name] = true
	p.Items = append(p.Items, item)
	return true
}

// Status describes what happened to one item or library
type Status string

const (
	StatusInjected     Status = "injected"
	StatusReplaced     Status = "replaced"
	StatusCopied       Status = "copied"
	StatusSkipped      Status = "skipped"
	StatusExisting     Status = "existing"
	StatusAutoInjected Status = "auto-injected"
)

// Outcome is the result for one placement or support library
type Outcome struct {
	Name   string
	Dest   string
	Status Status
}

// Report summarizes a finished run
type Report struct {
	Plan      *Plan
	Harvests  []*Harvest
	Libraries []Outcome // Support-library resolution, in resolution order
	Payloads  []Outcome // Injector results, in injection order
}

// injectRoot returns the absolute injection root of t for dir
func (t Target) injectRoot(dir string) string {
	return filepath.Join(t.Root, dir)
}
