// Package status translates between board column labels and the enum
// values the remote API stores, with a persisted table of user
// corrections layered over the configured defaults.
package status

import (
	"fmt"
	"sort"
	"sync"
)

// Persister loads and saves the override table.
type Persister interface {
	LoadOverrides() (map[string]string, error)
	SaveOverrides(map[string]string) error
}

// Mapper is safe for concurrent use.
type Mapper struct {
	labels    []string          // column order
	defaults  map[string]string // label -> backend
	inverse   map[string]string // backend -> label
	persister Persister

	mu        sync.RWMutex
	overrides map[string]string
}

// New builds a mapper from the default table (labels in column order)
// and loads the persisted overrides once. p may be nil, in which case
// overrides live only in memory.
func New(labels []string, defaults map[string]string, p Persister) (*Mapper, error) {
	m := &Mapper{
		labels:    append([]string(nil), labels...),
		defaults:  make(map[string]string, len(defaults)),
		inverse:   make(map[string]string, len(defaults)),
		persister: p,
		overrides: map[string]string{},
	}
	for ui, backend := range defaults {
		m.defaults[ui] = backend
		m.inverse[backend] = ui
	}
	if p != nil {
		o, err := p.LoadOverrides()
		if err != nil {
			return nil, fmt.Errorf("load status overrides: %w", err)
		}
		for k, v := range o {
			m.overrides[k] = v
		}
	}
	return m, nil
}

// Labels returns the column labels in order.
func (m *Mapper) Labels() []string {
	return append([]string(nil), m.labels...)
}

// IsLabel reports whether s is one of the column labels.
func (m *Mapper) IsLabel(s string) bool {
	for _, l := range m.labels {
		if l == s {
			return true
		}
	}
	return false
}

// ToBackend maps a column label to the value sent to the API.
func (m *Mapper) ToBackend(ui string) string {
	if ui == "" {
		return ui
	}
	m.mu.RLock()
	v, ok := m.overrides[ui]
	m.mu.RUnlock()
	if ok && v != "" {
		return v
	}
	if v, ok := m.defaults[ui]; ok {
		return v
	}
	return ui
}

// ToUI maps a backend status to a column label. Unknown values come
// back unchanged so callers can still show the raw token.
func (m *Mapper) ToUI(backend string) string {
	if backend == "" {
		return backend
	}
	m.mu.RLock()
	for _, k := range m.overrideKeys() {
		if m.overrides[k] == backend {
			m.mu.RUnlock()
			return k
		}
	}
	m.mu.RUnlock()
	if ui, ok := m.inverse[backend]; ok {
		return ui
	}
	return backend
}

// overrideKeys lists override keys with column labels first, then the
// rest sorted. Caller holds mu.
func (m *Mapper) overrideKeys() []string {
	keys := make([]string, 0, len(m.overrides))
	seen := map[string]bool{}
	for _, l := range m.labels {
		if _, ok := m.overrides[l]; ok {
			keys = append(keys, l)
			seen[l] = true
		}
	}
	var rest []string
	for k := range m.overrides {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// RecordOverride merges ui -> backend into the persisted table. The
// persisted copy is re-read first so entries written elsewhere survive.
func (m *Mapper) RecordOverride(ui, backend string) error {
	if ui == "" || backend == "" {
		return fmt.Errorf("override needs both a label and a backend value")
	}
	return m.update(func(table map[string]string) { table[ui] = backend })
}

// ClearOverride drops the override for ui, if any.
func (m *Mapper) ClearOverride(ui string) error {
	return m.update(func(table map[string]string) { delete(table, ui) })
}

func (m *Mapper) update(fn func(map[string]string)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	table := map[string]string{}
	if m.persister != nil {
		stored, err := m.persister.LoadOverrides()
		if err != nil {
			return fmt.Errorf("load status overrides: %w", err)
		}
		for k, v := range stored {
			table[k] = v
		}
	} else {
		for k, v := range m.overrides {
			table[k] = v
		}
	}
	fn(table)

	if m.persister != nil {
		if err := m.persister.SaveOverrides(table); err != nil {
			return fmt.Errorf("save status overrides: %w", err)
		}
	}
	m.overrides = table
	return nil
}

// Overrides returns a copy of the current override table.
func (m *Mapper) Overrides() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.overrides))
	for k, v := range m.overrides {
		out[k] = v
	}
	return out
}
