package board

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/imkarma/tablero/internal/status"
	"github.com/imkarma/tablero/internal/taskid"
)

const untitled = "(sin título)"

// Card is one rendered task.
type Card struct {
	ID          string
	Title       string
	Description string
	Label       string // UI status, the column it sits in
	Backend     string // status as the API returned it
}

// Board is an immutable snapshot of the rendered columns. Operations
// that change it build a new snapshot.
type Board struct {
	Labels   []string
	Columns  [][]Card
	Unplaced []Card // tasks whose status maps to no column
	LoadedAt time.Time
}

// Len returns the number of cards in columns.
func (b *Board) Len() int {
	n := 0
	for _, col := range b.Columns {
		n += len(col)
	}
	return n
}

// Column returns the cards under label.
func (b *Board) Column(label string) []Card {
	for i, l := range b.Labels {
		if l == label {
			return b.Columns[i]
		}
	}
	return nil
}

// Find locates a card by id.
func (b *Board) Find(id string) (Card, bool) {
	for _, col := range b.Columns {
		for _, c := range col {
			if c.ID == id {
				return c, true
			}
		}
	}
	for _, c := range b.Unplaced {
		if c.ID == id {
			return c, true
		}
	}
	return Card{}, false
}

// without returns a copy of b with the card removed.
func (b *Board) without(id string) *Board {
	out := &Board{
		Labels:   b.Labels,
		Columns:  make([][]Card, len(b.Columns)),
		LoadedAt: b.LoadedAt,
	}
	for i, col := range b.Columns {
		for _, c := range col {
			if c.ID != id {
				out.Columns[i] = append(out.Columns[i], c)
			}
		}
	}
	for _, c := range b.Unplaced {
		if c.ID != id {
			out.Unplaced = append(out.Unplaced, c)
		}
	}
	return out
}

// decodeTaskList accepts a bare list, {"data": [...]} or {"tasks": [...]};
// the first shape that matches wins. Anything else is an empty list.
func decodeTaskList(body []byte) ([]map[string]any, error) {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}

	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case map[string]any:
		if list, ok := v["data"].([]any); ok {
			items = list
		} else if list, ok := v["tasks"].([]any); ok {
			items = list
		}
	}

	tasks := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			tasks = append(tasks, m)
		}
	}
	return tasks, nil
}

// render places tasks into columns using the mapper.
func render(tasks []map[string]any, m *status.Mapper, now time.Time) *Board {
	labels := m.Labels()
	b := &Board{
		Labels:   labels,
		Columns:  make([][]Card, len(labels)),
		LoadedAt: now,
	}
	index := make(map[string]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}

	for _, t := range tasks {
		backend := stringField(t, "status")
		c := Card{
			ID:          taskid.FromFields(t),
			Title:       stringField(t, "title"),
			Description: stringField(t, "description"),
			Label:       m.ToUI(backend),
			Backend:     backend,
		}
		if c.Title == "" {
			c.Title = untitled
		}
		if i, ok := index[c.Label]; ok {
			b.Columns[i] = append(b.Columns[i], c)
		} else {
			b.Unplaced = append(b.Unplaced, c)
		}
	}
	return b
}

func stringField(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
