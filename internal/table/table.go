// Package table holds the in-memory string tables that flow between collectors,
// the consolidation pipeline and the CSV writer.
package table

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
)

var ErrMissingColumn = errors.New("missing column")

type Table struct {
	Columns []string
	Rows    [][]string
	index   map[string]int
}

func New(columns ...string) *Table {
	t := &Table{Columns: append([]string(nil), columns...)}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		if _, exists := t.index[c]; !exists {
			t.index[c] = i
		}
	}
}

// Index returns the position of the first column with the given name, or -1.
func (t *Table) Index(name string) int {
	if t.index == nil {
		t.reindex()
	}
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

func (t *Table) Has(name string) bool {
	return t.Index(name) >= 0
}

func (t *Table) Len() int {
	return len(t.Rows)
}

// Append adds a row, padding or truncating it to the column count.
func (t *Table) Append(values ...string) {
	row := make([]string, len(t.Columns))
	copy(row, values)
	t.Rows = append(t.Rows, row)
}

// AppendMap adds a row keyed by column name; unknown keys are ignored.
func (t *Table) AppendMap(values map[string]string) {
	row := make([]string, len(t.Columns))
	for k, v := range values {
		if i := t.Index(k); i >= 0 {
			row[i] = v
		}
	}
	t.Rows = append(t.Rows, row)
}

func (t *Table) Cell(row []string, name string) string {
	i := t.Index(name)
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// RowMap returns the row keyed by column name. Duplicate names keep the first value.
func (t *Table) RowMap(row []string) map[string]string {
	out := make(map[string]string, len(t.Columns))
	for i, c := range t.Columns {
		if _, exists := out[c]; exists {
			continue
		}
		if i < len(row) {
			out[c] = row[i]
		} else {
			out[c] = ""
		}
	}
	return out
}

func (t *Table) Select(columns ...string) (*Table, error) {
	idx := make([]int, len(columns))
	for i, c := range columns {
		idx[i] = t.Index(c)
		if idx[i] < 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, c)
		}
	}
	out := New(columns...)
	out.Rows = make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		sel := make([]string, len(idx))
		for i, j := range idx {
			sel[i] = row[j]
		}
		out.Rows = append(out.Rows, sel)
	}
	return out, nil
}

func (t *Table) Rename(mapping map[string]string) {
	for i, c := range t.Columns {
		if to, ok := mapping[c]; ok {
			t.Columns[i] = to
		}
	}
	t.reindex()
}

func (t *Table) Drop(columns ...string) {
	drop := map[int]struct{}{}
	for _, c := range columns {
		for i, name := range t.Columns {
			if name == c {
				drop[i] = struct{}{}
			}
		}
	}
	if len(drop) == 0 {
		return
	}
	keep := make([]int, 0, len(t.Columns)-len(drop))
	for i := range t.Columns {
		if _, ok := drop[i]; !ok {
			keep = append(keep, i)
		}
	}
	cols := make([]string, len(keep))
	for i, j := range keep {
		cols[i] = t.Columns[j]
	}
	for r, row := range t.Rows {
		next := make([]string, len(keep))
		for i, j := range keep {
			if j < len(row) {
				next[i] = row[j]
			}
		}
		t.Rows[r] = next
	}
	t.Columns = cols
	t.reindex()
}

// HasUniqueColumns reports whether every header name occurs once.
func (t *Table) HasUniqueColumns() bool {
	seen := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		if _, ok := seen[c]; ok {
			return false
		}
		seen[c] = struct{}{}
	}
	return true
}

// UniqueColumns renames every repeated header to "<name>_<position>" so no
// column is lost when rows are later addressed by name. It returns the renamed headers.
func (t *Table) UniqueColumns() []string {
	seen := make(map[string]struct{}, len(t.Columns))
	var renamed []string
	for i, c := range t.Columns {
		if _, ok := seen[c]; ok {
			next := c + "_" + strconv.Itoa(i)
			renamed = append(renamed, next)
			t.Columns[i] = next
			seen[next] = struct{}{}
			continue
		}
		seen[c] = struct{}{}
	}
	if len(renamed) > 0 {
		t.reindex()
	}
	return renamed
}

// DropDuplicates removes rows equal in every column, keeping the first occurrence.
func (t *Table) DropDuplicates() *Table {
	out := New(t.Columns...)
	seen := make(map[string]struct{}, len(t.Rows))
	for _, row := range t.Rows {
		key := rowKey(row)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out.Rows = append(out.Rows, row)
	}
	return out
}

// SortStable orders rows by the named column, keeping input order between ties.
func (t *Table) SortStable(column string) error {
	i := t.Index(column)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumn, column)
	}
	sort.SliceStable(t.Rows, func(a, b int) bool {
		return t.Rows[a][i] < t.Rows[b][i]
	})
	return nil
}

// Concat stacks tables, taking the union of their columns in first-seen order.
func Concat(tables ...*Table) *Table {
	var columns []string
	seen := map[string]struct{}{}
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, c := range t.Columns {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			columns = append(columns, c)
		}
	}
	out := New(columns...)
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, row := range t.Rows {
			out.AppendMap(t.RowMap(row))
		}
	}
	return out
}

func rowKey(row []string) string {
	n := 0
	for _, v := range row {
		n += len(v) + 1
	}
	buf := make([]byte, 0, n)
	for _, v := range row {
		buf = append(buf, v...)
		buf = append(buf, 0x1f)
	}
	return string(buf)
}
