package table

import "fmt"

type JoinKind int

const (
	InnerJoin JoinKind = iota
	LeftJoin
)

// Join matches rows of left and right on leftOn == rightOn, in left row order.
// Columns present on both sides get suffixes[0] / suffixes[1]; when both keys
// share a name the key appears once. An empty suffix keeps the name unchanged.
func Join(left, right *Table, leftOn, rightOn string, kind JoinKind, suffixes [2]string) (*Table, error) {
	li := left.Index(leftOn)
	if li < 0 {
		return nil, fmt.Errorf("join left: %w: %s", ErrMissingColumn, leftOn)
	}
	ri := right.Index(rightOn)
	if ri < 0 {
		return nil, fmt.Errorf("join right: %w: %s", ErrMissingColumn, rightOn)
	}
	sharedKey := leftOn == rightOn

	rightCols := make([]int, 0, len(right.Columns))
	for i := range right.Columns {
		if sharedKey && i == ri {
			continue
		}
		rightCols = append(rightCols, i)
	}

	overlap := map[string]struct{}{}
	for _, i := range rightCols {
		name := right.Columns[i]
		if left.Has(name) && !(sharedKey && name == leftOn) {
			overlap[name] = struct{}{}
		}
	}

	columns := make([]string, 0, len(left.Columns)+len(rightCols))
	for _, c := range left.Columns {
		if _, ok := overlap[c]; ok {
			c += suffixes[0]
		}
		columns = append(columns, c)
	}
	for _, i := range rightCols {
		c := right.Columns[i]
		if _, ok := overlap[c]; ok {
			c += suffixes[1]
		}
		columns = append(columns, c)
	}

	byKey := make(map[string][]int, len(right.Rows))
	for r, row := range right.Rows {
		byKey[row[ri]] = append(byKey[row[ri]], r)
	}

	out := New(columns...)
	for _, lrow := range left.Rows {
		matches := byKey[lrow[li]]
		if len(matches) == 0 {
			if kind == LeftJoin {
				row := make([]string, len(columns))
				copy(row, lrow)
				out.Rows = append(out.Rows, row)
			}
			continue
		}
		for _, r := range matches {
			rrow := right.Rows[r]
			row := make([]string, 0, len(columns))
			row = append(row, lrow...)
			for _, i := range rightCols {
				row = append(row, rrow[i])
			}
			out.Rows = append(out.Rows, row)
		}
	}
	return out, nil
}
