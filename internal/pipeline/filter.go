package pipeline

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
)

// RowFilter is a compiled CEL condition over one raw row, exposed to the
// expression as `row`, a map of header name to cell value.
type RowFilter struct {
	expr string
	prg  cel.Program
}

func CompileRowFilter(expr string) (*RowFilter, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, nil
	}
	env, err := cel.NewEnv(cel.Variable("row", cel.MapType(cel.StringType, cel.StringType)))
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("filter %q compilation error: %w", expr, issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("filter %q program creation error: %w", expr, err)
	}
	return &RowFilter{expr: expr, prg: prg}, nil
}

// Match reports whether the row passes. A nil filter passes everything.
// Evaluation errors, such as a missing key, count as no match.
func (f *RowFilter) Match(row map[string]string) (bool, error) {
	if f == nil {
		return true, nil
	}
	out, _, err := f.prg.Eval(map[string]any{"row": row})
	if err != nil {
		return false, err
	}
	match, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter %q returned %T, want bool", f.expr, out.Value())
	}
	return match, nil
}

func (f *RowFilter) String() string {
	if f == nil {
		return ""
	}
	return f.expr
}
