// Package cel compiles CEL expressions into record filters for list views,
// e.g. `record.status == "nuevo" && record.city.startsWith("Mé")`.
package cel

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	celext "github.com/google/cel-go/ext"

	"github.com/oakwood-commons/crmx/internal/model"
)

// Evaluator holds the CEL environment record filters compile against.
type Evaluator struct {
	env *cel.Env
}

// NewEvaluator builds the environment. A record is bound both as `record`
// and as `_`.
func NewEvaluator() (*Evaluator, error) {
	env, err := newRecordEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &Evaluator{env: env}, nil
}

func newRecordEnv(opts ...cel.EnvOption) (*cel.Env, error) {
	recordType := cel.MapType(cel.StringType, cel.DynType)
	allOpts := make([]cel.EnvOption, 0, 6+len(opts))
	allOpts = append(allOpts,
		cel.Variable("record", recordType),
		cel.Variable("_", recordType),
		celext.Strings(),
		celext.Encoders(),
		celext.Lists(),
		celext.Math(),
	)
	allOpts = append(allOpts, opts...)
	return cel.NewEnv(allOpts...)
}

// Filter is a compiled boolean expression over one record.
type Filter struct {
	expr string
	prg  cel.Program
}

// Compile parses and type-checks expr. The expression must produce a bool.
func (e *Evaluator) Compile(expr string) (*Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("empty filter expression")
	}
	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compilation error: %w", issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(types.BoolType) && !out.IsExactType(types.DynType) {
		return nil, fmt.Errorf("filter must evaluate to bool, got %s", out)
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return &Filter{expr: expr, prg: prg}, nil
}

// Match evaluates the filter against rec. Missing fields are evaluation
// errors; callers decide whether that counts as a non-match.
func (f *Filter) Match(rec model.Record) (bool, error) {
	fields := make(map[string]any, len(rec.Fields)+1)
	for k, v := range rec.Fields {
		fields[k] = v
	}
	fields["_id"] = rec.ID
	out, _, err := f.prg.Eval(map[string]any{"record": fields, "_": fields})
	if err != nil {
		return false, fmt.Errorf("eval error: %w", err)
	}
	b, ok := out.(types.Bool)
	if !ok {
		return false, fmt.Errorf("filter returned %s, not bool", out.Type())
	}
	return bool(b), nil
}

func (f *Filter) String() string { return f.expr }
