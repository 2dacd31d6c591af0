package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/colstore/internal/naming"
	"github.com/dshills/colstore/pkg/types"
)

// baseFieldSchemas lets filters, sorts and cursors target the implicit
// base record fields with the right encoding.
var baseFieldSchemas = map[string]types.SchemaField{
	"id":        {Name: "id", Type: types.FieldUUID},
	"createdAt": {Name: "createdAt", Type: types.FieldDate},
	"updatedAt": {Name: "updatedAt", Type: types.FieldDate},
	"version":   {Name: "version", Type: types.FieldNumber},
}

func resolveField(schema *types.CollectionSchema, name string) (*types.SchemaField, string, error) {
	if base, ok := baseFieldSchemas[name]; ok {
		return &base, naming.ToColumn(name), nil
	}
	if f := schema.Field(name); f != nil {
		return f, naming.ToColumn(name), nil
	}
	return nil, "", fmt.Errorf("%w: %s.%s", ErrUnknownField, schema.Collection, name)
}

// Read fetches one record by id
func (a *Adapter) Read(ctx context.Context, collection, id string) (*types.Record, error) {
	schema, table, err := a.schemaFor(collection)
	if err != nil {
		return nil, err
	}
	rows, err := a.exec.RunSQL(ctx, fmt.Sprintf("SELECT * FROM %s WHERE id = ?", table), []any{id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	return decodeRecord(collection, schema, rows[0])
}

// Query translates the universal query into SQL and decodes the result set
func (a *Adapter) Query(ctx context.Context, q types.Query) ([]*types.Record, error) {
	schema, _, err := a.schemaFor(q.Collection)
	if err != nil {
		return nil, err
	}
	sqlText, params, err := a.buildSelect(schema, q, false)
	if err != nil {
		return nil, err
	}
	rows, err := a.exec.RunSQL(ctx, sqlText, params)
	if err != nil {
		return nil, err
	}
	records := make([]*types.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := decodeRecord(q.Collection, schema, row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Count returns how many records match the query's predicates
func (a *Adapter) Count(ctx context.Context, q types.Query) (int64, error) {
	schema, _, err := a.schemaFor(q.Collection)
	if err != nil {
		return 0, err
	}
	sqlText, params, err := a.buildSelect(schema, q, true)
	if err != nil {
		return 0, err
	}
	rows, err := a.exec.RunSQL(ctx, sqlText, params)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	n, _ := rows[0]["n"].(int64)
	return n, nil
}

// ExplainQuery returns the translated SQL, bound parameters, an estimated
// row count, and the engine's query plan. Diagnostic only.
func (a *Adapter) ExplainQuery(ctx context.Context, q types.Query) (*types.ExplainResult, error) {
	schema, _, err := a.schemaFor(q.Collection)
	if err != nil {
		return nil, err
	}
	sqlText, params, err := a.buildSelect(schema, q, false)
	if err != nil {
		return nil, err
	}
	estimated, err := a.Count(ctx, q)
	if err != nil {
		return nil, err
	}

	result := &types.ExplainResult{SQL: sqlText, Params: params, EstimatedRows: estimated}

	planRows, err := a.exec.RunSQL(ctx, "EXPLAIN QUERY PLAN "+sqlText, params)
	if err != nil {
		// The plan dump is best-effort; the translation itself is the answer
		a.log.Debug("query plan unavailable")
		return result, nil
	}
	for _, row := range planRows {
		if detail, ok := textValue(row["detail"]); ok {
			result.Plan = append(result.Plan, detail)
		}
	}
	return result, nil
}

// buildSelect folds filter, time range, cursor, sort, and pagination into
// one parameterized statement. Filter fields are visited in sorted order so
// the emitted SQL is stable.
func (a *Adapter) buildSelect(schema *types.CollectionSchema, q types.Query, count bool) (string, []any, error) {
	table := tableFor(q.Collection)

	var b strings.Builder
	if count {
		b.WriteString("SELECT COUNT(*) AS n FROM ")
	} else {
		b.WriteString("SELECT * FROM ")
	}
	b.WriteString(table)

	clauses, params, err := buildPredicates(schema, q)
	if err != nil {
		return "", nil, err
	}
	if len(clauses) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(clauses, " AND "))
	}

	if count {
		return b.String(), params, nil
	}

	if len(q.Sort) > 0 {
		orders := make([]string, 0, len(q.Sort))
		for _, s := range q.Sort {
			_, col, err := resolveField(schema, s.Field)
			if err != nil {
				return "", nil, err
			}
			dir := "ASC"
			if s.Direction == types.SortDesc {
				dir = "DESC"
			}
			orders = append(orders, col+" "+dir)
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(orders, ", "))
	}

	if q.Limit > 0 {
		b.WriteString(" LIMIT ?")
		params = append(params, q.Limit)
		if q.Offset > 0 {
			b.WriteString(" OFFSET ?")
			params = append(params, q.Offset)
		}
	} else if q.Offset > 0 {
		// SQLite requires a LIMIT clause before OFFSET; -1 means unbounded
		b.WriteString(" LIMIT -1 OFFSET ?")
		params = append(params, q.Offset)
	}

	return b.String(), params, nil
}

func buildPredicates(schema *types.CollectionSchema, q types.Query) ([]string, []any, error) {
	var clauses []string
	var params []any

	fields := make([]string, 0, len(q.Filter))
	for f := range q.Filter {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	for _, field := range fields {
		f, col, err := resolveField(schema, field)
		if err != nil {
			return nil, nil, err
		}
		for _, cond := range q.Filter[field] {
			clause, condParams, err := translateCondition(f, col, cond)
			if err != nil {
				return nil, nil, err
			}
			clauses = append(clauses, clause)
			params = append(params, condParams...)
		}
	}

	if q.TimeRange != nil {
		if q.TimeRange.Start != nil {
			clauses = append(clauses, "created_at >= ?")
			params = append(params, formatTime(*q.TimeRange.Start))
		}
		if q.TimeRange.End != nil {
			clauses = append(clauses, "created_at <= ?")
			params = append(params, formatTime(*q.TimeRange.End))
		}
	}

	if q.Cursor != nil {
		f, col, err := resolveField(schema, q.Cursor.Field)
		if err != nil {
			return nil, nil, err
		}
		v, err := encodeValue(f, q.Cursor.Value)
		if err != nil {
			return nil, nil, err
		}
		op := ">"
		if q.Cursor.Direction == types.CursorBefore {
			op = "<"
		}
		clauses = append(clauses, fmt.Sprintf("%s %s ?", col, op))
		params = append(params, v)
	}

	return clauses, params, nil
}

func translateCondition(f *types.SchemaField, col string, cond types.Condition) (string, []any, error) {
	switch cond.Op {
	case types.OpEq, types.OpNe, types.OpGt, types.OpGte, types.OpLt, types.OpLte:
		v, err := encodeValue(f, cond.Value)
		if err != nil {
			return "", nil, err
		}
		return col + " " + comparisonSQL(cond.Op) + " ?", []any{v}, nil

	case types.OpIn, types.OpNotIn:
		items, ok := cond.Value.([]any)
		if !ok {
			return "", nil, fmt.Errorf("field %s: operator %s requires an array operand, got %T", f.Name, cond.Op, cond.Value)
		}
		if len(items) == 0 {
			// Empty IN matches nothing; empty NOT IN matches everything
			if cond.Op == types.OpIn {
				return "1 = 0", nil, nil
			}
			return "1 = 1", nil, nil
		}
		placeholders := make([]string, len(items))
		params := make([]any, len(items))
		for i, item := range items {
			v, err := encodeValue(f, item)
			if err != nil {
				return "", nil, err
			}
			placeholders[i] = "?"
			params[i] = v
		}
		kw := "IN"
		if cond.Op == types.OpNotIn {
			kw = "NOT IN"
		}
		return fmt.Sprintf("%s %s (%s)", col, kw, strings.Join(placeholders, ", ")), params, nil

	case types.OpExists:
		want := true
		if b, ok := cond.Value.(bool); ok {
			want = b
		}
		if want {
			return col + " IS NOT NULL", nil, nil
		}
		return col + " IS NULL", nil, nil

	case types.OpRegex:
		pattern, ok := cond.Value.(string)
		if !ok {
			return "", nil, fmt.Errorf("field %s: regex operand must be a string, got %T", f.Name, cond.Value)
		}
		return col + " REGEXP ?", []any{pattern}, nil

	case types.OpContains:
		sub, ok := cond.Value.(string)
		if !ok {
			return "", nil, fmt.Errorf("field %s: contains operand must be a string, got %T", f.Name, cond.Value)
		}
		escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(sub)
		return col + ` LIKE ? ESCAPE '\'`, []any{"%" + escaped + "%"}, nil
	}
	return "", nil, fmt.Errorf("field %s: %w: %q", f.Name, types.ErrUnknownOperator, cond.Op)
}

func comparisonSQL(op types.Op) string {
	switch op {
	case types.OpEq:
		return "="
	case types.OpNe:
		return "!="
	case types.OpGt:
		return ">"
	case types.OpGte:
		return ">="
	case types.OpLt:
		return "<"
	default:
		return "<="
	}
}
