package repo

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoFields is returned by SetBuilder.Build when the caller supplied no
// updatable field. No statement is issued in that case.
var ErrNoFields = errors.New("repo: no fields to update")

// Assignment is one `column = value` pair of an UPDATE ... SET clause.
type Assignment struct {
	Column string
	Value  any
}

// SetBuilder assembles the SET clause of a partial update. Fields are kept
// in the order they were added; placeholders are numbered in that order so
// they are valid for both $n-positional (postgres) and first-appearance
// (sqlite) binding.
//
//	b := NewSetBuilder()
//	SetIf(b, "title", params.Title)
//	SetIf(b, "completed", params.Completed)
//	b.Touch("updated_at", now)
//	query, args, err := b.Build("todos", "id", params.ID)
type SetBuilder struct {
	fields  []Assignment
	touches []Assignment
}

// NewSetBuilder returns an empty builder.
func NewSetBuilder() *SetBuilder { return &SetBuilder{} }

// Set adds an assignment supplied by the caller.
func (b *SetBuilder) Set(column string, value any) *SetBuilder {
	b.fields = append(b.fields, Assignment{Column: column, Value: value})
	return b
}

// SetIf adds column = *value only when value is non-nil.
func SetIf[T any](b *SetBuilder, column string, value *T) *SetBuilder {
	if value != nil {
		b.Set(column, *value)
	}
	return b
}

// Touch adds an assignment that is applied whenever the update runs but does
// not count as a caller-supplied field (e.g. updated_at).
func (b *SetBuilder) Touch(column string, value any) *SetBuilder {
	b.touches = append(b.touches, Assignment{Column: column, Value: value})
	return b
}

// Len returns the number of caller-supplied fields.
func (b *SetBuilder) Len() int { return len(b.fields) }

// Assignments returns fields followed by touches, in statement order.
func (b *SetBuilder) Assignments() []Assignment {
	out := make([]Assignment, 0, len(b.fields)+len(b.touches))
	out = append(out, b.fields...)
	return append(out, b.touches...)
}

// Build renders `UPDATE table SET ... WHERE keyColumn = $n` and its bound
// arguments, or ErrNoFields when no caller field was set.
func (b *SetBuilder) Build(table, keyColumn string, key any) (string, []any, error) {
	if len(b.fields) == 0 {
		return "", nil, ErrNoFields
	}

	all := b.Assignments()
	clauses := make([]string, 0, len(all))
	args := make([]any, 0, len(all)+1)
	for i, a := range all {
		if !isIdentifier(a.Column) {
			return "", nil, fmt.Errorf("repo: invalid column name %q", a.Column)
		}
		clauses = append(clauses, fmt.Sprintf("%s = $%d", a.Column, i+1))
		args = append(args, a.Value)
	}
	args = append(args, key)

	query := fmt.Sprintf(`
		UPDATE %s
		SET    %s
		WHERE  %s = $%d`,
		table, strings.Join(clauses, ", "), keyColumn, len(args))
	return query, args, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
