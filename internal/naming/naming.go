// Package naming converts between the caller's camelCase identifiers and
// the physical store's snake_case identifiers. All functions are pure.
package naming

import (
	"strings"
	"unicode"
)

// ToColumn converts a camelCase field name to a snake_case column name.
// Every uppercase rune starts a new segment, so the mapping is the exact
// inverse of ToField: "roomId" becomes "room_id" and single-letter segments
// such as "aBC" become "a_b_c" rather than collapsing into "a_bc".
func ToColumn(field string) string {
	if field == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(field) + 4)
	runes := []rune(field)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && runes[i-1] != '_' {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ToField converts a snake_case column name back to camelCase
func ToField(column string) string {
	if column == "" {
		return ""
	}
	parts := strings.Split(column, "_")
	var b strings.Builder
	b.Grow(len(column))
	for i, p := range parts {
		if p == "" {
			continue
		}
		if i == 0 {
			b.WriteString(p)
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}

// ToTableName converts a collection name to its physical table name.
// The collection name is authoritative: no pluralization or other grammar
// is applied, only the casing conversion.
func ToTableName(collection string) string {
	return ToColumn(collection)
}

// VectorTableName is the dedicated vector table for a collection's table
func VectorTableName(table string) string {
	return table + "_vectors"
}
