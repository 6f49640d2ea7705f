// Package converters maps optional Go values to and from pgtype columns.
package converters

import "github.com/jackc/pgx/v5/pgtype"

// ToNullableText converts a string pointer to pgtype.Text
// Returns invalid Text if pointer is nil
func ToNullableText(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: *s, Valid: true}
}

// FromNullableText converts a pgtype.Text back to an optional string
func FromNullableText(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

// ToNullableInt32 converts an int pointer to pgtype.Int4
// Returns invalid Int4 if pointer is nil
func ToNullableInt32(i *int) pgtype.Int4 {
	if i == nil {
		return pgtype.Int4{Valid: false}
	}
	return pgtype.Int4{Int32: int32(*i), Valid: true}
}

// FromNullableInt32 converts a pgtype.Int4 back to an optional int
func FromNullableInt32(n pgtype.Int4) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int32)
	return &v
}
