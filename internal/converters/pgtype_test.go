package converters

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToNullableText(t *testing.T) {
	t.Run("nil pointer returns invalid", func(t *testing.T) {
		result := ToNullableText(nil)
		assert.False(t, result.Valid)
	})

	t.Run("valid string pointer returns valid Text", func(t *testing.T) {
		str := "visa"
		result := ToNullableText(&str)
		assert.True(t, result.Valid)
		assert.Equal(t, "visa", result.String)
	})

	t.Run("empty string returns valid Text", func(t *testing.T) {
		str := ""
		result := ToNullableText(&str)
		assert.True(t, result.Valid)
		assert.Equal(t, "", result.String)
	})
}

func TestFromNullableText(t *testing.T) {
	assert.Nil(t, FromNullableText(pgtype.Text{}))

	got := FromNullableText(pgtype.Text{String: "1111", Valid: true})
	require.NotNil(t, got)
	assert.Equal(t, "1111", *got)
}

func TestNullableInt32RoundTrip(t *testing.T) {
	assert.False(t, ToNullableInt32(nil).Valid)
	assert.Nil(t, FromNullableInt32(pgtype.Int4{}))

	month := 12
	got := FromNullableInt32(ToNullableInt32(&month))
	require.NotNil(t, got)
	assert.Equal(t, 12, *got)
}
