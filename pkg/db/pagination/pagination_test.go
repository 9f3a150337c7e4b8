package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: "42", CreatedAt: "2025-06-10T00:00:00Z"})
	require.NoError(t, err)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "42", cursor.ID)
	assert.Equal(t, "2025-06-10T00:00:00Z", cursor.CreatedAt)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	_, err := DecodeCursor("not base64!!!")
	assert.Error(t, err)
}

func TestBuildCursorPageInfo(t *testing.T) {
	type row struct{ ID string }
	extract := func(r *row) string { return r.ID }

	info := BuildCursorPageInfo([]*row{}, 3, extract)
	assert.False(t, info.HasMore)

	rows := []*row{{"a"}, {"b"}, {"c"}}
	info = BuildCursorPageInfo(rows, 3, extract)
	assert.False(t, info.HasMore)
	assert.Equal(t, "c", info.NextPageToken)

	// limit+1 rows fetched signals another page; the token points at the last
	// row of the page, not the overflow row.
	rows = append(rows, &row{"d"})
	info = BuildCursorPageInfo(rows, 3, extract)
	assert.True(t, info.HasMore)
	assert.Equal(t, "c", info.NextPageToken)
}
