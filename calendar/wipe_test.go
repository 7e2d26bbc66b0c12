package calendar

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPlanzEvent(t *testing.T) {
	marked := ListedEvent{Summary: "Kids", Private: map[string]string{MarkerProperty: "true"}}
	legacy := ListedEvent{Summary: "[PLZ] Kids"}
	other := ListedEvent{Summary: "Zahnarzt"}

	assert.True(t, IsPlanzEvent(marked, false))
	assert.False(t, IsPlanzEvent(legacy, false))
	assert.True(t, IsPlanzEvent(legacy, true))
	assert.False(t, IsPlanzEvent(other, true))
}

func TestWipeMarkedEvents(t *testing.T) {
	client := &fakeClient{
		listed: []ListedEvent{
			{Id: "a", Summary: "[PLZ] A"},
			{Id: "b", Summary: "B", Private: map[string]string{MarkerProperty: "true"}},
			{Id: "c", Summary: "C"},
			{Id: "d", Summary: "D", Private: map[string]string{MarkerProperty: "TRUE"}},
		},
		deleteErrs: map[string]error{"d": errors.New("gone")},
	}

	stats, err := WipeMarkedEvents(context.Background(), client, syncNow, 30, true, false)
	require.NoError(t, err)
	assert.Equal(t, WipeStats{Listed: 4, Matched: 2}, stats)
	assert.Empty(t, client.deleted)

	stats, err = WipeMarkedEvents(context.Background(), client, syncNow, 30, false, true)
	require.NoError(t, err)
	assert.Equal(t, WipeStats{Listed: 4, Matched: 3, Deleted: 2, Failed: 1}, stats)
	assert.Equal(t, []string{"a", "b"}, client.deleted)
}
