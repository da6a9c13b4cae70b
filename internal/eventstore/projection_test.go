package eventstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityProjection(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	for _, typ := range []string{TypeDefaultSaved, TypeDayMaterialized, TypeDayMaterialized, TypeManualSaved, TypeManualCleared, TypeDayReset} {
		_, err := store.Append(ctx, "alice", typ, []byte(`{}`), nil)
		require.NoError(t, err)
	}
	_, err := store.Append(ctx, "bob", TypeDayReset, []byte(`{}`), nil)
	require.NoError(t, err)

	p := NewActivityProjection(store)
	require.NoError(t, p.Rebuild(ctx))

	alice, ok := p.Get("alice")
	require.True(t, ok)
	assert.Equal(t, 2, alice.Materializations)
	assert.Equal(t, 2, alice.ManualEntries)
	assert.Equal(t, 1, alice.Resets)
	assert.Equal(t, 1, alice.DefaultChanges)

	p.Apply(&BaseEvent{EventUserID: "bob", EventType: TypeDayMaterialized})
	bob, _ := p.Get("bob")
	assert.Equal(t, 1, bob.Resets)
	assert.Equal(t, 1, bob.Materializations)

	_, ok = p.Get("carol")
	assert.False(t, ok)
}
