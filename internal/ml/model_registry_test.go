package ml

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelRegistry_Lifecycle(t *testing.T) {
	registry := NewModelRegistry()
	registry.Register(&ModelInfo{Name: "content", Kind: "index", Version: "1"})

	t.Run("registered models start empty", func(t *testing.T) {
		info, err := registry.Get("content")
		require.NoError(t, err)
		assert.Equal(t, ModelStatusEmpty, info.Status)
		assert.False(t, registry.IsReady("content"))
	})

	t.Run("building then ready", func(t *testing.T) {
		registry.MarkBuilding("content")
		info, err := registry.Get("content")
		require.NoError(t, err)
		assert.Equal(t, ModelStatusBuilding, info.Status)

		registry.MarkReady("content", "fp-1")
		info, err = registry.Get("content")
		require.NoError(t, err)
		assert.Equal(t, ModelStatusReady, info.Status)
		assert.Equal(t, "fp-1", info.Fingerprint)
		assert.Equal(t, 1, info.BuildCount)
		assert.NotNil(t, info.LastBuilt)
		assert.True(t, registry.IsReady("content"))
	})

	t.Run("failure records the error but keeps the build count", func(t *testing.T) {
		registry.MarkFailed("content", errors.New("catalog unavailable"))
		info, err := registry.Get("content")
		require.NoError(t, err)
		assert.Equal(t, ModelStatusFailed, info.Status)
		assert.Equal(t, "catalog unavailable", info.LastError)
		assert.Equal(t, 1, info.BuildCount)
		// A prior successful build still counts as ready for serving.
		assert.True(t, registry.IsReady("content"))
	})

	t.Run("recovery clears the error", func(t *testing.T) {
		registry.MarkReady("content", "fp-2")
		info, err := registry.Get("content")
		require.NoError(t, err)
		assert.Empty(t, info.LastError)
		assert.Equal(t, 2, info.BuildCount)
		assert.Equal(t, "fp-2", info.Fingerprint)
	})
}

func TestModelRegistry_Get_Unknown(t *testing.T) {
	registry := NewModelRegistry()
	_, err := registry.Get("nope")
	assert.Error(t, err)
}

func TestModelRegistry_List(t *testing.T) {
	registry := NewModelRegistry()
	registry.Register(&ModelInfo{Name: "semantic"})
	registry.Register(&ModelInfo{Name: "content"})
	registry.Register(&ModelInfo{Name: "collaborative"})

	list := registry.List()
	require.Len(t, list, 3)
	assert.Equal(t, "collaborative", list[0].Name)
	assert.Equal(t, "content", list[1].Name)
	assert.Equal(t, "semantic", list[2].Name)
}

func TestModelRegistry_ListCopies(t *testing.T) {
	registry := NewModelRegistry()
	registry.Register(&ModelInfo{Name: "content"})

	list := registry.List()
	list[0].Status = "mutated"

	info, err := registry.Get("content")
	require.NoError(t, err)
	assert.Equal(t, ModelStatusEmpty, info.Status)
}
