package handler

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishRequestAcceptsStringOrNumberPrice(t *testing.T) {
	t.Run("numeric price", func(t *testing.T) {
		var req publishRequest
		require.NoError(t, json.Unmarshal([]byte(`{"fileIds":["f1"],"title":"T","description":"d","price":9.99,"tags":["a","b"]}`), &req))
		assert.Equal(t, 9.99, float64(req.Price))
	})

	t.Run("string price", func(t *testing.T) {
		var req publishRequest
		require.NoError(t, json.Unmarshal([]byte(`{"fileIds":["f1"],"title":"T","description":"d","price":"9.99","tags":["a","b"]}`), &req))
		assert.Equal(t, 9.99, float64(req.Price))
	})

	t.Run("empty and null fall through to validation", func(t *testing.T) {
		var req publishRequest
		require.NoError(t, json.Unmarshal([]byte(`{"price":""}`), &req))
		assert.Zero(t, float64(req.Price))

		require.NoError(t, json.Unmarshal([]byte(`{"price":null}`), &req))
		assert.Zero(t, float64(req.Price))
	})

	t.Run("non-numeric string is rejected", func(t *testing.T) {
		var req publishRequest
		assert.Error(t, json.Unmarshal([]byte(`{"price":"cheap"}`), &req))
	})
}
