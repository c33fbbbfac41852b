package receipt

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer(t *testing.T) {
	r := NewRenderer("https://parking.example.com/receipts/")
	token := uuid.MustParse("6f1c2a0e-8d3b-4b7e-9a51-2c4f8e9d0b13")

	assert.Equal(t, "https://parking.example.com/receipts/6f1c2a0e-8d3b-4b7e-9a51-2c4f8e9d0b13", r.URL(token))

	png, err := r.PNG(token)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG\r\n\x1a\n")))
}
