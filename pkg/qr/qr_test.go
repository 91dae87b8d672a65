package qr

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodePNG(t *testing.T) {
	png, err := EncodePNG("TKT-ABCDEFGH23", 0)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestEncodePNG_Empty(t *testing.T) {
	_, err := EncodePNG("", 128)
	assert.Error(t, err)
}
