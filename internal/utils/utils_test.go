package utils

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRandomString(t *testing.T) {
	a, err := RandomString(nil, 32)
	require.NoError(t, err)
	b, err := RandomString(nil, 32)
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	raw, err := base64.RawURLEncoding.DecodeString(a)
	require.NoError(t, err)
	require.Len(t, raw, 32)
}

func TestRandomString_ShortReader(t *testing.T) {
	_, err := RandomString(strings.NewReader("abc"), 16)
	require.Error(t, err)
}

func TestRandomString_Deterministic(t *testing.T) {
	s, err := RandomString(bytes.NewReader(bytes.Repeat([]byte{0xff}, 3)), 3)
	require.NoError(t, err)
	require.Equal(t, "____", s)
}

func TestValue(t *testing.T) {
	var nilStr *string
	require.Equal(t, "", Value(nilStr))
	v := "token"
	require.Equal(t, "token", Value(&v))
}
