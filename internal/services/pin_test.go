package services

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/argon2"
)

func TestHashPIN(t *testing.T) {
	salt := []byte("0123456789abcdef")

	a, err := HashPIN("1234", salt)
	require.NoError(t, err)
	b, err := HashPIN("1234", salt)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := HashPIN("1234", nil)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	ok, err := VerifyPIN("1234", c)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPIN("4321", c)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPIN_BadHash(t *testing.T) {
	_, err := VerifyPIN("1234", "not base64!")
	assert.Error(t, err)

	_, err = VerifyPIN("1234", "c2hvcnQ=")
	assert.Error(t, err)
}

func TestPINVerifier(t *testing.T) {
	v := pinVerifier(t)

	assert.True(t, v.Verify("1234"))
	assert.False(t, v.Verify("0000"))
	assert.False(t, v.Verify("12345"))
	assert.False(t, v.Verify(""))

	_, err := NewPINVerifier("12")
	assert.Error(t, err)
}

func TestHashPIN_Cost(t *testing.T) {
	salt := []byte("0123456789abcdef")

	hashed, err := HashPIN("1234", salt)
	require.NoError(t, err)

	decoded, err := base64.StdEncoding.DecodeString(hashed)
	require.NoError(t, err)
	assert.Equal(t, salt, decoded[:pinSaltLen])
	// 2 passes over 19 MiB with one lane
	assert.Equal(t, argon2.IDKey([]byte("1234"), salt, 2, 19*1024, 1, 32), decoded[pinSaltLen:])
}
