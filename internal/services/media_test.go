package services

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMediaSignerRoundTrip(t *testing.T) {
	signer := NewMediaSigner("secret", time.Minute, "http://localhost:8080/")

	raw, err := signer.URL("uploads/recipe/1/a b.png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, "http://localhost:8080/media/uploads/recipe/1/a%20b.png?sig="))

	u, err := url.Parse(raw)
	require.NoError(t, err)
	require.NoError(t, signer.Verify("uploads/recipe/1/a b.png", u.Query().Get("sig")))
	require.ErrorIs(t, signer.Verify("uploads/recipe/2/other.png", u.Query().Get("sig")), ErrInvalidSignature)
}

func TestMediaSignerRejectsExpiredAndForged(t *testing.T) {
	signer := NewMediaSigner("secret", time.Minute, "")
	sig, err := signer.Sign("key")
	require.NoError(t, err)

	forger := NewMediaSigner("other", time.Minute, "")
	require.ErrorIs(t, forger.Verify("key", sig), ErrInvalidSignature)
	require.ErrorIs(t, signer.Verify("key", ""), ErrInvalidSignature)

	signer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	require.ErrorIs(t, signer.Verify("key", sig), ErrInvalidSignature)
}

func TestMediaSignerEmptyKey(t *testing.T) {
	u, err := NewMediaSigner("secret", 0, "").URL("")
	require.NoError(t, err)
	assert.Empty(t, u)
}

func TestInspectImage(t *testing.T) {
	format, err := inspectImage(pngBytes(t))
	require.NoError(t, err)
	assert.Equal(t, "png", format.ext)
	assert.Equal(t, "image/png", format.contentType)

	_, err = inspectImage(nil)
	require.ErrorIs(t, err, ErrInvalidImage)

	truncated := pngBytes(t)
	_, err = inspectImage(truncated[:len(truncated)-10])
	require.ErrorIs(t, err, ErrInvalidImage)
}
