package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("job-1", "manifests/voyage-42.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	jobID, path, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "job-1", jobID)
	require.Equal(t, "manifests/voyage-42.csv", path)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Millisecond*10)
	token, _, err := signer.Generate("job-1", "manifests/voyage-42.csv")
	require.NoError(t, err)
	time.Sleep(time.Millisecond * 20)

	_, _, _, err = signer.Parse(token, false)
	require.ErrorIs(t, err, ErrTokenExpired)

	jobID, path, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "job-1", jobID)
	require.Equal(t, "manifests/voyage-42.csv", path)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("job-1", "manifests/voyage-42.csv")
	require.NoError(t, err)

	payload, sig, found := strings.Cut(token, ".")
	require.True(t, found)

	forged, _, err := signer.Generate("job-2", "manifests/other-voyage.csv")
	require.NoError(t, err)
	forgedPayload, _, _ := strings.Cut(forged, ".")

	for _, bad := range []string{
		forgedPayload + "." + sig,
		payload + "." + sig + "x",
		payload,
		payload + ".",
		"." + sig,
	} {
		_, _, _, err := signer.Parse(bad, false)
		require.ErrorIs(t, err, ErrInvalidToken, "token %q", bad)
	}
}
