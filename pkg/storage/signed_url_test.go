package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignerRoundTrip(t *testing.T) {
	signer := NewSigner("secret", time.Minute, time.Hour)
	id := NewStorageID()

	token, expiresAt, err := signer.Sign(PurposeUpload, id)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, parsedExpiry, err := signer.Verify(token, PurposeUpload)
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignerRejectsWrongPurpose(t *testing.T) {
	signer := NewSigner("secret", time.Minute, time.Hour)
	token, _, err := signer.Sign(PurposeUpload, NewStorageID())
	require.NoError(t, err)

	_, _, err = signer.Verify(token, PurposeDownload)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestSignerRejectsTamperedToken(t *testing.T) {
	signer := NewSigner("secret", time.Minute, time.Hour)
	token, _, err := signer.Sign(PurposeDownload, NewStorageID())
	require.NoError(t, err)

	other := NewSigner("other", time.Minute, time.Hour)
	_, _, err = other.Verify(token, PurposeDownload)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, _, err = signer.Verify("garbage", PurposeDownload)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestSignerExpired(t *testing.T) {
	signer := NewSigner("secret", time.Minute, time.Hour)
	base := time.Now()
	signer.now = func() time.Time { return base }
	token, _, err := signer.Sign(PurposeUpload, NewStorageID())
	require.NoError(t, err)

	signer.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, _, err = signer.Verify(token, PurposeUpload)
	assert.ErrorIs(t, err, ErrTokenExpired)
}
