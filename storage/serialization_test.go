package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntrySerialization(t *testing.T) {
	created := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	original := &Entry{
		Key:       "abc123",
		Payload:   []byte(`[{"source_file":"a.txt"}]`),
		CreatedAt: created,
	}

	data, err := MarshalEntry(original)
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		decoded, err := UnmarshalEntry(data, "abc123")
		require.NoError(t, err)
		assert.Equal(t, original.Key, decoded.Key)
		assert.Equal(t, original.Payload, decoded.Payload)
		assert.True(t, created.Equal(decoded.CreatedAt))
	})

	t.Run("any key accepted when unspecified", func(t *testing.T) {
		_, err := UnmarshalEntry(data, "")
		assert.NoError(t, err)
	})

	t.Run("key mismatch", func(t *testing.T) {
		_, err := UnmarshalEntry(data, "other")
		assert.ErrorIs(t, err, ErrCorruptEntry)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := UnmarshalEntry(data[:len(data)/2], "abc123")
		assert.ErrorIs(t, err, ErrCorruptEntry)
	})

	t.Run("checksum mismatch", func(t *testing.T) {
		tampered, err := MarshalEntry(&Entry{Key: "abc123", Payload: []byte("x")})
		require.NoError(t, err)
		// "eA==" is base64 for "x"; "eQ==" is "y".
		tampered = []byte(strings.Replace(string(tampered), `"eA=="`, `"eQ=="`, 1))
		_, err = UnmarshalEntry(tampered, "abc123")
		assert.ErrorIs(t, err, ErrCorruptEntry)
	})

	t.Run("binary payload", func(t *testing.T) {
		blob := []byte{0x00, 0xff, 0x10, 0x80}
		data, err := MarshalEntry(&Entry{Key: "bin", Payload: blob})
		require.NoError(t, err)
		decoded, err := UnmarshalEntry(data, "bin")
		require.NoError(t, err)
		assert.Equal(t, blob, decoded.Payload)
	})
}

func TestValidateKey(t *testing.T) {
	valid := []string{"abc", "0f3a9c", "index-v1.bin", "a_b"}
	for _, key := range valid {
		assert.NoError(t, ValidateKey(key), key)
	}

	invalid := []string{"", ".hidden", "../escape", "a/b", "a b", string(make([]byte, maxKeyLength+1))}
	for _, key := range invalid {
		assert.ErrorIs(t, ValidateKey(key), ErrInvalidKey, key)
	}
}

func TestTier_Validate(t *testing.T) {
	assert.NoError(t, TierIndex.Validate())
	assert.NoError(t, TierResult.Validate())
	assert.ErrorIs(t, Tier("other").Validate(), ErrInvalidTier)
}
