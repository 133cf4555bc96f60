package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDID = "did:key:z6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK"

func TestMemKeystore(t *testing.T) {
	ks := NewMemKeystore()
	priv, _, err := GenerateKeyPair(AlgorithmEd25519)
	require.NoError(t, err)

	has, err := ks.Has(testDID)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, ks.Put(testDID, priv))
	assert.ErrorIs(t, ks.Put(testDID, priv), ErrKeyExists)

	got, err := ks.Get(testDID)
	require.NoError(t, err)
	assert.True(t, KeyEqual(priv, got))

	ids, err := ks.List()
	require.NoError(t, err)
	assert.Equal(t, []string{testDID}, ids)

	require.NoError(t, ks.Delete(testDID))
	assert.ErrorIs(t, ks.Delete(testDID), ErrKeyNotFound)

	// 删除时擦除
	_, err = priv.Sign([]byte("x"))
	assert.ErrorIs(t, err, ErrKeyErased)
}

func TestFSKeystore_Plaintext(t *testing.T) {
	dir := t.TempDir()
	ks, err := NewFSKeystore(dir, nil)
	require.NoError(t, err)

	priv, _, err := GenerateKeyPair(AlgorithmP256)
	require.NoError(t, err)
	require.NoError(t, ks.Put(testDID, priv))

	got, err := ks.Get(testDID)
	require.NoError(t, err)
	assert.True(t, KeyEqual(priv, got))
	assert.Equal(t, AlgorithmP256, got.Algorithm())

	ids, err := ks.List()
	require.NoError(t, err)
	assert.Equal(t, []string{testDID}, ids)

	info, err := os.Stat(filepath.Join(dir, "did_key_z6MkhaXgBZDvotDkL5257faiztiGiC2QtKLGpbnnEGta2doK.key"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFSKeystore_Encrypted(t *testing.T) {
	dir := t.TempDir()
	ks, err := NewFSKeystore(dir, []byte("correct horse"))
	require.NoError(t, err)

	priv, _, err := GenerateKeyPair(AlgorithmEd25519)
	require.NoError(t, err)
	require.NoError(t, ks.Put(testDID, priv))

	got, err := ks.Get(testDID)
	require.NoError(t, err)
	assert.True(t, KeyEqual(priv, got))

	// 错误密码
	wrong, err := NewFSKeystore(dir, []byte("battery staple"))
	require.NoError(t, err)
	_, err = wrong.Get(testDID)
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	// 无密码
	none, err := NewFSKeystore(dir, nil)
	require.NoError(t, err)
	_, err = none.Get(testDID)
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestFSKeystore_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	ks, err := NewFSKeystore(dir, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.key"), []byte("garbage"), 0600))
	_, err = ks.Get("broken")
	assert.ErrorIs(t, err, ErrInvalidKeyFile)

	_, err = ks.Get("missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestSecureZero(t *testing.T) {
	b := []byte{1, 2, 3, 4}
	SecureZero(b)
	assert.Equal(t, []byte{0, 0, 0, 0}, b)
}
