package crypto

import (
	"bytes"
	"crypto/elliptic"
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestP256_SignVerify(t *testing.T) {
	priv, pub, err := GenerateP256Key(rand.Reader)
	require.NoError(t, err)

	data := []byte("p-256 payload")
	sig, err := priv.Sign(data)
	require.NoError(t, err)
	assert.Len(t, sig, P256SignatureSize)

	ok, err := pub.Verify(data, sig)
	require.NoError(t, err)
	assert.True(t, ok)

	sig[10] ^= 0x01
	ok, err = pub.Verify(data, sig)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = pub.Verify(data, sig[:63])
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestP256_CompressedPublicKey(t *testing.T) {
	_, pub, err := GenerateP256Key(rand.Reader)
	require.NoError(t, err)

	raw, err := pub.Raw()
	require.NoError(t, err)
	require.Len(t, raw, P256PublicKeySize)
	assert.Contains(t, []byte{0x02, 0x03}, raw[0])

	got, err := UnmarshalP256PublicKey(raw)
	require.NoError(t, err)
	assert.True(t, pub.Equals(got))
}

func TestP256_UnmarshalPublicKey_Invalid(t *testing.T) {
	_, err := UnmarshalP256PublicKey(make([]byte, 10))
	assert.ErrorIs(t, err, ErrInvalidKeySize)

	// x = 2^256-1 超出域范围
	bad := append([]byte{0x02}, bytes.Repeat([]byte{0xff}, 32)...)
	_, err = UnmarshalP256PublicKey(bad)
	assert.ErrorIs(t, err, ErrInvalidPublicKey)

	// 未压缩点 (1, 1) 不在曲线上
	off := make([]byte, P256UncompressedPublicKeySize)
	off[0], off[32], off[64] = 0x04, 0x01, 0x01
	_, err = UnmarshalP256PublicKey(off)
	assert.ErrorIs(t, err, ErrInvalidPublicKey)
}

func TestP256_LowS(t *testing.T) {
	priv, pub, err := GenerateP256Key(rand.Reader)
	require.NoError(t, err)
	n := elliptic.P256().Params().N

	data := []byte("malleable payload")
	for i := 0; i < 16; i++ {
		sig, err := priv.Sign(data)
		require.NoError(t, err)

		s := new(big.Int).SetBytes(sig[32:])
		assert.LessOrEqual(t, s.Cmp(p256HalfOrder), 0)

		// (r, n-s) 对 ECDSA 同样成立，必须拒绝
		flipped := make([]byte, P256SignatureSize)
		copy(flipped[:32], sig[:32])
		copy(flipped[32:], paddedBytes(new(big.Int).Sub(n, s), 32))

		ok, err := pub.Verify(data, flipped)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = pub.Verify(data, sig)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestP256_UnmarshalPrivateKey(t *testing.T) {
	priv, _, err := GenerateP256Key(rand.Reader)
	require.NoError(t, err)

	raw, err := priv.Raw()
	require.NoError(t, err)

	got, err := UnmarshalP256PrivateKey(raw)
	require.NoError(t, err)
	assert.True(t, priv.Equals(got))
	assert.True(t, priv.GetPublic().Equals(got.GetPublic()))

	_, err = UnmarshalP256PrivateKey(make([]byte, P256PrivateKeySize))
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)
}

func TestP256_Erase(t *testing.T) {
	priv, pub, err := GenerateP256Key(rand.Reader)
	require.NoError(t, err)

	priv.(Eraser).Erase()

	_, err = priv.Sign([]byte("data"))
	assert.ErrorIs(t, err, ErrKeyErased)
	assert.True(t, priv.GetPublic().Equals(pub))
}
