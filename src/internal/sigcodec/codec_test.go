package sigcodec

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// derSig 构造一个最小的 DER 编码签名
func derSig(r, s *big.Int) []byte {
	rb := r.Bytes()
	sb := s.Bytes()
	body := []byte{derIntegerTag, byte(len(rb))}
	body = append(body, rb...)
	body = append(body, derIntegerTag, byte(len(sb)))
	body = append(body, sb...)
	out := []byte{derSequenceTag, byte(len(body))}
	return append(out, body...)
}

func fixedRaw(r, s *big.Int, rec ...byte) []byte {
	out := make([]byte, 64)
	r.FillBytes(out[0:32])
	s.FillBytes(out[32:64])
	return append(out, rec...)
}

func TestDecodeRaw(t *testing.T) {
	r := big.NewInt(123456789)
	s := big.NewInt(987654321)

	sig, err := Decode(fixedRaw(r, s))
	require.NoError(t, err)
	assert.Zero(t, sig.R.Cmp(r))
	assert.Zero(t, sig.S.Cmp(s))
	assert.Equal(t, -1, sig.Recovery)
}

func TestDecodeRawWithRecovery(t *testing.T) {
	r := big.NewInt(7)
	s := big.NewInt(11)

	sig, err := Decode(fixedRaw(r, s, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, sig.Recovery)

	// 以太坊风格 v=28 归一化为 1
	sig, err = Decode(fixedRaw(r, s, 28))
	require.NoError(t, err)
	assert.Equal(t, 1, sig.Recovery)
}

func TestDecodeRawBadRecovery(t *testing.T) {
	_, err := Decode(fixedRaw(big.NewInt(7), big.NewInt(11), 9))
	assert.ErrorIs(t, err, ErrBadTag)
}

func TestDecodeRawZeroComponent(t *testing.T) {
	_, err := Decode(fixedRaw(big.NewInt(0), big.NewInt(11)))
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestDecodeDER(t *testing.T) {
	r := big.NewInt(0xdeadbeef)
	s := big.NewInt(0xcafebabe)

	sig, err := Decode(derSig(r, s))
	require.NoError(t, err)
	assert.Zero(t, sig.R.Cmp(r))
	assert.Zero(t, sig.S.Cmp(s))
	assert.Equal(t, -1, sig.Recovery)
}

func TestDecodeDEREmbeddedInScript(t *testing.T) {
	// 签名前带脚本/公钥前缀字节，解码器应向前扫描到 0x30
	r := big.NewInt(424242)
	s := big.NewInt(171717)
	payload := append([]byte{0x41, 0x04, 0xab, 0xcd, 0x76, 0xa9}, derSig(r, s)...)

	sig, err := Decode(payload)
	require.NoError(t, err)
	assert.Zero(t, sig.R.Cmp(r))
	assert.Zero(t, sig.S.Cmp(s))
}

func TestDecodeDERTruncated(t *testing.T) {
	full := derSig(big.NewInt(424242), big.NewInt(171717))
	_, err := Decode(full[:len(full)-3])
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestDecodeDERNoMarker(t *testing.T) {
	_, err := Decode([]byte{0x01, 0x02, 0x03, 0x04})
	assert.ErrorIs(t, err, ErrBadTag)
}

func TestDecodeDERBadIntegerTag(t *testing.T) {
	buf := derSig(big.NewInt(5), big.NewInt(6))
	buf[2] = 0x05 // 破坏第一个 INTEGER 标签
	_, err := Decode(buf)
	assert.ErrorIs(t, err, ErrBadTag)
}

func TestCacheIdempotent(t *testing.T) {
	cache := NewCache()
	raw := fixedRaw(big.NewInt(99), big.NewInt(77))

	first, err := cache.Decode(raw)
	require.NoError(t, err)
	second, err := cache.Decode(raw)
	require.NoError(t, err)
	assert.Same(t, first, second)

	_, err = cache.Decode([]byte{0x01})
	assert.Error(t, err)
}
