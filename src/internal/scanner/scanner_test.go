package scanner

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admi-n/nonce-Excavator/src/internal/sigcodec"
)

type fakeSource struct {
	sigs []*sigcodec.Signature
	err  error
}

func (f *fakeSource) FetchSignatures(ctx context.Context, address string) ([]*sigcodec.Signature, error) {
	return f.sigs, f.err
}

func sig(r int64) *sigcodec.Signature {
	return &sigcodec.Signature{R: big.NewInt(r), S: big.NewInt(1), Recovery: -1}
}

func sigBig(r *big.Int) *sigcodec.Signature {
	return &sigcodec.Signature{R: r, S: big.NewInt(1), Recovery: -1}
}

func TestScanInsufficientEvidence(t *testing.T) {
	s := NewScanner(&fakeSource{sigs: []*sigcodec.Signature{sig(42)}})

	finding, err := s.Scan(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Nil(t, finding)
}

func TestScanNonceReuse(t *testing.T) {
	src := &fakeSource{sigs: []*sigcodec.Signature{
		{R: big.NewInt(777), S: big.NewInt(10), Recovery: -1},
		{R: big.NewInt(777), S: big.NewInt(20), Recovery: -1},
		sig(12345),
	}}
	s := NewScanner(src)

	finding, err := s.Scan(context.Background(), "0xabc")
	require.NoError(t, err)
	require.NotNil(t, finding)
	assert.Equal(t, KindNonceReuse, finding.Kind)
	assert.Equal(t, SeverityNonceReuse, finding.Severity)
	assert.Contains(t, finding.Detail, "2 个签名")
}

func TestScanNonceReuseWinsOverEverything(t *testing.T) {
	// r 重复的同时也构成算术序列，重用必须优先浮出
	src := &fakeSource{sigs: []*sigcodec.Signature{
		sig(100), sig(100), sig(200), sig(300),
	}}
	s := NewScanner(src)

	finding, err := s.Scan(context.Background(), "0xabc")
	require.NoError(t, err)
	require.NotNil(t, finding)
	assert.Equal(t, KindNonceReuse, finding.Kind)
}

func TestScanPolynomialNonce(t *testing.T) {
	// 算术级数 100, 200, 300：二阶差分为 0
	src := &fakeSource{sigs: []*sigcodec.Signature{sig(100), sig(200), sig(300)}}
	s := NewScanner(src)

	finding, err := s.Scan(context.Background(), "0xabc")
	require.NoError(t, err)
	require.NotNil(t, finding)
	assert.Equal(t, KindPolynomialAttack, finding.Kind)
	assert.Equal(t, SeverityPolynomialAttack, finding.Severity)
}

func TestScanPolynomialNeedsThree(t *testing.T) {
	src := &fakeSource{sigs: []*sigcodec.Signature{sig(100), sig(200)}}
	s := NewScanner(src)

	finding, err := s.Scan(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Nil(t, finding)
}

// randomishSigs 构造既不重复也不构成算术序列的大 r 值
func randomishSigs(n int) []*sigcodec.Signature {
	out := make([]*sigcodec.Signature, 0, n)
	v := new(big.Int).Rsh(sigcodec.CurveN, 2) // N/4，远在弱阈值之上
	step := new(big.Int).Rsh(sigcodec.CurveN, 5)
	for i := 0; i < n; i++ {
		out = append(out, sigBig(new(big.Int).Set(v)))
		// 步长逐次翻倍，二阶差分与数值同量级
		v = new(big.Int).Add(v, step)
		step = new(big.Int).Mul(step, big.NewInt(2))
	}
	return out
}

func TestScanWeakNonce(t *testing.T) {
	// 10 个签名中 4 个低于 N/1000（40% > 30%）
	sigs := randomishSigs(6)
	for i := int64(1); i <= 4; i++ {
		sigs = append(sigs, sig(i*31))
	}
	s := NewScanner(&fakeSource{sigs: sigs})

	finding, err := s.Scan(context.Background(), "0xabc")
	require.NoError(t, err)
	require.NotNil(t, finding)
	assert.Equal(t, KindWeakNonce, finding.Kind)
	assert.Equal(t, SeverityWeakNonce, finding.Severity)
	assert.Contains(t, finding.Detail, "4/10")
}

func TestScanWeakNonceBelowThreshold(t *testing.T) {
	// 仅 2/10 = 20%，不触发
	sigs := randomishSigs(8)
	sigs = append(sigs, sig(31), sig(67))
	s := NewScanner(&fakeSource{sigs: sigs})

	finding, err := s.Scan(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Nil(t, finding)
}

func TestScanDropsMalformed(t *testing.T) {
	// 畸形签名（r=0、s 超界）被丢弃后样本不足
	src := &fakeSource{sigs: []*sigcodec.Signature{
		{R: big.NewInt(0), S: big.NewInt(1), Recovery: -1},
		{R: big.NewInt(5), S: new(big.Int).Set(sigcodec.CurveN), Recovery: -1},
		sig(99),
	}}
	s := NewScanner(src)

	finding, err := s.Scan(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Nil(t, finding)
}

func TestScanSourceError(t *testing.T) {
	s := NewScanner(&fakeSource{err: errors.New("boom")})

	_, err := s.Scan(context.Background(), "0xabc")
	assert.Error(t, err)
}
