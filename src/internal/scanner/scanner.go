package scanner

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/admi-n/nonce-Excavator/src/internal/sigcodec"
)

// FindingKind 漏洞发现的封闭类型集合
type FindingKind string

const (
	KindNonceReuse       FindingKind = "nonce-reuse"
	KindPolynomialAttack FindingKind = "polynomial-attack"
	KindWeakNonce        FindingKind = "weak-nonce"
)

// 各类发现的固定严重性分值
const (
	SeverityNonceReuse       = 95
	SeverityPolynomialAttack = 85
	SeverityWeakNonce        = 70
)

// PolynomialDiffBound 二阶差分判定上界。
// 这是一个启发式阈值而非密码学推导的界，可按需调整：
// 真随机 nonce 的二阶差分与数值本身同量级，有界的小差分说明生成器是确定性的。
var PolynomialDiffBound = big.NewInt(1000)

// weakNonceDivisor r < N/weakNonceDivisor 视为低熵
var weakNonceDivisor = big.NewInt(1000)

// weakNonceRatioPercent 低熵样本占比超过该百分比才报告
const weakNonceRatioPercent = 30

// Finding 一次扫描产出的漏洞记录，创建后不再修改
type Finding struct {
	Address   string
	Kind      FindingKind
	Severity  int
	Detail    string
	CreatedAt time.Time
}

// TransactionSource 签名获取协作方：返回某地址观测到的全部签名（可为空）
type TransactionSource interface {
	FetchSignatures(ctx context.Context, address string) ([]*sigcodec.Signature, error)
}

// Scanner 对单个地址的签名序列做 ECDSA 弱点检测
type Scanner struct {
	source TransactionSource
}

// NewScanner 创建扫描器
func NewScanner(source TransactionSource) *Scanner {
	return &Scanner{source: source}
}

// Scan 检查一个地址，最多返回一个发现。
// 检查顺序是固定的严重性降序优先级，不可调换——多个条件同时成立时
// 决定了最终浮出的是哪一类：
//  1. 签名少于 2 个 → 证据不足，返回 nil
//  2. nonce 重用（r 值重复）→ 95
//  3. 多项式 nonce（需 ≥3 个签名，二阶差分全部落在 [0,1000)）→ 85
//  4. 弱 nonce（r < N/1000 的样本超过 30%）→ 70
func (s *Scanner) Scan(ctx context.Context, address string) (*Finding, error) {
	sigs, err := s.source.FetchSignatures(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("获取签名失败: %w", err)
	}

	// 畸形签名在分析前丢弃，绝不补造
	valid := sigs[:0:0]
	for _, sig := range sigs {
		if sig.WellFormed() {
			valid = append(valid, sig)
		}
	}

	if len(valid) < 2 {
		return nil, nil
	}

	if f := s.checkNonceReuse(address, valid); f != nil {
		return f, nil
	}
	if f := s.checkPolynomialNonce(address, valid); f != nil {
		return f, nil
	}
	if f := s.checkWeakNonce(address, valid); f != nil {
		return f, nil
	}
	return nil, nil
}

// checkNonceReuse 按 r 值分组，任一分组大小 >1 即为 nonce 重用
func (s *Scanner) checkNonceReuse(address string, sigs []*sigcodec.Signature) *Finding {
	groups := make(map[string][]*sigcodec.Signature, len(sigs))
	for _, sig := range sigs {
		key := sig.R.String()
		groups[key] = append(groups[key], sig)
	}

	for _, group := range groups {
		if len(group) > 1 {
			return &Finding{
				Address:  address,
				Kind:     KindNonceReuse,
				Severity: SeverityNonceReuse,
				Detail: fmt.Sprintf("r 值 %s 在 %d 个签名中重复出现，私钥可被代数恢复",
					truncateR(group[0].R), len(group)),
				CreatedAt: time.Now(),
			}
		}
	}
	return nil
}

// checkPolynomialNonce 对升序排列的 r 值做一阶、二阶差分，
// 全部二阶差分落在 [0, PolynomialDiffBound) 说明 nonce 序列是算术/可预测的
func (s *Scanner) checkPolynomialNonce(address string, sigs []*sigcodec.Signature) *Finding {
	if len(sigs) < 3 {
		return nil
	}

	rs := make([]*big.Int, len(sigs))
	for i, sig := range sigs {
		rs[i] = sig.R
	}
	sortBigInts(rs)

	first := make([]*big.Int, len(rs)-1)
	for i := 1; i < len(rs); i++ {
		first[i-1] = new(big.Int).Sub(rs[i], rs[i-1])
	}

	for i := 1; i < len(first); i++ {
		second := new(big.Int).Sub(first[i], first[i-1])
		if second.Sign() < 0 || second.Cmp(PolynomialDiffBound) >= 0 {
			return nil
		}
	}

	return &Finding{
		Address:  address,
		Kind:     KindPolynomialAttack,
		Severity: SeverityPolynomialAttack,
		Detail: fmt.Sprintf("%d 个签名的 r 值构成近似算术序列（二阶差分 < %s），nonce 生成器可预测",
			len(sigs), PolynomialDiffBound),
		CreatedAt: time.Now(),
	}
}

// checkWeakNonce 统计 r < N/1000 的签名，占比超过 30% 即报告
func (s *Scanner) checkWeakNonce(address string, sigs []*sigcodec.Signature) *Finding {
	threshold := new(big.Int).Div(sigcodec.CurveN, weakNonceDivisor)

	weak := 0
	for _, sig := range sigs {
		if sig.R.Cmp(threshold) < 0 {
			weak++
		}
	}

	// weak/total > 30% ，用整数乘法避免浮点边界问题
	if weak*100 <= weakNonceRatioPercent*len(sigs) {
		return nil
	}

	return &Finding{
		Address:  address,
		Kind:     KindWeakNonce,
		Severity: SeverityWeakNonce,
		Detail: fmt.Sprintf("%d/%d 个签名的 r 值低于曲线阶的 1/1000，nonce 熵不足",
			weak, len(sigs)),
		CreatedAt: time.Now(),
	}
}

// truncateR 截断 r 的十六进制表示便于展示
func truncateR(r *big.Int) string {
	hex := r.Text(16)
	if len(hex) > 16 {
		return "0x" + hex[:16] + "..."
	}
	return "0x" + hex
}

// sortBigInts 升序排序（样本规模小，插入排序足够）
func sortBigInts(xs []*big.Int) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j].Cmp(xs[j-1]) < 0; j-- {
			xs[j], xs[j-1] = xs[j-1], xs[j]
		}
	}
}
