package prioritizer

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"
)

// PriorityTier 风险优先级档位
type PriorityTier string

const (
	TierHigh   PriorityTier = "High"
	TierMedium PriorityTier = "Medium"
	TierLow    PriorityTier = "Low"
)

// RiskAssessment 每个周期重新推导的风险估计，不单独持久化
type RiskAssessment struct {
	Priority PriorityTier
	Risk     int // 0-100
	Depth    int // 1-3
}

// 评分协作方失败时的安全默认值：优先级评估绝不能阻塞扫描周期
var safeDefault = RiskAssessment{Priority: TierMedium, Risk: 50, Depth: 2}

// RiskScorer 外部评分协作方。任何失败（超时、响应畸形、未配置凭据）
// 由调用方统一按"不可用"处理
type RiskScorer interface {
	Score(ctx context.Context, address string) (RiskAssessment, error)
}

// Prioritizer 把地址映射为粗粒度风险估计
type Prioritizer struct {
	scorer  RiskScorer // 可为 nil，表示离线模式
	timeout time.Duration
	verbose bool
}

// New 创建优先级评估器。scorer 传 nil 进入离线确定性模式
func New(scorer RiskScorer, timeout time.Duration, verbose bool) *Prioritizer {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Prioritizer{scorer: scorer, timeout: timeout, verbose: verbose}
}

// Assess 评估一个地址。评分协作方缺席或失败时回退为：
//   - 已配置协作方但调用失败 → 安全默认 {Medium, 50, 2}
//   - 未配置协作方（离线/测试模式）→ 地址哈希推导的确定性伪评分，
//     同一地址永远得到同一评估
func (p *Prioritizer) Assess(ctx context.Context, address string) RiskAssessment {
	if p.scorer == nil {
		return deterministicAssessment(address)
	}

	scoreCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	assessment, err := p.scorer.Score(scoreCtx, address)
	if err != nil {
		if p.verbose {
			fmt.Printf("⚠️  评分服务不可用 (%s): %v，使用安全默认值\n", address, err)
		}
		return safeDefault
	}
	if !assessment.valid() {
		if p.verbose {
			fmt.Printf("⚠️  评分服务返回畸形结果 (%s): %+v，使用安全默认值\n", address, assessment)
		}
		return safeDefault
	}
	return assessment
}

func (a RiskAssessment) valid() bool {
	switch a.Priority {
	case TierHigh, TierMedium, TierLow:
	default:
		return false
	}
	return a.Risk >= 0 && a.Risk <= 100 && a.Depth >= 1 && a.Depth <= 3
}

// deterministicAssessment 从地址的稳定哈希推导评估，保证离线模式可测试
func deterministicAssessment(address string) RiskAssessment {
	sum := sha256.Sum256([]byte(address))

	risk := int(sum[0]) % 101
	depth := 1 + int(sum[1])%3

	var tier PriorityTier
	switch {
	case risk > 66:
		tier = TierHigh
	case risk > 33:
		tier = TierMedium
	default:
		tier = TierLow
	}

	return RiskAssessment{Priority: tier, Risk: risk, Depth: depth}
}
