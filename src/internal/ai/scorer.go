package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/admi-n/nonce-Excavator/src/internal/ai/parser"
	"github.com/admi-n/nonce-Excavator/src/internal/prioritizer"
	"github.com/admi-n/nonce-Excavator/src/strategy/prompts"
)

// Scorer 把 AI 管理器适配成风险评分协作方。
// 响应畸形、字段缺失等都作为错误返回，调用方统一按"评分不可用"处理
type Scorer struct {
	manager *Manager
	parser  *parser.Parser
}

// NewScorer 创建评分器
func NewScorer(manager *Manager) *Scorer {
	return &Scorer{
		manager: manager,
		parser:  parser.NewParser(),
	}
}

// Score 实现 prioritizer.RiskScorer
func (s *Scorer) Score(ctx context.Context, address string) (prioritizer.RiskAssessment, error) {
	var zero prioritizer.RiskAssessment

	prompt := prompts.BuildScoringPrompt(address)
	response, err := s.manager.Generate(ctx, prompt)
	if err != nil {
		return zero, fmt.Errorf("评分请求失败: %w", err)
	}

	score, err := s.parser.ParseScore(response)
	if err != nil {
		return zero, err
	}

	tier, err := parseTier(score.Priority)
	if err != nil {
		return zero, err
	}

	return prioritizer.RiskAssessment{
		Priority: tier,
		Risk:     int(*score.Risk),
		Depth:    *score.Depth,
	}, nil
}

// parseTier 归一化模型返回的档位名（High/H/high 等）
func parseTier(raw string) (prioritizer.PriorityTier, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "high", "h":
		return prioritizer.TierHigh, nil
	case "medium", "m", "mid":
		return prioritizer.TierMedium, nil
	case "low", "l":
		return prioritizer.TierLow, nil
	default:
		return "", fmt.Errorf("未知的优先级档位: %q", raw)
	}
}
