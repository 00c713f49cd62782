package decision

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/admi-n/nonce-Excavator/src/internal/ai/parser"
	"github.com/admi-n/nonce-Excavator/src/internal/prioritizer"
	"github.com/admi-n/nonce-Excavator/src/strategy/prompts"
)

// Action 调度器可执行的动作
type Action string

const (
	ActionSkip     Action = "skip"
	ActionScan     Action = "scan"
	ActionDeepScan Action = "deep_scan"
)

// Decision 每个 (地址, 周期) 产出一个决策，供调度器消费
type Decision struct {
	Action     Action
	Reasoning  string
	Confidence int // 0-100
}

// State 决策输入：地址当前的风险状态
type State struct {
	Address     string
	Priority    prioritizer.PriorityTier
	Risk        int
	Depth       int
	LastScanned *time.Time
}

// DecisionModel 外部决策模型协作方：输入状态描述，输出自由文本
type DecisionModel interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Policy 无状态的动作分类器。配置了决策模型时优先走模型路径，
// 模型不可用或响应解析失败时回退到确定性规则表
type Policy struct {
	model   DecisionModel // 可为 nil
	parser  *parser.Parser
	verbose bool
}

// NewPolicy 创建决策策略。model 传 nil 时只使用规则表
func NewPolicy(model DecisionModel, verbose bool) *Policy {
	return &Policy{
		model:   model,
		parser:  parser.NewParser(),
		verbose: verbose,
	}
}

// Decide 为给定状态选择一个动作
func (p *Policy) Decide(ctx context.Context, state State) Decision {
	if p.model == nil {
		return fallbackDecision(state)
	}

	d, err := p.decideWithModel(ctx, state)
	if err != nil {
		if p.verbose {
			fmt.Printf("⚠️  决策模型失败 (%s): %v，回退到规则表\n", state.Address, err)
		}
		return fallbackDecision(state)
	}
	return d
}

// decideWithModel 模型路径：构建状态描述 prompt，解析响应中的首个 JSON 对象
func (p *Policy) decideWithModel(ctx context.Context, state State) (Decision, error) {
	lastScanned := ""
	if state.LastScanned != nil {
		lastScanned = state.LastScanned.Format(time.RFC3339)
	}

	prompt := prompts.BuildDecisionPrompt(
		state.Address, string(state.Priority), state.Risk, state.Depth, lastScanned)

	response, err := p.model.Generate(ctx, prompt)
	if err != nil {
		return Decision{}, fmt.Errorf("决策模型请求失败: %w", err)
	}

	parsed, err := p.parser.ParseDecision(response)
	if err != nil {
		return Decision{}, err
	}

	action, err := parseAction(parsed.Action)
	if err != nil {
		return Decision{}, err
	}

	return Decision{
		Action:     action,
		Reasoning:  parsed.Reasoning,
		Confidence: int(math.Round(*parsed.Confidence)),
	}, nil
}

// parseAction 归一化模型返回的动作名
func parseAction(raw string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "skip":
		return ActionSkip, nil
	case "scan":
		return ActionScan, nil
	case "deep_scan", "deep-scan", "deepscan":
		return ActionDeepScan, nil
	default:
		return "", fmt.Errorf("未知的决策动作: %q", raw)
	}
}

// fallbackDecision 离线行为的唯一依据：确定性规则表。
// 动作和置信度常量是契约的一部分，不是装饰——不得改动。
// 所有阈值比较使用严格大于
func fallbackDecision(state State) Decision {
	switch state.Priority {
	case prioritizer.TierHigh:
		if state.Risk > 70 {
			return Decision{
				Action:     ActionDeepScan,
				Reasoning:  fmt.Sprintf("高优先级地址且风险评分 %d 超过 70，执行深度扫描", state.Risk),
				Confidence: 98,
			}
		}
		return Decision{
			Action:     ActionScan,
			Reasoning:  fmt.Sprintf("高优先级地址，风险评分 %d，执行标准扫描", state.Risk),
			Confidence: 95,
		}

	case prioritizer.TierMedium:
		if state.Risk > 60 {
			return Decision{
				Action:     ActionScan,
				Reasoning:  fmt.Sprintf("中优先级地址且风险评分 %d 超过 60，执行标准扫描", state.Risk),
				Confidence: 85,
			}
		}
		return Decision{
			Action:     ActionSkip,
			Reasoning:  fmt.Sprintf("中优先级地址，风险评分 %d 不足 60，本周期跳过", state.Risk),
			Confidence: 80,
		}

	default: // Low 及任何未知档位按最保守处理
		if state.Risk > 80 {
			return Decision{
				Action:     ActionScan,
				Reasoning:  fmt.Sprintf("低优先级地址但风险评分 %d 异常偏高，执行标准扫描", state.Risk),
				Confidence: 75,
			}
		}
		return Decision{
			Action:     ActionSkip,
			Reasoning:  fmt.Sprintf("低优先级地址，风险评分 %d，本周期跳过", state.Risk),
			Confidence: 90,
		}
	}
}
