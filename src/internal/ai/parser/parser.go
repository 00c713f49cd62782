package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoJSON 响应中不存在可解析的 JSON 对象
var ErrNoJSON = errors.New("parser: 响应中未找到格式正确的 JSON 对象")

// Parser 解析模型返回的自由文本，从中提取结构化结果。
// 模型的回复经常混杂说明文字和 markdown 代码块，解析策略是宽容的：
// 先尝试整体解析，再剥 markdown 代码围栏，最后扫描第一个配平的 {...} 块
type Parser struct {
	jsonExtractor *regexp.Regexp
}

// NewParser 创建新的解析器
func NewParser() *Parser {
	jsonRegex := regexp.MustCompile("```(?:json)?\n?([\\s\\S]*?)\n?```")

	return &Parser{
		jsonExtractor: jsonRegex,
	}
}

// DecisionResponse 决策模型的期望输出
type DecisionResponse struct {
	Action     string   `json:"action"`
	Reasoning  string   `json:"reasoning"`
	Confidence *float64 `json:"confidence"`
}

// ScoreResponse 风险评分模型的期望输出
type ScoreResponse struct {
	Priority string   `json:"priority"`
	Risk     *float64 `json:"risk"`
	Depth    *int     `json:"depth"`
}

// ExtractObject 返回响应中第一个配平且格式正确的 JSON 对象文本
func (p *Parser) ExtractObject(response string) (string, error) {
	// 整体就是 JSON 的快速路径
	trimmed := strings.TrimSpace(response)
	if strings.HasPrefix(trimmed, "{") && json.Valid([]byte(trimmed)) {
		return trimmed, nil
	}

	// markdown 代码块内的 JSON
	if matches := p.jsonExtractor.FindStringSubmatch(response); len(matches) > 1 {
		candidate := strings.TrimSpace(matches[1])
		if json.Valid([]byte(candidate)) {
			return candidate, nil
		}
	}

	// 扫描第一个配平的 {...} 块，跳过字符串字面量内的花括号
	if candidate := firstBalancedObject(response); candidate != "" {
		return candidate, nil
	}

	return "", ErrNoJSON
}

// firstBalancedObject 逐个 '{' 起点尝试配平，返回第一个有效对象
func firstBalancedObject(text string) string {
	for start := 0; start < len(text); start++ {
		if text[start] != '{' {
			continue
		}
		if end := balanceFrom(text, start); end > start {
			candidate := text[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate
			}
		}
	}
	return ""
}

// balanceFrom 从 text[start]=='{' 起找到配平的 '}' 下标，找不到返回 -1
func balanceFrom(text string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// ParseDecision 解析决策模型响应。action/reasoning/confidence 三个字段
// 缺失或取值非法一律视为解析失败，调用方回退到确定性规则表
func (p *Parser) ParseDecision(response string) (*DecisionResponse, error) {
	obj, err := p.ExtractObject(response)
	if err != nil {
		return nil, err
	}

	var result DecisionResponse
	if err := json.Unmarshal([]byte(obj), &result); err != nil {
		return nil, fmt.Errorf("parser: 解析决策 JSON 失败: %w", err)
	}

	if strings.TrimSpace(result.Action) == "" {
		return nil, fmt.Errorf("parser: 决策响应缺少 action 字段")
	}
	if strings.TrimSpace(result.Reasoning) == "" {
		return nil, fmt.Errorf("parser: 决策响应缺少 reasoning 字段")
	}
	if result.Confidence == nil || *result.Confidence < 0 || *result.Confidence > 100 {
		return nil, fmt.Errorf("parser: 决策响应的 confidence 字段缺失或超出 [0,100]")
	}

	return &result, nil
}

// ParseScore 解析风险评分响应，字段要求同样严格
func (p *Parser) ParseScore(response string) (*ScoreResponse, error) {
	obj, err := p.ExtractObject(response)
	if err != nil {
		return nil, err
	}

	var result ScoreResponse
	if err := json.Unmarshal([]byte(obj), &result); err != nil {
		return nil, fmt.Errorf("parser: 解析评分 JSON 失败: %w", err)
	}

	if strings.TrimSpace(result.Priority) == "" {
		return nil, fmt.Errorf("parser: 评分响应缺少 priority 字段")
	}
	if result.Risk == nil || *result.Risk < 0 || *result.Risk > 100 {
		return nil, fmt.Errorf("parser: 评分响应的 risk 字段缺失或超出 [0,100]")
	}
	if result.Depth == nil || *result.Depth < 1 || *result.Depth > 3 {
		return nil, fmt.Errorf("parser: 评分响应的 depth 字段缺失或超出 [1,3]")
	}

	return &result, nil
}
