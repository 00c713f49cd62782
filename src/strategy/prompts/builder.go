package prompts

import (
	"fmt"
	"strings"
	"text/template"
)

// BuildPrompt 使用模板和变量构建最终的 prompt
func BuildPrompt(templateContent string, variables map[string]string) string {
	tmpl, err := template.New("prompt").Parse(templateContent)
	if err != nil {
		return fmt.Sprintf("模板解析失败: %v\n原始模板:\n%s", err, templateContent)
	}

	var result strings.Builder
	if err := tmpl.Execute(&result, variables); err != nil {
		return fmt.Sprintf("模板执行失败: %v\n原始模板:\n%s", err, templateContent)
	}

	return result.String()
}

// BuildDecisionPrompt 构建扫描决策 prompt：描述地址当前风险状态和
// 三个允许的动作，要求模型返回固定 schema 的 JSON
func BuildDecisionPrompt(address, priority string, risk, depth int, lastScanned string) string {
	templateContent, err := LoadTemplate("decision")
	if err != nil {
		templateContent = defaultDecisionTemplate
	}

	if lastScanned == "" {
		lastScanned = "never"
	}

	return BuildPrompt(templateContent, map[string]string{
		"Address":     address,
		"Priority":    priority,
		"Risk":        fmt.Sprintf("%d", risk),
		"Depth":       fmt.Sprintf("%d", depth),
		"LastScanned": lastScanned,
	})
}

// BuildScoringPrompt 构建地址风险评分 prompt
func BuildScoringPrompt(address string) string {
	templateContent, err := LoadTemplate("scoring")
	if err != nil {
		templateContent = defaultScoringTemplate
	}

	return BuildPrompt(templateContent, map[string]string{
		"Address": address,
	})
}

const defaultDecisionTemplate = `You are deciding how to handle one blockchain address in an ECDSA signature vulnerability scanning cycle.

**Address state:**
- Address: {{.Address}}
- Priority tier: {{.Priority}}
- Risk score (0-100): {{.Risk}}
- Analysis depth (1-3): {{.Depth}}
- Last scanned: {{.LastScanned}}

**Allowed actions (choose exactly one):**
- "skip": the address is not worth scanning this cycle
- "scan": run a standard signature vulnerability scan
- "deep_scan": run an exhaustive signature vulnerability scan

Respond with ONLY a JSON object in this exact format:
{"action": "skip|scan|deep_scan", "reasoning": "one sentence justification", "confidence": 0-100}`

const defaultScoringTemplate = `Estimate the scanning priority of the blockchain address {{.Address}} for ECDSA nonce-weakness auditing.

Respond with ONLY a JSON object in this exact format:
{"priority": "High|Medium|Low", "risk": 0-100, "depth": 1-3}`
