package report

import (
	"fmt"
	"time"
)

// TargetResult 表示单个地址的扫描结果
type TargetResult struct {
	Address            string
	ScanTime           time.Time
	Status             string
	Findings           []FindingEntry
	DecisionAction     string
	DecisionReasoning  string
	DecisionConfidence int
}

// FindingEntry 表示一条漏洞发现
type FindingEntry struct {
	Kind     string
	Severity int
	Detail   string
}

// Report 表示完整的扫描报告
type Report struct {
	Mode              string
	AIProvider        string
	ScanTime          time.Time
	TotalTargets      int
	VulnerableTargets int
	KindDistribution  map[string]int
	Results           []TargetResult
}

// Generator 报告生成器接口
type Generator interface {
	Generate(report *Report) (string, error)
}

// MarkdownGenerator markdown格式报告生成器
type MarkdownGenerator struct{}

// NewMarkdownGenerator 创建markdown报告生成器
func NewMarkdownGenerator() *MarkdownGenerator {
	return &MarkdownGenerator{}
}

// Generate 生成markdown格式报告
func (g *MarkdownGenerator) Generate(report *Report) (string, error) {
	var result string

	// 报告头部
	result += fmt.Sprintf("# Nonce Excavator 扫描报告\n\n")
	result += fmt.Sprintf("**扫描模式**: %s\n", report.Mode)
	result += fmt.Sprintf("**AI 提供商**: %s\n", report.AIProvider)
	result += fmt.Sprintf("**扫描时间**: %s\n\n", report.ScanTime.Format("2006-01-02 15:04:05"))

	// 扫描统计
	result += fmt.Sprintf("## 扫描统计\n\n")
	result += fmt.Sprintf("- **总地址数**: %d\n", report.TotalTargets)
	result += fmt.Sprintf("- **存在漏洞**: %d\n\n", report.VulnerableTargets)

	// 漏洞类型分布
	if len(report.KindDistribution) > 0 {
		result += fmt.Sprintf("## 漏洞类型分布\n\n")
		for kind, count := range report.KindDistribution {
			result += fmt.Sprintf("- **%s**: %d\n", kind, count)
		}
		result += "\n"
	}

	// 详细结果
	result += fmt.Sprintf("## 详细结果\n\n")

	for i, target := range report.Results {
		result += fmt.Sprintf("# 地址: %s\n\n", target.Address)
		result += fmt.Sprintf("**扫描时间**: %s\n", target.ScanTime.Format("2006-01-02 15:04:05"))
		result += fmt.Sprintf("**状态**: %s\n\n", target.Status)

		// 决策依据
		if target.DecisionAction != "" {
			result += fmt.Sprintf("### 决策\n\n")
			result += fmt.Sprintf("**动作**: %s (置信度 %d)\n", target.DecisionAction, target.DecisionConfidence)
			result += fmt.Sprintf("**依据**: %s\n\n", target.DecisionReasoning)
		}

		// 漏洞详情
		if len(target.Findings) > 0 {
			result += fmt.Sprintf("### 漏洞详情\n\n")
			for j, f := range target.Findings {
				icon := getSeverityIcon(f.Severity)
				result += fmt.Sprintf("%d. %s **[严重度 %d]** %s\n", j+1, icon, f.Severity, f.Kind)
				result += fmt.Sprintf("   **描述**: %s\n\n", f.Detail)
			}
		}

		// 如果不是最后一个结果，添加分隔线
		if i < len(report.Results)-1 {
			result += fmt.Sprintf("---\n\n")
		}
	}

	return result, nil
}

// getSeverityIcon 获取严重度分值对应的图标
func getSeverityIcon(severity int) string {
	switch {
	case severity >= 90:
		return "🔴"
	case severity >= 80:
		return "🟠"
	case severity >= 60:
		return "🟡"
	case severity > 0:
		return "🟢"
	default:
		return "⚪"
	}
}
