package report

import (
	"fmt"
	"time"
)

// Reporter 报告器，整合生成器和存储功能
type Reporter struct {
	generator Generator
	storage   Storage
}

// NewReporter 创建报告器
func NewReporter(generator Generator, storage Storage) *Reporter {
	return &Reporter{
		generator: generator,
		storage:   storage,
	}
}

// GenerateAndSave 生成并保存报告
func (r *Reporter) GenerateAndSave(report *Report) (string, error) {
	// 生成报告内容
	content, err := r.generator.Generate(report)
	if err != nil {
		return "", fmt.Errorf("failed to generate report: %w", err)
	}

	// 保存报告
	filepath, err := r.storage.Save(report, content)
	if err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}

	return filepath, nil
}

// NewReport 创建新的报告实例
func NewReport(mode, aiProvider string) *Report {
	return &Report{
		Mode:             mode,
		AIProvider:       aiProvider,
		ScanTime:         time.Now(),
		KindDistribution: make(map[string]int),
		Results:          make([]TargetResult, 0),
	}
}

// AddTargetResult 添加单个地址的扫描结果
func (r *Report) AddTargetResult(result TargetResult) {
	r.Results = append(r.Results, result)
	r.TotalTargets++

	if len(result.Findings) > 0 {
		r.VulnerableTargets++

		// 统计漏洞类型分布
		for _, f := range result.Findings {
			r.KindDistribution[f.Kind]++
		}
	}
}

// NewTargetResult 创建新的地址扫描结果
func NewTargetResult(address string) TargetResult {
	return TargetResult{
		Address:  address,
		ScanTime: time.Now(),
		Status:   "✅ 扫描完成",
		Findings: make([]FindingEntry, 0),
	}
}

// AddFinding 添加漏洞发现
func (t *TargetResult) AddFinding(f FindingEntry) {
	t.Findings = append(t.Findings, f)
}

// SetStatus 设置扫描状态
func (t *TargetResult) SetStatus(status string) {
	t.Status = status
}

// SetDecision 记录产生本次扫描的决策
func (t *TargetResult) SetDecision(action, reasoning string, confidence int) {
	t.DecisionAction = action
	t.DecisionReasoning = reasoning
	t.DecisionConfidence = confidence
}
