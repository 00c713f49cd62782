package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/admi-n/nonce-Excavator/src/internal"
	"github.com/admi-n/nonce-Excavator/src/internal/decision"
	"github.com/admi-n/nonce-Excavator/src/internal/pipeline"
	"github.com/admi-n/nonce-Excavator/src/internal/report"
)

// RunTargeted 执行单地址一次性扫描：创建扫描记录，等待管线完成，
// 输出结果并生成 markdown 报告
func RunTargeted(cfg internal.ScanConfig) error {
	fmt.Println("🎯 启动定向扫描...")

	ctx := context.Background()
	c, err := buildComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	p := pipeline.NewPipeline(pipeline.Config{
		Store:   c.store,
		Assess:  c.assess,
		Policy:  c.policy,
		Scanner: c.scanner,
		Sink:    c.store,
		Verbose: cfg.Verbose,
	})

	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Printf("扫描目标: %s\n", cfg.TargetAddress)
	fmt.Println(strings.Repeat("=", 50) + "\n")

	handle, err := p.CreateScan(ctx, cfg.TargetAddress)
	if err != nil {
		return fmt.Errorf("创建扫描失败: %w", err)
	}

	fmt.Printf("📋 扫描 ID: %s\n", handle.ID)
	p.Wait()

	result, ok := p.GetScan(handle.ID)
	if !ok {
		return fmt.Errorf("扫描记录丢失: %s", handle.ID)
	}

	printScanResult(result)

	if result.Status == pipeline.StatusFailed {
		return fmt.Errorf("扫描失败: %s", result.Error)
	}

	// 生成报告
	reportDir := cfg.ReportDir
	if reportDir == "" {
		reportDir = "reports"
	}

	path, err := buildReport(cfg, result, reportDir)
	if err != nil {
		return fmt.Errorf("生成报告失败: %w", err)
	}
	fmt.Printf("📄 报告已保存: %s\n", path)

	return nil
}

func printScanResult(result pipeline.ScanResult) {
	fmt.Printf("\n📊 扫描状态: %s\n", result.Status)
	fmt.Printf("🧭 决策: %s (置信度 %d)\n", result.Decision.Action, result.Decision.Confidence)
	fmt.Printf("   依据: %s\n", result.Decision.Reasoning)

	if result.Finding != nil {
		fmt.Printf("\n🚨 发现漏洞: %s\n", result.Finding.Kind)
		fmt.Printf("   严重度: %d\n", result.Finding.Severity)
		fmt.Printf("   详情: %s\n", result.Finding.Detail)
	} else if result.Decision.Action != decision.ActionSkip && result.Status == pipeline.StatusCompleted {
		fmt.Println("\n✅ 未发现漏洞")
	}
}

func buildReport(cfg internal.ScanConfig, result pipeline.ScanResult, reportDir string) (string, error) {
	provider := cfg.AIProvider
	if provider == "" {
		provider = "offline"
	}

	r := report.NewReport("targeted", provider)

	target := report.NewTargetResult(result.Target)
	target.ScanTime = time.Now()
	target.SetDecision(string(result.Decision.Action), result.Decision.Reasoning, result.Decision.Confidence)
	if result.Status == pipeline.StatusFailed {
		target.SetStatus("❌ 扫描失败: " + result.Error)
	}
	if result.Finding != nil {
		target.AddFinding(report.FindingEntry{
			Kind:     string(result.Finding.Kind),
			Severity: result.Finding.Severity,
			Detail:   result.Finding.Detail,
		})
	}
	r.AddTargetResult(target)

	reporter := report.NewReporter(report.NewMarkdownGenerator(), report.NewFileStorage(reportDir))
	return reporter.GenerateAndSave(r)
}
