package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportAggregation(t *testing.T) {
	r := NewReport("targeted", "deepseek")

	clean := NewTargetResult("0xclean")
	r.AddTargetResult(clean)

	vulnerable := NewTargetResult("0xvuln")
	vulnerable.SetDecision("deep_scan", "high risk address", 98)
	vulnerable.AddFinding(FindingEntry{Kind: "nonce-reuse", Severity: 95, Detail: "repeated r value"})
	r.AddTargetResult(vulnerable)

	assert.Equal(t, 2, r.TotalTargets)
	assert.Equal(t, 1, r.VulnerableTargets)
	assert.Equal(t, 1, r.KindDistribution["nonce-reuse"])
}

func TestMarkdownGenerator(t *testing.T) {
	r := NewReport("daemon", "local-llm")
	target := NewTargetResult("0xvuln")
	target.SetDecision("scan", "elevated risk", 85)
	target.AddFinding(FindingEntry{Kind: "weak-nonce", Severity: 70, Detail: "3/10 low entropy"})
	r.AddTargetResult(target)

	content, err := NewMarkdownGenerator().Generate(r)
	require.NoError(t, err)

	assert.Contains(t, content, "# Nonce Excavator 扫描报告")
	assert.Contains(t, content, "0xvuln")
	assert.Contains(t, content, "weak-nonce")
	assert.Contains(t, content, "elevated risk")
	assert.Contains(t, content, "🟡") // 严重度 70 的图标
}

func TestFileStorageSave(t *testing.T) {
	dir := t.TempDir()
	storage := NewFileStorage(filepath.Join(dir, "reports"))

	r := NewReport("targeted", "deepseek")
	path, err := storage.Save(r, "# content")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# content", string(data))
}

func TestReporterGenerateAndSave(t *testing.T) {
	dir := t.TempDir()
	reporter := NewReporter(NewMarkdownGenerator(), NewFileStorage(dir))

	r := NewReport("targeted", "none")
	r.AddTargetResult(NewTargetResult("0xabc"))

	path, err := reporter.GenerateAndSave(r)
	require.NoError(t, err)
	assert.FileExists(t, path)
}
