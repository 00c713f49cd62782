package internal

import "time"

// ScanConfig 跨层传递的扫描配置，由 CLI 解析后填充
type ScanConfig struct {
	AIProvider    string // 为空表示离线模式（确定性评分 + 规则表决策）
	SigSource     string // "db" 或 "explorer"
	TargetAddress string // 一次性扫描目标
	Interval      time.Duration
	Proxy         string
	Verbose       bool
	Timeout       time.Duration
	ReportDir     string
}
