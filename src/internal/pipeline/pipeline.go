package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/admi-n/nonce-Excavator/src/internal/decision"
	"github.com/admi-n/nonce-Excavator/src/internal/prioritizer"
	"github.com/admi-n/nonce-Excavator/src/internal/scanner"
)

// Status 手动扫描记录的状态机：pending → processing → completed|failed
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// ScanHandle 创建扫描后立即返回给调用方的句柄
type ScanHandle struct {
	ID     string
	Status Status
}

// ScanResult 扫描完成后的完整记录
type ScanResult struct {
	ID       string
	Target   string
	Status   Status
	Error    string
	Finding  *scanner.Finding
	Decision decision.Decision
}

// ScanStore 扫描记录持久化协作方，*store.Store 满足该接口
type ScanStore interface {
	CreateScan(ctx context.Context, id, target, status string) error
	UpdateScanStatus(ctx context.Context, id, status, errMsg string) error
}

// Assessor 地址风险评估协作方
type Assessor interface {
	Assess(ctx context.Context, address string) prioritizer.RiskAssessment
}

// Decider 动作决策协作方
type Decider interface {
	Decide(ctx context.Context, state decision.State) decision.Decision
}

// AddressScanner 签名漏洞扫描协作方
type AddressScanner interface {
	Scan(ctx context.Context, address string) (*scanner.Finding, error)
}

// FindingSink 发现持久化协作方
type FindingSink interface {
	Persist(ctx context.Context, address, kind string, severity int, detail, reasoning string, confidence int) error
}

// Config 管线依赖注入
type Config struct {
	Store   ScanStore
	Assess  Assessor
	Policy  Decider
	Scanner AddressScanner
	Sink    FindingSink
	Verbose bool
}

// Pipeline 一次性目标扫描管线。CreateScan 立即返回句柄，
// 扫描在后台推进状态机；不可恢复错误（包括持久化失败）置为 failed
type Pipeline struct {
	cfg Config

	mu      sync.Mutex
	results map[string]*ScanResult
	wg      sync.WaitGroup
}

// NewPipeline 创建手动扫描管线
func NewPipeline(cfg Config) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		results: make(map[string]*ScanResult),
	}
}

// CreateScan 登记一次手动扫描并异步执行
func (p *Pipeline) CreateScan(ctx context.Context, target string) (ScanHandle, error) {
	if target == "" {
		return ScanHandle{}, fmt.Errorf("空的扫描目标")
	}

	id := uuid.New().String()

	if err := p.cfg.Store.CreateScan(ctx, id, target, string(StatusPending)); err != nil {
		return ScanHandle{}, fmt.Errorf("登记扫描记录失败: %w", err)
	}

	p.mu.Lock()
	p.results[id] = &ScanResult{ID: id, Target: target, Status: StatusPending}
	p.mu.Unlock()

	p.wg.Add(1)
	go p.run(id, target)

	return ScanHandle{ID: id, Status: StatusPending}, nil
}

// GetScan 查询扫描记录的当前快照
func (p *Pipeline) GetScan(id string) (ScanResult, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.results[id]
	if !ok {
		return ScanResult{}, false
	}
	return *r, true
}

// Wait 阻塞到所有进行中的扫描结束
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

func (p *Pipeline) run(id, target string) {
	defer p.wg.Done()
	ctx := context.Background()

	p.transition(ctx, id, StatusProcessing, "")

	assessment := p.cfg.Assess.Assess(ctx, target)
	d := p.cfg.Policy.Decide(ctx, decision.State{
		Address:  target,
		Priority: assessment.Priority,
		Risk:     assessment.Risk,
		Depth:    assessment.Depth,
	})

	p.mu.Lock()
	p.results[id].Decision = d
	p.mu.Unlock()

	if d.Action == decision.ActionSkip {
		if p.cfg.Verbose {
			fmt.Printf("⏭️  手动扫描 %s 被决策跳过: %s\n", target, d.Reasoning)
		}
		p.transition(ctx, id, StatusCompleted, "")
		return
	}

	finding, err := p.cfg.Scanner.Scan(ctx, target)
	if err != nil {
		fmt.Printf("❌ 手动扫描 %s 失败: %v\n", target, err)
		p.transition(ctx, id, StatusFailed, err.Error())
		return
	}

	if finding == nil {
		if p.cfg.Verbose {
			fmt.Printf("✅ 手动扫描 %s 未发现漏洞\n", target)
		}
		p.transition(ctx, id, StatusCompleted, "")
		return
	}

	p.mu.Lock()
	p.results[id].Finding = finding
	p.mu.Unlock()

	fmt.Printf("🚨 手动扫描发现漏洞 [%s] %s 严重度 %d\n", finding.Kind, target, finding.Severity)

	if err := p.cfg.Sink.Persist(ctx, finding.Address, string(finding.Kind), finding.Severity,
		finding.Detail, d.Reasoning, d.Confidence); err != nil {
		fmt.Printf("❌ 持久化发现失败: %v\n", err)
		p.transition(ctx, id, StatusFailed, err.Error())
		return
	}

	p.transition(ctx, id, StatusCompleted, "")
}

// transition 同步推进内存快照和持久化记录。
// 持久化状态更新失败只记日志，不回滚内存状态
func (p *Pipeline) transition(ctx context.Context, id string, status Status, errMsg string) {
	p.mu.Lock()
	if r, ok := p.results[id]; ok {
		r.Status = status
		r.Error = errMsg
	}
	p.mu.Unlock()

	if err := p.cfg.Store.UpdateScanStatus(ctx, id, string(status), errMsg); err != nil {
		fmt.Printf("⚠️  更新扫描状态失败 (%s → %s): %v\n", id, status, err)
	}
}
