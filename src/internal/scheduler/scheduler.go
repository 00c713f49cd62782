package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/admi-n/nonce-Excavator/src/internal/decision"
	"github.com/admi-n/nonce-Excavator/src/internal/prioritizer"
	"github.com/admi-n/nonce-Excavator/src/internal/scanner"
)

// State 调度器生命周期状态
type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ScheduleSource 提供本周期要处理的活跃地址列表
type ScheduleSource interface {
	ListActiveTargets(ctx context.Context) ([]string, error)
}

// FindingSink 持久化发现及产生它的决策依据
type FindingSink interface {
	Persist(ctx context.Context, address, kind string, severity int, detail, reasoning string, confidence int) error
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

// Config 调度器依赖注入
type Config struct {
	Source  ScheduleSource
	Assess  Assessor
	Policy  Decider
	Scanner AddressScanner
	Sink    FindingSink
	Verbose bool
}

// Scheduler 周期扫描调度器。周期串行执行且互不重叠：
// 下一次触发在上一个周期完成之后才重新装载定时器，
// 慢周期自然延后而不是并发堆积
type Scheduler struct {
	cfg Config

	mu     sync.Mutex
	state  State
	stopCh chan struct{}
	done   chan struct{}

	lastScan map[string]time.Time
}

// NewScheduler 创建调度器，初始状态 Idle
func NewScheduler(cfg Config) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		state:    StateIdle,
		lastScan: make(map[string]time.Time),
	}
}

// State 返回当前生命周期状态
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start 启动周期循环。已在运行时为幂等 no-op；
// Stopped 状态下可以重新启动
func (s *Scheduler) Start(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateRunning {
		fmt.Println("⚠️  调度器已在运行，忽略重复启动")
		return
	}

	s.state = StateRunning
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})

	fmt.Printf("🚀 调度器启动，扫描间隔: %v\n", interval)
	go s.run(interval, s.stopCh, s.done)
}

// Stop 停止调度器。幂等；进行中的周期会完整结束，
// 但下一次触发不再发生
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning {
		return
	}

	s.state = StateStopped
	close(s.stopCh)
	fmt.Println("🛑 调度器停止")
}

// Wait 阻塞到当前循环 goroutine 退出，用于干净关闭
func (s *Scheduler) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done != nil {
		<-done
	}
}

func (s *Scheduler) run(interval time.Duration, stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		s.runCycle(context.Background())

		// 定时器在周期完成后才装载
		timer := time.NewTimer(interval)
		select {
		case <-stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// runCycle 执行一个完整扫描周期
func (s *Scheduler) runCycle(ctx context.Context) {
	targets, err := s.cfg.Source.ListActiveTargets(ctx)
	if err != nil {
		fmt.Printf("❌ 获取目标列表失败: %v\n", err)
		return
	}

	if s.cfg.Verbose {
		fmt.Printf("🔄 扫描周期开始，目标数: %d\n", len(targets))
	}

	for _, address := range targets {
		s.processTarget(ctx, address)
	}

	if s.cfg.Verbose {
		fmt.Println("✅ 扫描周期完成")
	}
}

// processTarget 处理单个目标。任何错误（包括 panic）只影响该目标，
// 不中断本周期的其余目标和后续周期
func (s *Scheduler) processTarget(ctx context.Context, address string) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("❌ 目标 %s 处理崩溃: %v\n", address, r)
		}
	}()

	assessment := s.cfg.Assess.Assess(ctx, address)

	d := s.cfg.Policy.Decide(ctx, decision.State{
		Address:     address,
		Priority:    assessment.Priority,
		Risk:        assessment.Risk,
		Depth:       assessment.Depth,
		LastScanned: s.lastScanned(address),
	})

	switch d.Action {
	case decision.ActionSkip:
		if s.cfg.Verbose {
			fmt.Printf("⏭️  跳过 %s: %s (置信度 %d)\n", address, d.Reasoning, d.Confidence)
		}
		return
	case decision.ActionScan, decision.ActionDeepScan:
		// 继续扫描
	default:
		fmt.Printf("⚠️  未知动作 %q，跳过 %s\n", d.Action, address)
		return
	}

	finding, err := s.cfg.Scanner.Scan(ctx, address)
	if err != nil {
		fmt.Printf("❌ 扫描 %s 失败: %v\n", address, err)
		return
	}

	s.recordScanned(address)

	if finding == nil {
		if s.cfg.Verbose {
			fmt.Printf("✅ %s 未发现漏洞\n", address)
		}
		return
	}

	fmt.Printf("🚨 发现漏洞 [%s] %s 严重度 %d\n", finding.Kind, address, finding.Severity)

	if err := s.cfg.Sink.Persist(ctx, finding.Address, string(finding.Kind), finding.Severity,
		finding.Detail, d.Reasoning, d.Confidence); err != nil {
		fmt.Printf("❌ 持久化 %s 的发现失败: %v\n", address, err)
	}
}

func (s *Scheduler) lastScanned(address string) *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.lastScan[address]; ok {
		return &t
	}
	return nil
}

func (s *Scheduler) recordScanned(address string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastScan[address] = time.Now()
}
