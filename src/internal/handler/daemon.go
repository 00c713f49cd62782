package handler

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/admi-n/nonce-Excavator/src/config"
	"github.com/admi-n/nonce-Excavator/src/internal"
	"github.com/admi-n/nonce-Excavator/src/internal/scheduler"
)

// RunDaemon 启动周期扫描守护进程，收到 SIGINT/SIGTERM 后优雅停止
func RunDaemon(cfg internal.ScanConfig) error {
	fmt.Println("🔁 启动周期扫描守护进程...")

	ctx := context.Background()
	c, err := buildComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	interval := cfg.Interval
	if interval <= 0 {
		interval = config.GetScanInterval()
	}

	s := scheduler.NewScheduler(scheduler.Config{
		Source:  c.store,
		Assess:  c.assess,
		Policy:  c.policy,
		Scanner: c.scanner,
		Sink:    c.store,
		Verbose: cfg.Verbose,
	})

	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("周期扫描已启动，Ctrl+C 停止")
	fmt.Println(strings.Repeat("=", 50) + "\n")

	s.Start(interval)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\n⏳ 收到停止信号，等待当前周期结束...")
	s.Stop()
	s.Wait()
	fmt.Println("🎉 守护进程已退出")

	return nil
}
