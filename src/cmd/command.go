package cmd

import (
	"context"
	"fmt"

	"github.com/admi-n/nonce-Excavator/src/config"
	"github.com/admi-n/nonce-Excavator/src/internal"
	"github.com/admi-n/nonce-Excavator/src/internal/handler"
	"github.com/admi-n/nonce-Excavator/src/internal/store"
)

// ExecuteAddTarget 把地址登记进调度目标表
func ExecuteAddTarget(cfg *CLIConfig) error {
	fmt.Printf("📝 登记调度目标: %s\n", cfg.AddTarget)

	db, err := config.InitDB("")
	if err != nil {
		return fmt.Errorf("初始化数据库失败: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	st := store.NewStore(db, config.DriverForDSN(config.GetDatabaseDSN()))
	if err := st.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("初始化数据库表失败: %w", err)
	}

	if err := st.AddTarget(ctx, cfg.AddTarget); err != nil {
		return fmt.Errorf("登记目标失败: %w", err)
	}

	fmt.Println("✅ 目标已登记，守护进程将在下个周期处理")
	return nil
}

// ExecuteScan 执行扫描命令（守护进程或一次性）
func ExecuteScan(cfg *CLIConfig) error {
	// 加载配置文件
	if err := config.LoadSettings("src/config/settings.yaml"); err != nil {
		fmt.Printf("⚠️  警告: 无法加载配置文件: %v\n", err)
		fmt.Println("将尝试从环境变量读取配置...")
	}

	// 将 CLIConfig 映射到 internal.ScanConfig
	internalCfg := internal.ScanConfig{
		AIProvider:    cfg.AIProvider,
		SigSource:     cfg.SigSource,
		TargetAddress: cfg.TargetAddress,
		Interval:      cfg.Interval,
		Proxy:         cfg.Proxy,
		Verbose:       cfg.Verbose,
		Timeout:       cfg.Timeout,
		ReportDir:     cfg.ReportDir,
	}

	if cfg.Daemon {
		fmt.Println("🔁 启动守护进程处理器...")
		return handler.RunDaemon(internalCfg)
	}

	fmt.Println("🎯 启动定向扫描处理器...")
	return handler.RunTargeted(internalCfg)
}

// Execute 执行主命令逻辑
func Execute(cfg *CLIConfig) error {
	// 登记目标模式优先
	if cfg.AddTarget != "" {
		return ExecuteAddTarget(cfg)
	}

	if cfg.Verbose {
		fmt.Printf("使用配置运行 Excavator: %+v\n", cfg)
	}

	return ExecuteScan(cfg)
}
