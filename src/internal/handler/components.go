package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/admi-n/nonce-Excavator/src/config"
	"github.com/admi-n/nonce-Excavator/src/internal"
	"github.com/admi-n/nonce-Excavator/src/internal/ai"
	"github.com/admi-n/nonce-Excavator/src/internal/decision"
	"github.com/admi-n/nonce-Excavator/src/internal/prioritizer"
	"github.com/admi-n/nonce-Excavator/src/internal/scanner"
	"github.com/admi-n/nonce-Excavator/src/internal/sigsource"
	"github.com/admi-n/nonce-Excavator/src/internal/store"
)

// components 两种运行模式共享的装配结果
type components struct {
	store    *store.Store
	scanner  *scanner.Scanner
	assess   *prioritizer.Prioritizer
	policy   *decision.Policy
	manager  *ai.Manager
	explorer *sigsource.ExplorerSource
	closeDB  func() error
}

// Close 逆序释放资源
func (c *components) Close() {
	if c.manager != nil {
		c.manager.Close()
	}
	if c.explorer != nil {
		c.explorer.Close()
	}
	if c.closeDB != nil {
		c.closeDB()
	}
}

// buildComponents 装配数据库、签名源、AI 协作方和核心组件。
// AIProvider 为空时评分和决策都走离线路径
func buildComponents(ctx context.Context, cfg internal.ScanConfig) (*components, error) {
	// 1. 初始化数据库
	fmt.Println("📊 正在连接数据库...")
	db, err := config.InitDB("")
	if err != nil {
		return nil, fmt.Errorf("初始化数据库失败: %w", err)
	}
	fmt.Println("✅ 数据库连接成功!")

	st := store.NewStore(db, config.DriverForDSN(config.GetDatabaseDSN()))
	if err := st.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("初始化数据库表失败: %w", err)
	}

	c := &components{
		store:   st,
		closeDB: db.Close,
	}

	// 2. 选择签名源
	var source scanner.TransactionSource
	switch strings.ToLower(strings.TrimSpace(cfg.SigSource)) {
	case "", "db":
		source = sigsource.NewDBSource(st, cfg.Verbose)
	case "explorer":
		key, err := config.GetExplorerKey()
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("explorer 签名源需要 API key: %w", err)
		}
		explorer, err := sigsource.NewExplorerSource(sigsource.ExplorerConfig{
			APIKey:  key,
			BaseURL: config.GetExplorerBaseURL(),
			ChainID: config.GetExplorerChainID(),
			Proxy:   cfg.Proxy,
		}, 5)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("创建 explorer 签名源失败: %w", err)
		}
		c.explorer = explorer
		source = explorer
	default:
		c.Close()
		return nil, fmt.Errorf("不支持的签名源: %s", cfg.SigSource)
	}

	c.scanner = scanner.NewScanner(source)

	// 3. AI 协作方（可选）
	var scorer prioritizer.RiskScorer
	var model decision.DecisionModel
	if cfg.AIProvider != "" {
		manager, err := ai.NewManager(ai.ManagerConfig{
			Provider: cfg.AIProvider,
			Timeout:  cfg.Timeout,
			Proxy:    cfg.Proxy,
			Verbose:  cfg.Verbose,
		})
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("创建 AI 管理器失败: %w", err)
		}
		c.manager = manager
		scorer = ai.NewScorer(manager)
		model = manager
		fmt.Printf("🤖 使用 AI 提供商: %s\n", manager.GetClientInfo())
	} else {
		fmt.Println("📴 离线模式：确定性评分 + 规则表决策")
	}

	c.assess = prioritizer.New(scorer, cfg.Timeout, cfg.Verbose)
	c.policy = decision.NewPolicy(model, cfg.Verbose)

	return c, nil
}
