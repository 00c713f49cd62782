package ai

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/admi-n/nonce-Excavator/src/config"
)

// Manager 管理 AI 客户端：凭据解析、速率限制、连接生命周期。
// 作为决策模型协作方（Generate）被注入到决策策略和评分器中，
// 而不是挂成包级单例——这样离线回退路径可以独立测试
type Manager struct {
	client    AIClient
	rateLimit *rateLimiter
	mu        sync.Mutex
}

type rateLimiter struct {
	requests chan struct{}
	interval time.Duration
}

func newRateLimiter(requestsPerMinute int) *rateLimiter {
	rl := &rateLimiter{
		requests: make(chan struct{}, requestsPerMinute),
		interval: time.Minute / time.Duration(requestsPerMinute),
	}

	for i := 0; i < requestsPerMinute; i++ {
		rl.requests <- struct{}{}
	}

	go func() {
		ticker := time.NewTicker(rl.interval)
		defer ticker.Stop()
		for range ticker.C {
			select {
			case rl.requests <- struct{}{}:
			default:
			}
		}
	}()

	return rl
}

func (rl *rateLimiter) Wait(ctx context.Context) error {
	select {
	case <-rl.requests:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type ManagerConfig struct {
	Provider       string
	APIKey         string
	BaseURL        string
	Model          string
	Timeout        time.Duration
	Proxy          string
	RequestsPerMin int
	Verbose        bool
}

// NewManager 创建新的 AI 管理器
func NewManager(cfg ManagerConfig) (*Manager, error) {
	// 如果没有提供 APIKey，尝试从配置文件读取
	if cfg.APIKey == "" && (cfg.Provider == "chatgpt5" || cfg.Provider == "openai" || cfg.Provider == "gpt4") {
		apiKey, err := config.GetOpenAIKey()
		if err != nil {
			return nil, fmt.Errorf("failed to get OpenAI API key from config: %w", err)
		}
		cfg.APIKey = apiKey
	}

	// 支持 DeepSeek
	if cfg.APIKey == "" && cfg.Provider == "deepseek" {
		apiKey, err := config.GetDeepSeekKey()
		if err != nil {
			return nil, fmt.Errorf("failed to get DeepSeek API key from config: %w", err)
		}
		cfg.APIKey = apiKey
	}

	client, err := NewAIClient(AIClientConfig{
		Provider: cfg.Provider,
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Model:    cfg.Model,
		Timeout:  cfg.Timeout,
		Proxy:    cfg.Proxy,
		Verbose:  cfg.Verbose,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AI client: %w", err)
	}

	if cfg.RequestsPerMin <= 0 {
		cfg.RequestsPerMin = 20
	}

	return &Manager{
		client:    client,
		rateLimit: newRateLimiter(cfg.RequestsPerMin),
	}, nil
}

// Generate 发送 prompt 并返回模型的自由文本回复。
// JSON 提取和字段校验由调用方负责（决策策略 / 评分器）
func (m *Manager) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.rateLimit.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait failed: %w", err)
	}

	return m.client.Generate(ctx, prompt)
}

// GetClientInfo 返回当前客户端描述
func (m *Manager) GetClientInfo() string {
	return m.client.GetName()
}

// Close 释放客户端资源
func (m *Manager) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}

// TestConnection 发送一次探活请求验证客户端可用
func (m *Manager) TestConnection(ctx context.Context) error {
	fmt.Println("🔍 测试 AI 客户端连接...")

	testPrompt := "Please respond with 'OK' if you can read this message."
	if _, err := m.Generate(ctx, testPrompt); err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}

	fmt.Println("✅ AI 客户端连接成功!")
	return nil
}
