package sigsource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/admi-n/nonce-Excavator/src/internal/sigcodec"
)

// ExplorerConfig 区块浏览器 API 配置
type ExplorerConfig struct {
	APIKey  string
	BaseURL string
	ChainID string
	Proxy   string // 可选的 HTTP 代理 URL（例如 http://127.0.0.1:7897）
}

// explorerResponse 浏览器 txlist 响应结构，只保留签名相关字段
type explorerResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  []struct {
		Hash      string `json:"hash"`
		R         string `json:"r"`
		S         string `json:"s"`
		V         string `json:"v"`
		TimeStamp string `json:"timeStamp"`
	} `json:"result"`
}

// ExplorerSource 从区块浏览器 API 拉取某地址交易的 ECDSA 签名分量
type ExplorerSource struct {
	config  ExplorerConfig
	client  *http.Client
	limiter *RateLimiter
}

// NewExplorerSource 创建浏览器签名源
func NewExplorerSource(config ExplorerConfig, requestsPerSecond int) (*ExplorerSource, error) {
	client := &http.Client{
		Timeout: 20 * time.Second,
	}

	if strings.TrimSpace(config.Proxy) != "" {
		pu, err := url.Parse(config.Proxy)
		if err != nil {
			return nil, fmt.Errorf("解析 explorer proxy 失败: %w", err)
		}
		client.Transport = &http.Transport{
			Proxy: http.ProxyURL(pu),
		}
	}

	if requestsPerSecond <= 0 {
		requestsPerSecond = 5
	}

	return &ExplorerSource{
		config:  config,
		client:  client,
		limiter: NewRateLimiter(requestsPerSecond),
	}, nil
}

// Close 释放速率限制器
func (s *ExplorerSource) Close() {
	s.limiter.Stop()
}

// FetchSignatures 实现 scanner.TransactionSource。
// 畸形的 r/s/v 字段按无效签名丢弃
func (s *ExplorerSource) FetchSignatures(ctx context.Context, address string) ([]*sigcodec.Signature, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("空的地址传入 FetchSignatures")
	}

	// 构建 API URL 使用 url.Values 避免拼接错误
	base := strings.TrimRight(s.config.BaseURL, "/")
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("解析 explorer BaseURL 失败: %w", err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api"

	q := url.Values{}
	q.Set("module", "account")
	q.Set("action", "txlist")
	q.Set("address", address)
	q.Set("sort", "asc")
	q.Set("apikey", strings.TrimSpace(s.config.APIKey))
	if s.config.ChainID != "" {
		q.Set("chainid", s.config.ChainID)
	}

	u.RawQuery = q.Encode()
	finalURL := u.String()

	s.limiter.Wait()

	body, err := s.getWithRetry(ctx, finalURL)
	if err != nil {
		return nil, err
	}

	var resp explorerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("解析 explorer JSON 失败: %w (url=%s)", err, finalURL)
	}

	// status != "1" 是业务层面的空结果（例如地址无交易），不是错误
	if resp.Status != "1" {
		return nil, nil
	}

	sigs := make([]*sigcodec.Signature, 0, len(resp.Result))
	for _, tx := range resp.Result {
		sig, ok := parseTxSignature(tx.R, tx.S, tx.V)
		if !ok {
			continue
		}
		sig.TxID = tx.Hash
		sig.CapturedAt = parseUnixTimestamp(tx.TimeStamp)
		sigs = append(sigs, sig)
	}

	return sigs, nil
}

// getWithRetry 短暂网络错误/EOF/超时时重试
func (s *ExplorerSource) getWithRetry(ctx context.Context, finalURL string) ([]byte, error) {
	var lastErr error
	maxAttempts := 3
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
		if err != nil {
			return nil, fmt.Errorf("构建 explorer 请求失败: %w", err)
		}
		req.Header.Set("User-Agent", "nonce-excavator/1.0 (+https://github.com/)")

		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = err
			if isTemporaryNetErr(err) && attempt < maxAttempts {
				time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
				continue
			}
			return nil, fmt.Errorf("请求 explorer API 失败: %w (url=%s)", err, finalURL)
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			if (readErr == io.ErrUnexpectedEOF || isTemporaryNetErr(readErr)) && attempt < maxAttempts {
				time.Sleep(time.Duration(attempt) * 500 * time.Millisecond)
				continue
			}
			return nil, fmt.Errorf("读取 explorer 响应失败: %w (url=%s)", readErr, finalURL)
		}

		if resp.StatusCode != http.StatusOK {
			snippet := string(body)
			if len(snippet) > 1024 {
				snippet = snippet[:1024]
			}
			return nil, fmt.Errorf("explorer 返回非 200 状态: %d, body: %s", resp.StatusCode, snippet)
		}

		return body, nil
	}

	return nil, fmt.Errorf("请求 explorer 多次失败: %w (url=%s)", lastErr, finalURL)
}

// parseTxSignature 把交易的 r/s/v 十六进制字段转成结构化签名
func parseTxSignature(rHex, sHex, vHex string) (*sigcodec.Signature, bool) {
	r, ok := parseHexBig(rHex)
	if !ok {
		return nil, false
	}
	sv, ok := parseHexBig(sHex)
	if !ok {
		return nil, false
	}

	recovery := -1
	if v, ok := parseHexBig(vHex); ok && v.IsInt64() {
		rec := int(v.Int64())
		if rec >= 27 {
			rec -= 27
		}
		if rec >= 0 && rec <= 3 {
			recovery = rec
		}
	}

	sig := &sigcodec.Signature{R: r, S: sv, Recovery: recovery}
	if !sig.WellFormed() {
		return nil, false
	}
	return sig, true
}

func parseHexBig(h string) (*big.Int, bool) {
	h = strings.TrimPrefix(strings.TrimSpace(h), "0x")
	if h == "" {
		return nil, false
	}
	v, ok := new(big.Int).SetString(h, 16)
	return v, ok
}

func parseUnixTimestamp(ts string) time.Time {
	v, ok := new(big.Int).SetString(strings.TrimSpace(ts), 10)
	if !ok || !v.IsInt64() {
		return time.Time{}
	}
	return time.Unix(v.Int64(), 0)
}

// isTemporaryNetErr 判断是否为可重试的网络错误
func isTemporaryNetErr(err error) bool {
	if err == nil {
		return false
	}
	if ne, ok := err.(net.Error); ok {
		return ne.Timeout() || ne.Temporary()
	}
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		return true
	}
	return false
}

// RateLimiter 简单的速率限制器
type RateLimiter struct {
	ticker *time.Ticker
}

// NewRateLimiter 创建速率限制器（每秒最多 requestsPerSecond 个请求）
func NewRateLimiter(requestsPerSecond int) *RateLimiter {
	interval := time.Second / time.Duration(requestsPerSecond)
	return &RateLimiter{
		ticker: time.NewTicker(interval),
	}
}

// Wait 等待直到可以发送下一个请求
func (r *RateLimiter) Wait() {
	<-r.ticker.C
}

// Stop 停止速率限制器
func (r *RateLimiter) Stop() {
	r.ticker.Stop()
}
