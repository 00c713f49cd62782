package sigsource

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/admi-n/nonce-Excavator/src/internal/sigcodec"
	"github.com/admi-n/nonce-Excavator/src/internal/store"
)

// SignatureLister signatures 表读取协作方，*store.Store 满足该接口
type SignatureLister interface {
	ListSignatures(ctx context.Context, address string) ([]store.SignatureRow, error)
}

// DBSource 从 signatures 表读取原始签名并解码。
// 无法解码的行直接丢弃，不会中断整个地址的扫描
type DBSource struct {
	lister  SignatureLister
	cache   *sigcodec.Cache
	verbose bool
}

// NewDBSource 创建数据库签名源
func NewDBSource(lister SignatureLister, verbose bool) *DBSource {
	return &DBSource{
		lister:  lister,
		cache:   sigcodec.NewCache(),
		verbose: verbose,
	}
}

// FetchSignatures 实现 scanner.TransactionSource
func (s *DBSource) FetchSignatures(ctx context.Context, address string) ([]*sigcodec.Signature, error) {
	rows, err := s.lister.ListSignatures(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("读取签名样本失败: %w", err)
	}

	sigs := make([]*sigcodec.Signature, 0, len(rows))
	for _, row := range rows {
		raw, err := hex.DecodeString(strings.TrimPrefix(row.SigHex, "0x"))
		if err != nil {
			if s.verbose {
				fmt.Printf("⚠️  跳过无效的签名十六进制 (tx %s): %v\n", row.TxID, err)
			}
			continue
		}

		decoded, err := s.cache.Decode(raw)
		if err != nil {
			if s.verbose {
				fmt.Printf("⚠️  跳过无法解码的签名 (tx %s): %v\n", row.TxID, err)
			}
			continue
		}

		// 缓存返回的指针在相同字节间共享，行级元数据写在副本上
		sigs = append(sigs, &sigcodec.Signature{
			R:          decoded.R,
			S:          decoded.S,
			Recovery:   decoded.Recovery,
			TxID:       row.TxID,
			CapturedAt: row.Captured,
		})
	}

	return sigs, nil
}
