package sigcodec

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
)

// 解码错误类型：调用方据此决定丢弃签名还是向上报告
var (
	ErrTruncated  = errors.New("sigcodec: 声明长度超出剩余缓冲区")
	ErrBadTag     = errors.New("sigcodec: 缺少期望的标签字节")
	ErrOutOfRange = errors.New("sigcodec: r/s 分量不在曲线阶范围内")
)

// CurveN secp256k1 曲线阶，r/s 的合法上界
var CurveN = crypto.S256().Params().N

const (
	derSequenceTag = 0x30
	derIntegerTag  = 0x02

	rawSigLen         = 64 // r(32) || s(32)
	rawSigWithRecLen  = 65 // r(32) || s(32) || recovery
	recoveryEthOffset = 27 // 以太坊风格 v=27/28 归一化
)

// Signature 不可变的签名值：r/s 为任意精度整数，Recovery 为 -1 表示缺失
type Signature struct {
	R          *big.Int
	S          *big.Int
	Recovery   int
	TxID       string
	CapturedAt time.Time
}

// WellFormed 检查 0 < r < N 且 0 < s < N
func (sig *Signature) WellFormed() bool {
	if sig == nil || sig.R == nil || sig.S == nil {
		return false
	}
	if sig.R.Sign() <= 0 || sig.S.Sign() <= 0 {
		return false
	}
	return sig.R.Cmp(CurveN) < 0 && sig.S.Cmp(CurveN) < 0
}

// Decode 将原始字节解码为结构化签名。
// 支持两种编码：
//   - 定宽 raw 编码 r(32)||s(32)||recoveryByte?（64 或 65 字节）
//   - DER 编码（0x30 SEQUENCE 内含两个 0x02 INTEGER），允许前缀脚本/公钥
//     字节，向前扫描定位 0x30 标记而不是直接失败
func Decode(raw []byte) (*Signature, error) {
	if len(raw) == rawSigLen || len(raw) == rawSigWithRecLen {
		return decodeRaw(raw)
	}
	return decodeDERScan(raw)
}

// decodeRaw 解析定宽编码
func decodeRaw(raw []byte) (*Signature, error) {
	sig := &Signature{
		R:        new(big.Int).SetBytes(raw[0:32]),
		S:        new(big.Int).SetBytes(raw[32:64]),
		Recovery: -1,
	}

	if len(raw) == rawSigWithRecLen {
		rec := int(raw[64])
		if rec >= recoveryEthOffset {
			rec -= recoveryEthOffset
		}
		if rec < 0 || rec > 3 {
			return nil, fmt.Errorf("%w: recovery byte %d", ErrBadTag, raw[64])
		}
		sig.Recovery = rec
	}

	if !sig.WellFormed() {
		return nil, ErrOutOfRange
	}
	return sig, nil
}

// decodeDERScan 在缓冲区中向前扫描 0x30 标记并尝试按 DER 解析。
// 真实脚本负载中签名往往不是独立的，前面可能带公钥或脚本字节，
// 所以对不匹配的字节选择跳过而不是报错。
func decodeDERScan(raw []byte) (*Signature, error) {
	var lastErr error
	found := false

	for i := 0; i < len(raw); i++ {
		if raw[i] != derSequenceTag {
			continue
		}
		found = true
		sig, err := parseDER(raw[i:])
		if err == nil {
			return sig, nil
		}
		lastErr = err
	}

	if !found {
		return nil, fmt.Errorf("%w: 未找到 0x30 SEQUENCE 标记", ErrBadTag)
	}
	return nil, lastErr
}

// parseDER 从 buf[0]==0x30 开始解析一个 DER 签名
func parseDER(buf []byte) (*Signature, error) {
	if len(buf) < 2 {
		return nil, ErrTruncated
	}
	if buf[0] != derSequenceTag {
		return nil, fmt.Errorf("%w: 期望 SEQUENCE(0x30) 得到 0x%02x", ErrBadTag, buf[0])
	}

	seqLen := int(buf[1])
	if seqLen >= 0x80 {
		// 签名的 SEQUENCE 长度不会超过 72 字节，长格式视为坏标签
		return nil, fmt.Errorf("%w: 不支持的长格式长度 0x%02x", ErrBadTag, buf[1])
	}
	if 2+seqLen > len(buf) {
		return nil, ErrTruncated
	}

	body := buf[2 : 2+seqLen]

	r, rest, err := parseDERInteger(body)
	if err != nil {
		return nil, err
	}
	s, _, err := parseDERInteger(rest)
	if err != nil {
		return nil, err
	}

	sig := &Signature{R: r, S: s, Recovery: -1}
	if !sig.WellFormed() {
		return nil, ErrOutOfRange
	}
	return sig, nil
}

// parseDERInteger 解析一个 0x02 INTEGER 字段，返回值和剩余字节
func parseDERInteger(buf []byte) (*big.Int, []byte, error) {
	if len(buf) < 2 {
		return nil, nil, ErrTruncated
	}
	if buf[0] != derIntegerTag {
		return nil, nil, fmt.Errorf("%w: 期望 INTEGER(0x02) 得到 0x%02x", ErrBadTag, buf[0])
	}

	n := int(buf[1])
	if n >= 0x80 {
		return nil, nil, fmt.Errorf("%w: 不支持的长格式长度 0x%02x", ErrBadTag, buf[1])
	}
	if 2+n > len(buf) {
		return nil, nil, ErrTruncated
	}

	return new(big.Int).SetBytes(buf[2 : 2+n]), buf[2+n:], nil
}

// Cache 按原始字节缓存解码结果。读多写少，同一输入永远解出同一输出，
// 所以并发写是幂等的，sync.Map 足够
type Cache struct {
	entries sync.Map // string(raw) -> *Signature
}

// NewCache 创建解码缓存
func NewCache() *Cache {
	return &Cache{}
}

// Decode 先查缓存，未命中则解码并写入。只缓存成功结果
func (c *Cache) Decode(raw []byte) (*Signature, error) {
	key := string(raw)
	if v, ok := c.entries.Load(key); ok {
		return v.(*Signature), nil
	}

	sig, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	c.entries.Store(key, sig)
	return sig, nil
}
