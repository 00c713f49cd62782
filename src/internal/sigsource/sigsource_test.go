package sigsource

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admi-n/nonce-Excavator/src/internal/store"
)

type fakeLister struct {
	rows []store.SignatureRow
	err  error
}

func (f *fakeLister) ListSignatures(context.Context, string) ([]store.SignatureRow, error) {
	return f.rows, f.err
}

// rawSigHex 构造 65 字节 raw 编码（r||s||v）的十六进制
func rawSigHex(rByte, sByte, v byte) string {
	raw := make([]byte, 65)
	raw[31] = rByte
	raw[63] = sByte
	raw[64] = v
	return hex.EncodeToString(raw)
}

func TestDBSourceDecodesRows(t *testing.T) {
	captured := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	lister := &fakeLister{rows: []store.SignatureRow{
		{TxID: "0xtx1", SigHex: rawSigHex(0x11, 0x22, 27), Captured: captured},
		{TxID: "0xtx2", SigHex: "0x" + rawSigHex(0x33, 0x44, 28), Captured: captured},
	}}

	src := NewDBSource(lister, false)
	sigs, err := src.FetchSignatures(context.Background(), "0xaaa")
	require.NoError(t, err)
	require.Len(t, sigs, 2)

	assert.Equal(t, "0xtx1", sigs[0].TxID)
	assert.Equal(t, int64(0x11), sigs[0].R.Int64())
	assert.Equal(t, 0, sigs[0].Recovery)
	assert.Equal(t, captured, sigs[0].CapturedAt)

	assert.Equal(t, "0xtx2", sigs[1].TxID)
	assert.Equal(t, 1, sigs[1].Recovery)
}

func TestDBSourceDropsUndecodableRows(t *testing.T) {
	lister := &fakeLister{rows: []store.SignatureRow{
		{TxID: "0xbadhex", SigHex: "not-hex"},
		{TxID: "0xbadsig", SigHex: "0000"}, // 无 0x30 标记且长度不合法
		{TxID: "0xok", SigHex: rawSigHex(0x55, 0x66, 27)},
	}}

	src := NewDBSource(lister, false)
	sigs, err := src.FetchSignatures(context.Background(), "0xaaa")
	require.NoError(t, err)
	require.Len(t, sigs, 1)
	assert.Equal(t, "0xok", sigs[0].TxID)
}

func TestDBSourceListerErrorPropagates(t *testing.T) {
	lister := &fakeLister{err: fmt.Errorf("connection lost")}
	src := NewDBSource(lister, false)

	_, err := src.FetchSignatures(context.Background(), "0xaaa")
	assert.Error(t, err)
}

func TestExplorerSourceParsesTxList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api", r.URL.Path)
		assert.Equal(t, "account", r.URL.Query().Get("module"))
		assert.Equal(t, "txlist", r.URL.Query().Get("action"))
		assert.Equal(t, "0xaaa", r.URL.Query().Get("address"))

		fmt.Fprint(w, `{"status":"1","message":"OK","result":[
			{"hash":"0xtx1","r":"0x1234","s":"0x5678","v":"0x1b","timeStamp":"1748800000"},
			{"hash":"0xtx2","r":"0x0","s":"0x5678","v":"0x1b","timeStamp":"1748800100"},
			{"hash":"0xtx3","r":"0xabcd","s":"0xef01","v":"0x1c","timeStamp":"1748800200"}
		]}`)
	}))
	defer server.Close()

	src, err := NewExplorerSource(ExplorerConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
	}, 100)
	require.NoError(t, err)
	defer src.Close()

	sigs, err := src.FetchSignatures(context.Background(), "0xaaa")
	require.NoError(t, err)

	// r=0 的交易不合法，被丢弃
	require.Len(t, sigs, 2)
	assert.Equal(t, "0xtx1", sigs[0].TxID)
	assert.Equal(t, int64(0x1234), sigs[0].R.Int64())
	assert.Equal(t, 0, sigs[0].Recovery)
	assert.Equal(t, "0xtx3", sigs[1].TxID)
	assert.Equal(t, 1, sigs[1].Recovery)
}

func TestExplorerSourceEmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"0","message":"No transactions found","result":[]}`)
	}))
	defer server.Close()

	src, err := NewExplorerSource(ExplorerConfig{BaseURL: server.URL}, 100)
	require.NoError(t, err)
	defer src.Close()

	sigs, err := src.FetchSignatures(context.Background(), "0xaaa")
	require.NoError(t, err)
	assert.Empty(t, sigs)
}

func TestExplorerSourceHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusForbidden)
	}))
	defer server.Close()

	src, err := NewExplorerSource(ExplorerConfig{BaseURL: server.URL}, 100)
	require.NoError(t, err)
	defer src.Close()

	_, err = src.FetchSignatures(context.Background(), "0xaaa")
	assert.Error(t, err)
}
