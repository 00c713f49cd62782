package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateRequiresModeOrTarget(t *testing.T) {
	cfg := &CLIConfig{Timeout: 30 * time.Second}
	assert.Error(t, cfg.Validate())
}

func TestValidateDaemonAndAddressConflict(t *testing.T) {
	cfg := &CLIConfig{Daemon: true, TargetAddress: "0xabc"}
	assert.Error(t, cfg.Validate())
}

func TestValidateSigSource(t *testing.T) {
	cfg := &CLIConfig{Daemon: true, SigSource: "rpc"}
	assert.Error(t, cfg.Validate())

	cfg.SigSource = "explorer"
	assert.NoError(t, cfg.Validate())
}

func TestValidateProxyScheme(t *testing.T) {
	cfg := &CLIConfig{Daemon: true, Proxy: "ftp://127.0.0.1:21"}
	assert.Error(t, cfg.Validate())

	cfg.Proxy = "http://127.0.0.1:7897"
	assert.NoError(t, cfg.Validate())
}

func TestValidateAddTargetBypassesModeCheck(t *testing.T) {
	cfg := &CLIConfig{AddTarget: "0xabc"}
	assert.NoError(t, cfg.Validate())
}
