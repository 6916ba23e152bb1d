package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI 执行命令并返回退出码与输出
func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), append([]string{"xlockctl"}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestAcquireReleaseInspect(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := "--addr=" + mr.Addr()

	code, out, _ := runCLI(t, addr, "acquire", "--lease", "10s", "--token", "T1", "job")
	require.Equal(t, 0, code)
	assert.Equal(t, "T1\n", out)
	got, err := mr.Get("job")
	require.NoError(t, err)
	assert.Equal(t, "T1", got)

	code, _, errOut := runCLI(t, addr, "acquire", "--token", "T2", "job")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "锁被占用")

	code, out, _ = runCLI(t, addr, "inspect", "job")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "已持有，剩余 10s")

	code, _, errOut = runCLI(t, addr, "release", "--token", "T2", "job")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "不属于该 token")

	code, out, _ = runCLI(t, addr, "release", "--token", "T1", "job")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "已释放 job")

	code, out, _ = runCLI(t, addr, "inspect", "job")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "未持有")
}

func TestAcquire_GeneratedToken(t *testing.T) {
	mr := miniredis.RunT(t)

	code, out, _ := runCLI(t, "--addr", mr.Addr(), "--prefix", "lock:", "acquire", "job")
	require.Equal(t, 0, code)
	token := strings.TrimSpace(out)
	assert.NotEmpty(t, token)

	got, err := mr.Get("lock:job")
	require.NoError(t, err)
	assert.Equal(t, token, got)
	assert.Equal(t, defaultLease, mr.TTL("lock:job"))
}

func TestAcquire_Retry(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("job", "other"))
	mr.SetTTL("job", time.Minute)

	go func() {
		time.Sleep(50 * time.Millisecond)
		mr.Del("job")
	}()
	code, out, _ := runCLI(t, "--addr", mr.Addr(), "acquire", "--retry", "20", "--token", "T", "job")
	assert.Equal(t, 0, code)
	assert.Equal(t, "T\n", out)
}

func TestUsageErrors(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := "--addr=" + mr.Addr()

	tests := []struct {
		name string
		args []string
	}{
		{"missing key", []string{addr, "acquire"}},
		{"release without token", []string{addr, "release", "job"}},
		{"exec without command", []string{addr, "exec", "job"}},
		{"invalid lease", []string{addr, "acquire", "--lease=-1s", "job"}},
		{"unknown flag", []string{addr, "acquire", "--bogus", "job"}},
		{"bad mode", []string{addr, "--mode", "memcached", "inspect", "job"}},
		{"bad log level", []string{addr, "--log-level", "loud", "inspect", "job"}},
		{"missing config", []string{"--config", filepath.Join(t.TempDir(), "absent.yaml"), "inspect", "job"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := runCLI(t, tt.args...)
			assert.Equal(t, 2, code)
		})
	}
}

func TestStoreUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	code, _, errOut := runCLI(t, "--addr", addr, "--timeout", "500ms", "acquire", "job")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "加锁 job 失败")
}

func TestExec(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	mr := miniredis.RunT(t)
	addr := "--addr=" + mr.Addr()

	code, out, _ := runCLI(t, addr, "exec", "--lease", "5s", "job", "--", "sh", "-c", "echo running")
	assert.Equal(t, 0, code)
	assert.Equal(t, "running\n", out)
	assert.False(t, mr.Exists("job"), "lock released after command")

	code, _, _ = runCLI(t, addr, "exec", "job", "--", "sh", "-c", "exit 3")
	assert.Equal(t, 3, code)
	assert.False(t, mr.Exists("job"))

	require.NoError(t, mr.Set("job", "other"))
	code, out, errOut := runCLI(t, addr, "exec", "job", "--", "sh", "-c", "echo should-not-run")
	assert.Equal(t, 1, code)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "锁被占用")
}

func TestConfigFile(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()
	logFile := filepath.Join(dir, "xlockctl.log")
	cfgPath := filepath.Join(dir, "lock.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
store:
  mode: pool
  addrs: ["`+mr.Addr()+`"]
  dialTimeout: 1s
log:
  level: debug
  format: json
  file: `+logFile+`
lock:
  prefix: "cfg:"
  tokens: sonyflake
  machineID: 3
`), 0o600))

	code, out, _ := runCLI(t, "-c", cfgPath, "acquire", "job")
	require.Equal(t, 0, code)
	token := strings.TrimSpace(out)
	got, err := mr.Get("cfg:job")
	require.NoError(t, err)
	assert.Equal(t, token, got)

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"outcome":"acquired"`)
	assert.Contains(t, string(data), `"transport":"pooled"`)

	// 命令行参数覆盖配置文件
	code, _, _ = runCLI(t, "-c", cfgPath, "--prefix", "cli:", "acquire", "--token", "X", "job")
	require.Equal(t, 0, code)
	assert.True(t, mr.Exists("cli:job"))
}

func TestIsCLIUsageError(t *testing.T) {
	assert.False(t, isCLIUsageError(assert.AnError))
	assert.True(t, isCLIUsageError(&usageError{msg: "flag provided but not defined: -x"}))
	assert.Equal(t, "exit status 3", (&exitError{code: 3}).Error())
}
