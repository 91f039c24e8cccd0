package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/storefront/pkg/jwt"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
database:
  driver: memory
jwt:
  secret: ctl-test-secret
  issuer: storefront
  access_token_expire: 1h
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	path := writeConfig(t)

	out, err := run(t, "token", "--config", path, "--user-id", "9000", "--role", "admin")
	require.NoError(t, err)

	claims, err := jwt.NewManager("ctl-test-secret", "storefront", 0).ParseToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, uint(9000), claims.UserID)
	assert.True(t, claims.IsAdmin())
}

func TestTokenCommand_Validation(t *testing.T) {
	path := writeConfig(t)

	_, err := run(t, "token", "--config", path)
	assert.Error(t, err)

	_, err = run(t, "token", "--config", path, "--user-id", "1", "--role", "root")
	assert.Error(t, err)
}

func TestStockCommands(t *testing.T) {
	path := writeConfig(t)

	// 内存模式每次命令都是新的仓储,只能看到演示数据
	out, err := run(t, "stock", "show", "1", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "PRODUCT")
	assert.Contains(t, out, "100")

	out, err = run(t, "stock", "add", "1", "20", "--config", path, "--remark", "到货")
	require.NoError(t, err)
	assert.Contains(t, out, "120")

	_, err = run(t, "stock", "show", "abc", "--config", path)
	assert.Error(t, err)

	_, err = run(t, "stock", "set", "1", "-1", "--config", path)
	assert.Error(t, err)
}

func TestJobsCommands(t *testing.T) {
	path := writeConfig(t)

	out, err := run(t, "jobs", "reconcile", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "已取消 0 个超时订单")

	out, err = run(t, "jobs", "low-stock", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "A-01-01")
}
