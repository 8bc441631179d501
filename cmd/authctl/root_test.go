package main

import (
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCmd()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmd_RegistersSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	names := make([]string, 0, len(cmd.Commands()))
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Subset(t, names, []string{"hash-password", "verify-password", "gen-secret", "check-config", "migrate"})
}

func TestHashAndVerifyPassword(t *testing.T) {
	out, err := runCLI(t, "correct horse\n", "hash-password")
	require.NoError(t, err)
	record := strings.TrimSpace(out)
	require.Contains(t, record, ":")

	out, err = runCLI(t, "", "verify-password", "--password", "correct horse", "--hash", record)
	require.NoError(t, err)
	assert.Contains(t, out, "password matches")

	_, err = runCLI(t, "wrong horse\n", "verify-password", "--hash", record)
	assert.ErrorIs(t, err, errPasswordMismatch)
}

func TestHashPassword_RequiresInput(t *testing.T) {
	_, err := runCLI(t, "", "hash-password")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password is required")
}

func TestGenSecret(t *testing.T) {
	out, err := runCLI(t, "", "gen-secret", "--bytes", "32")
	require.NoError(t, err)
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Len(t, raw, 32)

	_, err = runCLI(t, "", "gen-secret", "--bytes", "8")
	assert.Error(t, err)
}

func TestCheckConfig(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
auth:
  accessTokenTtl: 15m
  refreshTokenTtl: 168h
  refreshSigningSecret: do-not-print-me
  tokenIssuer: malina-corp
  tokenAudience: malina-corp-users
`), 0o600))

	out, err := runCLI(t, "", "check-config", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "malina-corp-users")
	assert.Contains(t, out, "credential store:  memory")
	assert.NotContains(t, out, "do-not-print-me")
}

func TestCheckConfig_RejectsMissingSecret(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("AUTH_REFRESH_SIGNING_SECRET", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
auth:
  accessTokenTtl: 15m
  refreshTokenTtl: 168h
  tokenIssuer: malina-corp
  tokenAudience: malina-corp-users
`), 0o600))

	_, err := runCLI(t, "", "check-config", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refreshSigningSecret")
}

func TestMigrate_RequiresDSN(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("POSTGRES_DSN", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
auth:
  accessTokenTtl: 15m
  refreshTokenTtl: 168h
  refreshSigningSecret: s
  tokenIssuer: malina-corp
  tokenAudience: malina-corp-users
`), 0o600))

	_, err := runCLI(t, "", "migrate", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres.dsn")
}
