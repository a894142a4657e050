package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RFC 4226 test secret "12345678901234567890" in base32.
const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

type cli struct {
	t          *testing.T
	configPath string
	storePath  string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	storePath := filepath.Join(dir, "vault.otpv")
	configPath := filepath.Join(dir, "config.yaml")
	cfg := fmt.Sprintf("store_path: %s\nkdf:\n  time: 1\n  memory_kib: 1024\n  threads: 1\nlog:\n  level: error\n", storePath)
	require.NoError(t, os.WriteFile(configPath, []byte(cfg), 0o600))
	return &cli{t: t, configPath: configPath, storePath: storePath}
}

func scripted(inputs ...string) promptFunc {
	i := 0
	return func(string) ([]byte, error) {
		if i >= len(inputs) {
			return nil, errors.New("unexpected prompt")
		}
		b := []byte(inputs[i])
		i++
		return b, nil
	}
}

// run executes a command line, answering prompts with inputs.
func (c *cli) run(inputs []string, args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	full := append([]string{"-config", c.configPath}, args...)
	code := run(full, scripted(inputs...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func (c *cli) mustRun(inputs []string, args ...string) string {
	c.t.Helper()
	code, out, errOut := c.run(inputs, args...)
	require.Equal(c.t, 0, code, "stderr: %s", errOut)
	return out
}

func pw(s ...string) []string { return s }

func TestInitAndList(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun(pw("secret", "secret"), "init")
	assert.Contains(t, out, c.storePath)
	assert.FileExists(t, c.storePath)

	out = c.mustRun(pw("secret"), "list")
	assert.Contains(t, out, "LABEL")

	code, _, errOut := c.run(pw("secret", "secret"), "init")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "already exists")
}

func TestInitPasswordMismatch(t *testing.T) {
	c := newCLI(t)
	code, _, errOut := c.run(pw("one", "two"), "init")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "do not match")
	assert.NoFileExists(t, c.storePath)
}

func TestWrongPassword(t *testing.T) {
	c := newCLI(t)
	c.mustRun(pw("secret", "secret"), "init")

	code, _, errOut := c.run(pw("guess"), "list")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "wrong password")
}

func TestMissingStore(t *testing.T) {
	c := newCLI(t)
	code, _, errOut := c.run(pw("secret"), "list")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "not found")
}

func TestNextAdvancesHOTP(t *testing.T) {
	c := newCLI(t)
	c.mustRun(pw("secret", "secret"), "init")
	c.mustRun(pw("secret"), "add", "-kind", "hotp", "-label", "VPN", "-secret", rfcSecret)

	assert.Equal(t, "755224\n", c.mustRun(pw("secret"), "next", "VPN"))
	assert.Equal(t, "287082\n", c.mustRun(pw("secret"), "next", "VPN"))

	out := c.mustRun(pw("secret"), "list")
	assert.Contains(t, out, "counter 2")
}

func TestVerify(t *testing.T) {
	c := newCLI(t)
	c.mustRun(pw("secret", "secret"), "init")
	c.mustRun(pw("secret"), "add", "-kind", "hotp", "-label", "VPN", "-secret", rfcSecret)

	// counter 3 is inside the look-ahead window
	out := c.mustRun(pw("secret"), "verify", "VPN", "969429")
	assert.Contains(t, out, "counter now 4")

	code, _, errOut := c.run(pw("secret"), "verify", "VPN", "969429")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "invalid code")
}

func TestAddGeneratesSecret(t *testing.T) {
	c := newCLI(t)
	c.mustRun(pw("secret", "secret"), "init")

	out := c.mustRun(pw("secret"), "add", "-label", "Example:alice")
	assert.Contains(t, out, "Secret: ")
	assert.Contains(t, out, "otpauth://totp/")

	out = c.mustRun(pw("secret"), "list")
	assert.Contains(t, out, "Example:alice")
	assert.Contains(t, out, "totp")
}

func TestAddValidation(t *testing.T) {
	c := newCLI(t)
	c.mustRun(pw("secret", "secret"), "init")

	code, _, _ := c.run(pw("secret"), "add")
	assert.Equal(t, 2, code)

	code, _, errOut := c.run(pw("secret"), "add", "-label", "x", "-kind", "yubikey")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "invalid kind")

	code, _, errOut = c.run(pw("secret"), "add", "-label", "x", "-digits", "11", "-secret", rfcSecret)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "digit")
}

func TestAddURIAndExport(t *testing.T) {
	c := newCLI(t)
	c.mustRun(pw("secret", "secret"), "init")

	uri := "otpauth://totp/ACME:bob?secret=" + rfcSecret + "&issuer=ACME&digits=8&algorithm=SHA256"
	c.mustRun(pw("secret"), "add", "-uri", uri)
	c.mustRun(pw("secret"), "add", "-kind", "steam", "-label", "Steam", "-secret-base64", "c3RlYW0tc2VjcmV0")

	out := c.mustRun(pw("secret"), "export")
	assert.Contains(t, out, "tokens:")
	assert.Contains(t, out, "label: ACME:bob")
	assert.Contains(t, out, "digits=8")
	assert.Contains(t, out, "algorithm=SHA256")
	assert.Contains(t, out, "encoder=steam")
}

func TestRemove(t *testing.T) {
	c := newCLI(t)
	c.mustRun(pw("secret", "secret"), "init")
	c.mustRun(pw("secret"), "add", "-label", "keep", "-secret", rfcSecret)
	c.mustRun(pw("secret"), "add", "-label", "drop", "-secret", rfcSecret)

	out := c.mustRun(pw("secret"), "remove", "drop")
	assert.Contains(t, out, "Removed")

	out = c.mustRun(pw("secret"), "list")
	assert.Contains(t, out, "keep")
	assert.NotContains(t, out, "drop")

	code, _, errOut := c.run(pw("secret"), "remove", "drop")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "no token matches")
}

func TestImport(t *testing.T) {
	c := newCLI(t)
	c.mustRun(pw("secret", "secret"), "init")

	backup := filepath.Join(t.TempDir(), "authy.json")
	payload := `[
		{"name": "GitLab", "issuer": "GitLab", "secret": "MTIzNDU2Nzg5MDEyMzQ1Njc4OTA=", "digits": 6, "period": 30},
		{"name": "broken", "secret": ""}
	]`
	require.NoError(t, os.WriteFile(backup, []byte(payload), 0o600))

	out := c.mustRun(pw("secret"), "import", "-schema", "totp", "-format", "json", backup)
	assert.Contains(t, out, "Imported 1 tokens, skipped 1")

	out = c.mustRun(pw("secret"), "list")
	assert.Contains(t, out, "GitLab")
}

func TestPasswd(t *testing.T) {
	c := newCLI(t)
	c.mustRun(pw("old", "old"), "init")
	c.mustRun(pw("old"), "add", "-label", "persisted", "-secret", rfcSecret)

	code, _, _ := c.run(pw("wrong"), "passwd")
	assert.Equal(t, 1, code)

	c.mustRun(pw("old", "new", "new"), "passwd")

	code, _, _ = c.run(pw("old"), "list")
	assert.Equal(t, 1, code)

	out := c.mustRun(pw("new"), "list")
	assert.Contains(t, out, "persisted")
}

func TestUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run(nil, scripted(), &stdout, &stderr))
	assert.Equal(t, 2, run([]string{"frobnicate"}, scripted(), &stdout, &stderr))
	assert.Contains(t, stderr.String(), "unknown command")

	stdout.Reset()
	assert.Equal(t, 0, run([]string{"help"}, scripted(), &stdout, &stderr))
	for _, c := range commands {
		assert.True(t, strings.Contains(stdout.String(), c.name), c.name)
	}
}
