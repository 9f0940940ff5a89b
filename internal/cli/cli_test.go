package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/evercode/routegen/internal/version"
	"github.com/evercode/routegen/pkg/httpclient/httpclienttest"
	"github.com/evercode/routegen/pkg/routing"
)

const validInventory = `
[server.serverA]
ip = "10.0.0.1"
svcX = { port = 80, authelia = true }
svcY = { port = 81 }

[server.serverB]
ip = "10.0.0.2"
svcZ = { port = 9000, authentik = true }
`

const conflictingInventory = `
[server.serverA]
ip = "10.0.0.1"
svcX = { port = 80 }
svcY = { port = 80 }
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

// writeAppConfig returns a config file that keeps dotenv loading away from
// the working directory.
func writeAppConfig(t *testing.T, extra string) string {
	t.Helper()
	missing := filepath.Join(t.TempDir(), "missing.env")
	return writeFile(t, "routegen.yaml", "dotenv_file: "+missing+"\n"+extra)
}

func execRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestVersionCmdOutput(t *testing.T) {
	t.Parallel()

	cmd := newVersionCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(nil)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute version cmd: %v", err)
	}

	got := strings.TrimSpace(buf.String())
	want := strings.TrimSpace(fmt.Sprint(version.Get()))
	if got != want {
		t.Fatalf("version output=%q want=%q", got, want)
	}
}

func TestRootCmdSubcommands(t *testing.T) {
	t.Parallel()

	root := newRootCmd()
	for _, name := range []string{"start-api", "serve", "validate", "render", "notify", "reload", "version"} {
		if _, _, err := root.Find([]string{name}); err != nil {
			t.Fatalf("find %s subcommand: %v", name, err)
		}
	}
}

func TestValidateCmd_Valid(t *testing.T) {
	cfg := writeAppConfig(t, "")
	inv := writeFile(t, "config.toml", validInventory)

	out, err := execRoot(t, "-c", cfg, "-i", inv, "validate")
	if err != nil {
		t.Fatalf("validate err=%v out=%s", err, out)
	}
	if !strings.Contains(out, "Configuration is valid") || !strings.Contains(out, "2 servers, 3 services") {
		t.Fatalf("output=%q", out)
	}
}

func TestValidateCmd_PortConflict(t *testing.T) {
	cfg := writeAppConfig(t, "")
	inv := writeFile(t, "config.toml", conflictingInventory)

	_, err := execRoot(t, "-c", cfg, "-i", inv, "validate")
	if !errors.Is(err, routing.ErrPortConflict) {
		t.Fatalf("err=%v want port conflict", err)
	}
	msg := err.Error()
	for _, part := range []string{"port 80", "serverA", "svcY"} {
		if !strings.Contains(msg, part) {
			t.Fatalf("error %q missing %q", msg, part)
		}
	}
}

func TestValidateCmd_MissingInventory(t *testing.T) {
	cfg := writeAppConfig(t, "")
	_, err := execRoot(t, "-c", cfg, "-i", filepath.Join(t.TempDir(), "nope.toml"), "validate")
	if err == nil {
		t.Fatalf("expected error for missing inventory")
	}
}

const sharedNameInventory = `
[server.serverA]
ip = "10.0.0.1"
svcX = { port = 80 }

[server.serverB]
ip = "10.0.0.2"
svcX = { port = 81 }
`

func TestValidateCmd_SharedServiceName(t *testing.T) {
	cfg := writeAppConfig(t, "")
	inv := writeFile(t, "config.toml", sharedNameInventory)

	if _, err := execRoot(t, "-c", cfg, "-i", inv, "validate"); !errors.Is(err, routing.ErrDuplicateService) {
		t.Fatalf("err=%v want duplicate service", err)
	}
	out, err := execRoot(t, "-c", cfg, "-i", inv, "validate", "--ports-only")
	if err != nil {
		t.Fatalf("validate --ports-only err=%v", err)
	}
	if !strings.Contains(out, "Configuration is valid") {
		t.Fatalf("output=%q", out)
	}
}

func TestRenderCmd_JSON(t *testing.T) {
	cfg := writeAppConfig(t, "routing:\n  domain: example.org\n")
	inv := writeFile(t, "config.toml", validInventory)

	out, err := execRoot(t, "-c", cfg, "-i", inv, "render")
	if err != nil {
		t.Fatalf("render err=%v", err)
	}
	var doc routing.Document
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode render output: %v\n%s", err, out)
	}
	if got := doc.RouterNames(); strings.Join(got, ",") != "svcX,svcY,svcZ" {
		t.Fatalf("routers=%v", got)
	}
	if r := doc.HTTP.Routers["svcX"]; r.Rule != "Host(`svcX.example.org`)" {
		t.Fatalf("svcX rule=%q", r.Rule)
	}
	if u := doc.HTTP.Services["svcZ"].LoadBalancer.Servers[0].URL; u != "http://10.0.0.2:9000" {
		t.Fatalf("svcZ url=%q", u)
	}
}

func TestRenderCmd_RejectsConflictUnlessSkipped(t *testing.T) {
	cfg := writeAppConfig(t, "")
	inv := writeFile(t, "config.toml", conflictingInventory)

	if _, err := execRoot(t, "-c", cfg, "-i", inv, "render"); !errors.Is(err, routing.ErrPortConflict) {
		t.Fatalf("err=%v want port conflict", err)
	}
	out, err := execRoot(t, "-c", cfg, "-i", inv, "render", "--skip-validate")
	if err != nil {
		t.Fatalf("render --skip-validate err=%v", err)
	}
	if !strings.Contains(out, `"svcX"`) || !strings.Contains(out, `"svcY"`) {
		t.Fatalf("output=%s", out)
	}
}

func TestRenderCmd_Summary(t *testing.T) {
	cfg := writeAppConfig(t, "")
	inv := writeFile(t, "config.toml", validInventory)

	out, err := execRoot(t, "-c", cfg, "-i", inv, "render", "--summary")
	if err != nil {
		t.Fatalf("render --summary err=%v", err)
	}
	for _, want := range []string{"3 routers", "http://10.0.0.1:80", "authelia@docker", "authentik@file"} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestNotifyCmd_Publishes(t *testing.T) {
	t.Setenv("DISCORD_WEBHOOK_URL", "")
	t.Setenv("ROUTEGEN_WEBHOOK_URL", "")
	cfg := writeAppConfig(t, "notify:\n  webhook_url: https://discord.example/api/webhooks/1/t\n")
	inv := writeFile(t, "config.toml", validInventory)

	doer := httpclienttest.NewFakeDoer(t, httpclienttest.NewStringResponse(http.StatusNoContent, ""))
	cmd := newNotifyCmdWithDoer(&rootOptions{cfgPath: cfg, inventory: inv}, doer)
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs(nil)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("notify err=%v", err)
	}
	if n := len(doer.Requests()); n != 1 {
		t.Fatalf("requests=%d", n)
	}
	if !strings.Contains(string(doer.Body(0)), "svcX") {
		t.Fatalf("body=%s", doer.Body(0))
	}
	if !strings.Contains(buf.String(), "Published") {
		t.Fatalf("output=%q", buf.String())
	}
}

func TestNotifyCmd_RequiresWebhook(t *testing.T) {
	t.Setenv("DISCORD_WEBHOOK_URL", "")
	t.Setenv("ROUTEGEN_WEBHOOK_URL", "")
	cfg := writeAppConfig(t, "")
	inv := writeFile(t, "config.toml", validInventory)

	cmd := newNotifyCmdWithDoer(&rootOptions{cfgPath: cfg, inventory: inv}, nil)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs(nil)
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "webhook_url") {
		t.Fatalf("err=%v", err)
	}
}

func TestReloadCmd_MissingPIDFile(t *testing.T) {
	cfg := writeAppConfig(t, "server:\n  pid_file: "+filepath.Join(t.TempDir(), "none.pid")+"\n")
	if _, err := execRoot(t, "-c", cfg, "reload"); err == nil || !strings.Contains(err.Error(), "read pid file") {
		t.Fatalf("err=%v", err)
	}
}
