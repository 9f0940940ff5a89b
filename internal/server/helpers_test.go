package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/evercode/routegen/pkg/config"
)

const inventoryTwoServers = `
[server.serverA]
ip = "10.0.0.1"
mac = "aa:bb:cc:dd:ee:ff"
svcX = { port = 80, authelia = true }

[server.serverB]
ip = "10.0.0.2"
svcY = { port = 9000, authentik = true }
`

const inventoryPortConflict = `
[server.serverA]
ip = "10.0.0.1"
svcX = { port = 80 }
svcY = { port = 80 }
`

const inventoryMissingIP = `
[server.serverA]
svcX = { port = 80 }
`

func init() {
	gin.SetMode(gin.TestMode)
}

func writeInventory(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write inventory: %v", err)
	}
}

// testConfig returns a config pointing at a fresh inventory file holding
// content.
func testConfig(t *testing.T, content string) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Inventory.File = filepath.Join(t.TempDir(), "config.toml")
	writeInventory(t, cfg.Inventory.File, content)
	cfg.Routing.Domain = "example.org"
	cfg.Routing.EntryPoint = "websecure"
	cfg.Routing.CertResolver = "default"
	cfg.Metrics.Path = "/metrics"
	cfg.Notify.TimeoutMs = 1000
	return cfg
}

func boolPtr(v bool) *bool { return &v }
