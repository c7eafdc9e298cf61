package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"cardmint/internal/config"
	"cardmint/internal/pipeline"
	"cardmint/internal/services/hedera"
	"cardmint/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	server     *httptest.Server
	ledger     *fakeLedger
}

type fakeLedger struct {
	created int
	minted  int
}

func (f *fakeLedger) CreateToken(context.Context, hedera.TokenSpec) (string, error) {
	f.created++
	return "0.0.9090", nil
}

func (f *fakeLedger) MintToken(context.Context, string, []byte) ([]int64, error) {
	f.minted++
	return []int64{1}, nil
}

// setupCLITestEnv writes a config pointing every service at a local fake
// that identifies any photo as Yungoos 117 unless visionContent overrides
// the model reply.
func setupCLITestEnv(t *testing.T, visionContent string) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	for _, key := range []string{"NTFY_TOPIC", "IMAGE_HOST_CLIENT_ID", "VISION_API_KEY", "PINNING_SERVICE_TOKEN", "LEDGER_ACCOUNT_ID", "LEDGER_PRIVATE_KEY"} {
		t.Setenv(key, "")
	}

	if visionContent == "" {
		visionContent = `{"name":"Yungoos","number":"117"}`
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"status":200,"data":{"link":"https://i.imgur.com/yungoos.jpg"}}`)
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": visionContent}}},
		})
	})
	mux.HandleFunc("/cards", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Query().Get("q"), "number:117") {
			_, _ = io.WriteString(w, `{"data":[],"totalCount":0}`)
			return
		}
		_, _ = io.WriteString(w, `{"data":[{"id":"sm1-117","name":"Yungoos","number":"117","rarity":"Common","set":{"id":"sm1","name":"Sun & Moon","ptcgoCode":"SUM"},"images":{"large":"https://images.example/sm1/117_hires.png"}}],"totalCount":1}`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithLocalPublisher(), testsupport.WithServiceURLs(server.URL))
	cfg.Logging.Level = "error"
	configPath := filepath.Join(homeDir, ".config", "cardmint", "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, server: server, ledger: &fakeLedger{}}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (e *cliTestEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(pipeline.WithLedger(e.ledger))
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if stdin != "" {
		cmd.SetIn(strings.NewReader(stdin))
	}
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
