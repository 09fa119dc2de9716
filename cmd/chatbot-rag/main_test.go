package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func localEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("FIRESTORE_PROJECT_ID", "")
	t.Setenv("VECTOR_INDEX_BACKEND", "chromem")
	t.Setenv("CHROMEM_PATH", "")
	t.Setenv("EMBEDDING_PROVIDER", "mock")
	t.Setenv("LLM_PROVIDER", "mock")
	t.Setenv("APP_LOG_LEVEL", "error")
}

func runCLI(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append(args, "--env-file", ""))
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out.String()
}

func TestAskCommandAnswers(t *testing.T) {
	localEnv(t)
	out := runCLI(t, "ask", "--user", "cli-test", "ada", "hp", "murah?")
	if !strings.Contains(out, "ada hp murah?") {
		t.Fatalf("ask output = %q", out)
	}
}

func TestSeedCommandLoadsCatalog(t *testing.T) {
	localEnv(t)
	path := filepath.Join(t.TempDir(), "products.yaml")
	seed := "products:\n  - name: Infinix Note 50\n    description: Baterai besar\n    price: 2625000\n  - name: Realme 14 5G\n    description: Desain elegan\n    price: 4100000\n"
	if err := os.WriteFile(path, []byte(seed), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	out := runCLI(t, "seed", "--file", path)
	if !strings.Contains(out, "seeded 2 products") {
		t.Fatalf("seed output = %q", out)
	}
}
