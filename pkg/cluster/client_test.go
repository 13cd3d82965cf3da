package cluster

import (
	"os"
	"path/filepath"
	"testing"
)

const kubeconfigFixture = `apiVersion: v1
kind: Config
clusters:
- cluster:
    server: https://127.0.0.1:6443
  name: test
contexts:
- context:
    cluster: test
    user: test
  name: test
current-context: test
users:
- name: test
  user:
    token: secret
`

func writeKubeconfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	if err := os.WriteFile(path, []byte(kubeconfigFixture), 0o600); err != nil {
		t.Fatalf("failed to write kubeconfig fixture: %v", err)
	}
	return path
}

func TestBuildKubeClientFromPath(t *testing.T) {
	client, config, err := BuildKubeClient(writeKubeconfig(t))
	if err != nil {
		t.Fatalf("BuildKubeClient failed: %v", err)
	}
	if client == nil {
		t.Fatal("expected a client")
	}
	if config.Host != "https://127.0.0.1:6443" {
		t.Errorf("unexpected host %q", config.Host)
	}
}

func TestGetKubeClientReturnsCachedClient(t *testing.T) {
	t.Setenv("KUBECONFIG", writeKubeconfig(t))

	first, _, err := GetKubeClient()
	if err != nil {
		t.Fatalf("first GetKubeClient failed: %v", err)
	}
	second, _, err := GetKubeClient()
	if err != nil {
		t.Fatalf("second GetKubeClient failed: %v", err)
	}
	if first != second {
		t.Error("expected the second call to return the cached client")
	}
}
