package picosock

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writePolicyFile(t *testing.T, path string, ports []uint16) {
	t.Helper()
	data, err := json.Marshal(portPolicyFile{AllowedPorts: ports})
	if err != nil {
		t.Fatalf("marshal policy file: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write policy file: %v", err)
	}
}

func TestPortPolicyLoadAndAllowed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.json")
	writePolicyFile(t, path, []uint16{80, 443})

	p, err := LoadPortPolicy(path)
	if err != nil {
		t.Fatalf("LoadPortPolicy: %v", err)
	}
	defer p.Close()

	if !p.Allowed(80) {
		t.Fatal("port 80 should be allowed")
	}
	if p.Allowed(22) {
		t.Fatal("port 22 should not be allowed")
	}
}

func TestPortPolicyHookMatchesAllowed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.json")
	writePolicyFile(t, path, []uint16{9000})

	p, err := LoadPortPolicy(path)
	if err != nil {
		t.Fatalf("LoadPortPolicy: %v", err)
	}
	defer p.Close()

	hook := p.Hook()
	if err := hook(nil, 9000); err != nil {
		t.Fatalf("hook should accept the allowed port: %v", err)
	}
	if err := hook(nil, 9001); err == nil {
		t.Fatal("hook should reject a port not in the allow-list")
	}
}

func TestPortPolicyWatchPicksUpEdits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.json")
	writePolicyFile(t, path, []uint16{80})

	p, err := LoadPortPolicy(path)
	if err != nil {
		t.Fatalf("LoadPortPolicy: %v", err)
	}
	defer p.Close()

	if err := p.Watch(); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	writePolicyFile(t, path, []uint16{80, 443})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p.Allowed(443) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("policy file edit was never picked up by the watcher")
}

func TestPortPolicyEmptyListAllowsAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.json")
	writePolicyFile(t, path, nil)

	p, err := LoadPortPolicy(path)
	if err != nil {
		t.Fatalf("LoadPortPolicy: %v", err)
	}
	defer p.Close()

	if !p.Allowed(80) {
		t.Fatal("an empty allow-list should allow every port")
	}
	if !p.Allowed(9999) {
		t.Fatal("an empty allow-list should allow every port")
	}
}

func TestLoadPortPolicyMissingFile(t *testing.T) {
	if _, err := LoadPortPolicy(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected an error loading a nonexistent policy file")
	}
}
