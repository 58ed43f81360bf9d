package picosock

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// portPolicyFile is the on-disk shape PortPolicy loads and reloads.
type portPolicyFile struct {
	AllowedPorts []uint16 `json:"allowed_ports"`
}

// PortPolicy is a hot-reloadable port allow-list, meant to be installed as
// the AcceptHook so an operator can open or close listening ports by
// editing a file, with no restart and no code path through the accept
// broker that isn't also exercised by a static AcceptHook.
type PortPolicy struct {
	mu      sync.RWMutex
	allowed map[uint16]bool

	path    string
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// LoadPortPolicy reads path once and returns a PortPolicy reflecting it.
// Call Watch to start hot-reloading on subsequent edits.
func LoadPortPolicy(path string) (*PortPolicy, error) {
	p := &PortPolicy{path: path, done: make(chan struct{})}
	if err := p.reload(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *PortPolicy) reload() error {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return err
	}
	var f portPolicyFile
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	allowed := make(map[uint16]bool, len(f.AllowedPorts))
	for _, port := range f.AllowedPorts {
		allowed[port] = true
	}
	p.mu.Lock()
	p.allowed = allowed
	p.mu.Unlock()
	return nil
}

// Allowed reports whether port is currently in the allow-list. An empty
// allow-list (no allowed_ports configured) means allow all, matching
// AcceptHook's nil default of "no restriction".
func (p *PortPolicy) Allowed(port uint16) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.allowed) == 0 {
		return true
	}
	return p.allowed[port]
}

// Hook adapts Allowed to the AcceptHook signature. It never touches the
// preallocated socket: the port number alone decides the outcome.
func (p *PortPolicy) Hook() AcceptHook {
	return func(_ *Socket, localPort uint16) error {
		if !p.Allowed(localPort) {
			return fmt.Errorf("port policy: %d not in allow-list", localPort)
		}
		return nil
	}
}

// Watch starts an fsnotify watcher on the policy file, reloading it on
// every write. Logs and keeps the previous allow-list on a malformed
// reload rather than failing the watch goroutine.
func (p *PortPolicy) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(p.path); err != nil {
		w.Close()
		return err
	}
	p.watcher = w
	go p.watchLoop()
	return nil
}

func (p *PortPolicy) watchLoop() {
	for {
		select {
		case ev, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if err := p.reload(); err != nil {
					logger.Printf("port policy reload %s: %v", p.path, err)
				}
			}
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			logger.Printf("port policy watch %s: %v", p.path, err)
		case <-p.done:
			return
		}
	}
}

// Close stops the watcher, if one was started.
func (p *PortPolicy) Close() error {
	close(p.done)
	if p.watcher != nil {
		return p.watcher.Close()
	}
	return nil
}
