package engine

import (
	"strings"
	"sync"
	"time"
)

// maxRememberedHosts bounds DomainMemory; past it, expired hosts are pruned
// on the next Remember.
const maxRememberedHosts = 512

// DomainMemory remembers which tier last loaded each news site, so the next
// article from the same site goes straight to a tier that works there. It
// only pays off in a long-lived process such as the MCP server; a one-shot
// CLI run passes no memory to the Dispatcher.
//
// Expired hosts are dropped lazily, so there is no background goroutine.
type DomainMemory struct {
	ttl time.Duration
	now func() time.Time

	mu    sync.Mutex
	hosts map[string]remembered
}

type remembered struct {
	engine string
	at     time.Time
}

func NewDomainMemory(ttl time.Duration) *DomainMemory {
	return &DomainMemory{ttl: ttl, now: time.Now, hosts: make(map[string]remembered)}
}

// siteKey folds "www." into the bare host: news sites serve both names from
// the same stack.
func siteKey(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

// Lookup returns the tier remembered for host.
func (m *DomainMemory) Lookup(host string) (string, bool) {
	key := siteKey(host)
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.hosts[key]
	if !ok {
		return "", false
	}
	if m.expired(r) {
		delete(m.hosts, key)
		return "", false
	}
	return r.engine, true
}

// Remember records that engine loaded a page from host.
func (m *DomainMemory) Remember(host, engine string) {
	if host == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.hosts) >= maxRememberedHosts {
		for k, r := range m.hosts {
			if m.expired(r) {
				delete(m.hosts, k)
			}
		}
	}
	m.hosts[siteKey(host)] = remembered{engine: engine, at: m.now()}
}

// Forget drops host, e.g. after its remembered tier failed.
func (m *DomainMemory) Forget(host string) {
	m.mu.Lock()
	delete(m.hosts, siteKey(host))
	m.mu.Unlock()
}

// Len reports how many sites are remembered, expired ones included.
func (m *DomainMemory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.hosts)
}

func (m *DomainMemory) expired(r remembered) bool {
	return !m.now().Before(r.at.Add(m.ttl))
}
