package consul

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/consul/api"
	"github.com/mwantia/fsdb/backend"
)

// ConsulBackend stores a database in the HashiCorp Consul KV store.
//
// Architecture:
// - Entries are JSON documents at "<prefix>catalog/<key>/.entry", so the
//   subtree of an entry shares one KV prefix
// - Objects are raw values at "<prefix>objects/<key>"
// - The database lock is a Consul session lock at "<prefix>lock"
//
// Limitations:
// - Consul KV has a 512KB limit per value
// - Best suited for catalogs and small files; pair with S3 storage otherwise
type ConsulBackend struct {
	mu     sync.RWMutex
	client *api.Client
	kv     *api.KV

	lock      *api.Lock
	lockOwner string

	// Configuration
	config *ConsulBackendConfig
}

// ConsulBackendConfig contains configuration options for the Consul backend
type ConsulBackendConfig struct {
	// Address of the Consul server (default: "127.0.0.1:8500")
	Address string

	// Scheme used to reach the server, "http" or "https" (default: "http")
	Scheme string

	// Token for Consul ACL authentication (optional)
	Token string

	// Datacenter to use (optional)
	Datacenter string

	// Namespace for Consul Enterprise (optional)
	Namespace string

	// Prefix for all keys in Consul KV (default: "fsdb/")
	Prefix string
}

// NewConsulBackend creates a new Consul-backed backend
func NewConsulBackend(config *ConsulBackendConfig) (*ConsulBackend, error) {
	if config == nil {
		config = &ConsulBackendConfig{}
	}

	// Set defaults
	if config.Address == "" {
		config.Address = "127.0.0.1:8500"
	}
	if config.Prefix == "" {
		config.Prefix = "fsdb/"
	}

	// Create Consul client
	clientConfig := api.DefaultConfig()
	clientConfig.Address = config.Address
	if config.Scheme != "" {
		clientConfig.Scheme = config.Scheme
	}
	if config.Token != "" {
		clientConfig.Token = config.Token
	}
	if config.Datacenter != "" {
		clientConfig.Datacenter = config.Datacenter
	}
	if config.Namespace != "" {
		clientConfig.Namespace = config.Namespace
	}

	client, err := api.NewClient(clientConfig)
	if err != nil {
		return nil, err
	}

	return &ConsulBackend{
		client: client,
		kv:     client.KV(),
		config: config,
	}, nil
}

// Name returns the identifier name defined for this backend
func (*ConsulBackend) Name() string {
	return "consul"
}

// Open verifies that the agent is reachable.
func (cb *ConsulBackend) Open(ctx context.Context) error {
	if _, err := cb.client.Status().Leader(); err != nil {
		return fmt.Errorf("failed to reach consul at '%s': %w", cb.config.Address, err)
	}
	return nil
}

// Close gives up a lock that was not released through Unlock.
func (cb *ConsulBackend) Close(ctx context.Context) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.lock == nil {
		return nil
	}

	lock := cb.lock
	cb.lock, cb.lockOwner = nil, ""
	return lock.Unlock()
}

// GetCapabilities returns a list of capabilities supported by this backend
func (cb *ConsulBackend) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityCatalog,
			backend.CapabilityStorage,
			backend.CapabilityLock,
		},
		// Consul KV has a default limit of 512KB per value
		// We set it slightly lower to account for overhead
		MaxObjectSize: 500 * 1024, // 500 KB
	}
}

// buildKey constructs the full Consul KV key below the configured prefix
func (cb *ConsulBackend) buildKey(parts ...string) string {
	prefix := strings.TrimPrefix(cb.config.Prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix + strings.Join(parts, "/")
}

// treeKey is the prefix shared by an entry and all of its descendants.
func (cb *ConsulBackend) treeKey(key string) string {
	if key == "" {
		return cb.buildKey("catalog") + "/"
	}
	return cb.buildKey("catalog", key) + "/"
}

func (cb *ConsulBackend) entryKey(key string) string {
	return cb.treeKey(key) + entryFileName
}

func (cb *ConsulBackend) objectKey(key string) string {
	return cb.buildKey("objects", key)
}

func (cb *ConsulBackend) queryOptions(ctx context.Context) *api.QueryOptions {
	return (&api.QueryOptions{}).WithContext(ctx)
}

func (cb *ConsulBackend) writeOptions(ctx context.Context) *api.WriteOptions {
	return (&api.WriteOptions{}).WithContext(ctx)
}
