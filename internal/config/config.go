/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package config provides configuration loading for bayoukv replicas and
frontends.

Configuration is resolved in three layers, lowest to highest precedence:

 1. DefaultConfig()
 2. A TOML file (LoadFromFile)
 3. Environment variables (LoadFromEnv)

A Manager holds the current Config and can Reload() it from the same
file, notifying any registered OnReload callbacks. The bayoukv
entrypoints load their config once at startup and register no
callbacks.
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Environment variable names.
const (
	EnvNodeID        = "BAYOUKV_NODE_ID"
	EnvRole          = "BAYOUKV_ROLE"
	EnvPort          = "BAYOUKV_PORT"
	EnvRegistryAddr  = "BAYOUKV_REGISTRY_ADDR"
	EnvDatasetPath   = "BAYOUKV_DATASET_PATH"
	EnvLogLevel      = "BAYOUKV_LOG_LEVEL"
	EnvLogJSON       = "BAYOUKV_LOG_JSON"
	EnvAdminPassword = "BAYOUKV_ADMIN_PASSWORD"
)

// Config holds all tunables for a replica or frontend process.
type Config struct {
	// NodeID uniquely identifies this replica (ignored by frontends).
	NodeID string `json:"node_id"`
	// Role is "replica" or "frontend".
	Role string `json:"role"`
	// Port is the RPC listen port for this process.
	Port int `json:"port"`
	// RegistryAddr is the address of the registry/discovery service;
	// empty means use mDNS on the local network.
	RegistryAddr string `json:"registry_addr"`
	// DatasetPath is the CSV dataset a replica loads/reloads from.
	DatasetPath string `json:"dataset_path"`

	// GossipPeriod is the interval between gossip rounds (seconds).
	GossipPeriodSeconds int `json:"gossip_period_seconds"`
	// GossipFanout is the number of peers contacted per gossip round.
	GossipFanout int `json:"gossip_fanout"`
	// ReconstructEvery is the number of idle gossip rounds before a
	// full reconstruction is forced.
	ReconstructEvery int `json:"reconstruct_every"`
	// ReadSpinPatience bounds how many GossipPeriod-length rounds a
	// read will spin waiting for a causally-sufficient state.
	ReadSpinPatience int `json:"read_spin_patience"`
	// SimulateFlakiness enables the optional random online/overloaded
	// instrumentation described in spec.md's open question #3.
	SimulateFlakiness bool `json:"simulate_flakiness"`
	// ClusterTLS wraps replica<->replica and frontend<->replica
	// connections in self-signed TLS when true.
	ClusterTLS bool `json:"cluster_tls"`
	// TLSCertDir holds (or receives a freshly generated) server.crt /
	// server.key pair used when ClusterTLS is set; empty means
	// tls.DefaultCertDir().
	TLSCertDir string `json:"tls_cert_dir"`

	LogLevel string `json:"log_level"`
	LogJSON  bool   `json:"log_json"`

	AdminPassword string `json:"-"`
	ConfigFile    string `json:"-"`
}

// DefaultConfig returns the out-of-the-box configuration.
func DefaultConfig() *Config {
	return &Config{
		Role:                "standalone",
		Port:                9900,
		DatasetPath:         "movies.csv",
		GossipPeriodSeconds: 2,
		GossipFanout:        5,
		ReconstructEvery:    5,
		ReadSpinPatience:    10,
		SimulateFlakiness:   false,
		ClusterTLS:          false,
		LogLevel:            "info",
		LogJSON:             false,
	}
}

// Validate checks the config for internal consistency.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	switch c.Role {
	case "standalone", "replica", "frontend":
	default:
		return fmt.Errorf("invalid role: %q", c.Role)
	}
	if c.Role == "replica" && c.NodeID == "" {
		return fmt.Errorf("role %q requires node_id", c.Role)
	}
	if c.DatasetPath == "" {
		return fmt.Errorf("dataset_path must not be empty")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log_level: %q", c.LogLevel)
	}
	if c.GossipPeriodSeconds <= 0 {
		return fmt.Errorf("gossip_period_seconds must be positive")
	}
	if c.ReconstructEvery <= 0 {
		return fmt.Errorf("reconstruct_every must be positive")
	}
	return nil
}

// String renders a human-readable summary, used by status tooling.
func (c *Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "NodeID: %s\n", c.NodeID)
	fmt.Fprintf(&b, "Role: %s\n", c.Role)
	fmt.Fprintf(&b, "Port: %d\n", c.Port)
	fmt.Fprintf(&b, "RegistryAddr: %s\n", c.RegistryAddr)
	fmt.Fprintf(&b, "DatasetPath: %s\n", c.DatasetPath)
	fmt.Fprintf(&b, "GossipPeriodSeconds: %d\n", c.GossipPeriodSeconds)
	fmt.Fprintf(&b, "LogLevel: %s\n", c.LogLevel)
	return b.String()
}

// ToTOML renders the config as a minimal TOML document.
func (c *Config) ToTOML() string {
	var b strings.Builder
	fmt.Fprintf(&b, "node_id = %q\n", c.NodeID)
	fmt.Fprintf(&b, "role = %q\n", c.Role)
	fmt.Fprintf(&b, "port = %d\n", c.Port)
	fmt.Fprintf(&b, "registry_addr = %q\n", c.RegistryAddr)
	fmt.Fprintf(&b, "dataset_path = %q\n", c.DatasetPath)
	fmt.Fprintf(&b, "gossip_period_seconds = %d\n", c.GossipPeriodSeconds)
	fmt.Fprintf(&b, "gossip_fanout = %d\n", c.GossipFanout)
	fmt.Fprintf(&b, "reconstruct_every = %d\n", c.ReconstructEvery)
	fmt.Fprintf(&b, "read_spin_patience = %d\n", c.ReadSpinPatience)
	fmt.Fprintf(&b, "simulate_flakiness = %t\n", c.SimulateFlakiness)
	fmt.Fprintf(&b, "cluster_tls = %t\n", c.ClusterTLS)
	fmt.Fprintf(&b, "tls_cert_dir = %q\n", c.TLSCertDir)
	fmt.Fprintf(&b, "log_level = %q\n", c.LogLevel)
	fmt.Fprintf(&b, "log_json = %t\n", c.LogJSON)
	return b.String()
}

// SaveToFile writes the config as TOML to path, creating parent
// directories as needed.
func (c *Config) SaveToFile(path string) error {
	if dir := dirOf(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(c.ToTOML()), 0o644)
}

func dirOf(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

// Manager owns the live Config for a process and can reload it.
type Manager struct {
	mu       sync.RWMutex
	cfg      *Config
	path     string
	onReload []func(*Config)
}

// NewManager creates a Manager seeded with DefaultConfig.
func NewManager() *Manager {
	return &Manager{cfg: DefaultConfig()}
}

// Get returns the current config. Callers must not mutate it.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// LoadFromFile parses a TOML file into the manager's config, starting
// from DefaultConfig so unspecified fields keep their defaults.
func (m *Manager) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	cfg := DefaultConfig()
	if err := parseTOML(string(data), cfg); err != nil {
		return err
	}
	cfg.ConfigFile = path

	m.mu.Lock()
	m.path = path
	m.cfg = cfg
	m.mu.Unlock()
	return nil
}

// LoadFromEnv overlays environment variables onto the current config.
func (m *Manager) LoadFromEnv() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := *m.cfg
	if v := os.Getenv(EnvNodeID); v != "" {
		cfg.NodeID = v
	}
	if v := os.Getenv(EnvRole); v != "" {
		cfg.Role = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Port = n
		}
	}
	if v := os.Getenv(EnvRegistryAddr); v != "" {
		cfg.RegistryAddr = v
	}
	if v := os.Getenv(EnvDatasetPath); v != "" {
		cfg.DatasetPath = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvLogJSON); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.LogJSON = b
		}
	}
	if v := os.Getenv(EnvAdminPassword); v != "" {
		cfg.AdminPassword = v
	}
	m.cfg = &cfg
}

// Reload re-reads the last-loaded file (a no-op if none was loaded)
// and runs any OnReload callbacks.
func (m *Manager) Reload() error {
	m.mu.RLock()
	path := m.path
	m.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := m.LoadFromFile(path); err != nil {
		return err
	}
	m.mu.RLock()
	cfg := m.cfg
	callbacks := append([]func(*Config){}, m.onReload...)
	m.mu.RUnlock()
	for _, cb := range callbacks {
		cb(cfg)
	}
	return nil
}

// OnReload registers a callback invoked after every successful Reload.
func (m *Manager) OnReload(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReload = append(m.onReload, fn)
}

var (
	globalOnce sync.Once
	globalMgr  *Manager
)

// Global returns the process-wide Manager singleton.
func Global() *Manager {
	globalOnce.Do(func() {
		globalMgr = NewManager()
	})
	return globalMgr
}

// parseTOML is a minimal parser for the flat key = value documents
// ToTOML produces: one assignment per line, strings double-quoted,
// bools/ints bare, comments starting with '#'.
func parseTOML(data string, cfg *Config) error {
	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		val = strings.Trim(val, `"`)

		switch key {
		case "node_id":
			cfg.NodeID = val
		case "role":
			cfg.Role = val
		case "port":
			if n, err := strconv.Atoi(val); err == nil {
				cfg.Port = n
			}
		case "binary_port", "replication_port":
			// accepted for forward-compatibility with older configs; unused
		case "registry_addr":
			cfg.RegistryAddr = val
		case "dataset_path", "db_path":
			cfg.DatasetPath = val
		case "gossip_period_seconds":
			if n, err := strconv.Atoi(val); err == nil {
				cfg.GossipPeriodSeconds = n
			}
		case "gossip_fanout":
			if n, err := strconv.Atoi(val); err == nil {
				cfg.GossipFanout = n
			}
		case "reconstruct_every":
			if n, err := strconv.Atoi(val); err == nil {
				cfg.ReconstructEvery = n
			}
		case "read_spin_patience":
			if n, err := strconv.Atoi(val); err == nil {
				cfg.ReadSpinPatience = n
			}
		case "simulate_flakiness":
			cfg.SimulateFlakiness = val == "true"
		case "cluster_tls":
			cfg.ClusterTLS = val == "true"
		case "tls_cert_dir":
			cfg.TLSCertDir = val
		case "log_level":
			cfg.LogLevel = val
		case "log_json":
			cfg.LogJSON = val == "true"
		case "master_addr":
			// accepted for forward-compatibility; unused by bayoukv
		}
	}
	return nil
}
