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

package registry

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/mdns"

	"github.com/firefly-oss/bayoukv/internal/logging"
)

// serviceType is the mDNS service bayoukv advertises under, analogous
// to flydb's cluster discovery service (cmd/flydb-discover/main.go
// calls cluster.NewDiscoveryService/DiscoverNodes against a service
// already assumed to exist on the network; MDNS is the concrete
// implementation of that assumption).
const serviceType = "_bayoukv._tcp"

// QueryTimeout bounds how long List waits for mDNS responses before
// returning whatever it has collected.
const QueryTimeout = 2 * time.Second

// MDNS is a Registry backed by local-network multicast DNS service
// discovery. Register starts (and Remove stops) one mdns.Server per
// advertised name; List issues a fresh mdns.Query and decodes TXT
// records back into (name, endpoint, tags).
type MDNS struct {
	mu      sync.Mutex
	servers map[string]*mdns.Server
	log     *logging.Logger
}

// NewMDNS returns an MDNS registry with no active advertisements.
func NewMDNS() *MDNS {
	return &MDNS{
		servers: make(map[string]*mdns.Server),
		log:     logging.NewLogger("registry-mdns"),
	}
}

// Register implements Registry by starting an mDNS responder for
// name, encoding endpoint and tags into the service's TXT record.
func (m *MDNS) Register(name, endpoint string, tags []string) error {
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		return fmt.Errorf("registry: endpoint %q must be host:port: %w", endpoint, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("registry: endpoint %q has non-numeric port: %w", endpoint, err)
	}

	var ips []net.IP
	if addrs, err := net.LookupIP(host); err == nil {
		ips = addrs
	}

	txt := []string{
		"name=" + name,
		"endpoint=" + endpoint,
		"tags=" + strings.Join(tags, ","),
	}

	service, err := mdns.NewMDNSService(sanitizeInstance(name), serviceType, "", "", port, ips, txt)
	if err != nil {
		return fmt.Errorf("registry: building mdns service for %q: %w", name, err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("registry: starting mdns server for %q: %w", name, err)
	}

	m.mu.Lock()
	if old, ok := m.servers[name]; ok {
		old.Shutdown()
	}
	m.servers[name] = server
	m.mu.Unlock()

	m.log.Debug("registered", "name", name, "endpoint", endpoint, "tags", strings.Join(tags, ","))
	return nil
}

// Remove implements Registry by shutting down name's mDNS responder.
func (m *MDNS) Remove(name string) error {
	m.mu.Lock()
	server, ok := m.servers[name]
	delete(m.servers, name)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return server.Shutdown()
}

// List implements Registry by querying the local network for
// serviceType and filtering responses whose tags contain tag.
func (m *MDNS) List(tag string) (map[string]string, error) {
	entriesCh := make(chan *mdns.ServiceEntry, 16)
	out := make(map[string]string)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for entry := range entriesCh {
			name, endpoint, tags := decodeTXT(entry.InfoFields)
			if name == "" || endpoint == "" {
				continue
			}
			if !hasTag(tags, tag) {
				continue
			}
			out[name] = endpoint
		}
	}()

	params := mdns.DefaultParams(serviceType)
	params.Entries = entriesCh
	params.Timeout = QueryTimeout
	params.DisableIPv6 = true

	err := mdns.Query(params)
	close(entriesCh)
	<-done

	if err != nil {
		return nil, fmt.Errorf("registry: mdns query failed: %w", err)
	}
	return out, nil
}

// Shutdown stops every mDNS responder this MDNS instance started.
func (m *MDNS) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, server := range m.servers {
		server.Shutdown()
		delete(m.servers, name)
	}
}

func decodeTXT(fields []string) (name, endpoint string, tags []string) {
	for _, f := range fields {
		k, v, ok := strings.Cut(f, "=")
		if !ok {
			continue
		}
		switch k {
		case "name":
			name = v
		case "endpoint":
			endpoint = v
		case "tags":
			if v != "" {
				tags = strings.Split(v, ",")
			}
		}
	}
	return name, endpoint, tags
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}

// sanitizeInstance strips characters mDNS instance names disallow
// (notably ':', used in "replica:R1" names).
func sanitizeInstance(name string) string {
	return strings.ReplaceAll(name, ":", "-")
}
