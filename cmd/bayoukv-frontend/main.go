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
bayoukv-frontend runs the client-facing RPC surface of spec.md §6: it
accepts forget/get_timestamp/get_user_data/list_movies/search/get_movie/
add_rating/delete_rating/add_tag/remove_tag/add_movie calls, each
routed to a per-client Session, and advertises itself on the registry
under the well-known name "frontend" so replicas and operators can find
it.

Usage:

	bayoukv-frontend
	bayoukv-frontend --config frontend.toml
*/
package main

import (
	"crypto/tls"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/firefly-oss/bayoukv/internal/config"
	"github.com/firefly-oss/bayoukv/internal/frontend"
	"github.com/firefly-oss/bayoukv/internal/logging"
	"github.com/firefly-oss/bayoukv/internal/registry"
	bayoutls "github.com/firefly-oss/bayoukv/internal/tls"
	"github.com/firefly-oss/bayoukv/internal/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "bayoukv-frontend: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	mgr := config.Global()

	configFile := ""
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		if args[i] == "--config" {
			if i+1 >= len(args) {
				return fmt.Errorf("--config requires a path")
			}
			configFile = args[i+1]
			i++
		}
	}

	if configFile != "" {
		if err := mgr.LoadFromFile(configFile); err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
	}
	mgr.LoadFromEnv()
	cfgCopy := *mgr.Get()
	cfg := &cfgCopy
	cfg.Role = "frontend"
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logging.SetJSONMode(cfg.LogJSON)
	logging.SetGlobalLevel(logging.ParseLevel(cfg.LogLevel))
	logger := logging.NewLogger("bayoukv-frontend")

	addr := "127.0.0.1:" + strconv.Itoa(cfg.Port)

	if cfg.RegistryAddr != "" {
		logger.Warn("registry_addr is set but only mDNS discovery is wired; ignoring", "registry_addr", cfg.RegistryAddr)
	}
	reg := registry.NewMDNS()
	defer reg.Shutdown()

	serverTLS, clientTLS, err := loadClusterTLS(cfg, logger)
	if err != nil {
		return fmt.Errorf("configuring cluster_tls: %w", err)
	}
	transportClient := transport.NewTCPClient(clientTLS)
	transportServer := transport.NewTCPServer(serverTLS)

	sessionCfg := frontend.DefaultConfig()
	srv := frontend.NewServer(reg, transportClient, sessionCfg)
	frontend.RegisterHandlers(transportServer, srv)

	serverErrs := make(chan error, 1)
	go func() {
		serverErrs <- transportServer.ListenAndServe(addr)
	}()

	if err := reg.Register(registry.FrontendName, addr, []string{registry.FrontendName}); err != nil {
		return fmt.Errorf("registering frontend: %w", err)
	}
	logger.Info("frontend listening", "addr", addr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		logger.Info("shutting down", "signal", s.String())
	case err := <-serverErrs:
		if err != nil {
			logger.Error("server stopped unexpectedly", "err", err.Error())
		}
	}

	if err := reg.Remove(registry.FrontendName); err != nil {
		logger.Warn("failed to deregister cleanly", "err", err.Error())
	}
	transportServer.Close()
	return nil
}

// loadClusterTLS turns cfg.ClusterTLS into a working *tls.Config pair,
// identically to bayoukv-replica's helper of the same name: a server
// config (cert+key) for the listener, and a client config trusting
// that same pre-shared self-signed cert for outbound dials to
// replicas.
func loadClusterTLS(cfg *config.Config, logger *logging.Logger) (server, client *tls.Config, err error) {
	if !cfg.ClusterTLS {
		return nil, nil, nil
	}

	certDir := cfg.TLSCertDir
	if certDir == "" {
		certDir = bayoutls.DefaultCertDir()
	}
	certPath := certDir + "/server.crt"
	keyPath := certDir + "/server.key"

	if err := bayoutls.EnsureCertificates(certPath, keyPath, bayoutls.DefaultCertConfig()); err != nil {
		return nil, nil, err
	}
	logger.Info("cluster_tls enabled", "cert_dir", certDir)

	server, err = bayoutls.ServerTLSConfig(certPath, keyPath)
	if err != nil {
		return nil, nil, err
	}
	client, err = bayoutls.ClientTLSConfig(certPath)
	if err != nil {
		return nil, nil, err
	}
	return server, client, nil
}
