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
bayoukv-replica runs one bayoukv replica process: it serves the RPC
surface of spec.md §6, advertises itself on the registry, and runs the
background gossip loop until signaled to stop.

Usage:

	bayoukv-replica [node-id]
	bayoukv-replica --config replica.toml

The positional node-id argument, if given, overrides the configured
node id (spec.md §6: "replica accepts optional positional arg = replica id").
*/
package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/firefly-oss/bayoukv/internal/config"
	"github.com/firefly-oss/bayoukv/internal/dataset"
	"github.com/firefly-oss/bayoukv/internal/logging"
	"github.com/firefly-oss/bayoukv/internal/registry"
	"github.com/firefly-oss/bayoukv/internal/replica"
	bayoutls "github.com/firefly-oss/bayoukv/internal/tls"
	"github.com/firefly-oss/bayoukv/internal/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "bayoukv-replica: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	mgr := config.Global()

	configFile := ""
	args := os.Args[1:]
	var nodeIDArg string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config":
			if i+1 >= len(args) {
				return fmt.Errorf("--config requires a path")
			}
			configFile = args[i+1]
			i++
		default:
			if nodeIDArg == "" {
				nodeIDArg = args[i]
			}
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
	if nodeIDArg != "" {
		cfg.NodeID = nodeIDArg
	}
	cfg.Role = "replica"
	if cfg.NodeID == "" {
		return fmt.Errorf("a replica requires a node id (positional arg, BAYOUKV_NODE_ID, or config file)")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logging.SetJSONMode(cfg.LogJSON)
	logging.SetGlobalLevel(logging.ParseLevel(cfg.LogLevel))
	logger := logging.NewLogger("bayoukv-replica").With("node_id", cfg.NodeID)

	addr := "127.0.0.1:" + strconv.Itoa(cfg.Port)

	ds := dataset.NewCSVDataset(cfg.DatasetPath)

	if cfg.RegistryAddr != "" {
		logger.Warn("registry_addr is set but only mDNS discovery is wired; ignoring", "registry_addr", cfg.RegistryAddr)
	}
	reg := registry.NewMDNS()
	defer reg.Shutdown()

	serverTLS, clientTLS, err := loadClusterTLS(cfg, logger)
	if err != nil {
		return fmt.Errorf("configuring cluster_tls: %w", err)
	}
	tlsClient := transport.NewTCPClient(clientTLS)
	tlsServer := transport.NewTCPServer(serverTLS)

	rcfg := replica.Config{
		GossipPeriod:      time.Duration(cfg.GossipPeriodSeconds) * time.Second,
		GossipFanout:      cfg.GossipFanout,
		ReconstructEvery:  cfg.ReconstructEvery,
		ReadSpinPatience:  cfg.ReadSpinPatience,
		SimulateFlakiness: cfg.SimulateFlakiness,
	}

	r, err := replica.New(cfg.NodeID, addr, ds, reg, tlsClient, rcfg)
	if err != nil {
		return fmt.Errorf("starting replica: %w", err)
	}

	replica.RegisterHandlers(tlsServer, r)

	serverErrs := make(chan error, 1)
	go func() {
		serverErrs <- tlsServer.ListenAndServe(addr)
	}()

	name := registry.ReplicaName(cfg.NodeID)
	if err := reg.Register(name, addr, []string{registry.TagReplica}); err != nil {
		return fmt.Errorf("registering replica: %w", err)
	}
	logger.Info("replica listening", "addr", addr)

	ctx, cancel := context.WithCancel(context.Background())
	go r.RunGossipLoop(ctx)

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

	cancel()
	if err := reg.Remove(name); err != nil {
		logger.Warn("failed to deregister cleanly", "err", err.Error())
	}
	tlsServer.Close()
	return nil
}

// loadClusterTLS turns cfg.ClusterTLS into a working *tls.Config pair:
// one for the listener (server cert+key) and one for outbound dials
// (trusting that same self-signed cert, since cluster members share it
// instead of a CA). Certificates are generated on first use and reused
// after that.
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
