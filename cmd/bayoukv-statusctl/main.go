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
bayoukv-statusctl is a diagnostic tool: it discovers every replica on
the registry and prints each one's status/state_ts/sync_ts/buffer_len/
log_len (spec.md's "diagnostic tools" are explicitly out of scope for
the core replica/frontend, but bayoukv ships one anyway, the way flydb
ships flydb-dump alongside its Raft core).

Usage:

	bayoukv-statusctl
	bayoukv-statusctl --format json
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/firefly-oss/bayoukv/internal/registry"
	"github.com/firefly-oss/bayoukv/internal/replica"
	"github.com/firefly-oss/bayoukv/internal/transport"
	"github.com/firefly-oss/bayoukv/pkg/cli"
)

func main() {
	format := flag.String("format", "table", "Output format: table, json, plain")
	timeout := flag.Int("timeout", 3, "Timeout in seconds for the replica status queries")
	flag.Parse()

	reg := registry.NewMDNS()
	defer reg.Shutdown()

	listing, err := reg.List(registry.TagReplica)
	if err != nil {
		cli.PrintError("discovery failed: %v", err)
		os.Exit(1)
	}
	if len(listing) == 0 {
		cli.PrintWarning("no replicas found on the registry")
		os.Exit(0)
	}

	names := make([]string, 0, len(listing))
	for name := range listing {
		names = append(names, name)
	}
	sort.Strings(names)

	client := transport.NewTCPClient(nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(*timeout)*time.Second)
	defer cancel()

	table := cli.NewTable("REPLICA", "STATUS", "STATE_TS", "SYNC_TS", "LOG_LEN", "BUFFER_LEN")
	table.SetFormat(cli.ParseOutputFormat(*format))

	for _, name := range names {
		addr := listing[name]
		c := replica.NewClient(client, addr)

		status, err := c.Status(ctx)
		if err != nil {
			table.AddRow(name, fmt.Sprintf("unreachable: %v", err), "", "", "", "")
			continue
		}

		st, err := c.GetState(ctx)
		if err != nil {
			table.AddRow(name, status, fmt.Sprintf("error: %v", err), "", "", "")
			continue
		}

		table.AddRow(
			name,
			status,
			st.StateTS.String(),
			st.SyncTS.String(),
			fmt.Sprintf("%d", st.LogLen),
			fmt.Sprintf("%d", st.BufferLen),
		)
	}

	table.Print()
}
