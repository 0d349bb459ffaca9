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
bayoukv-discover - bayoukv node discovery tool

This tool discovers bayoukv replicas (and the frontend, if running) on
the local network using mDNS (Bonjour/Avahi).

Usage:

	bayoukv-discover                  # discover replicas (5 second timeout)
	bayoukv-discover --timeout 10     # custom timeout in seconds
	bayoukv-discover --json           # output as JSON
	bayoukv-discover --quiet          # only output addresses (for scripting)
	bayoukv-discover --tag frontend   # discover the frontend instead of replicas
*/
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/firefly-oss/bayoukv/internal/registry"
)

const (
	version   = "1.0.0"
	copyright = "Copyright (c) 2026 Firefly Software Solutions Inc."
)

// ANSI color codes
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
)

func main() {
	timeout := flag.Int("timeout", 5, "Discovery timeout in seconds")
	tag := flag.String("tag", registry.TagReplica, "Registry tag to discover")
	jsonOutput := flag.Bool("json", false, "Output as JSON")
	quiet := flag.Bool("quiet", false, "Only output node addresses (for scripting)")
	help := flag.Bool("help", false, "Show help")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(help, "h", false, "Show help")
	flag.BoolVar(showVersion, "v", false, "Show version information")
	flag.BoolVar(quiet, "q", false, "Only output node addresses (for scripting)")

	flag.Parse()

	if *help {
		printUsage()
		os.Exit(0)
	}

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	// Suppress mDNS library logging (it logs IPv6 errors that are not critical).
	log.SetOutput(io.Discard)

	if !*quiet && !*jsonOutput {
		printBanner()
	}

	reg := registry.NewMDNS()
	defer reg.Shutdown()

	if !*quiet && !*jsonOutput {
		fmt.Printf("%s%sℹ%s Scanning for bayoukv %q nodes on the network (timeout: %ds)...\n\n",
			cyan, bold, reset, *tag, *timeout)
	}

	done := make(chan struct{})
	var nodes map[string]string
	var discoverErr error
	go func() {
		nodes, discoverErr = reg.List(*tag)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Duration(*timeout) * time.Second):
		discoverErr = fmt.Errorf("discovery timed out after %ds", *timeout)
	}

	if discoverErr != nil {
		if !*quiet {
			fmt.Fprintf(os.Stderr, "%s%s✗%s Discovery failed: %v\n", red, bold, reset, discoverErr)
		}
		os.Exit(1)
	}

	if len(nodes) == 0 {
		if !*quiet && !*jsonOutput {
			fmt.Printf("%s%s⚠%s No bayoukv nodes found on the network.\n\n", yellow, bold, reset)
			fmt.Printf("%s%sTROUBLESHOOTING%s\n\n", bold, cyan, reset)
			fmt.Printf("%s  Common issues:%s\n", dim, reset)
			fmt.Printf("    %s•%s No bayoukv process is running with this tag\n", yellow, reset)
			fmt.Printf("    %s•%s mDNS/Bonjour is blocked by firewall (UDP port 5353)\n", yellow, reset)
			fmt.Printf("    %s•%s Nodes are on a different network segment\n\n", yellow, reset)
			fmt.Printf("%s  Try:%s\n", dim, reset)
			fmt.Printf("    %sbayoukv-discover --timeout 10%s   # Increase timeout\n\n", green, reset)
		}
		os.Exit(0)
	}

	names := make([]string, 0, len(nodes))
	for name := range nodes {
		names = append(names, name)
	}
	sort.Strings(names)

	if *jsonOutput {
		outputJSON(names, nodes)
	} else if *quiet {
		outputQuiet(names, nodes)
	} else {
		outputHuman(names, nodes)
	}
}

func printBanner() {
	fmt.Println()
	fmt.Printf("%s%s", cyan, bold)
	fmt.Println("  ███████╗██╗  ██╗   ██╗██████╗ ██████╗ ")
	fmt.Println("  ██╔════╝██║  ╚██╗ ██╔╝██╔══██╗██╔══██╗")
	fmt.Println("  █████╗  ██║   ╚████╔╝ ██║  ██║██████╔╝")
	fmt.Println("  ██╔══╝  ██║    ╚██╔╝  ██║  ██║██╔══██╗")
	fmt.Println("  ██║     ███████╗██║   ██████╔╝██████╔╝")
	fmt.Println("  ╚═╝     ╚══════╝╚═╝   ╚═════╝ ╚═════╝ ")
	fmt.Printf("%s\n", reset)
	fmt.Printf("  %s%sbayoukv Discover%s %sv%s%s\n", green, bold, reset, dim, version, reset)
	fmt.Printf("  %sNetwork Node Discovery Tool%s\n\n", dim, reset)
}

func printVersion() {
	fmt.Println()
	fmt.Printf("  %s%sbayoukv Discover%s %sv%s%s\n", cyan, bold, reset, dim, version, reset)
	fmt.Printf("  %sNetwork Node Discovery Tool%s\n\n", dim, reset)
	fmt.Printf("  %s%s%s\n\n", dim, copyright, reset)
}

func printUsage() {
	printBanner()

	fmt.Printf("%s  Discovers bayoukv replicas (or the frontend) on the local network using mDNS (Bonjour/Avahi).%s\n", dim, reset)
	fmt.Printf("%s  Useful for finding existing cluster members to register with.%s\n\n", dim, reset)

	fmt.Printf("%sUsage:%s bayoukv-discover [options]\n\n", bold, reset)

	fmt.Printf("%s%sOPTIONS%s\n\n", bold, cyan, reset)
	fmt.Printf("    %s--timeout%s <seconds>   Discovery timeout (default: 5)\n", green, reset)
	fmt.Printf("    %s--tag%s <tag>           Registry tag to discover (default: %q)\n", green, reset, registry.TagReplica)
	fmt.Printf("    %s--json%s               Output results as JSON\n", green, reset)
	fmt.Printf("    %s--quiet%s, %s-q%s          Only output addresses (for scripting)\n", green, reset, green, reset)
	fmt.Printf("    %s--version%s, %s-v%s        Show version information\n", green, reset, green, reset)
	fmt.Printf("    %s--help%s, %s-h%s           Show this help message\n\n", green, reset, green, reset)

	fmt.Printf("%s%sEXAMPLES%s\n\n", bold, cyan, reset)
	fmt.Printf("%s    # Discover replicas with default timeout%s\n", dim, reset)
	fmt.Println("    bayoukv-discover")
	fmt.Println()
	fmt.Printf("%s    # Increase timeout for slower networks%s\n", dim, reset)
	fmt.Println("    bayoukv-discover --timeout 10")
	fmt.Println()
	fmt.Printf("%s    # Get JSON output for automation%s\n", dim, reset)
	fmt.Println("    bayoukv-discover --json")
	fmt.Println()
	fmt.Printf("%s    # Get just addresses for scripting%s\n", dim, reset)
	fmt.Println("    bayoukv-discover --quiet")
	fmt.Println()

	fmt.Printf("%s%sNETWORK REQUIREMENTS%s\n\n", bold, cyan, reset)
	fmt.Printf("    %s•%s mDNS uses UDP port 5353 (multicast)\n", yellow, reset)
	fmt.Printf("    %s•%s Nodes must be on the same network segment\n", yellow, reset)
	fmt.Printf("    %s•%s Firewalls must allow mDNS traffic\n\n", yellow, reset)
}

func outputJSON(names []string, nodes map[string]string) {
	type nodeOutput struct {
		Name     string `json:"name"`
		Endpoint string `json:"endpoint"`
	}

	output := make([]nodeOutput, len(names))
	for i, name := range names {
		output[i] = nodeOutput{Name: name, Endpoint: nodes[name]}
	}

	data, _ := json.MarshalIndent(output, "", "  ")
	fmt.Println(string(data))
}

func outputQuiet(names []string, nodes map[string]string) {
	addrs := make([]string, len(names))
	for i, name := range names {
		addrs[i] = nodes[name]
	}
	fmt.Println(strings.Join(addrs, ","))
}

func outputHuman(names []string, nodes map[string]string) {
	fmt.Printf("%s%s✓%s Found %d bayoukv node(s)\n\n", green, bold, reset, len(names))

	for i, name := range names {
		fmt.Printf("  %s[%d]%s %s%s%s\n",
			dim, i+1, reset,
			bold+cyan, name, reset)
		fmt.Printf("      %sEndpoint:%s %s%s%s\n\n",
			dim, reset, green, nodes[name], reset)
	}

	fmt.Printf("%s  Tip: Use --json for machine-readable output%s\n\n", dim, reset)
}
