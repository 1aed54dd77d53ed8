/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// vpn-probe is the probe pod's third container: it polls the public IP
// until it differs from the baseline vpn-ip-init recorded, proving the vpn
// container's tunnel is actually routing traffic, then exits 0.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/thavlik/vpn-operator/internal/probe"
)

func main() {
	ipFile := os.Getenv("IP_FILE")
	if ipFile == "" {
		ipFile = "/shared/ip"
	}

	pollInterval := 5 * time.Second
	if v := os.Getenv("POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			pollInterval = d
		}
	}

	ipEchoURL := os.Getenv("IP_ECHO_URL")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	baseline, err := waitForBaseline(ctx, ipFile)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to read baseline ip: %v\n", err)
		os.Exit(1)
	}

	for {
		select {
		case <-ctx.Done():
			os.Exit(1)
		default:
		}

		current, err := probe.FetchPublicIP(ctx, nil, ipEchoURL)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "fetch public ip: %v\n", err)
			time.Sleep(pollInterval)
			continue
		}

		if current != baseline {
			fmt.Printf("public ip changed from %s to %s: tunnel is active\n", baseline, current)
			os.Exit(0)
		}

		time.Sleep(pollInterval)
	}
}

func waitForBaseline(ctx context.Context, ipFile string) (string, error) {
	for {
		data, err := os.ReadFile(ipFile)
		if err == nil {
			return strings.TrimSpace(string(data)), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}
