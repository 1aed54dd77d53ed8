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

// Package cmdutil holds the small pieces of process bootstrap shared by all
// four manage-* sub-commands, kept out of controller-runtime's own managed
// metrics server so that an unset METRICS_PORT really means "no metrics",
// per the external process contract.
package cmdutil

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/go-logr/logr"

	"github.com/thavlik/vpn-operator/internal/metrics"
)

// ServeMetrics starts an HTTP server exposing /metrics when METRICS_PORT is
// set in the environment, otherwise it is a no-op. The returned func shuts
// the server down; it is safe to call even if no server was started.
func ServeMetrics(logger logr.Logger) func() {
	port := os.Getenv("METRICS_PORT")
	if port == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: ":" + port, Handler: mux}

	go func() {
		logger.Info("starting metrics server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(err, "metrics server failed")
		}
	}()

	return func() {
		_ = srv.Shutdown(context.Background())
	}
}
