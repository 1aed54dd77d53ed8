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

// Package operrors classifies reconciliation errors so controllers can
// decide whether to requeue, and how quickly, without every reconciler
// re-deriving that policy from scratch.
package operrors

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// ErrTransientConnection indicates a network-level error (timeout, refused
// connection, DNS failure) that is expected to clear on its own.
var ErrTransientConnection = errors.New("transient connection error")

// ErrTransientAPIServer indicates a temporary Kubernetes API server error
// (rate limiting, 5xx, conflict) that is safe to retry.
var ErrTransientAPIServer = errors.New("transient kubernetes api error")

// ErrNoCapacity indicates every candidate MaskProvider was saturated at the
// moment of allocation. It is transient: capacity frees up as other
// consumers release slots.
var ErrNoCapacity = errors.New("no provider capacity available")

// ErrSlotConflict indicates a MaskReservation create lost a race against
// another consumer for the same slot name. The caller should retry slot
// selection, not the whole reconcile after a backoff.
var ErrSlotConflict = errors.New("slot reservation conflict")

// ErrPermanentConfig indicates a spec value the operator cannot act on
// (missing Secret reference, unparseable override) that requires user
// intervention and should not be retried on a tight loop.
var ErrPermanentConfig = errors.New("permanent configuration error")

// ErrVerificationFailed indicates a MaskProvider's probe pod ran to
// completion but did not observe a changed public IP, or the probe pod
// itself failed or timed out.
var ErrVerificationFailed = errors.New("provider verification failed")

// IsTransientConnection reports whether err looks like a retryable network
// failure, either because it wraps ErrTransientConnection or because its
// text matches a well-known transient pattern.
func IsTransientConnection(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransientConnection) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	patterns := []string{
		"connection refused",
		"connection reset",
		"connection timeout",
		"context deadline exceeded",
		"timeout",
		"i/o timeout",
		"no such host",
		"network is unreachable",
		"dial tcp",
		"broken pipe",
	}
	for _, p := range patterns {
		if strings.Contains(errStr, p) {
			return true
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// IsTransientAPIServer reports whether err matches a transient Kubernetes
// API server failure pattern.
func IsTransientAPIServer(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransientAPIServer) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	patterns := []string{
		"rate limit",
		"too many requests",
		"server error",
		"service unavailable",
		"internal server error",
		"the object has been modified",
		"conflict",
	}
	for _, p := range patterns {
		if strings.Contains(errStr, p) {
			return true
		}
	}
	return false
}

// IsTransient reports whether err is any kind of retryable error recognized
// by this package.
func IsTransient(err error) bool {
	return IsTransientConnection(err) ||
		IsTransientAPIServer(err) ||
		errors.Is(err, ErrNoCapacity) ||
		errors.Is(err, ErrSlotConflict)
}

// IsPermanent reports whether err requires user intervention and should not
// be retried on a tight loop.
func IsPermanent(err error) bool {
	return err != nil && errors.Is(err, ErrPermanentConfig)
}

// WrapTransientConnection wraps err as a transient connection error unless
// it already classifies as one.
func WrapTransientConnection(err error) error {
	if err == nil || IsTransientConnection(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransientConnection, err)
}

// WrapPermanentConfig wraps err as a permanent configuration error.
func WrapPermanentConfig(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPermanentConfig, err)
}

// ShouldRequeue decides whether err should trigger a requeue and after how
// long. Permanent errors do not requeue automatically; transient errors get
// a short fixed delay; everything else defers to controller-runtime's
// workqueue rate limiter by returning a zero delay with requeue=true.
func ShouldRequeue(err error) (bool, time.Duration) {
	if err == nil {
		return false, 0
	}
	if errors.Is(err, ErrNoCapacity) {
		return true, 15 * time.Second
	}
	if errors.Is(err, ErrSlotConflict) {
		return true, 0
	}
	if IsTransient(err) {
		return true, 5 * time.Second
	}
	if IsPermanent(err) {
		return false, 0
	}
	return true, 0
}
