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

// Package controllerutil holds small finalizer helpers shared by all four
// controllers, since each manages its own finalizer string.
package controllerutil

// ContainsFinalizer reports whether value is present in finalizers.
func ContainsFinalizer(finalizers []string, value string) bool {
	for _, f := range finalizers {
		if f == value {
			return true
		}
	}
	return false
}

// RemoveFinalizer returns a copy of finalizers with value removed.
func RemoveFinalizer(finalizers []string, value string) []string {
	result := make([]string, 0, len(finalizers))
	for _, f := range finalizers {
		if f == value {
			continue
		}
		result = append(result, f)
	}
	return result
}

// AddFinalizer returns a copy of finalizers with value appended, unless
// already present.
func AddFinalizer(finalizers []string, value string) []string {
	if ContainsFinalizer(finalizers, value) {
		return finalizers
	}
	return append(finalizers, value)
}

// Finalizer names, one per controller, namespaced under the API group so
// they don't collide with finalizers other operators might set on the same
// objects (MaskReservation is also read by ConsumerCtrl and ProviderCtrl).
const (
	MaskFinalizer            = "vpn.beebs.dev/mask"
	MaskConsumerFinalizer    = "vpn.beebs.dev/consumer"
	MaskProviderFinalizer    = "vpn.beebs.dev/provider"
	MaskReservationFinalizer = "vpn.beebs.dev/reservation"
)
