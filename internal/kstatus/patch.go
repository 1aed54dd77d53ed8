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

// Package kstatus provides a patch-if-changed helper for status
// subresources, built around client.MergeFrom so controllers never clobber
// a concurrent spec edit made through the main resource.
package kstatus

import (
	"context"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// Object is the subset of client.Object every status-bearing CRD type in
// this module satisfies.
type Object interface {
	client.Object
}

// Patch sends a status subresource merge patch from original to obj, but
// only if obj differs from original. When it does, Patch stamps LastUpdated
// via setLastUpdated before sending; an unchanged object is not written.
func Patch(ctx context.Context, c client.Client, original, obj client.Object, setLastUpdated func(*metav1.Time)) error {
	patch := client.MergeFrom(original)
	data, err := patch.Data(obj)
	if err != nil {
		return err
	}
	if string(data) == "{}" {
		return nil
	}
	now := metav1.Now()
	setLastUpdated(&now)
	return c.Status().Patch(ctx, obj, patch)
}
