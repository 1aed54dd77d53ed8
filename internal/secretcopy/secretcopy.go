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

// Package secretcopy mirrors a MaskProvider's VPN credentials Secret into a
// consumer's namespace so the consumer's workload never needs RBAC on the
// provider's namespace. The mirror is owned by the MaskConsumer so it is
// garbage-collected with it.
package secretcopy

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
)

// MirrorName returns the deterministic name of the Secret mirrored into a
// consumer's namespace for consumerName.
func MirrorName(consumerName string) string {
	return consumerName + "-vpn-credentials"
}

// Sync creates or updates the mirrored Secret named MirrorName(owner.Name)
// in owner's namespace, copying source's Data and setting owner as the
// controller reference so it is deleted alongside the MaskConsumer.
func Sync(ctx context.Context, c client.Client, scheme *runtime.Scheme, owner client.Object, source *corev1.Secret) error {
	name := types.NamespacedName{Namespace: owner.GetNamespace(), Name: MirrorName(owner.GetName())}

	mirror := &corev1.Secret{}
	err := c.Get(ctx, name, mirror)
	switch {
	case err == nil:
		mirror.Data = source.Data
		mirror.Type = source.Type
		if err := controllerutil.SetControllerReference(owner, mirror, scheme); err != nil {
			return fmt.Errorf("set controller reference on mirrored secret: %w", err)
		}
		if err := c.Update(ctx, mirror); err != nil {
			return fmt.Errorf("update mirrored secret %s/%s: %w", name.Namespace, name.Name, err)
		}
		return nil
	case apierrors.IsNotFound(err):
		mirror = &corev1.Secret{
			ObjectMeta: metav1.ObjectMeta{Namespace: name.Namespace, Name: name.Name},
			Type:       source.Type,
			Data:       source.Data,
		}
		if err := controllerutil.SetControllerReference(owner, mirror, scheme); err != nil {
			return fmt.Errorf("set controller reference on mirrored secret: %w", err)
		}
		if err := c.Create(ctx, mirror); err != nil {
			return fmt.Errorf("create mirrored secret %s/%s: %w", name.Namespace, name.Name, err)
		}
		return nil
	default:
		return fmt.Errorf("get mirrored secret %s/%s: %w", name.Namespace, name.Name, err)
	}
}

// Delete removes the mirrored Secret for consumerName in namespace, if
// present. Normally the owner reference's garbage collection handles this,
// but ConsumerCtrl calls it explicitly during finalization to avoid waiting
// on GC before releasing the reservation.
func Delete(ctx context.Context, c client.Client, namespace, consumerName string) error {
	mirror := &corev1.Secret{ObjectMeta: metav1.ObjectMeta{Namespace: namespace, Name: MirrorName(consumerName)}}
	if err := c.Delete(ctx, mirror); err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("delete mirrored secret %s/%s: %w", namespace, mirror.Name, err)
	}
	return nil
}
