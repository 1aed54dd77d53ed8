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

package v1

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// MaskProviderSpec describes a third-party VPN account with a bounded number
// of concurrent connection slots.
type MaskProviderSpec struct {
	// MaxSlots bounds the number of concurrent MaskReservations this provider
	// will accept (I2).
	// +kubebuilder:validation:Minimum=1
	MaxSlots uint `json:"maxSlots"`
	// Secret references the Secret (in this provider's namespace) carrying
	// the VPN client credentials to mirror into consumer namespaces.
	Secret corev1.LocalObjectReference `json:"secret"`
	// Tags, when a consumer's spec.providers is set, must intersect it for
	// the provider to be a candidate.
	// +optional
	Tags []string `json:"tags,omitempty"`
	// Namespaces, when set, restricts which consumer namespaces may be
	// assigned a slot on this provider.
	// +optional
	Namespaces []string `json:"namespaces,omitempty"`
	// Verify configures credential verification via an ephemeral probe pod.
	// +optional
	Verify *VerifySpec `json:"verify,omitempty"`
}

// MaskProviderStatus is the observed state of a MaskProvider.
type MaskProviderStatus struct {
	// +optional
	Phase ProviderPhase `json:"phase,omitempty"`
	// ActiveSlots is the advisory count of this provider's MaskReservations,
	// recounted periodically by ProviderCtrl. MaskReservations remain the
	// authoritative source of truth (spec.md §9 Open Question iii).
	// +optional
	ActiveSlots uint `json:"activeSlots,omitempty"`
	// +optional
	LastVerified *metav1.Time `json:"lastVerified,omitempty"`
	// +optional
	LastUpdated *metav1.Time `json:"lastUpdated,omitempty"`
	// +optional
	Message string `json:"message,omitempty"`
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope=Namespaced,shortName=maskprovider
// +kubebuilder:printcolumn:name="Phase",type="string",JSONPath=".status.phase"
// +kubebuilder:printcolumn:name="Slots",type="string",JSONPath=".status.activeSlots"
// +kubebuilder:printcolumn:name="Max Slots",type="integer",JSONPath=".spec.maxSlots"
// +kubebuilder:printcolumn:name="Last Updated",type="date",JSONPath=".status.lastUpdated"

// MaskProvider represents a third-party VPN account offered to the cluster.
type MaskProvider struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   MaskProviderSpec   `json:"spec,omitempty"`
	Status MaskProviderStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// MaskProviderList contains a list of MaskProvider.
type MaskProviderList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []MaskProvider `json:"items"`
}

func init() {
	SchemeBuilder.Register(&MaskProvider{}, &MaskProviderList{})
}
