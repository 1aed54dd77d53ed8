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
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// MaskSpec describes a workload's wish to be assigned a VPN provider slot.
type MaskSpec struct {
	// Providers, when set, restricts matching to MaskProviders carrying at
	// least one of these tags. Absent means any provider matches.
	// +optional
	Providers []string `json:"providers,omitempty"`
}

// MaskStatus is the observed state of a Mask, mirrored up from its child
// MaskConsumer (spec.md §4.2).
type MaskStatus struct {
	// Phase is the coarse lifecycle state.
	// +optional
	Phase Phase `json:"phase,omitempty"`
	// Message is a human-readable explanation, always populated alongside an
	// Err* phase.
	// +optional
	Message string `json:"message,omitempty"`
	// LastUpdated is the time this status was last written.
	// +optional
	LastUpdated *metav1.Time `json:"lastUpdated,omitempty"`
	// Conditions record the detailed observation history behind Phase.
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope=Namespaced,shortName=mask
// +kubebuilder:printcolumn:name="Phase",type="string",JSONPath=".status.phase"
// +kubebuilder:printcolumn:name="Last Updated",type="date",JSONPath=".status.lastUpdated"

// Mask is the user-facing request for a VPN provider slot.
type Mask struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   MaskSpec   `json:"spec,omitempty"`
	Status MaskStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// MaskList contains a list of Mask.
type MaskList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []Mask `json:"items"`
}

func init() {
	SchemeBuilder.Register(&Mask{}, &MaskList{})
}
