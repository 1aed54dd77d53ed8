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

// MaskConsumerSpec mirrors the providers predicate copied from the parent Mask.
type MaskConsumerSpec struct {
	// +optional
	Providers []string `json:"providers,omitempty"`
}

// MaskConsumerStatus is the observed state of a MaskConsumer — the scheduler's
// working state and, once Provider is set, the published assignment.
type MaskConsumerStatus struct {
	// +optional
	Phase Phase `json:"phase,omitempty"`
	// +optional
	Message string `json:"message,omitempty"`
	// +optional
	LastUpdated *metav1.Time `json:"lastUpdated,omitempty"`
	// Provider is the published slot assignment. Its presence is the single
	// externally-visible moment an assignment becomes real.
	// +optional
	Provider *ConsumerProviderRef `json:"provider,omitempty"`
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope=Namespaced,shortName=maskconsumer
// +kubebuilder:printcolumn:name="Phase",type="string",JSONPath=".status.phase"
// +kubebuilder:printcolumn:name="Slot",type="integer",JSONPath=".status.provider.slot"
// +kubebuilder:printcolumn:name="Last Updated",type="date",JSONPath=".status.lastUpdated"

// MaskConsumer is the controller-managed garbage-collection anchor that user
// workloads point at. It is owned by exactly one Mask.
type MaskConsumer struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   MaskConsumerSpec   `json:"spec,omitempty"`
	Status MaskConsumerStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// MaskConsumerList contains a list of MaskConsumer.
type MaskConsumerList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []MaskConsumer `json:"items"`
}

func init() {
	SchemeBuilder.Register(&MaskConsumer{}, &MaskConsumerList{})
}
