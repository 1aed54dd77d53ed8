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

// MaskReservationSpec identifies the MaskConsumer claiming a slot. The
// MaskReservation's own name (in its provider's namespace) encodes the slot
// index as a decimal string — the API server's per-namespace name
// uniqueness is the allocation mutex (spec.md §9).
type MaskReservationSpec struct {
	Subject ReservationSubject `json:"subject"`
}

// MaskReservationStatus is the observed state of a MaskReservation.
type MaskReservationStatus struct {
	// +optional
	Phase ReservationPhase `json:"phase,omitempty"`
	// +optional
	LastUpdated *metav1.Time `json:"lastUpdated,omitempty"`
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope=Namespaced,shortName=maskreservation
// +kubebuilder:printcolumn:name="Phase",type="string",JSONPath=".status.phase"
// +kubebuilder:printcolumn:name="Subject",type="string",JSONPath=".spec.subject.name"
// +kubebuilder:printcolumn:name="Last Updated",type="date",JSONPath=".status.lastUpdated"

// MaskReservation lives in a MaskProvider's namespace. Its name equals the
// integer slot index as a string; its existence is the authoritative claim
// on that slot (I1). It is the reverse-owner anchor that makes
// cross-namespace garbage collection possible (spec.md §9).
type MaskReservation struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   MaskReservationSpec   `json:"spec,omitempty"`
	Status MaskReservationStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// MaskReservationList contains a list of MaskReservation.
type MaskReservationList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []MaskReservation `json:"items"`
}

func init() {
	SchemeBuilder.Register(&MaskReservation{}, &MaskReservationList{})
}
