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
	"k8s.io/apimachinery/pkg/types"
)

// Phase is the coarse lifecycle state shared by Mask and MaskConsumer.
type Phase string

const (
	PhasePending        Phase = "Pending"
	PhaseWaiting        Phase = "Waiting"
	PhaseActive         Phase = "Active"
	PhaseTerminating    Phase = "Terminating"
	PhaseErrNoProviders Phase = "ErrNoProviders"
)

// ProviderPhase is the lifecycle state of a MaskProvider.
type ProviderPhase string

const (
	ProviderPhasePending           ProviderPhase = "Pending"
	ProviderPhaseVerifying         ProviderPhase = "Verifying"
	ProviderPhaseVerified          ProviderPhase = "Verified"
	ProviderPhaseReady             ProviderPhase = "Ready"
	ProviderPhaseActive            ProviderPhase = "Active"
	ProviderPhaseTerminating       ProviderPhase = "Terminating"
	ProviderPhaseErrSecretNotFound ProviderPhase = "ErrSecretNotFound"
	ProviderPhaseErrVerifyFailed   ProviderPhase = "ErrVerifyFailed"
)

// ReservationPhase is the lifecycle state of a MaskReservation.
type ReservationPhase string

const (
	ReservationPhasePending     ReservationPhase = "Pending"
	ReservationPhaseActive      ReservationPhase = "Active"
	ReservationPhaseTerminating ReservationPhase = "Terminating"
)

// ConsumerProviderRef is the published assignment of a MaskConsumer to a
// MaskProvider slot. Its presence on MaskConsumerStatus is the single
// externally-visible moment an assignment becomes real (spec.md §4.3 Step E).
type ConsumerProviderRef struct {
	// Name is the MaskProvider's name.
	Name string `json:"name"`
	// Namespace is the MaskProvider's namespace.
	Namespace string `json:"namespace"`
	// UID is the MaskProvider's UID at the moment of assignment. A changed UID
	// (delete/recreate) invalidates the assignment; see I5.
	UID types.UID `json:"uid"`
	// Slot is the integer slot index reserved for this consumer.
	Slot uint `json:"slot"`
	// Secret is the name of the mirrored Secret in the consumer's namespace.
	Secret string `json:"secret"`
	// Reservation is the UID of the MaskReservation claiming Slot.
	Reservation types.UID `json:"reservation"`
}

// ReservationSubject identifies the MaskConsumer a MaskReservation claims a
// slot on behalf of. It doubles as the cross-namespace reverse-owner link
// described in spec.md §4.4 and §9.
type ReservationSubject struct {
	// Name is the MaskConsumer's name.
	Name string `json:"name"`
	// Namespace is the MaskConsumer's namespace.
	Namespace string `json:"namespace"`
	// UID is the MaskConsumer's UID. A MaskReservation is alive iff the
	// MaskConsumer identified by this exact UID still exists (I4).
	UID types.UID `json:"uid"`
}

// VerifySpec configures MaskProvider credential verification.
type VerifySpec struct {
	// Skip, when true, bypasses probe-pod verification entirely and promotes
	// the provider straight to Verified.
	// +optional
	Skip bool `json:"skip,omitempty"`
	// Timeout bounds how long the probe pod is given to prove the VPN tunnel
	// changes the pod's public IP. Defaults to 5 minutes when unset.
	// +optional
	Timeout *metav1.Duration `json:"timeout,omitempty"`
	// Interval schedules re-verification at lastVerified+Interval. A zero or
	// unset Interval disables re-verification.
	// +optional
	Interval *metav1.Duration `json:"interval,omitempty"`
	// Overrides are strategic-merge patches applied to the default probe pod
	// template, user-provided fields winning and named-array elements
	// replacing by name (spec.md §4.5 step 3).
	// +optional
	Overrides *VerifyOverrides `json:"overrides,omitempty"`
	// ImagePolicy optionally requires the vpn container's image to carry a
	// valid cosign signature before a probe pod is created.
	// +optional
	ImagePolicy *ImagePolicy `json:"imagePolicy,omitempty"`
}

// VerifyOverrides carries the pod- and per-container-level merge patches for
// the probe pod template.
type VerifyOverrides struct {
	// Pod is merged onto the probe PodSpec.
	// +optional
	Pod *PodOverride `json:"pod,omitempty"`
	// Containers is merged per-container by name (init/vpn/probe).
	// +optional
	Containers *ContainerOverrides `json:"containers,omitempty"`
}

// PodOverride is a partial corev1.PodSpec expressed as raw JSON so the CRD
// schema does not need to mirror the entire upstream PodSpec type.
type PodOverride struct {
	// Raw holds the strategic-merge-patch document for the PodSpec.
	// +optional
	Raw string `json:"raw,omitempty"`
}

// ContainerOverrides holds a per-container raw merge patch for each of the
// three probe-pod containers.
type ContainerOverrides struct {
	// +optional
	Init string `json:"init,omitempty"`
	// +optional
	VPN string `json:"vpn,omitempty"`
	// +optional
	Probe string `json:"probe,omitempty"`
}

// ImagePolicy requires cosign-verifiable signatures on the vpn container image.
type ImagePolicy struct {
	// PublicKey is a PEM-encoded ECDSA public key used to verify the vpn
	// container's image signature.
	PublicKey string `json:"publicKey"`
	// IgnoreTlog skips Rekor transparency log verification. Useful for
	// air-gapped clusters or keyless-signing-free pipelines.
	// +optional
	IgnoreTlog bool `json:"ignoreTlog,omitempty"`
	// ImagePullSecrets authenticates both the signature-verification pull
	// (resolving the vpn image's digest and manifest from a private
	// registry) and the probe pod's own image pull for that container.
	// +optional
	ImagePullSecrets []corev1.LocalObjectReference `json:"imagePullSecrets,omitempty"`
}
