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

package provider

import (
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	vpnv1 "github.com/thavlik/vpn-operator/api/v1"
	"github.com/thavlik/vpn-operator/internal/podmerge"
)

const (
	sharedVolumeName = "shared"
	sharedMountPath  = "/shared"

	initContainerName  = "init"
	vpnContainerName   = "vpn"
	probeContainerName = "probe"

	// defaultOperatorImage runs this module's own vpn-ip-init and vpn-probe
	// binaries. Overridable per-container via spec.verify.overrides.
	defaultOperatorImage = "ghcr.io/thavlik/vpn-operator:latest"
	// defaultVPNImage is the VPN client container, gluetun per spec.md §4.5.
	defaultVPNImage = "qmcgaw/gluetun:latest"
)

// probePodName is deterministic from the provider's name and generation, so
// a controller restart or re-delivery resolves to the same pod instead of
// leaking one per reconcile (spec.md §6, §9 Open Question ii).
func probePodName(provider *vpnv1.MaskProvider) string {
	return fmt.Sprintf("%s-probe-%d", provider.Name, provider.Generation)
}

// buildProbePod renders the three-container probe pod described in spec.md
// §4.5 step 1, with spec.verify.overrides merged on top via podmerge.
func buildProbePod(provider *vpnv1.MaskProvider) (*corev1.Pod, error) {
	spec := corev1.PodSpec{
		RestartPolicy: corev1.RestartPolicyNever,
		Volumes: []corev1.Volume{
			{
				Name:         sharedVolumeName,
				VolumeSource: corev1.VolumeSource{EmptyDir: &corev1.EmptyDirVolumeSource{}},
			},
		},
		InitContainers: []corev1.Container{defaultInitContainer()},
		Containers: []corev1.Container{
			defaultVPNContainer(provider),
			defaultProbeContainer(),
		},
	}

	var overrides *vpnv1.VerifyOverrides
	if provider.Spec.Verify != nil {
		overrides = provider.Spec.Verify.Overrides
		if provider.Spec.Verify.ImagePolicy != nil {
			spec.ImagePullSecrets = provider.Spec.Verify.ImagePolicy.ImagePullSecrets
		}
	}

	mergedSpec := &spec
	if overrides != nil && overrides.Pod != nil && overrides.Pod.Raw != "" {
		merged, err := podmerge.PodSpec(&spec, overrides.Pod.Raw)
		if err != nil {
			return nil, fmt.Errorf("merge pod override: %w", err)
		}
		mergedSpec = merged
	}

	if overrides != nil && overrides.Containers != nil {
		if err := mergeContainerOverride(mergedSpec.InitContainers, initContainerName, overrides.Containers.Init); err != nil {
			return nil, fmt.Errorf("merge init container override: %w", err)
		}
		if err := mergeContainerOverride(mergedSpec.Containers, vpnContainerName, overrides.Containers.VPN); err != nil {
			return nil, fmt.Errorf("merge vpn container override: %w", err)
		}
		if err := mergeContainerOverride(mergedSpec.Containers, probeContainerName, overrides.Containers.Probe); err != nil {
			return nil, fmt.Errorf("merge probe container override: %w", err)
		}
	}

	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      probePodName(provider),
			Namespace: provider.Namespace,
			Labels: map[string]string{
				"app.kubernetes.io/managed-by": "vpn-operator",
				"vpn.beebs.dev/provider":       provider.Name,
			},
		},
		Spec: *mergedSpec,
	}
	return pod, nil
}

func mergeContainerOverride(containers []corev1.Container, name, patch string) error {
	if patch == "" {
		return nil
	}
	for i := range containers {
		if containers[i].Name != name {
			continue
		}
		merged, err := podmerge.Container(&containers[i], patch)
		if err != nil {
			return err
		}
		containers[i] = *merged
		return nil
	}
	return nil
}

func defaultInitContainer() corev1.Container {
	return corev1.Container{
		Name:    initContainerName,
		Image:   defaultOperatorImage,
		Command: []string{"/vpn-ip-init"},
		Env: []corev1.EnvVar{
			{Name: "IP_FILE", Value: sharedMountPath + "/ip"},
		},
		VolumeMounts: []corev1.VolumeMount{
			{Name: sharedVolumeName, MountPath: sharedMountPath},
		},
	}
}

func defaultVPNContainer(provider *vpnv1.MaskProvider) corev1.Container {
	privileged := true
	return corev1.Container{
		Name:  vpnContainerName,
		Image: defaultVPNImage,
		EnvFrom: []corev1.EnvFromSource{
			{SecretRef: &corev1.SecretEnvSource{LocalObjectReference: provider.Spec.Secret}},
		},
		SecurityContext: &corev1.SecurityContext{
			Privileged:   &privileged,
			Capabilities: &corev1.Capabilities{Add: []corev1.Capability{"NET_ADMIN"}},
		},
		VolumeMounts: []corev1.VolumeMount{
			{Name: sharedVolumeName, MountPath: sharedMountPath},
		},
	}
}

func defaultProbeContainer() corev1.Container {
	return corev1.Container{
		Name:    probeContainerName,
		Image:   defaultOperatorImage,
		Command: []string{"/vpn-probe"},
		Env: []corev1.EnvVar{
			{Name: "IP_FILE", Value: sharedMountPath + "/ip"},
		},
		VolumeMounts: []corev1.VolumeMount{
			{Name: sharedVolumeName, MountPath: sharedMountPath},
		},
	}
}

// probeOutcome summarizes whether a probe pod has finished and how.
type probeOutcome struct {
	done    bool
	success bool
	message string
}

// evaluateProbePod implements spec.md §4.5 step 2: success is the probe
// container exiting 0 within timeout; failure is timeout elapsing or any
// container exiting non-zero.
func evaluateProbePod(pod *corev1.Pod, timeout time.Duration) probeOutcome {
	for _, cs := range pod.Status.InitContainerStatuses {
		if cs.State.Terminated != nil && cs.State.Terminated.ExitCode != 0 {
			return probeOutcome{done: true, success: false, message: fmt.Sprintf("init container %q exited %d: %s", cs.Name, cs.State.Terminated.ExitCode, cs.State.Terminated.Reason)}
		}
	}
	for _, cs := range pod.Status.ContainerStatuses {
		if cs.State.Terminated == nil {
			continue
		}
		if cs.Name == probeContainerName && cs.State.Terminated.ExitCode == 0 {
			return probeOutcome{done: true, success: true}
		}
		if cs.State.Terminated.ExitCode != 0 {
			return probeOutcome{done: true, success: false, message: fmt.Sprintf("container %q exited %d: %s", cs.Name, cs.State.Terminated.ExitCode, cs.State.Terminated.Reason)}
		}
	}

	if !pod.CreationTimestamp.IsZero() && time.Since(pod.CreationTimestamp.Time) > timeout {
		return probeOutcome{done: true, success: false, message: fmt.Sprintf("verification timed out after %s", timeout)}
	}
	return probeOutcome{done: false}
}
