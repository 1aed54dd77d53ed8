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

// Package podmerge applies a MaskProvider's verify.overrides onto a
// generated probe pod template. Overrides are strategic-merge JSON
// documents, same shape as a partial PodSpec/Container; dario.cat/mergo
// does the element-wise merge, with []corev1.Container and []corev1.EnvVar
// re-keyed by Name first so merging replaces by name instead of by index.
package podmerge

import (
	"encoding/json"
	"fmt"

	"dario.cat/mergo"
	corev1 "k8s.io/api/core/v1"
)

// PodSpec merges patch (a raw strategic-merge-patch JSON document) onto
// base, returning a new *corev1.PodSpec. base is not mutated.
func PodSpec(base *corev1.PodSpec, patch string) (*corev1.PodSpec, error) {
	if patch == "" {
		return base.DeepCopy(), nil
	}

	var overlay corev1.PodSpec
	if err := json.Unmarshal([]byte(patch), &overlay); err != nil {
		return nil, fmt.Errorf("parse pod override: %w", err)
	}

	result := base.DeepCopy()
	rekeyContainersByName(result, &overlay)

	if err := mergo.Merge(result, overlay, mergo.WithOverride, mergo.WithAppendSlice); err != nil {
		return nil, fmt.Errorf("merge pod override: %w", err)
	}
	return result, nil
}

// Container merges patch onto base, returning a new *corev1.Container.
// base is not mutated.
func Container(base *corev1.Container, patch string) (*corev1.Container, error) {
	if patch == "" {
		return base.DeepCopy(), nil
	}

	var overlay corev1.Container
	if err := json.Unmarshal([]byte(patch), &overlay); err != nil {
		return nil, fmt.Errorf("parse container override: %w", err)
	}

	result := base.DeepCopy()
	rekeyEnvByName(result, &overlay)

	if err := mergo.Merge(result, overlay, mergo.WithOverride, mergo.WithAppendSlice); err != nil {
		return nil, fmt.Errorf("merge container override: %w", err)
	}
	return result, nil
}

// rekeyContainersByName reorders overlay.Containers/InitContainers to match
// base's ordering by Name wherever both sides name the same container, so
// mergo.WithAppendSlice's index-wise merge lands overlay fields on the
// intended container instead of concatenating or overwriting by position.
func rekeyContainersByName(base, overlay *corev1.PodSpec) {
	overlay.Containers = rekeyByName(base.Containers, overlay.Containers, func(c corev1.Container) string { return c.Name })
	overlay.InitContainers = rekeyByName(base.InitContainers, overlay.InitContainers, func(c corev1.Container) string { return c.Name })
}

func rekeyEnvByName(base, overlay *corev1.Container) {
	overlay.Env = rekeyByName(base.Env, overlay.Env, func(e corev1.EnvVar) string { return e.Name })
}

// rekeyByName returns a copy of overlay reordered so that any element whose
// Name matches a base element occupies that base element's index. Overlay
// elements naming a container/env var absent from base are appended at the
// end, which mergo.WithAppendSlice then adds as new entries.
func rekeyByName[T any](base, overlay []T, name func(T) string) []T {
	if len(overlay) == 0 {
		return overlay
	}

	baseIndex := make(map[string]int, len(base))
	for i, b := range base {
		baseIndex[name(b)] = i
	}

	// Zero-valued, not copied from base: mergo.WithOverride only replaces a
	// destination field when the source field is non-empty, so leaving
	// untouched slots zeroed here is what keeps the base entries they align
	// with intact during the element-wise merge.
	result := make([]T, len(base))
	var extra []T

	for _, o := range overlay {
		if i, ok := baseIndex[name(o)]; ok {
			result[i] = o
			continue
		}
		extra = append(extra, o)
	}
	return append(result, extra...)
}
