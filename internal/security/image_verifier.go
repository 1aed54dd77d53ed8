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

// Package security optionally verifies the probe pod's VPN container image
// against a static Cosign public key before ProviderCtrl ever lets that
// image run. This guards against a compromised registry substituting a VPN
// client image that is not the signed one.
package security

import (
	"context"
	"crypto"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-logr/logr"
	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	ggcrremote "github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/sigstore/cosign/v3/pkg/cosign"
	ociremote "github.com/sigstore/cosign/v3/pkg/oci/remote"
	"github.com/sigstore/cosign/v3/pkg/signature"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// VerifyConfig carries the policy for a single Verify call.
type VerifyConfig struct {
	PublicKey        string
	IgnoreTlog       bool
	ImagePullSecrets []corev1.LocalObjectReference
	Namespace        string
}

// ImageVerifier checks container image signatures with Cosign. Verified
// digest/key pairs are remembered in verified so a steady-state provider
// doesn't pay for a remote signature check on every reconcile of an image
// it has already cleared.
type ImageVerifier struct {
	logger   logr.Logger
	client   client.Client
	verified sync.Map // digest+"@"+shortHash(publicKey) -> struct{}
}

// NewImageVerifier returns an ImageVerifier. c is used to resolve
// ImagePullSecrets for private registries and may be nil if the probe
// images are always public.
func NewImageVerifier(logger logr.Logger, c client.Client) *ImageVerifier {
	return &ImageVerifier{logger: logger, client: c}
}

// Verify resolves imageRef to a digest, confirms cosign.CheckOpts.SigVerifier
// has signed it, and returns the digest reference (e.g.
// "repo/image@sha256:...") the caller should pin the probe pod to, closing
// the time-of-check/time-of-use gap between verification and scheduling.
func (v *ImageVerifier) Verify(ctx context.Context, imageRef string, cfg VerifyConfig) (string, error) {
	if cfg.PublicKey == "" {
		return "", fmt.Errorf("image verification requires a public key")
	}

	ref, err := name.ParseReference(imageRef)
	if err != nil {
		return "", fmt.Errorf("parse image reference %q: %w", imageRef, err)
	}

	remoteOpts, err := v.remoteOptions(ctx, cfg)
	if err != nil {
		return "", fmt.Errorf("image verification failed for %q: %w", imageRef, err)
	}

	digestRef, err := resolveDigest(ref, remoteOpts.ggcr)
	if err != nil {
		return "", fmt.Errorf("resolve digest for %q: %w", imageRef, err)
	}

	cacheKey := digestRef + "@" + shortHash(cfg.PublicKey)
	if _, cached := v.verified.Load(cacheKey); cached {
		v.logger.V(1).Info("image verification cache hit", "digest", digestRef)
		return digestRef, nil
	}

	v.logger.Info("verifying probe image signature", "image", imageRef, "digest", digestRef, "ignoreTlog", cfg.IgnoreTlog)
	if err := v.checkSignature(ctx, ref, cfg, remoteOpts.oci); err != nil {
		return "", fmt.Errorf("image verification failed for %q: %w", imageRef, err)
	}

	v.verified.Store(cacheKey, struct{}{})
	v.logger.Info("image verification succeeded", "image", imageRef, "digest", digestRef)
	return digestRef, nil
}

// checkSignature runs the actual Cosign signature check against ref.
func (v *ImageVerifier) checkSignature(ctx context.Context, ref name.Reference, cfg VerifyConfig, remoteOpts []ociremote.Option) error {
	verifier, err := signature.LoadPublicKeyRaw([]byte(cfg.PublicKey), crypto.SHA256)
	if err != nil {
		return fmt.Errorf("load public key: %w", err)
	}

	sigs, _, err := cosign.VerifyImageSignatures(ctx, ref, &cosign.CheckOpts{
		SigVerifier:        verifier,
		IgnoreTlog:         cfg.IgnoreTlog,
		RegistryClientOpts: remoteOpts,
	})
	if err != nil {
		return fmt.Errorf("verify signatures: %w", err)
	}
	if len(sigs) == 0 {
		return fmt.Errorf("no signatures found")
	}
	return nil
}

// resolveDigest returns ref's canonical "name@sha256:..." string, resolving
// a tag against the registry if ref doesn't already pin a digest.
func resolveDigest(ref name.Reference, ggcrOpts []ggcrremote.Option) (string, error) {
	if digestRef, ok := ref.(name.Digest); ok {
		return digestRef.String(), nil
	}
	desc, err := ggcrremote.Head(ref, ggcrOpts...)
	if err != nil {
		return "", fmt.Errorf("head request: %w", err)
	}
	digestRef, err := name.NewDigest(fmt.Sprintf("%s@%s", ref.Context().Name(), desc.Digest.String()))
	if err != nil {
		return "", fmt.Errorf("build digest reference: %w", err)
	}
	return digestRef.String(), nil
}

// remoteOptionSet bundles the registry auth options both the cosign and
// go-containerregistry clients need, since they don't share an option type.
type remoteOptionSet struct {
	oci  []ociremote.Option
	ggcr []ggcrremote.Option
}

// remoteOptions builds registry auth options from cfg.ImagePullSecrets, or
// returns an empty set for a public image with no secrets to resolve.
func (v *ImageVerifier) remoteOptions(ctx context.Context, cfg VerifyConfig) (remoteOptionSet, error) {
	if len(cfg.ImagePullSecrets) == 0 || v.client == nil {
		return remoteOptionSet{}, nil
	}
	keychain, err := v.pullSecretKeychain(ctx, cfg.ImagePullSecrets, cfg.Namespace)
	if err != nil {
		return remoteOptionSet{}, fmt.Errorf("build keychain: %w", err)
	}
	if keychain == nil {
		return remoteOptionSet{}, nil
	}
	return remoteOptionSet{
		oci:  []ociremote.Option{ociremote.WithRemoteOptions(ggcrremote.WithAuthFromKeychain(keychain))},
		ggcr: []ggcrremote.Option{ggcrremote.WithAuthFromKeychain(keychain)},
	}, nil
}

// pullSecretKeychain loads refs (dockerconfigjson or dockercfg Secrets) from
// namespace and combines them into a single keychain, the way kubelet
// merges multiple ImagePullSecrets entries for the same pod.
func (v *ImageVerifier) pullSecretKeychain(ctx context.Context, refs []corev1.LocalObjectReference, namespace string) (authn.Keychain, error) {
	auths := make(map[string]dockerAuthEntry)
	for _, ref := range refs {
		entries, err := v.loadDockerAuths(ctx, namespace, ref.Name)
		if err != nil {
			return nil, err
		}
		for registry, entry := range entries {
			auths[registry] = entry
		}
	}
	if len(auths) == 0 {
		return nil, nil
	}
	return registryAuthKeychain(auths), nil
}

func (v *ImageVerifier) loadDockerAuths(ctx context.Context, namespace, secretName string) (map[string]dockerAuthEntry, error) {
	secret := &corev1.Secret{}
	if err := v.client.Get(ctx, types.NamespacedName{Namespace: namespace, Name: secretName}, secret); err != nil {
		return nil, fmt.Errorf("get image pull secret %s/%s: %w", namespace, secretName, err)
	}

	var dataKey string
	switch secret.Type {
	case corev1.SecretTypeDockerConfigJson:
		dataKey = corev1.DockerConfigJsonKey
	case corev1.SecretTypeDockercfg:
		dataKey = corev1.DockerConfigKey
	default:
		return nil, fmt.Errorf("image pull secret %s/%s has unsupported type %s", namespace, secretName, secret.Type)
	}

	raw, ok := secret.Data[dataKey]
	if !ok {
		return nil, fmt.Errorf("image pull secret %s/%s missing key %s", namespace, secretName, dataKey)
	}

	var parsed struct {
		Auths map[string]dockerAuthEntry `json:"auths"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse docker config from %s/%s: %w", namespace, secretName, err)
	}
	return parsed.Auths, nil
}

// dockerAuthEntry mirrors a single entry under a docker config JSON's
// "auths" map.
type dockerAuthEntry struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Auth     string `json:"auth,omitempty"`
}

// registryAuthKeychain adapts a docker-config auths map to authn.Keychain.
type registryAuthKeychain map[string]dockerAuthEntry

func (k registryAuthKeychain) Resolve(resource authn.Resource) (authn.Authenticator, error) {
	if auth, ok := k[resource.RegistryStr()]; ok && auth.Username != "" {
		return &authn.Basic{Username: auth.Username, Password: auth.Password}, nil
	}
	return authn.Anonymous, nil
}

// shortHash reduces a public key string to a fixed-width cache-key
// fragment; it only needs to disambiguate keys, not hide them.
func shortHash(publicKey string) string {
	sum := sha256.Sum256([]byte(publicKey))
	return fmt.Sprintf("%x", sum[:8])
}
