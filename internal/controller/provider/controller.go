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

// Package provider implements ProviderCtrl: credential verification via an
// ephemeral probe pod, and periodic recounting of a MaskProvider's
// activeSlots from the reservations that actually exist in its namespace.
package provider

import (
	"context"
	"fmt"
	"strconv"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/log"

	vpnv1 "github.com/thavlik/vpn-operator/api/v1"
	"github.com/thavlik/vpn-operator/internal/condition"
	finalizerutil "github.com/thavlik/vpn-operator/internal/controllerutil"
	"github.com/thavlik/vpn-operator/internal/kstatus"
	"github.com/thavlik/vpn-operator/internal/metrics"
	"github.com/thavlik/vpn-operator/internal/operrors"
	"github.com/thavlik/vpn-operator/internal/security"
)

// defaultVerifyTimeout is the chosen default for spec.verify.timeout when
// unset, per spec.md §9 Open Question (i).
const defaultVerifyTimeout = 5 * time.Minute

// recountRequeueInterval bounds how long a settled provider waits before
// its activeSlots counter is recomputed even without a watch event.
const recountRequeueInterval = 30 * time.Second

// Reconciler reconciles a MaskProvider object.
type Reconciler struct {
	client.Client
	Scheme *runtime.Scheme

	// ImageVerifier optionally enforces spec.verify.imagePolicy against the
	// vpn container's image before a probe pod is created. Nil disables
	// image-signature verification entirely.
	ImageVerifier *security.ImageVerifier
}

func (r *Reconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	rm := metrics.NewReconcileMetrics(metrics.KindProvider, req.Namespace, req.Name)
	outcome := "success"
	defer func() { rm.IncReconcile(outcome) }()

	logger := log.FromContext(ctx).WithValues("maskprovider", req.NamespacedName)

	readStart := time.Now()
	provider := &vpnv1.MaskProvider{}
	err := r.Get(ctx, req.NamespacedName, provider)
	rm.ObserveRead(time.Since(readStart))
	if err != nil {
		if apierrors.IsNotFound(err) {
			return ctrl.Result{}, nil
		}
		outcome = "error"
		return ctrl.Result{}, fmt.Errorf("get provider %s: %w", req.NamespacedName, err)
	}

	pm := metrics.NewProviderMetrics(provider.Namespace, provider.Name)

	if !provider.DeletionTimestamp.IsZero() {
		res, err := r.reconcileDeletion(ctx, rm, pm, provider)
		if err != nil {
			outcome = "error"
		}
		return res, err
	}

	if !finalizerutil.ContainsFinalizer(provider.Finalizers, finalizerutil.MaskProviderFinalizer) {
		provider.Finalizers = finalizerutil.AddFinalizer(provider.Finalizers, finalizerutil.MaskProviderFinalizer)
		writeStart := time.Now()
		err := r.Update(ctx, provider)
		rm.ObserveWrite(time.Since(writeStart))
		if err != nil {
			outcome = "error"
			return ctrl.Result{}, fmt.Errorf("add finalizer to provider %s: %w", req.NamespacedName, err)
		}
		rm.IncAction("add-finalizer")
		return ctrl.Result{}, nil
	}

	activeSlots, err := r.recountActiveSlots(ctx, rm, provider)
	if err != nil {
		outcome = "error"
		return ctrl.Result{}, err
	}
	pm.SetSlots(activeSlots, provider.Spec.MaxSlots)
	if activeSlots != provider.Status.ActiveSlots {
		original := provider.DeepCopy()
		provider.Status.ActiveSlots = activeSlots
		if err := r.patchStatus(ctx, rm, original, provider); err != nil {
			outcome = "error"
			return ctrl.Result{}, fmt.Errorf("patch activeSlots for provider %s: %w", req.NamespacedName, err)
		}
		rm.IncAction("recount-active-slots")
	}

	res, err := r.reconcileVerification(ctx, logger, rm, pm, provider)
	if err != nil {
		outcome = "error"
	}
	return res, err
}

// reconcileVerification drives the phase machine in spec.md §4.5.
func (r *Reconciler) reconcileVerification(ctx context.Context, logger interface {
	Info(msg string, keysAndValues ...any)
}, rm *metrics.ReconcileMetrics, pm *metrics.ProviderMetrics, provider *vpnv1.MaskProvider) (ctrl.Result, error) {
	skip := provider.Spec.Verify != nil && provider.Spec.Verify.Skip

	switch provider.Status.Phase {
	case "", vpnv1.ProviderPhasePending:
		if skip {
			return r.promote(ctx, rm, provider, vpnv1.ProviderPhaseVerified, "VerificationSkipped", "verification skipped by spec.verify.skip", true)
		}

		secret := &corev1.Secret{}
		readStart := time.Now()
		err := r.Get(ctx, client.ObjectKey{Namespace: provider.Namespace, Name: provider.Spec.Secret.Name}, secret)
		rm.ObserveRead(time.Since(readStart))
		if apierrors.IsNotFound(err) {
			return r.promote(ctx, rm, provider, vpnv1.ProviderPhaseErrSecretNotFound, "SecretNotFound", fmt.Sprintf("secret %q not found in namespace %q", provider.Spec.Secret.Name, provider.Namespace), false)
		}
		if err != nil {
			if requeue, delay := operrors.ShouldRequeue(err); requeue && operrors.IsTransientAPIServer(err) {
				logger.Info("transient error reading provider secret; requeueing", "error", err, "after", delay)
				return ctrl.Result{RequeueAfter: delay}, nil
			}
			return ctrl.Result{}, fmt.Errorf("get secret %s/%s: %w", provider.Namespace, provider.Spec.Secret.Name, err)
		}

		if err := r.createProbePod(ctx, rm, provider); err != nil {
			return ctrl.Result{}, err
		}
		return r.promote(ctx, rm, provider, vpnv1.ProviderPhaseVerifying, "ProbePodCreated", "probe pod created to verify credentials", false)

	case vpnv1.ProviderPhaseErrSecretNotFound:
		secret := &corev1.Secret{}
		readStart := time.Now()
		err := r.Get(ctx, client.ObjectKey{Namespace: provider.Namespace, Name: provider.Spec.Secret.Name}, secret)
		rm.ObserveRead(time.Since(readStart))
		if apierrors.IsNotFound(err) {
			return ctrl.Result{RequeueAfter: recountRequeueInterval}, nil
		}
		if err != nil {
			return ctrl.Result{}, fmt.Errorf("get secret %s/%s: %w", provider.Namespace, provider.Spec.Secret.Name, err)
		}
		return r.promote(ctx, rm, provider, vpnv1.ProviderPhasePending, "SecretFound", "secret now present; retrying verification", false)

	case vpnv1.ProviderPhaseVerifying:
		return r.reconcileProbePod(ctx, logger, rm, pm, provider)

	case vpnv1.ProviderPhaseErrVerifyFailed:
		interval := verifyInterval(provider)
		if interval <= 0 {
			return ctrl.Result{}, nil
		}
		if provider.Status.LastUpdated != nil && time.Since(provider.Status.LastUpdated.Time) < interval {
			return ctrl.Result{RequeueAfter: interval - time.Since(provider.Status.LastUpdated.Time)}, nil
		}
		return r.promote(ctx, rm, provider, vpnv1.ProviderPhasePending, "RetryingVerification", "retrying verification after the configured interval", false)

	case vpnv1.ProviderPhaseVerified, vpnv1.ProviderPhaseReady, vpnv1.ProviderPhaseActive:
		return r.reconcileSteadyState(ctx, rm, provider)

	default:
		return ctrl.Result{}, nil
	}
}

// reconcileSteadyState keeps Ready/Active in sync with activeSlots and
// schedules re-verification when spec.verify.interval has elapsed.
func (r *Reconciler) reconcileSteadyState(ctx context.Context, rm *metrics.ReconcileMetrics, provider *vpnv1.MaskProvider) (ctrl.Result, error) {
	interval := verifyInterval(provider)
	if interval > 0 && provider.Status.LastVerified != nil && time.Since(provider.Status.LastVerified.Time) >= interval {
		return r.promote(ctx, rm, provider, vpnv1.ProviderPhasePending, "ReverificationDue", "re-verification interval elapsed", false)
	}

	desired := vpnv1.ProviderPhaseReady
	if provider.Status.ActiveSlots > 0 {
		desired = vpnv1.ProviderPhaseActive
	}
	if provider.Status.Phase != desired {
		reason := "HasCapacity"
		msg := "provider is ready to accept new slot assignments"
		if desired == vpnv1.ProviderPhaseActive {
			reason = "SlotsClaimed"
			msg = "provider has at least one active slot claimed"
		}
		if _, err := r.promote(ctx, rm, provider, desired, reason, msg, false); err != nil {
			return ctrl.Result{}, err
		}
	}

	if interval > 0 && provider.Status.LastVerified != nil {
		wait := interval - time.Since(provider.Status.LastVerified.Time)
		if wait < 0 {
			wait = 0
		}
		return ctrl.Result{RequeueAfter: wait}, nil
	}
	return ctrl.Result{RequeueAfter: recountRequeueInterval}, nil
}

// reconcileProbePod implements spec.md §4.5 step 2: watch the probe pod to
// completion or timeout, then act on the outcome.
func (r *Reconciler) reconcileProbePod(ctx context.Context, logger interface {
	Info(msg string, keysAndValues ...any)
}, rm *metrics.ReconcileMetrics, pm *metrics.ProviderMetrics, provider *vpnv1.MaskProvider) (ctrl.Result, error) {
	pod := &corev1.Pod{}
	readStart := time.Now()
	err := r.Get(ctx, client.ObjectKey{Namespace: provider.Namespace, Name: probePodName(provider)}, pod)
	rm.ObserveRead(time.Since(readStart))
	if apierrors.IsNotFound(err) {
		logger.Info("probe pod missing during verification; recreating")
		if err := r.createProbePod(ctx, rm, provider); err != nil {
			return ctrl.Result{}, err
		}
		return ctrl.Result{RequeueAfter: 5 * time.Second}, nil
	}
	if err != nil {
		return ctrl.Result{}, fmt.Errorf("get probe pod for provider %s/%s: %w", provider.Namespace, provider.Name, err)
	}

	timeout := defaultVerifyTimeout
	if provider.Spec.Verify != nil && provider.Spec.Verify.Timeout != nil {
		timeout = provider.Spec.Verify.Timeout.Duration
	}

	outcome := evaluateProbePod(pod, timeout)
	if !outcome.done {
		return ctrl.Result{RequeueAfter: 5 * time.Second}, nil
	}

	pm.ObserveVerificationDuration(time.Since(pod.CreationTimestamp.Time))

	writeStart := time.Now()
	delErr := r.Delete(ctx, pod)
	rm.ObserveWrite(time.Since(writeStart))
	if delErr != nil && !apierrors.IsNotFound(delErr) {
		return ctrl.Result{}, fmt.Errorf("delete probe pod for provider %s/%s: %w", provider.Namespace, provider.Name, delErr)
	}
	rm.IncAction("delete-probe-pod")

	if outcome.success {
		original := provider.DeepCopy()
		now := metav1.Now()
		provider.Status.Phase = vpnv1.ProviderPhaseVerified
		provider.Status.LastVerified = &now
		provider.Status.Message = "credentials verified: public IP changed while tunnel was active"
		condition.True(&provider.Status.Conditions, provider.Generation, condition.TypeVerified, "ProbeSucceeded", provider.Status.Message)
		if err := r.patchStatus(ctx, rm, original, provider); err != nil {
			return ctrl.Result{}, fmt.Errorf("patch provider %s/%s to Verified: %w", provider.Namespace, provider.Name, err)
		}
		rm.IncAction("verification-succeeded")
		return ctrl.Result{}, nil
	}

	return r.promote(ctx, rm, provider, vpnv1.ProviderPhaseErrVerifyFailed, "ProbeFailed", outcome.message, false)
}

// createProbePod builds, optionally image-verifies, and creates the probe
// pod, owned by provider so it is garbage-collected alongside it.
func (r *Reconciler) createProbePod(ctx context.Context, rm *metrics.ReconcileMetrics, provider *vpnv1.MaskProvider) error {
	pod, err := buildProbePod(provider)
	if err != nil {
		return fmt.Errorf("build probe pod for provider %s/%s: %w", provider.Namespace, provider.Name, err)
	}

	if r.ImageVerifier != nil && provider.Spec.Verify != nil && provider.Spec.Verify.ImagePolicy != nil {
		policy := provider.Spec.Verify.ImagePolicy
		for i := range pod.Spec.Containers {
			if pod.Spec.Containers[i].Name != vpnContainerName {
				continue
			}
			digestRef, err := r.ImageVerifier.Verify(ctx, pod.Spec.Containers[i].Image, security.VerifyConfig{
				PublicKey:        policy.PublicKey,
				IgnoreTlog:       policy.IgnoreTlog,
				Namespace:        provider.Namespace,
				ImagePullSecrets: policy.ImagePullSecrets,
			})
			if err != nil {
				return fmt.Errorf("verify vpn container image signature: %w", err)
			}
			pod.Spec.Containers[i].Image = digestRef
		}
	}

	if err := controllerutil.SetControllerReference(provider, pod, r.Scheme); err != nil {
		return fmt.Errorf("set controller reference on probe pod: %w", err)
	}

	writeStart := time.Now()
	err = r.Create(ctx, pod)
	rm.ObserveWrite(time.Since(writeStart))
	if err != nil && !apierrors.IsAlreadyExists(err) {
		return fmt.Errorf("create probe pod for provider %s/%s: %w", provider.Namespace, provider.Name, err)
	}
	rm.IncAction("create-probe-pod")
	return nil
}

// recountActiveSlots implements the capacity accounting described in
// spec.md §4.5: count MaskReservations actually present in the provider's
// namespace. Reservations remain authoritative (§9 Open Question iii).
func (r *Reconciler) recountActiveSlots(ctx context.Context, rm *metrics.ReconcileMetrics, provider *vpnv1.MaskProvider) (uint, error) {
	reservations := &vpnv1.MaskReservationList{}
	readStart := time.Now()
	err := r.List(ctx, reservations, client.InNamespace(provider.Namespace))
	rm.ObserveRead(time.Since(readStart))
	if err != nil {
		return 0, fmt.Errorf("list reservations in %s: %w", provider.Namespace, err)
	}

	var count uint
	for i := range reservations.Items {
		if _, err := strconv.ParseUint(reservations.Items[i].Name, 10, 64); err == nil {
			count++
		}
	}
	return count, nil
}

// promote patches provider to phase, updating message and the Verified
// condition, and returns an empty result unless requeue is requested.
func (r *Reconciler) promote(ctx context.Context, rm *metrics.ReconcileMetrics, provider *vpnv1.MaskProvider, phase vpnv1.ProviderPhase, reason, message string, verified bool) (ctrl.Result, error) {
	original := provider.DeepCopy()
	provider.Status.Phase = phase
	provider.Status.Message = message
	if verified {
		now := metav1.Now()
		provider.Status.LastVerified = &now
		condition.True(&provider.Status.Conditions, provider.Generation, condition.TypeVerified, reason, message)
	} else if phase == vpnv1.ProviderPhaseErrSecretNotFound || phase == vpnv1.ProviderPhaseErrVerifyFailed {
		condition.False(&provider.Status.Conditions, provider.Generation, condition.TypeVerified, reason, message)
	} else if phase == vpnv1.ProviderPhaseVerifying {
		// The probe pod is running but hasn't reported a result yet: Verified
		// is neither true nor false until reconcileProbePod observes it.
		condition.Unknown(&provider.Status.Conditions, provider.Generation, condition.TypeVerified, reason, message)
	}
	if phase == vpnv1.ProviderPhaseReady || phase == vpnv1.ProviderPhaseActive {
		condition.True(&provider.Status.Conditions, provider.Generation, condition.TypeCapacity, reason, message)
	}
	if err := r.patchStatus(ctx, rm, original, provider); err != nil {
		return ctrl.Result{}, fmt.Errorf("patch provider %s/%s to %s: %w", provider.Namespace, provider.Name, phase, err)
	}
	rm.IncAction("transition-" + string(phase))
	return ctrl.Result{}, nil
}

func (r *Reconciler) patchStatus(ctx context.Context, rm *metrics.ReconcileMetrics, original, provider *vpnv1.MaskProvider) error {
	writeStart := time.Now()
	err := kstatus.Patch(ctx, r.Client, original, provider, func(t *metav1.Time) { provider.Status.LastUpdated = t })
	rm.ObserveWrite(time.Since(writeStart))
	return err
}

func verifyInterval(provider *vpnv1.MaskProvider) time.Duration {
	if provider.Spec.Verify == nil || provider.Spec.Verify.Interval == nil {
		return 0
	}
	return provider.Spec.Verify.Interval.Duration
}

// reconcileDeletion implements the Terminating path: delete any live probe
// pod, clear this provider's metric series, then remove the finalizer.
// Orphaned MaskReservations are cleaned up independently by ReservationCtrl
// once it observes their subject consumers vanish; a provider's deletion
// does not by itself delete reservations, since those encode consumer
// claims that may still be valid against a freshly recreated provider with
// a different UID (I5 invalidates the old assignment on the consumer side).
func (r *Reconciler) reconcileDeletion(ctx context.Context, rm *metrics.ReconcileMetrics, pm *metrics.ProviderMetrics, provider *vpnv1.MaskProvider) (ctrl.Result, error) {
	if !finalizerutil.ContainsFinalizer(provider.Finalizers, finalizerutil.MaskProviderFinalizer) {
		return ctrl.Result{}, nil
	}

	pod := &corev1.Pod{}
	readStart := time.Now()
	err := r.Get(ctx, client.ObjectKey{Namespace: provider.Namespace, Name: probePodName(provider)}, pod)
	rm.ObserveRead(time.Since(readStart))
	if err == nil && pod.DeletionTimestamp.IsZero() {
		writeStart := time.Now()
		delErr := r.Delete(ctx, pod)
		rm.ObserveWrite(time.Since(writeStart))
		if delErr != nil && !apierrors.IsNotFound(delErr) {
			return ctrl.Result{}, fmt.Errorf("delete probe pod for provider %s/%s: %w", provider.Namespace, provider.Name, delErr)
		}
		rm.IncAction("delete-probe-pod")
	} else if err != nil && !apierrors.IsNotFound(err) {
		return ctrl.Result{}, fmt.Errorf("get probe pod for provider %s/%s: %w", provider.Namespace, provider.Name, err)
	}

	pm.Clear()

	provider.Finalizers = finalizerutil.RemoveFinalizer(provider.Finalizers, finalizerutil.MaskProviderFinalizer)
	writeStart := time.Now()
	err = r.Update(ctx, provider)
	rm.ObserveWrite(time.Since(writeStart))
	if err != nil {
		return ctrl.Result{}, fmt.Errorf("remove finalizer from provider %s/%s: %w", provider.Namespace, provider.Name, err)
	}
	rm.IncAction("remove-finalizer")
	return ctrl.Result{}, nil
}

// SetupWithManager registers the controller with mgr.
func (r *Reconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&vpnv1.MaskProvider{}).
		Owns(&corev1.Pod{}).
		WithOptions(controller.Options{
			MaxConcurrentReconciles: 5,
			RateLimiter:             finalizerutil.NewRateLimiter(),
		}).
		Named("maskprovider").
		Complete(r)
}
