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

// Package consumer implements ConsumerCtrl, the scheduler at the core of
// the reconciliation mesh: it elects a MaskProvider for a MaskConsumer,
// reserves a slot atomically, copies credentials into the consumer's
// namespace and publishes the assignment.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/log"

	vpnv1 "github.com/thavlik/vpn-operator/api/v1"
	"github.com/thavlik/vpn-operator/internal/condition"
	finalizerutil "github.com/thavlik/vpn-operator/internal/controllerutil"
	"github.com/thavlik/vpn-operator/internal/kstatus"
	"github.com/thavlik/vpn-operator/internal/metrics"
	"github.com/thavlik/vpn-operator/internal/operrors"
	"github.com/thavlik/vpn-operator/internal/secretcopy"
)

// waitingRequeueInterval bounds how long a MaskConsumer sits in Waiting
// before ConsumerCtrl re-checks provider capacity. It matches
// operrors.ShouldRequeue's delay for ErrNoCapacity.
const waitingRequeueInterval = 15 * time.Second

// Reconciler reconciles a MaskConsumer object.
type Reconciler struct {
	client.Client
	Scheme *runtime.Scheme
}

// Reconcile drives the MaskConsumer state machine described in spec.md §4.3.
func (r *Reconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	rm := metrics.NewReconcileMetrics(metrics.KindConsumer, req.Namespace, req.Name)
	outcome := "success"
	defer func() { rm.IncReconcile(outcome) }()

	logger := log.FromContext(ctx).WithValues("maskconsumer", req.NamespacedName)

	readStart := time.Now()
	consumer := &vpnv1.MaskConsumer{}
	err := r.Get(ctx, req.NamespacedName, consumer)
	rm.ObserveRead(time.Since(readStart))
	if err != nil {
		if apierrors.IsNotFound(err) {
			return ctrl.Result{}, nil
		}
		if requeue, delay := operrors.ShouldRequeue(err); requeue && operrors.IsTransientAPIServer(err) {
			logger.Info("transient error reading consumer; requeueing", "error", err, "after", delay)
			return ctrl.Result{RequeueAfter: delay}, nil
		}
		outcome = "error"
		return ctrl.Result{}, fmt.Errorf("get consumer %s: %w", req.NamespacedName, err)
	}

	if !consumer.DeletionTimestamp.IsZero() {
		res, err := r.teardown(ctx, rm, consumer, true)
		if err != nil {
			outcome = "error"
		}
		return res, err
	}

	if !finalizerutil.ContainsFinalizer(consumer.Finalizers, finalizerutil.MaskConsumerFinalizer) {
		consumer.Finalizers = finalizerutil.AddFinalizer(consumer.Finalizers, finalizerutil.MaskConsumerFinalizer)
		writeStart := time.Now()
		err := r.Update(ctx, consumer)
		rm.ObserveWrite(time.Since(writeStart))
		if err != nil {
			outcome = "error"
			return ctrl.Result{}, fmt.Errorf("add finalizer to consumer %s: %w", req.NamespacedName, err)
		}
		rm.IncAction("add-finalizer")
		return ctrl.Result{}, nil
	}

	if consumer.Status.Provider != nil {
		ok, err := r.checkAssignmentInvariants(ctx, rm, consumer)
		if err != nil {
			outcome = "error"
			return ctrl.Result{}, err
		}
		if ok {
			return r.markActiveIfNeeded(ctx, rm, consumer)
		}

		logger.Info("assignment invariant broken; tearing down and re-electing", "provider", consumer.Status.Provider.Name)
		if _, err := r.teardown(ctx, rm, consumer, false); err != nil {
			outcome = "error"
			return ctrl.Result{}, err
		}
		// Fall through to re-election below with a cleared assignment.
		readStart = time.Now()
		err = r.Get(ctx, req.NamespacedName, consumer)
		rm.ObserveRead(time.Since(readStart))
		if err != nil {
			if apierrors.IsNotFound(err) {
				return ctrl.Result{}, nil
			}
			outcome = "error"
			return ctrl.Result{}, fmt.Errorf("re-get consumer %s: %w", req.NamespacedName, err)
		}
	}

	return r.schedule(ctx, rm, consumer)
}

// checkAssignmentInvariants verifies I4/I5/I3 for an already-published
// assignment. A false return (with nil error) means the assignment must be
// torn down.
func (r *Reconciler) checkAssignmentInvariants(ctx context.Context, rm *metrics.ReconcileMetrics, consumer *vpnv1.MaskConsumer) (bool, error) {
	ref := consumer.Status.Provider

	provider := &vpnv1.MaskProvider{}
	readStart := time.Now()
	err := r.Get(ctx, types.NamespacedName{Namespace: ref.Namespace, Name: ref.Name}, provider)
	rm.ObserveRead(time.Since(readStart))
	if err != nil {
		if apierrors.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("get provider %s/%s: %w", ref.Namespace, ref.Name, err)
	}
	if provider.UID != ref.UID {
		return false, nil
	}

	reservation := &vpnv1.MaskReservation{}
	readStart = time.Now()
	err = r.Get(ctx, types.NamespacedName{Namespace: ref.Namespace, Name: strconv.FormatUint(uint64(ref.Slot), 10)}, reservation)
	rm.ObserveRead(time.Since(readStart))
	if err != nil {
		if apierrors.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("get reservation %s/%d: %w", ref.Namespace, ref.Slot, err)
	}
	if reservation.Spec.Subject.UID != consumer.UID || reservation.UID != ref.Reservation {
		return false, nil
	}

	mirror := &corev1.Secret{}
	readStart = time.Now()
	err = r.Get(ctx, types.NamespacedName{Namespace: consumer.Namespace, Name: ref.Secret}, mirror)
	rm.ObserveRead(time.Since(readStart))
	if err != nil {
		if apierrors.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("get mirrored secret %s/%s: %w", consumer.Namespace, ref.Secret, err)
	}

	return true, nil
}

func (r *Reconciler) markActiveIfNeeded(ctx context.Context, rm *metrics.ReconcileMetrics, consumer *vpnv1.MaskConsumer) (ctrl.Result, error) {
	if consumer.Status.Phase == vpnv1.PhaseActive {
		return ctrl.Result{}, nil
	}
	original := consumer.DeepCopy()
	consumer.Status.Phase = vpnv1.PhaseActive
	consumer.Status.Message = ""
	condition.True(&consumer.Status.Conditions, consumer.Generation, condition.TypeScheduled, "Assigned", "provider slot is held and credentials are mirrored")
	writeStart := time.Now()
	err := kstatus.Patch(ctx, r.Client, original, consumer, func(t *metav1.Time) { consumer.Status.LastUpdated = t })
	rm.ObserveWrite(time.Since(writeStart))
	if err != nil {
		return ctrl.Result{}, fmt.Errorf("patch consumer status %s/%s: %w", consumer.Namespace, consumer.Name, err)
	}
	rm.IncAction("update-status")
	return ctrl.Result{}, nil
}

// schedule implements Steps A-E of spec.md §4.3 against the candidate
// provider set.
func (r *Reconciler) schedule(ctx context.Context, rm *metrics.ReconcileMetrics, consumer *vpnv1.MaskConsumer) (ctrl.Result, error) {
	providerList := &vpnv1.MaskProviderList{}
	readStart := time.Now()
	if err := r.List(ctx, providerList); err != nil {
		rm.ObserveRead(time.Since(readStart))
		return ctrl.Result{}, fmt.Errorf("list providers: %w", err)
	}
	rm.ObserveRead(time.Since(readStart))

	candidates, anyMatchesFilter := filterCandidates(providerList.Items, consumer)
	sortCandidates(candidates)

	if len(candidates) == 0 {
		if !anyMatchesFilter {
			return r.setPhase(ctx, rm, consumer, vpnv1.PhaseErrNoProviders, "no MaskProvider matches this Mask's provider predicate")
		}
		res, err := r.setPhase(ctx, rm, consumer, vpnv1.PhaseWaiting, "all matching providers are saturated")
		if err != nil {
			return res, err
		}
		_, delay := operrors.ShouldRequeue(operrors.ErrNoCapacity)
		return ctrl.Result{RequeueAfter: delay}, nil
	}

	for i := range candidates {
		provider := &candidates[i]
		slot, reservation, err := r.allocateSlot(ctx, rm, provider, consumer)
		if err != nil {
			return ctrl.Result{}, err
		}
		if reservation == nil {
			// Provider exhausted between listing and allocation attempt; try
			// the next candidate.
			continue
		}

		return r.publish(ctx, rm, consumer, provider, slot, reservation)
	}

	res, err := r.setPhase(ctx, rm, consumer, vpnv1.PhaseWaiting, "lost the race for every candidate provider's remaining slots")
	if err != nil {
		return res, err
	}
	_, delay := operrors.ShouldRequeue(operrors.ErrSlotConflict)
	if delay == 0 {
		// ErrSlotConflict requeues immediately rather than after a delay: a
		// lost race is expected to resolve itself by the next attempt, unlike
		// ErrNoCapacity's saturation which needs time to clear.
		return ctrl.Result{Requeue: true}, nil
	}
	return ctrl.Result{RequeueAfter: delay}, nil
}

// errSlotRaceLost means a create-and-check attempt lost its race against
// another consumer or a concurrent deletion; allocateSlot retries it with
// backoff rather than failing the reconcile outright.
var errSlotRaceLost = errors.New("lost race for reservation slot")

// errProviderSaturated means no free slot name was left to try; it is
// wrapped as backoff.Permanent so the retry loop stops immediately instead
// of burning its budget on a provider that cannot satisfy the request.
var errProviderSaturated = errors.New("provider has no free slot")

type slotClaim struct {
	slot        uint
	reservation *vpnv1.MaskReservation
}

// allocateSlot implements Step C: find a free slot and attempt to claim it
// via create-and-handle-AlreadyExists, relying on the API server's
// per-namespace name uniqueness as the compare-and-swap primitive. A race
// loss against another consumer is retried with exponential backoff, since
// retrying immediately against a fresh listing tends to collide with the
// same competitor again.
func (r *Reconciler) allocateSlot(ctx context.Context, rm *metrics.ReconcileMetrics, provider *vpnv1.MaskProvider, consumer *vpnv1.MaskConsumer) (uint, *vpnv1.MaskReservation, error) {
	claim, err := backoff.Retry(ctx, func() (slotClaim, error) {
		reservationList := &vpnv1.MaskReservationList{}
		readStart := time.Now()
		err := r.List(ctx, reservationList, client.InNamespace(provider.Namespace))
		rm.ObserveRead(time.Since(readStart))
		if err != nil {
			return slotClaim{}, backoff.Permanent(fmt.Errorf("list reservations in %s: %w", provider.Namespace, err))
		}

		taken := make(map[uint]bool, len(reservationList.Items))
		for _, res := range reservationList.Items {
			n, err := strconv.ParseUint(res.Name, 10, 64)
			if err != nil {
				continue
			}
			taken[uint(n)] = true
		}

		slot, ok := firstFreeSlot(taken, provider.Spec.MaxSlots)
		if !ok {
			return slotClaim{}, backoff.Permanent(errProviderSaturated)
		}

		reservation := &vpnv1.MaskReservation{
			ObjectMeta: metav1.ObjectMeta{
				Namespace:  provider.Namespace,
				Name:       strconv.FormatUint(uint64(slot), 10),
				Finalizers: []string{finalizerutil.MaskReservationFinalizer},
			},
			Spec: vpnv1.MaskReservationSpec{
				Subject: vpnv1.ReservationSubject{
					Name:      consumer.Name,
					Namespace: consumer.Namespace,
					UID:       consumer.UID,
				},
			},
		}

		writeStart := time.Now()
		err = r.Create(ctx, reservation)
		rm.ObserveWrite(time.Since(writeStart))
		if err == nil {
			rm.IncAction("create-reservation")
			return slotClaim{slot: slot, reservation: reservation}, nil
		}
		if !apierrors.IsAlreadyExists(err) {
			return slotClaim{}, backoff.Permanent(fmt.Errorf("create reservation %s/%s: %w", provider.Namespace, reservation.Name, err))
		}

		existing := &vpnv1.MaskReservation{}
		readStart = time.Now()
		getErr := r.Get(ctx, types.NamespacedName{Namespace: provider.Namespace, Name: reservation.Name}, existing)
		rm.ObserveRead(time.Since(readStart))
		if getErr != nil {
			if apierrors.IsNotFound(getErr) {
				// Raced with a deletion; retry from a fresh listing.
				return slotClaim{}, errSlotRaceLost
			}
			return slotClaim{}, backoff.Permanent(fmt.Errorf("get existing reservation %s/%s: %w", provider.Namespace, reservation.Name, getErr))
		}
		if existing.Spec.Subject.UID == consumer.UID {
			// Idempotent re-delivery: this reservation is already ours.
			return slotClaim{slot: slot, reservation: existing}, nil
		}
		// Lost the race for this slot; retry from a fresh listing.
		return slotClaim{}, errSlotRaceLost
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(60*time.Second),
		backoff.WithMaxTries(uint(provider.Spec.MaxSlots)+1),
	)
	if err != nil {
		if errors.Is(err, errProviderSaturated) || errors.Is(err, errSlotRaceLost) {
			return 0, nil, nil
		}
		return 0, nil, err
	}
	return claim.slot, claim.reservation, nil
}

func firstFreeSlot(taken map[uint]bool, maxSlots uint) (uint, bool) {
	for n := uint(0); n < maxSlots; n++ {
		if !taken[n] {
			return n, true
		}
	}
	return 0, false
}

// publish implements Steps D and E: copy credentials, then make the
// assignment externally visible.
func (r *Reconciler) publish(ctx context.Context, rm *metrics.ReconcileMetrics, consumer *vpnv1.MaskConsumer, provider *vpnv1.MaskProvider, slot uint, reservation *vpnv1.MaskReservation) (ctrl.Result, error) {
	sourceSecret := &corev1.Secret{}
	readStart := time.Now()
	err := r.Get(ctx, types.NamespacedName{Namespace: provider.Namespace, Name: provider.Spec.Secret.Name}, sourceSecret)
	rm.ObserveRead(time.Since(readStart))
	if err != nil {
		if apierrors.IsNotFound(err) {
			if patchErr := r.markProviderSecretMissing(ctx, rm, provider); patchErr != nil {
				return ctrl.Result{}, patchErr
			}
			res, err := r.setPhase(ctx, rm, consumer, vpnv1.PhaseWaiting, fmt.Sprintf("provider %s/%s credentials secret is missing", provider.Namespace, provider.Spec.Secret.Name))
			if err != nil {
				return res, err
			}
			return ctrl.Result{RequeueAfter: waitingRequeueInterval}, nil
		}
		if requeue, delay := operrors.ShouldRequeue(err); requeue && operrors.IsTransientAPIServer(err) {
			return ctrl.Result{RequeueAfter: delay}, nil
		}
		return ctrl.Result{}, fmt.Errorf("get provider secret %s/%s: %w", provider.Namespace, provider.Spec.Secret.Name, err)
	}

	writeStart := time.Now()
	err = secretcopy.Sync(ctx, r.Client, r.Scheme, consumer, sourceSecret)
	rm.ObserveWrite(time.Since(writeStart))
	if err != nil {
		return ctrl.Result{}, fmt.Errorf("sync mirrored secret for consumer %s/%s: %w", consumer.Namespace, consumer.Name, err)
	}
	rm.IncAction("copy-secret")

	original := consumer.DeepCopy()
	consumer.Status.Provider = &vpnv1.ConsumerProviderRef{
		Name:        provider.Name,
		Namespace:   provider.Namespace,
		UID:         provider.UID,
		Slot:        slot,
		Secret:      secretcopy.MirrorName(consumer.Name),
		Reservation: reservation.UID,
	}
	consumer.Status.Phase = vpnv1.PhaseActive
	consumer.Status.Message = ""
	condition.True(&consumer.Status.Conditions, consumer.Generation, condition.TypeScheduled, "Assigned", fmt.Sprintf("assigned slot %d on provider %s/%s", slot, provider.Namespace, provider.Name))

	writeStart = time.Now()
	err = kstatus.Patch(ctx, r.Client, original, consumer, func(t *metav1.Time) { consumer.Status.LastUpdated = t })
	rm.ObserveWrite(time.Since(writeStart))
	if err != nil {
		return ctrl.Result{}, fmt.Errorf("publish assignment for consumer %s/%s: %w", consumer.Namespace, consumer.Name, err)
	}
	rm.IncAction("publish-assignment")

	return ctrl.Result{}, nil
}

func (r *Reconciler) markProviderSecretMissing(ctx context.Context, rm *metrics.ReconcileMetrics, provider *vpnv1.MaskProvider) error {
	if provider.Status.Phase == vpnv1.ProviderPhaseErrSecretNotFound {
		return nil
	}
	original := provider.DeepCopy()
	provider.Status.Phase = vpnv1.ProviderPhaseErrSecretNotFound
	provider.Status.Message = fmt.Sprintf("secret %s/%s not found", provider.Namespace, provider.Spec.Secret.Name)
	writeStart := time.Now()
	err := kstatus.Patch(ctx, r.Client, original, provider, func(t *metav1.Time) { provider.Status.LastUpdated = t })
	rm.ObserveWrite(time.Since(writeStart))
	if err != nil {
		return fmt.Errorf("mark provider %s/%s secret missing: %w", provider.Namespace, provider.Name, err)
	}
	rm.IncAction("flag-provider-secret-missing")
	return nil
}

func (r *Reconciler) setPhase(ctx context.Context, rm *metrics.ReconcileMetrics, consumer *vpnv1.MaskConsumer, phase vpnv1.Phase, message string) (ctrl.Result, error) {
	if consumer.Status.Phase == phase && consumer.Status.Message == message {
		return ctrl.Result{}, nil
	}
	original := consumer.DeepCopy()
	consumer.Status.Phase = phase
	consumer.Status.Message = message
	condition.False(&consumer.Status.Conditions, consumer.Generation, condition.TypeScheduled, string(phase), message)
	writeStart := time.Now()
	err := kstatus.Patch(ctx, r.Client, original, consumer, func(t *metav1.Time) { consumer.Status.LastUpdated = t })
	rm.ObserveWrite(time.Since(writeStart))
	if err != nil {
		return ctrl.Result{}, fmt.Errorf("patch consumer status %s/%s: %w", consumer.Namespace, consumer.Name, err)
	}
	rm.IncAction("update-status")
	return ctrl.Result{}, nil
}

// teardown implements Step F. deleting indicates whether this is the
// object's own deletion path (in which case the finalizer is removed once
// teardown completes) or an invariant-break retry (in which case the
// consumer is left in place to re-enter scheduling).
func (r *Reconciler) teardown(ctx context.Context, rm *metrics.ReconcileMetrics, consumer *vpnv1.MaskConsumer, deleting bool) (ctrl.Result, error) {
	writeStart := time.Now()
	err := secretcopy.Delete(ctx, r.Client, consumer.Namespace, consumer.Name)
	rm.ObserveWrite(time.Since(writeStart))
	if err != nil {
		return ctrl.Result{}, fmt.Errorf("delete mirrored secret for consumer %s/%s: %w", consumer.Namespace, consumer.Name, err)
	}
	rm.IncAction("delete-mirrored-secret")

	if ref := consumer.Status.Provider; ref != nil {
		reservation := &vpnv1.MaskReservation{}
		readStart := time.Now()
		err := r.Get(ctx, types.NamespacedName{Namespace: ref.Namespace, Name: strconv.FormatUint(uint64(ref.Slot), 10)}, reservation)
		rm.ObserveRead(time.Since(readStart))
		switch {
		case apierrors.IsNotFound(err):
			// Already gone.
		case err != nil:
			return ctrl.Result{}, fmt.Errorf("get reservation %s/%d for teardown: %w", ref.Namespace, ref.Slot, err)
		case reservation.Spec.Subject.UID == consumer.UID:
			writeStart := time.Now()
			err := r.Delete(ctx, reservation)
			rm.ObserveWrite(time.Since(writeStart))
			if err != nil && !apierrors.IsNotFound(err) {
				return ctrl.Result{}, fmt.Errorf("delete reservation %s/%s: %w", ref.Namespace, reservation.Name, err)
			}
			rm.IncAction("delete-reservation")
		}
	}

	original := consumer.DeepCopy()
	consumer.Status.Provider = nil
	if deleting {
		consumer.Status.Phase = vpnv1.PhaseTerminating
	} else {
		consumer.Status.Phase = vpnv1.PhasePending
	}
	consumer.Status.Message = ""
	// No assignment remains to be Scheduled true or false about; drop the
	// condition rather than leave a stale Scheduled=True behind until the
	// next schedule() call overwrites it.
	condition.Remove(&consumer.Status.Conditions, condition.TypeScheduled)
	writeStart = time.Now()
	if err := kstatus.Patch(ctx, r.Client, original, consumer, func(t *metav1.Time) { consumer.Status.LastUpdated = t }); err != nil {
		rm.ObserveWrite(time.Since(writeStart))
		return ctrl.Result{}, fmt.Errorf("clear consumer assignment status %s/%s: %w", consumer.Namespace, consumer.Name, err)
	}
	rm.ObserveWrite(time.Since(writeStart))
	rm.IncAction("clear-assignment")

	if !deleting {
		return ctrl.Result{}, nil
	}

	consumer.Finalizers = finalizerutil.RemoveFinalizer(consumer.Finalizers, finalizerutil.MaskConsumerFinalizer)
	writeStart = time.Now()
	err = r.Update(ctx, consumer)
	rm.ObserveWrite(time.Since(writeStart))
	if err != nil {
		return ctrl.Result{}, fmt.Errorf("remove finalizer from consumer %s/%s: %w", consumer.Namespace, consumer.Name, err)
	}
	rm.IncAction("remove-finalizer")
	return ctrl.Result{}, nil
}

// filterCandidates implements Step A. anyMatchesFilter reports whether at
// least one provider passed the tag/namespace predicate, regardless of
// capacity — used to distinguish ErrNoProviders from Waiting.
func filterCandidates(providers []vpnv1.MaskProvider, consumer *vpnv1.MaskConsumer) (candidates []vpnv1.MaskProvider, anyMatchesFilter bool) {
	for _, p := range providers {
		if p.Status.Phase != vpnv1.ProviderPhaseReady && p.Status.Phase != vpnv1.ProviderPhaseActive {
			continue
		}
		if len(p.Spec.Namespaces) > 0 && !containsString(p.Spec.Namespaces, consumer.Namespace) {
			continue
		}
		if len(consumer.Spec.Providers) > 0 && !intersects(consumer.Spec.Providers, p.Spec.Tags) {
			continue
		}
		anyMatchesFilter = true
		if p.Status.ActiveSlots < p.Spec.MaxSlots {
			candidates = append(candidates, p)
		}
	}
	return candidates, anyMatchesFilter
}

// sortCandidates implements Step B: ascending activeSlots, then ascending
// name.
func sortCandidates(candidates []vpnv1.MaskProvider) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Status.ActiveSlots != candidates[j].Status.ActiveSlots {
			return candidates[i].Status.ActiveSlots < candidates[j].Status.ActiveSlots
		}
		return candidates[i].Name < candidates[j].Name
	})
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func intersects(a, b []string) bool {
	set := make(map[string]struct{}, len(b))
	for _, v := range b {
		set[v] = struct{}{}
	}
	for _, v := range a {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}

// SetupWithManager registers the controller with mgr.
func (r *Reconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&vpnv1.MaskConsumer{}).
		WithOptions(controller.Options{
			MaxConcurrentReconciles: 5,
			RateLimiter:             finalizerutil.NewRateLimiter(),
		}).
		Named("maskconsumer").
		Complete(r)
}
