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

// Package reservation implements ReservationCtrl: the cross-namespace
// reverse-owner garbage collector that keeps a MaskReservation's existence
// in sync with whether its claiming MaskConsumer still exists (I4), and is
// the sole writer that decrements a MaskProvider's activeSlots counter.
package reservation

import (
	"context"
	"fmt"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
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
)

// resyncInterval bounds how long a live reservation waits before its
// subject's existence is re-checked even without a watch event, catching a
// missed consumer-deletion notification.
const resyncInterval = time.Minute

// Reconciler reconciles a MaskReservation object.
type Reconciler struct {
	client.Client
}

// Reconcile implements spec.md §4.4: a reservation's sole job is to keep I4
// true, and its finalizer is the hook that lets it decrement the owning
// provider's activeSlots counter before the reservation itself vanishes.
func (r *Reconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	rm := metrics.NewReconcileMetrics(metrics.KindReservation, req.Namespace, req.Name)
	outcome := "success"
	defer func() { rm.IncReconcile(outcome) }()

	logger := log.FromContext(ctx).WithValues("maskreservation", req.NamespacedName)

	readStart := time.Now()
	reservation := &vpnv1.MaskReservation{}
	err := r.Get(ctx, req.NamespacedName, reservation)
	rm.ObserveRead(time.Since(readStart))
	if err != nil {
		if apierrors.IsNotFound(err) {
			return ctrl.Result{}, nil
		}
		if requeue, delay := operrors.ShouldRequeue(err); requeue && operrors.IsTransientAPIServer(err) {
			logger.Info("transient error reading reservation; requeueing", "error", err, "after", delay)
			return ctrl.Result{RequeueAfter: delay}, nil
		}
		outcome = "error"
		return ctrl.Result{}, fmt.Errorf("get reservation %s: %w", req.NamespacedName, err)
	}

	if !reservation.DeletionTimestamp.IsZero() {
		res, err := r.release(ctx, rm, reservation)
		if err != nil {
			outcome = "error"
		}
		return res, err
	}

	if !finalizerutil.ContainsFinalizer(reservation.Finalizers, finalizerutil.MaskReservationFinalizer) {
		reservation.Finalizers = finalizerutil.AddFinalizer(reservation.Finalizers, finalizerutil.MaskReservationFinalizer)
		writeStart := time.Now()
		err := r.Update(ctx, reservation)
		rm.ObserveWrite(time.Since(writeStart))
		if err != nil {
			outcome = "error"
			return ctrl.Result{}, fmt.Errorf("add finalizer to reservation %s: %w", req.NamespacedName, err)
		}
		rm.IncAction("add-finalizer")
		return ctrl.Result{}, nil
	}

	consumer := &vpnv1.MaskConsumer{}
	readStart = time.Now()
	err = r.Get(ctx, types.NamespacedName{Namespace: reservation.Spec.Subject.Namespace, Name: reservation.Spec.Subject.Name}, consumer)
	rm.ObserveRead(time.Since(readStart))
	subjectAlive := err == nil && consumer.UID == reservation.Spec.Subject.UID
	if err != nil && !apierrors.IsNotFound(err) {
		if requeue, delay := operrors.ShouldRequeue(err); requeue && operrors.IsTransientAPIServer(err) {
			logger.Info("transient error reading reservation's subject; requeueing", "error", err, "after", delay)
			return ctrl.Result{RequeueAfter: delay}, nil
		}
		outcome = "error"
		return ctrl.Result{}, fmt.Errorf("get consumer %s/%s: %w", reservation.Spec.Subject.Namespace, reservation.Spec.Subject.Name, err)
	}

	if !subjectAlive {
		logger.Info("reservation's subject is gone or was replaced; releasing slot")
		writeStart := time.Now()
		delErr := r.Delete(ctx, reservation)
		rm.ObserveWrite(time.Since(writeStart))
		if delErr != nil && !apierrors.IsNotFound(delErr) {
			outcome = "error"
			return ctrl.Result{}, fmt.Errorf("delete orphaned reservation %s: %w", req.NamespacedName, delErr)
		}
		rm.IncAction("delete-orphaned-reservation")
		return ctrl.Result{}, nil
	}

	if reservation.Status.Phase == vpnv1.ReservationPhaseActive {
		return ctrl.Result{RequeueAfter: resyncInterval}, nil
	}

	original := reservation.DeepCopy()
	reservation.Status.Phase = vpnv1.ReservationPhaseActive
	condition.True(&reservation.Status.Conditions, reservation.Generation, condition.TypeClaimed, "SubjectAlive", "claiming consumer still exists with a matching UID")
	writeStart := time.Now()
	err = kstatus.Patch(ctx, r.Client, original, reservation, func(t *metav1.Time) { reservation.Status.LastUpdated = t })
	rm.ObserveWrite(time.Since(writeStart))
	if err != nil {
		outcome = "error"
		return ctrl.Result{}, fmt.Errorf("patch reservation status %s: %w", req.NamespacedName, err)
	}
	rm.IncAction("update-status")

	return ctrl.Result{RequeueAfter: resyncInterval}, nil
}

// release marks the reservation Terminating and, once that is recorded,
// removes the finalizer so the object's actual deletion proceeds. This is
// the single point that releases a slot for reuse.
func (r *Reconciler) release(ctx context.Context, rm *metrics.ReconcileMetrics, reservation *vpnv1.MaskReservation) (ctrl.Result, error) {
	if !finalizerutil.ContainsFinalizer(reservation.Finalizers, finalizerutil.MaskReservationFinalizer) {
		return ctrl.Result{}, nil
	}

	if reservation.Status.Phase != vpnv1.ReservationPhaseTerminating {
		original := reservation.DeepCopy()
		reservation.Status.Phase = vpnv1.ReservationPhaseTerminating
		condition.False(&reservation.Status.Conditions, reservation.Generation, condition.TypeClaimed, "Releasing", "slot is being released")
		writeStart := time.Now()
		err := kstatus.Patch(ctx, r.Client, original, reservation, func(t *metav1.Time) { reservation.Status.LastUpdated = t })
		rm.ObserveWrite(time.Since(writeStart))
		if err != nil {
			return ctrl.Result{}, fmt.Errorf("mark reservation terminating %s/%s: %w", reservation.Namespace, reservation.Name, err)
		}
		rm.IncAction("mark-terminating")
	}

	if err := r.decrementProviderActiveSlots(ctx, rm, reservation.Namespace); err != nil {
		return ctrl.Result{}, err
	}

	reservation.Finalizers = finalizerutil.RemoveFinalizer(reservation.Finalizers, finalizerutil.MaskReservationFinalizer)
	writeStart := time.Now()
	err := r.Update(ctx, reservation)
	rm.ObserveWrite(time.Since(writeStart))
	if err != nil {
		return ctrl.Result{}, fmt.Errorf("remove finalizer from reservation %s/%s: %w", reservation.Namespace, reservation.Name, err)
	}
	rm.IncAction("remove-finalizer")
	return ctrl.Result{}, nil
}

// decrementProviderActiveSlots opportunistically shrinks every MaskProvider
// in namespace by one, for promptness ahead of ProviderCtrl's next periodic
// recount. This is a best-effort, non-atomic read-modify-write: a lost race
// against a concurrent recount only produces a transiently stale counter,
// which §4.5's periodic recount corrects, since reservations remain the
// authoritative source of truth (I1, I2).
func (r *Reconciler) decrementProviderActiveSlots(ctx context.Context, rm *metrics.ReconcileMetrics, namespace string) error {
	providers := &vpnv1.MaskProviderList{}
	readStart := time.Now()
	err := r.List(ctx, providers, client.InNamespace(namespace))
	rm.ObserveRead(time.Since(readStart))
	if err != nil {
		if requeue, delay := operrors.ShouldRequeue(err); requeue && operrors.IsTransientAPIServer(err) {
			log.FromContext(ctx).Info("transient error listing providers; will retry on next reconcile", "error", err, "after", delay)
		}
		return fmt.Errorf("list providers in %s: %w", namespace, err)
	}

	for i := range providers.Items {
		provider := &providers.Items[i]
		if provider.Status.ActiveSlots == 0 {
			continue
		}
		original := provider.DeepCopy()
		provider.Status.ActiveSlots--
		writeStart := time.Now()
		err := kstatus.Patch(ctx, r.Client, original, provider, func(t *metav1.Time) { provider.Status.LastUpdated = t })
		rm.ObserveWrite(time.Since(writeStart))
		if err != nil {
			return fmt.Errorf("decrement activeSlots for provider %s/%s: %w", provider.Namespace, provider.Name, err)
		}
		rm.IncAction("decrement-provider-active-slots")
	}
	return nil
}

// SetupWithManager registers the controller with mgr.
func (r *Reconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&vpnv1.MaskReservation{}).
		WithOptions(controller.Options{
			MaxConcurrentReconciles: 5,
			RateLimiter:             finalizerutil.NewRateLimiter(),
		}).
		Named("maskreservation").
		Complete(r)
}
