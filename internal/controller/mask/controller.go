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

// Package mask implements MaskCtrl: the user-facing intake controller that
// maintains exactly one MaskConsumer per Mask and mirrors the consumer's
// phase back onto the Mask.
package mask

import (
	"context"
	"fmt"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

	vpnv1 "github.com/thavlik/vpn-operator/api/v1"
	"github.com/thavlik/vpn-operator/internal/condition"
	finalizerutil "github.com/thavlik/vpn-operator/internal/controllerutil"
	"github.com/thavlik/vpn-operator/internal/kstatus"
	"github.com/thavlik/vpn-operator/internal/metrics"
	"github.com/thavlik/vpn-operator/internal/operrors"
)

// Reconciler reconciles a Mask object.
type Reconciler struct {
	client.Client
	Scheme *runtime.Scheme
}

// Reconcile implements the phase-propagation contract described in spec.md
// §4.2: ensure exactly one owned MaskConsumer exists and mirror its phase
// upward through the documented mapping.
func (r *Reconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	rm := metrics.NewReconcileMetrics(metrics.KindMask, req.Namespace, req.Name)
	outcome := "success"
	defer func() { rm.IncReconcile(outcome) }()

	logger := log.FromContext(ctx).WithValues("mask", req.NamespacedName)

	readStart := time.Now()
	mask := &vpnv1.Mask{}
	err := r.Get(ctx, req.NamespacedName, mask)
	rm.ObserveRead(time.Since(readStart))
	if err != nil {
		if apierrors.IsNotFound(err) {
			return ctrl.Result{}, nil
		}
		if requeue, delay := operrors.ShouldRequeue(err); requeue && operrors.IsTransientAPIServer(err) {
			logger.Info("transient error reading mask; requeueing", "error", err, "after", delay)
			return ctrl.Result{RequeueAfter: delay}, nil
		}
		outcome = "error"
		return ctrl.Result{}, fmt.Errorf("get mask %s: %w", req.NamespacedName, err)
	}

	if !mask.DeletionTimestamp.IsZero() {
		return r.reconcileDeletion(ctx, rm, mask)
	}

	if !finalizerutil.ContainsFinalizer(mask.Finalizers, finalizerutil.MaskFinalizer) {
		mask.Finalizers = finalizerutil.AddFinalizer(mask.Finalizers, finalizerutil.MaskFinalizer)
		writeStart := time.Now()
		err := r.Update(ctx, mask)
		rm.ObserveWrite(time.Since(writeStart))
		if err != nil {
			outcome = "error"
			return ctrl.Result{}, fmt.Errorf("add finalizer to mask %s: %w", req.NamespacedName, err)
		}
		rm.IncAction("add-finalizer")
		return ctrl.Result{}, nil
	}

	consumer := &vpnv1.MaskConsumer{}
	readStart = time.Now()
	err = r.Get(ctx, req.NamespacedName, consumer)
	rm.ObserveRead(time.Since(readStart))
	switch {
	case apierrors.IsNotFound(err):
		consumer = &vpnv1.MaskConsumer{
			ObjectMeta: metav1.ObjectMeta{Namespace: mask.Namespace, Name: mask.Name},
			Spec:       vpnv1.MaskConsumerSpec{Providers: mask.Spec.Providers},
		}
		if err := controllerutil.SetControllerReference(mask, consumer, r.Scheme); err != nil {
			outcome = "error"
			return ctrl.Result{}, fmt.Errorf("set controller reference on consumer %s: %w", req.NamespacedName, err)
		}
		writeStart := time.Now()
		err := r.Create(ctx, consumer)
		rm.ObserveWrite(time.Since(writeStart))
		if err != nil && !apierrors.IsAlreadyExists(err) {
			outcome = "error"
			return ctrl.Result{}, fmt.Errorf("create consumer %s: %w", req.NamespacedName, err)
		}
		rm.IncAction("create-consumer")
		return ctrl.Result{}, nil
	case err != nil:
		if requeue, delay := operrors.ShouldRequeue(err); requeue && operrors.IsTransientAPIServer(err) {
			logger.Info("transient error reading owned consumer; requeueing", "error", err, "after", delay)
			return ctrl.Result{RequeueAfter: delay}, nil
		}
		outcome = "error"
		return ctrl.Result{}, fmt.Errorf("get consumer %s: %w", req.NamespacedName, err)
	}

	if !metav1.IsControlledBy(consumer, mask) {
		logger.Info("existing MaskConsumer is not owned by this Mask; leaving it alone", "consumer", consumer.Name)
	}

	// Consumer.phase → Mask.phase per spec.md §4.2.
	desiredPhase := vpnv1.PhasePending
	switch consumer.Status.Phase {
	case vpnv1.PhasePending, vpnv1.PhaseWaiting:
		desiredPhase = vpnv1.PhaseWaiting
	case vpnv1.PhaseErrNoProviders:
		desiredPhase = vpnv1.PhaseErrNoProviders
	case vpnv1.PhaseActive:
		desiredPhase = vpnv1.PhaseActive
	case vpnv1.PhaseTerminating:
		desiredPhase = vpnv1.PhaseTerminating
	case "":
		desiredPhase = vpnv1.PhasePending
	}

	var readyMatches bool
	if desiredPhase == vpnv1.PhaseActive {
		readyMatches = condition.IsTrue(mask.Status.Conditions, condition.TypeReady)
	} else {
		readyMatches = condition.IsFalse(mask.Status.Conditions, condition.TypeReady)
	}
	if mask.Status.Phase == desiredPhase && mask.Status.Message == consumer.Status.Message && readyMatches {
		return ctrl.Result{}, nil
	}

	original := mask.DeepCopy()
	mask.Status.Phase = desiredPhase
	mask.Status.Message = consumer.Status.Message
	if desiredPhase == vpnv1.PhaseActive {
		condition.True(&mask.Status.Conditions, mask.Generation, condition.TypeReady, string(desiredPhase), consumer.Status.Message)
	} else {
		condition.False(&mask.Status.Conditions, mask.Generation, condition.TypeReady, string(desiredPhase), consumer.Status.Message)
	}

	writeStart := time.Now()
	err = kstatus.Patch(ctx, r.Client, original, mask, func(t *metav1.Time) { mask.Status.LastUpdated = t })
	rm.ObserveWrite(time.Since(writeStart))
	if err != nil {
		outcome = "error"
		return ctrl.Result{}, fmt.Errorf("patch mask status %s: %w", req.NamespacedName, err)
	}
	rm.IncAction("update-status")

	return ctrl.Result{}, nil
}

func (r *Reconciler) reconcileDeletion(ctx context.Context, rm *metrics.ReconcileMetrics, mask *vpnv1.Mask) (ctrl.Result, error) {
	if !finalizerutil.ContainsFinalizer(mask.Finalizers, finalizerutil.MaskFinalizer) {
		return ctrl.Result{}, nil
	}

	consumer := &vpnv1.MaskConsumer{}
	readStart := time.Now()
	err := r.Get(ctx, client.ObjectKeyFromObject(mask), consumer)
	rm.ObserveRead(time.Since(readStart))
	switch {
	case apierrors.IsNotFound(err):
		mask.Finalizers = finalizerutil.RemoveFinalizer(mask.Finalizers, finalizerutil.MaskFinalizer)
		writeStart := time.Now()
		err := r.Update(ctx, mask)
		rm.ObserveWrite(time.Since(writeStart))
		if err != nil {
			return ctrl.Result{}, fmt.Errorf("remove finalizer from mask %s/%s: %w", mask.Namespace, mask.Name, err)
		}
		rm.IncAction("remove-finalizer")
		return ctrl.Result{}, nil
	case err != nil:
		if requeue, delay := operrors.ShouldRequeue(err); requeue && operrors.IsTransientAPIServer(err) {
			return ctrl.Result{RequeueAfter: delay}, nil
		}
		return ctrl.Result{}, fmt.Errorf("get consumer for mask %s/%s: %w", mask.Namespace, mask.Name, err)
	}

	if consumer.DeletionTimestamp.IsZero() {
		writeStart := time.Now()
		err := r.Delete(ctx, consumer)
		rm.ObserveWrite(time.Since(writeStart))
		if err != nil && !apierrors.IsNotFound(err) {
			return ctrl.Result{}, fmt.Errorf("delete consumer for mask %s/%s: %w", mask.Namespace, mask.Name, err)
		}
		rm.IncAction("delete-consumer")
	}

	// Requeue to observe the consumer's own teardown complete; the consumer's
	// finalizer removal triggers its actual deletion and a fresh watch event
	// here.
	return ctrl.Result{RequeueAfter: 2 * time.Second}, nil
}

// SetupWithManager registers the controller with mgr.
func (r *Reconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&vpnv1.Mask{}).
		Owns(&vpnv1.MaskConsumer{}).
		WithOptions(controller.Options{
			MaxConcurrentReconciles: 5,
			RateLimiter:             finalizerutil.NewRateLimiter(),
		}).
		Named("mask").
		Complete(r)
}
