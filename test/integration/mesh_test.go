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

//go:build integration
// +build integration

// Package integration drives MaskCtrl, ConsumerCtrl, ReservationCtrl and
// ProviderCtrl directly against a real API server (envtest), without a
// manager or watches, to prove the end-to-end scenarios in spec.md §8 that a
// single reconciler's fake-client unit tests cannot reach: multi-controller
// teardown ordering and slot reuse across real object lifecycles.
package integration

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	ctrl "sigs.k8s.io/controller-runtime"

	vpnv1 "github.com/thavlik/vpn-operator/api/v1"
	consumerctrl "github.com/thavlik/vpn-operator/internal/controller/consumer"
	maskctrl "github.com/thavlik/vpn-operator/internal/controller/mask"
	providerctrl "github.com/thavlik/vpn-operator/internal/controller/provider"
	reservationctrl "github.com/thavlik/vpn-operator/internal/controller/reservation"
)

// step is one reconcile call against a known object key.
type step struct {
	name string
	fn   func(ctx context.Context, key types.NamespacedName) (ctrl.Result, error)
}

// pump drives every step in order, rounds times, ignoring the transient
// errors produced by an object having been deleted by an earlier step in the
// same round. It mimics running every controller's work queue by hand
// instead of standing up a manager.
func pump(rounds int, steps []step, keys []types.NamespacedName) {
	for i := 0; i < rounds; i++ {
		for _, s := range steps {
			for _, key := range keys {
				_, err := s.fn(ctx, key)
				if err != nil && !apierrors.IsNotFound(err) {
					Expect(err).NotTo(HaveOccurred(), s.name)
				}
			}
		}
	}
}

func meshSteps() []step {
	mr := &maskctrl.Reconciler{Client: k8sClient, Scheme: k8sScheme}
	cr := &consumerctrl.Reconciler{Client: k8sClient, Scheme: k8sScheme}
	rr := &reservationctrl.Reconciler{Client: k8sClient}
	pr := &providerctrl.Reconciler{Client: k8sClient, Scheme: k8sScheme}

	return []step{
		{"provider", func(ctx context.Context, key types.NamespacedName) (ctrl.Result, error) {
			return pr.Reconcile(ctx, ctrl.Request{NamespacedName: key})
		}},
		{"mask", func(ctx context.Context, key types.NamespacedName) (ctrl.Result, error) {
			return mr.Reconcile(ctx, ctrl.Request{NamespacedName: key})
		}},
		{"consumer", func(ctx context.Context, key types.NamespacedName) (ctrl.Result, error) {
			return cr.Reconcile(ctx, ctrl.Request{NamespacedName: key})
		}},
		{"reservation", func(ctx context.Context, key types.NamespacedName) (ctrl.Result, error) {
			return rr.Reconcile(ctx, ctrl.Request{NamespacedName: key})
		}},
		{"provider-settle", func(ctx context.Context, key types.NamespacedName) (ctrl.Result, error) {
			return pr.Reconcile(ctx, ctrl.Request{NamespacedName: key})
		}},
	}
}

func makeSkipProvider(namespace, name string, maxSlots uint) (*vpnv1.MaskProvider, *corev1.Secret) {
	secret := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Name: "creds-" + name, Namespace: namespace},
		Data:       map[string][]byte{"config.ovpn": []byte("client\nremote vpn.example.com 1194\n")},
	}
	provider := &vpnv1.MaskProvider{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
		Spec: vpnv1.MaskProviderSpec{
			MaxSlots: maxSlots,
			Secret:   corev1.LocalObjectReference{Name: secret.Name},
			Verify:   &vpnv1.VerifySpec{Skip: true},
		},
	}
	return provider, secret
}

var _ = Describe("the VPN mesh reconciled end-to-end", func() {
	var providerNS, maskNS string

	BeforeEach(func() {
		providerNS = newTestNamespace()
		maskNS = newTestNamespace()
	})

	It("assigns slot 0 on a single two-slot provider to a single Mask (scenario 1)", func() {
		provider, secret := makeSkipProvider(providerNS, "p1", 2)
		Expect(k8sClient.Create(ctx, secret)).To(Succeed())
		Expect(k8sClient.Create(ctx, provider)).To(Succeed())

		mask := &vpnv1.Mask{ObjectMeta: metav1.ObjectMeta{Name: "m1", Namespace: maskNS}}
		Expect(k8sClient.Create(ctx, mask)).To(Succeed())

		steps := meshSteps()
		keys := []types.NamespacedName{
			{Namespace: providerNS, Name: "p1"},
			{Namespace: maskNS, Name: "m1"},
			{Namespace: providerNS, Name: "0"},
		}
		pump(6, steps, keys)

		consumer := &vpnv1.MaskConsumer{}
		Expect(k8sClient.Get(ctx, types.NamespacedName{Namespace: maskNS, Name: "m1"}, consumer)).To(Succeed())
		Expect(consumer.Status.Provider).NotTo(BeNil())
		Expect(consumer.Status.Provider.Slot).To(Equal(uint(0)))
		Expect(consumer.Status.Phase).To(Equal(vpnv1.PhaseActive))

		mirror := &corev1.Secret{}
		Expect(k8sClient.Get(ctx, types.NamespacedName{Namespace: maskNS, Name: consumer.Status.Provider.Secret}, mirror)).To(Succeed())
		Expect(mirror.Data).To(Equal(secret.Data))

		reservation := &vpnv1.MaskReservation{}
		Expect(k8sClient.Get(ctx, types.NamespacedName{Namespace: providerNS, Name: "0"}, reservation)).To(Succeed())
		Expect(reservation.Spec.Subject.UID).To(Equal(consumer.UID))

		updatedMask := &vpnv1.Mask{}
		Expect(k8sClient.Get(ctx, types.NamespacedName{Namespace: maskNS, Name: "m1"}, updatedMask)).To(Succeed())
		Expect(updatedMask.Status.Phase).To(Equal(vpnv1.PhaseActive))
	})

	It("lets exactly one of two contending Masks win the only slot, then hands it to the loser once the winner is deleted (scenarios 2-3)", func() {
		provider, secret := makeSkipProvider(providerNS, "p1", 1)
		Expect(k8sClient.Create(ctx, secret)).To(Succeed())
		Expect(k8sClient.Create(ctx, provider)).To(Succeed())

		maskA := &vpnv1.Mask{ObjectMeta: metav1.ObjectMeta{Name: "ma", Namespace: maskNS}}
		maskB := &vpnv1.Mask{ObjectMeta: metav1.ObjectMeta{Name: "mb", Namespace: maskNS}}
		Expect(k8sClient.Create(ctx, maskA)).To(Succeed())
		Expect(k8sClient.Create(ctx, maskB)).To(Succeed())

		steps := meshSteps()
		keys := []types.NamespacedName{
			{Namespace: providerNS, Name: "p1"},
			{Namespace: maskNS, Name: "ma"},
			{Namespace: maskNS, Name: "mb"},
			{Namespace: providerNS, Name: "0"},
		}
		pump(6, steps, keys)

		getMaskPhase := func(name string) vpnv1.Phase {
			m := &vpnv1.Mask{}
			Expect(k8sClient.Get(ctx, types.NamespacedName{Namespace: maskNS, Name: name}, m)).To(Succeed())
			return m.Status.Phase
		}
		phaseA, phaseB := getMaskPhase("ma"), getMaskPhase("mb")
		Expect([]vpnv1.Phase{phaseA, phaseB}).To(ContainElement(vpnv1.PhaseActive))
		Expect([]vpnv1.Phase{phaseA, phaseB}).To(ContainElement(vpnv1.PhaseWaiting))

		var winnerName, loserName string
		if phaseA == vpnv1.PhaseActive {
			winnerName, loserName = "ma", "mb"
		} else {
			winnerName, loserName = "mb", "ma"
		}

		winnerConsumer := &vpnv1.MaskConsumer{}
		Expect(k8sClient.Get(ctx, types.NamespacedName{Namespace: maskNS, Name: winnerName}, winnerConsumer)).To(Succeed())
		priorReservationUID := winnerConsumer.Status.Provider.Reservation

		loserConsumer := &vpnv1.MaskConsumer{}
		Expect(k8sClient.Get(ctx, types.NamespacedName{Namespace: maskNS, Name: loserName}, loserConsumer)).To(Succeed())
		Expect(loserConsumer.Status.Provider).To(BeNil())

		// Scenario 3: delete the winning Mask and drive the mesh again; the
		// loser must pick up slot 0 once it is vacated, with a fresh
		// reservation UID.
		winnerMask := &vpnv1.Mask{}
		Expect(k8sClient.Get(ctx, types.NamespacedName{Namespace: maskNS, Name: winnerName}, winnerMask)).To(Succeed())
		Expect(k8sClient.Delete(ctx, winnerMask)).To(Succeed())

		pump(8, steps, append(keys, types.NamespacedName{Namespace: maskNS, Name: winnerName}))

		Eventually(func(g Gomega) {
			updatedLoser := &vpnv1.MaskConsumer{}
			g.Expect(k8sClient.Get(ctx, types.NamespacedName{Namespace: maskNS, Name: loserName}, updatedLoser)).To(Succeed())
			g.Expect(updatedLoser.Status.Provider).NotTo(BeNil())
			g.Expect(updatedLoser.Status.Provider.Slot).To(Equal(uint(0)))
			g.Expect(updatedLoser.Status.Provider.Reservation).NotTo(Equal(priorReservationUID))
		}, 5*time.Second, 100*time.Millisecond).Should(Succeed())
	})

	It("tears down and re-elects when a provider is deleted and recreated under the same name (scenario 6)", func() {
		provider, secret := makeSkipProvider(providerNS, "p1", 1)
		Expect(k8sClient.Create(ctx, secret)).To(Succeed())
		Expect(k8sClient.Create(ctx, provider)).To(Succeed())

		mask := &vpnv1.Mask{ObjectMeta: metav1.ObjectMeta{Name: "m1", Namespace: maskNS}}
		Expect(k8sClient.Create(ctx, mask)).To(Succeed())

		steps := meshSteps()
		baseKeys := []types.NamespacedName{
			{Namespace: providerNS, Name: "p1"},
			{Namespace: maskNS, Name: "m1"},
			{Namespace: providerNS, Name: "0"},
		}
		pump(6, steps, baseKeys)

		consumer := &vpnv1.MaskConsumer{}
		Expect(k8sClient.Get(ctx, types.NamespacedName{Namespace: maskNS, Name: "m1"}, consumer)).To(Succeed())
		Expect(consumer.Status.Phase).To(Equal(vpnv1.PhaseActive))
		oldProviderUID := consumer.Status.Provider.UID

		staleProvider := &vpnv1.MaskProvider{}
		Expect(k8sClient.Get(ctx, types.NamespacedName{Namespace: providerNS, Name: "p1"}, staleProvider)).To(Succeed())
		Expect(k8sClient.Delete(ctx, staleProvider)).To(Succeed())
		// Provider deletion goes through the finalizer teardown path too; pump
		// the provider key until it is actually gone before recreating it
		// under the same name, mirroring a real operator's own delete-then-
		// recreate cadence.
		pump(4, steps, append(baseKeys, types.NamespacedName{Namespace: providerNS, Name: "p1"}))

		newProvider, _ := makeSkipProvider(providerNS, "p1", 1)
		Expect(k8sClient.Create(ctx, newProvider)).To(Succeed())
		Expect(newProvider.UID).NotTo(Equal(oldProviderUID))

		pump(8, steps, baseKeys)

		Eventually(func(g Gomega) {
			updated := &vpnv1.MaskConsumer{}
			g.Expect(k8sClient.Get(ctx, types.NamespacedName{Namespace: maskNS, Name: "m1"}, updated)).To(Succeed())
			g.Expect(updated.Status.Provider).NotTo(BeNil())
			g.Expect(updated.Status.Provider.UID).To(Equal(newProvider.UID))
			g.Expect(updated.Status.Phase).To(Equal(vpnv1.PhaseActive))
		}, 5*time.Second, 100*time.Millisecond).Should(Succeed())
	})
})
