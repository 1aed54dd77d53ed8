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

package consumer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	vpnv1 "github.com/thavlik/vpn-operator/api/v1"
	finalizerutil "github.com/thavlik/vpn-operator/internal/controllerutil"
)

func testScheme(t *testing.T) *runtime.Scheme {
	t.Helper()
	scheme := runtime.NewScheme()
	require.NoError(t, clientgoscheme.AddToScheme(scheme))
	require.NoError(t, vpnv1.AddToScheme(scheme))
	return scheme
}

func newFakeClient(t *testing.T, objs ...runtime.Object) *fake.ClientBuilder {
	t.Helper()
	return fake.NewClientBuilder().
		WithScheme(testScheme(t)).
		WithStatusSubresource(&vpnv1.MaskConsumer{}, &vpnv1.MaskProvider{}).
		WithRuntimeObjects(objs...)
}

func readyProvider(name, namespace string, maxSlots uint) *vpnv1.MaskProvider {
	return &vpnv1.MaskProvider{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace, UID: types.UID(name + "-uid")},
		Spec: vpnv1.MaskProviderSpec{
			MaxSlots: maxSlots,
			Secret:   corev1.LocalObjectReference{Name: "creds"},
		},
		Status: vpnv1.MaskProviderStatus{Phase: vpnv1.ProviderPhaseReady},
	}
}

func credsSecret(namespace string) *corev1.Secret {
	return &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Name: "creds", Namespace: namespace},
		Data:       map[string][]byte{"config": []byte("vpn-config")},
	}
}

func TestReconcile_AddsFinalizer(t *testing.T) {
	consumer := &vpnv1.MaskConsumer{
		ObjectMeta: metav1.ObjectMeta{Name: "c1", Namespace: "default"},
	}
	c := newFakeClient(t, consumer).Build()
	r := &Reconciler{Client: c, Scheme: c.Scheme()}

	req := ctrl.Request{NamespacedName: types.NamespacedName{Name: "c1", Namespace: "default"}}
	_, err := r.Reconcile(context.Background(), req)
	require.NoError(t, err)

	got := &vpnv1.MaskConsumer{}
	require.NoError(t, c.Get(context.Background(), req.NamespacedName, got))
	assert.True(t, finalizerutil.ContainsFinalizer(got.Finalizers, finalizerutil.MaskConsumerFinalizer))
}

func TestReconcile_NoCandidates_ErrNoProviders(t *testing.T) {
	consumer := &vpnv1.MaskConsumer{
		ObjectMeta: metav1.ObjectMeta{Name: "c1", Namespace: "default", Finalizers: []string{finalizerutil.MaskConsumerFinalizer}},
		Spec:       vpnv1.MaskConsumerSpec{Providers: []string{"eu"}},
	}
	provider := readyProvider("p1", "vpn", 1)
	provider.Spec.Tags = []string{"us"}
	c := newFakeClient(t, consumer, provider).Build()
	r := &Reconciler{Client: c, Scheme: c.Scheme()}

	req := ctrl.Request{NamespacedName: types.NamespacedName{Name: "c1", Namespace: "default"}}
	_, err := r.Reconcile(context.Background(), req)
	require.NoError(t, err)

	got := &vpnv1.MaskConsumer{}
	require.NoError(t, c.Get(context.Background(), req.NamespacedName, got))
	assert.Equal(t, vpnv1.PhaseErrNoProviders, got.Status.Phase)
}

func TestReconcile_SaturatedProvider_Waiting(t *testing.T) {
	consumer := &vpnv1.MaskConsumer{
		ObjectMeta: metav1.ObjectMeta{Name: "c1", Namespace: "default", Finalizers: []string{finalizerutil.MaskConsumerFinalizer}},
	}
	provider := readyProvider("p1", "vpn", 1)
	provider.Status.ActiveSlots = 1
	c := newFakeClient(t, consumer, provider).Build()
	r := &Reconciler{Client: c, Scheme: c.Scheme()}

	req := ctrl.Request{NamespacedName: types.NamespacedName{Name: "c1", Namespace: "default"}}
	res, err := r.Reconcile(context.Background(), req)
	require.NoError(t, err)
	assert.Positive(t, res.RequeueAfter)

	got := &vpnv1.MaskConsumer{}
	require.NoError(t, c.Get(context.Background(), req.NamespacedName, got))
	assert.Equal(t, vpnv1.PhaseWaiting, got.Status.Phase)
}

func TestReconcile_SchedulesAndPublishesAssignment(t *testing.T) {
	consumer := &vpnv1.MaskConsumer{
		ObjectMeta: metav1.ObjectMeta{Name: "c1", Namespace: "default", UID: "consumer-uid", Finalizers: []string{finalizerutil.MaskConsumerFinalizer}},
	}
	provider := readyProvider("p1", "vpn", 2)
	secret := credsSecret("vpn")
	c := newFakeClient(t, consumer, provider, secret).Build()
	r := &Reconciler{Client: c, Scheme: c.Scheme()}

	req := ctrl.Request{NamespacedName: types.NamespacedName{Name: "c1", Namespace: "default"}}
	_, err := r.Reconcile(context.Background(), req)
	require.NoError(t, err)

	got := &vpnv1.MaskConsumer{}
	require.NoError(t, c.Get(context.Background(), req.NamespacedName, got))
	require.NotNil(t, got.Status.Provider)
	assert.Equal(t, "p1", got.Status.Provider.Name)
	assert.Equal(t, uint(0), got.Status.Provider.Slot)
	assert.Equal(t, vpnv1.PhaseActive, got.Status.Phase)

	reservation := &vpnv1.MaskReservation{}
	require.NoError(t, c.Get(context.Background(), types.NamespacedName{Namespace: "vpn", Name: "0"}, reservation))
	assert.Equal(t, "c1", reservation.Spec.Subject.Name)
	assert.Equal(t, types.UID("consumer-uid"), reservation.Spec.Subject.UID)

	mirror := &corev1.Secret{}
	require.NoError(t, c.Get(context.Background(), types.NamespacedName{Namespace: "default", Name: "c1-vpn-credentials"}, mirror))
	assert.Equal(t, secret.Data, mirror.Data)
}

func TestReconcile_SkipsTakenSlot(t *testing.T) {
	consumer := &vpnv1.MaskConsumer{
		ObjectMeta: metav1.ObjectMeta{Name: "c2", Namespace: "default", UID: "c2-uid", Finalizers: []string{finalizerutil.MaskConsumerFinalizer}},
	}
	provider := readyProvider("p1", "vpn", 2)
	secret := credsSecret("vpn")
	existingReservation := &vpnv1.MaskReservation{
		ObjectMeta: metav1.ObjectMeta{Name: "0", Namespace: "vpn", Finalizers: []string{finalizerutil.MaskReservationFinalizer}},
		Spec: vpnv1.MaskReservationSpec{
			Subject: vpnv1.ReservationSubject{Name: "other", Namespace: "default", UID: "other-uid"},
		},
	}
	c := newFakeClient(t, consumer, provider, secret, existingReservation).Build()
	r := &Reconciler{Client: c, Scheme: c.Scheme()}

	req := ctrl.Request{NamespacedName: types.NamespacedName{Name: "c2", Namespace: "default"}}
	_, err := r.Reconcile(context.Background(), req)
	require.NoError(t, err)

	got := &vpnv1.MaskConsumer{}
	require.NoError(t, c.Get(context.Background(), req.NamespacedName, got))
	require.NotNil(t, got.Status.Provider)
	assert.Equal(t, uint(1), got.Status.Provider.Slot)
}

func TestReconcile_TearsDownWhenProviderUIDChanged(t *testing.T) {
	consumer := &vpnv1.MaskConsumer{
		ObjectMeta: metav1.ObjectMeta{Name: "c1", Namespace: "default", UID: "consumer-uid", Finalizers: []string{finalizerutil.MaskConsumerFinalizer}},
		Status: vpnv1.MaskConsumerStatus{
			Phase: vpnv1.PhaseActive,
			Provider: &vpnv1.ConsumerProviderRef{
				Name: "p1", Namespace: "vpn", UID: "stale-uid", Slot: 0, Secret: "c1-vpn-credentials", Reservation: "res-uid",
			},
		},
	}
	provider := readyProvider("p1", "vpn", 2) // UID is "p1-uid", not "stale-uid"
	c := newFakeClient(t, consumer, provider).Build()
	r := &Reconciler{Client: c, Scheme: c.Scheme()}

	req := ctrl.Request{NamespacedName: types.NamespacedName{Name: "c1", Namespace: "default"}}
	_, err := r.Reconcile(context.Background(), req)
	require.NoError(t, err)

	got := &vpnv1.MaskConsumer{}
	require.NoError(t, c.Get(context.Background(), req.NamespacedName, got))
	assert.Nil(t, got.Status.Provider)
	// Teardown resets to Pending and falls through to re-election in the same
	// reconcile: slot 0 on p1 is reserved, but p1's "creds" secret does not
	// exist, so publishing stops in Waiting without a provider.
	assert.Equal(t, vpnv1.PhaseWaiting, got.Status.Phase)
}

func TestReconcile_ValidAssignmentIsIdempotent(t *testing.T) {
	provider := readyProvider("p1", "vpn", 2)
	reservation := &vpnv1.MaskReservation{
		ObjectMeta: metav1.ObjectMeta{Name: "0", Namespace: "vpn", UID: "res-uid", Finalizers: []string{finalizerutil.MaskReservationFinalizer}},
		Spec: vpnv1.MaskReservationSpec{
			Subject: vpnv1.ReservationSubject{Name: "c1", Namespace: "default", UID: "consumer-uid"},
		},
	}
	mirror := &corev1.Secret{ObjectMeta: metav1.ObjectMeta{Name: "c1-vpn-credentials", Namespace: "default"}}
	consumer := &vpnv1.MaskConsumer{
		ObjectMeta: metav1.ObjectMeta{Name: "c1", Namespace: "default", UID: "consumer-uid", Finalizers: []string{finalizerutil.MaskConsumerFinalizer}},
		Status: vpnv1.MaskConsumerStatus{
			Phase: vpnv1.PhaseActive,
			Provider: &vpnv1.ConsumerProviderRef{
				Name: "p1", Namespace: "vpn", UID: provider.UID, Slot: 0, Secret: "c1-vpn-credentials", Reservation: "res-uid",
			},
		},
	}
	c := newFakeClient(t, consumer, provider, reservation, mirror).Build()
	r := &Reconciler{Client: c, Scheme: c.Scheme()}

	req := ctrl.Request{NamespacedName: types.NamespacedName{Name: "c1", Namespace: "default"}}
	res, err := r.Reconcile(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, ctrl.Result{}, res)

	got := &vpnv1.MaskConsumer{}
	require.NoError(t, c.Get(context.Background(), req.NamespacedName, got))
	assert.Equal(t, vpnv1.PhaseActive, got.Status.Phase)
	require.NotNil(t, got.Status.Provider)
	assert.Equal(t, "p1", got.Status.Provider.Name)
}

func TestReconcile_DeletionReleasesReservationAndMirror(t *testing.T) {
	now := metav1.Now()
	provider := readyProvider("p1", "vpn", 2)
	reservation := &vpnv1.MaskReservation{
		ObjectMeta: metav1.ObjectMeta{Name: "0", Namespace: "vpn", UID: "res-uid", Finalizers: []string{finalizerutil.MaskReservationFinalizer}},
		Spec: vpnv1.MaskReservationSpec{
			Subject: vpnv1.ReservationSubject{Name: "c1", Namespace: "default", UID: "consumer-uid"},
		},
	}
	mirror := &corev1.Secret{ObjectMeta: metav1.ObjectMeta{Name: "c1-vpn-credentials", Namespace: "default"}}
	consumer := &vpnv1.MaskConsumer{
		ObjectMeta: metav1.ObjectMeta{
			Name: "c1", Namespace: "default", UID: "consumer-uid",
			Finalizers:        []string{finalizerutil.MaskConsumerFinalizer},
			DeletionTimestamp: &now,
		},
		Status: vpnv1.MaskConsumerStatus{
			Phase: vpnv1.PhaseActive,
			Provider: &vpnv1.ConsumerProviderRef{
				Name: "p1", Namespace: "vpn", UID: provider.UID, Slot: 0, Secret: "c1-vpn-credentials", Reservation: "res-uid",
			},
		},
	}
	c := newFakeClient(t, consumer, provider, reservation, mirror).Build()
	r := &Reconciler{Client: c, Scheme: c.Scheme()}

	req := ctrl.Request{NamespacedName: types.NamespacedName{Name: "c1", Namespace: "default"}}
	_, err := r.Reconcile(context.Background(), req)
	require.NoError(t, err)

	gotReservation := &vpnv1.MaskReservation{}
	err = c.Get(context.Background(), types.NamespacedName{Namespace: "vpn", Name: "0"}, gotReservation)
	if err == nil {
		assert.False(t, gotReservation.DeletionTimestamp.IsZero())
	}

	gotMirror := &corev1.Secret{}
	err = c.Get(context.Background(), types.NamespacedName{Namespace: "default", Name: "c1-vpn-credentials"}, gotMirror)
	assert.Error(t, err)
}

func TestFilterCandidates_RespectsTagsAndNamespaces(t *testing.T) {
	consumer := &vpnv1.MaskConsumer{
		ObjectMeta: metav1.ObjectMeta{Namespace: "team-a"},
		Spec:       vpnv1.MaskConsumerSpec{Providers: []string{"us"}},
	}
	matching := readyProvider("p-us", "vpn", 1)
	matching.Spec.Tags = []string{"us", "fast"}
	wrongTag := readyProvider("p-eu", "vpn", 1)
	wrongTag.Spec.Tags = []string{"eu"}
	wrongNamespace := readyProvider("p-restricted", "vpn", 1)
	wrongNamespace.Spec.Tags = []string{"us"}
	wrongNamespace.Spec.Namespaces = []string{"team-b"}

	candidates, anyMatches := filterCandidates([]vpnv1.MaskProvider{*matching, *wrongTag, *wrongNamespace}, consumer)
	assert.True(t, anyMatches)
	require.Len(t, candidates, 1)
	assert.Equal(t, "p-us", candidates[0].Name)
}

func TestFilterCandidates_SaturatedStillCountsAsMatch(t *testing.T) {
	consumer := &vpnv1.MaskConsumer{}
	saturated := readyProvider("p1", "vpn", 1)
	saturated.Status.ActiveSlots = 1

	candidates, anyMatches := filterCandidates([]vpnv1.MaskProvider{*saturated}, consumer)
	assert.True(t, anyMatches)
	assert.Empty(t, candidates)
}

func TestSortCandidates_AscendingSlotsThenName(t *testing.T) {
	a := readyProvider("b-provider", "vpn", 4)
	a.Status.ActiveSlots = 1
	b := readyProvider("a-provider", "vpn", 4)
	b.Status.ActiveSlots = 1
	c := readyProvider("c-provider", "vpn", 4)
	c.Status.ActiveSlots = 0

	candidates := []vpnv1.MaskProvider{*a, *b, *c}
	sortCandidates(candidates)
	require.Len(t, candidates, 3)
	assert.Equal(t, "c-provider", candidates[0].Name)
	assert.Equal(t, "a-provider", candidates[1].Name)
	assert.Equal(t, "b-provider", candidates[2].Name)
}

func TestFirstFreeSlot(t *testing.T) {
	slot, ok := firstFreeSlot(map[uint]bool{0: true, 1: true}, 3)
	require.True(t, ok)
	assert.Equal(t, uint(2), slot)

	_, ok = firstFreeSlot(map[uint]bool{0: true, 1: true}, 2)
	assert.False(t, ok)
}
