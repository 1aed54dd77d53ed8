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

package mask

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

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
		WithStatusSubresource(&vpnv1.Mask{}, &vpnv1.MaskConsumer{}).
		WithRuntimeObjects(objs...)
}

func TestReconcile_AddsFinalizer(t *testing.T) {
	m := &vpnv1.Mask{
		ObjectMeta: metav1.ObjectMeta{Name: "m1", Namespace: "default"},
	}
	c := newFakeClient(t, m).Build()
	r := &Reconciler{Client: c, Scheme: c.Scheme()}

	req := ctrl.Request{NamespacedName: types.NamespacedName{Name: "m1", Namespace: "default"}}
	_, err := r.Reconcile(context.Background(), req)
	require.NoError(t, err)

	got := &vpnv1.Mask{}
	require.NoError(t, c.Get(context.Background(), req.NamespacedName, got))
	assert.True(t, finalizerutil.ContainsFinalizer(got.Finalizers, finalizerutil.MaskFinalizer))
}

func TestReconcile_CreatesOwnedConsumer(t *testing.T) {
	m := &vpnv1.Mask{
		ObjectMeta: metav1.ObjectMeta{Name: "m1", Namespace: "default", Finalizers: []string{finalizerutil.MaskFinalizer}},
		Spec:       vpnv1.MaskSpec{Providers: []string{"us"}},
	}
	c := newFakeClient(t, m).Build()
	r := &Reconciler{Client: c, Scheme: c.Scheme()}

	req := ctrl.Request{NamespacedName: types.NamespacedName{Name: "m1", Namespace: "default"}}
	_, err := r.Reconcile(context.Background(), req)
	require.NoError(t, err)

	consumer := &vpnv1.MaskConsumer{}
	require.NoError(t, c.Get(context.Background(), req.NamespacedName, consumer))
	assert.Equal(t, []string{"us"}, consumer.Spec.Providers)
	assert.True(t, metav1.IsControlledBy(consumer, m))
}

func TestReconcile_MirrorsConsumerPhase(t *testing.T) {
	m := &vpnv1.Mask{
		ObjectMeta: metav1.ObjectMeta{Name: "m1", Namespace: "default", Finalizers: []string{finalizerutil.MaskFinalizer}},
	}
	consumer := &vpnv1.MaskConsumer{
		ObjectMeta: metav1.ObjectMeta{Name: "m1", Namespace: "default"},
		Status:     vpnv1.MaskConsumerStatus{Phase: vpnv1.PhaseActive, Message: "assigned"},
	}
	require.NoError(t, controllerutil.SetControllerReference(m, consumer, testScheme(t)))

	c := newFakeClient(t, m, consumer).Build()
	r := &Reconciler{Client: c, Scheme: c.Scheme()}

	req := ctrl.Request{NamespacedName: types.NamespacedName{Name: "m1", Namespace: "default"}}
	_, err := r.Reconcile(context.Background(), req)
	require.NoError(t, err)

	got := &vpnv1.Mask{}
	require.NoError(t, c.Get(context.Background(), req.NamespacedName, got))
	assert.Equal(t, vpnv1.PhaseActive, got.Status.Phase)
	assert.Equal(t, "assigned", got.Status.Message)
}

func TestReconcile_DeletionDeletesConsumerThenFinalizer(t *testing.T) {
	now := metav1.Now()
	m := &vpnv1.Mask{
		ObjectMeta: metav1.ObjectMeta{
			Name: "m1", Namespace: "default",
			Finalizers:        []string{finalizerutil.MaskFinalizer},
			DeletionTimestamp: &now,
		},
	}
	// The consumer carries its own finalizer, as ConsumerCtrl always adds one,
	// so the delete leaves it in place with a DeletionTimestamp.
	consumer := &vpnv1.MaskConsumer{
		ObjectMeta: metav1.ObjectMeta{Name: "m1", Namespace: "default", Finalizers: []string{finalizerutil.MaskConsumerFinalizer}},
	}
	require.NoError(t, controllerutil.SetControllerReference(m, consumer, testScheme(t)))

	c := newFakeClient(t, m, consumer).Build()
	r := &Reconciler{Client: c, Scheme: c.Scheme()}

	req := ctrl.Request{NamespacedName: types.NamespacedName{Name: "m1", Namespace: "default"}}
	res, err := r.Reconcile(context.Background(), req)
	require.NoError(t, err)
	assert.Positive(t, res.RequeueAfter)

	gotConsumer := &vpnv1.MaskConsumer{}
	err = c.Get(context.Background(), req.NamespacedName, gotConsumer)
	require.NoError(t, err)
	assert.False(t, gotConsumer.DeletionTimestamp.IsZero())
}

func TestReconcile_DeletionRemovesFinalizerOnceConsumerGone(t *testing.T) {
	now := metav1.Now()
	m := &vpnv1.Mask{
		ObjectMeta: metav1.ObjectMeta{
			Name: "m1", Namespace: "default",
			Finalizers:        []string{finalizerutil.MaskFinalizer},
			DeletionTimestamp: &now,
		},
	}
	c := newFakeClient(t, m).Build()
	r := &Reconciler{Client: c, Scheme: c.Scheme()}

	req := ctrl.Request{NamespacedName: types.NamespacedName{Name: "m1", Namespace: "default"}}
	_, err := r.Reconcile(context.Background(), req)
	require.NoError(t, err)

	got := &vpnv1.Mask{}
	err = c.Get(context.Background(), req.NamespacedName, got)
	if err == nil {
		assert.False(t, finalizerutil.ContainsFinalizer(got.Finalizers, finalizerutil.MaskFinalizer))
	} else {
		assert.True(t, apierrors.IsNotFound(err))
	}
}
