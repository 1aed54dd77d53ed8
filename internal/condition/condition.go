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

// Package condition wraps apimachinery's status condition helpers so every
// controller sets Type/Status/Reason/Message/ObservedGeneration the same
// way.
package condition

import (
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Set adds or updates a condition, stamping LastTransitionTime and the
// observed generation.
func Set(conditions *[]metav1.Condition, generation int64, conditionType string, status metav1.ConditionStatus, reason, message string) {
	meta.SetStatusCondition(conditions, metav1.Condition{
		Type:               conditionType,
		Status:             status,
		Reason:             reason,
		Message:            message,
		ObservedGeneration: generation,
		LastTransitionTime: metav1.Now(),
	})
}

// True sets conditionType to status True.
func True(conditions *[]metav1.Condition, generation int64, conditionType, reason, message string) {
	Set(conditions, generation, conditionType, metav1.ConditionTrue, reason, message)
}

// False sets conditionType to status False.
func False(conditions *[]metav1.Condition, generation int64, conditionType, reason, message string) {
	Set(conditions, generation, conditionType, metav1.ConditionFalse, reason, message)
}

// Unknown sets conditionType to status Unknown.
func Unknown(conditions *[]metav1.Condition, generation int64, conditionType, reason, message string) {
	Set(conditions, generation, conditionType, metav1.ConditionUnknown, reason, message)
}

// Remove deletes conditionType from the slice if present.
func Remove(conditions *[]metav1.Condition, conditionType string) {
	meta.RemoveStatusCondition(conditions, conditionType)
}

// Get returns the condition of the given type, or nil.
func Get(conditions []metav1.Condition, conditionType string) *metav1.Condition {
	return meta.FindStatusCondition(conditions, conditionType)
}

// IsTrue reports whether conditionType is present with status True.
func IsTrue(conditions []metav1.Condition, conditionType string) bool {
	return meta.IsStatusConditionTrue(conditions, conditionType)
}

// IsFalse reports whether conditionType is present with status False.
func IsFalse(conditions []metav1.Condition, conditionType string) bool {
	return meta.IsStatusConditionFalse(conditions, conditionType)
}

// Condition type names shared across controllers.
const (
	// TypeScheduled records whether a MaskConsumer has an assigned provider.
	TypeScheduled = "Scheduled"
	// TypeReady records whether the published assignment is currently usable.
	TypeReady = "Ready"
	// TypeVerified records the outcome of a MaskProvider's last probe.
	TypeVerified = "Verified"
	// TypeCapacity records whether a MaskProvider has free slots.
	TypeCapacity = "HasCapacity"
	// TypeClaimed records whether a MaskReservation's slot claim is active.
	TypeClaimed = "Claimed"
)
