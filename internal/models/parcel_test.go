package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParcelStatusIsValid(t *testing.T) {
	valid := []ParcelStatus{
		StatusRequested, StatusApproved, StatusDispatched, StatusInTransit,
		StatusOutForDelivery, StatusDelivered, StatusCancelled, StatusReturned,
	}
	for _, s := range valid {
		assert.True(t, s.IsValid(), s)
	}

	assert.False(t, ParcelStatus("Teleported").IsValid())
	assert.False(t, ParcelStatus("").IsValid())
	// Enum values are case sensitive.
	assert.False(t, ParcelStatus("requested").IsValid())
}

func TestParcelStatusIsTerminal(t *testing.T) {
	assert.True(t, StatusDelivered.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.True(t, StatusReturned.IsTerminal())

	assert.False(t, StatusRequested.IsTerminal())
	assert.False(t, StatusOutForDelivery.IsTerminal())
}

func TestParcelStatusIsPastDispatch(t *testing.T) {
	assert.False(t, StatusRequested.IsPastDispatch())
	assert.False(t, StatusApproved.IsPastDispatch())
	assert.False(t, StatusCancelled.IsPastDispatch())

	assert.True(t, StatusDispatched.IsPastDispatch())
	assert.True(t, StatusInTransit.IsPastDispatch())
	assert.True(t, StatusOutForDelivery.IsPastDispatch())
	assert.True(t, StatusDelivered.IsPastDispatch())
}

func TestParcelStatusCanTransitionTo(t *testing.T) {
	// The forward delivery chain.
	assert.True(t, StatusRequested.CanTransitionTo(StatusApproved))
	assert.True(t, StatusApproved.CanTransitionTo(StatusDispatched))
	assert.True(t, StatusDispatched.CanTransitionTo(StatusInTransit))
	assert.True(t, StatusInTransit.CanTransitionTo(StatusOutForDelivery))
	assert.True(t, StatusOutForDelivery.CanTransitionTo(StatusDelivered))

	// No skipping ahead or moving backwards.
	assert.False(t, StatusRequested.CanTransitionTo(StatusDispatched))
	assert.False(t, StatusDelivered.CanTransitionTo(StatusRequested))
	assert.False(t, StatusApproved.CanTransitionTo(StatusRequested))

	// Returned is reachable from any non-terminal status only.
	assert.True(t, StatusRequested.CanTransitionTo(StatusReturned))
	assert.True(t, StatusOutForDelivery.CanTransitionTo(StatusReturned))
	assert.False(t, StatusDelivered.CanTransitionTo(StatusReturned))
	assert.False(t, StatusCancelled.CanTransitionTo(StatusReturned))
}

func TestParcelTypeIsValid(t *testing.T) {
	for _, pt := range []ParcelType{TypeDocument, TypePackage, TypeFragile, TypeElectronics, TypeFood, TypeOther} {
		assert.True(t, pt.IsValid(), pt)
	}
	assert.False(t, ParcelType("Livestock").IsValid())
}

func TestRoleIsValid(t *testing.T) {
	assert.True(t, RoleAdmin.IsValid())
	assert.True(t, RoleSender.IsValid())
	assert.True(t, RoleReceiver.IsValid())
	assert.False(t, Role("superuser").IsValid())
}
