package core

import "errors"

var (
	// ErrAlreadyExists is returned when an Invite or Build target name is taken.
	ErrAlreadyExists = errors.New("already exists")
	// ErrUnknownTarget is returned when a Talk or Use target is not registered.
	ErrUnknownTarget = errors.New("unknown target")
	// ErrUnknownActionType is returned for action types outside ActionTypes.
	ErrUnknownActionType = errors.New("unknown action type")
	// ErrInvalidName is returned for agent names that cannot be carried on the wire.
	ErrInvalidName = errors.New("invalid name")
	// ErrInvalidPlan is returned when a planning round does not form a DAG.
	ErrInvalidPlan = errors.New("invalid plan")
)
