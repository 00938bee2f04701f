package mortar

import (
	"errors"
)

// ErrEmptyActionType is returned when an action is created without a type.
var ErrEmptyActionType = errors.New("form: action type must not be empty")

// Typed is implemented by every [Action], regardless of its payload type.
type Typed interface {
	ActionType() string
}

// Action associates a payload with a fixed action type. The payload is held by
// value and is never modified; the action type is not a field of the payload
// and so cannot collide with payload data.
type Action[T any] struct {
	Payload T

	actionType string
}

// MakeAction returns an Action carrying payload whose [Action.String] method
// returns exactly actionType.
func MakeAction[T any](payload T, actionType string) (Action[T], error) {
	if actionType == "" {
		return Action[T]{}, ErrEmptyActionType
	}
	return Action[T]{Payload: payload, actionType: actionType}, nil
}

// MustAction is like [MakeAction] but panics if actionType is empty. It is
// intended for package level action declarations.
func MustAction[T any](payload T, actionType string) Action[T] {
	a, err := MakeAction(payload, actionType)
	if err != nil {
		panic(err)
	}
	return a
}

// String returns the action type.
func (a Action[T]) String() string {
	return a.actionType
}

// ActionType returns the action type.
func (a Action[T]) ActionType() string {
	return a.actionType
}

// Retag returns a copy of a with a different action type. a itself is left
// unchanged.
func (a Action[T]) Retag(actionType string) (Action[T], error) {
	return MakeAction(a.Payload, actionType)
}

// MarshalJSON encodes the payload alone.
func (a Action[T]) MarshalJSON() ([]byte, error) {
	return jsonAPI.Marshal(a.Payload)
}
