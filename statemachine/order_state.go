package statemachine

import (
	"errors"
	"fmt"
	"strings"

	"food-ordering-api/models"
)

// Actor identifies who requests a status change
type Actor string

const (
	ActorCustomer Actor = "customer"
	// ActorOperator is a restaurant owner or an admin
	ActorOperator Actor = "operator"
)

// ErrInvalidTransition is returned for any status change the table does not allow
var ErrInvalidTransition = errors.New("invalid status transition")

// Transition defines a valid state change and who can perform it
type Transition struct {
	From  models.OrderStatus `json:"from"`
	To    models.OrderStatus `json:"to"`
	Actor Actor              `json:"actor"`
}

// Statuses lists the full vocabulary in lifecycle order
var Statuses = []models.OrderStatus{
	models.StatusPending,
	models.StatusPreparing,
	models.StatusOutForDelivery,
	models.StatusDelivered,
	models.StatusCancelled,
}

// ForwardStatuses are the values an operator may set directly
var ForwardStatuses = []models.OrderStatus{
	models.StatusPending,
	models.StatusPreparing,
	models.StatusOutForDelivery,
	models.StatusDelivered,
}

// validTransitions is the authoritative state machine definition.
// Operators are trusted: among non-terminal states they may jump forward or
// move backward freely. Nobody leaves Delivered or Cancelled.
var validTransitions = func() []Transition {
	ts := []Transition{
		{From: models.StatusPending, To: models.StatusCancelled, Actor: ActorCustomer},
	}
	for _, from := range ForwardStatuses {
		if IsTerminal(from) {
			continue
		}
		for _, to := range ForwardStatuses {
			if from == to {
				continue
			}
			ts = append(ts, Transition{From: from, To: to, Actor: ActorOperator})
		}
	}
	return ts
}()

type transitionKey struct {
	From  models.OrderStatus
	To    models.OrderStatus
	Actor Actor
}

var transitionMap = func() map[transitionKey]bool {
	m := make(map[transitionKey]bool)
	for _, t := range validTransitions {
		m[transitionKey{t.From, t.To, t.Actor}] = true
	}
	return m
}()

// IsKnown reports whether s belongs to the status vocabulary
func IsKnown(s models.OrderStatus) bool {
	for _, k := range Statuses {
		if k == s {
			return true
		}
	}
	return false
}

// IsForward reports whether s may be set by an operator
func IsForward(s models.OrderStatus) bool {
	for _, k := range ForwardStatuses {
		if k == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s
func IsTerminal(s models.OrderStatus) bool {
	return s == models.StatusDelivered || s == models.StatusCancelled
}

// ValidTransitionsFrom returns all valid next states from a given state
func ValidTransitionsFrom(status models.OrderStatus) []models.OrderStatus {
	var nexts []models.OrderStatus
	seen := map[models.OrderStatus]bool{}
	for _, t := range validTransitions {
		if t.From == status && !seen[t.To] {
			nexts = append(nexts, t.To)
			seen[t.To] = true
		}
	}
	return nexts
}

// ValidTransitionsFor returns the next states a specific actor may choose
func ValidTransitionsFor(status models.OrderStatus, actor Actor) []models.OrderStatus {
	var nexts []models.OrderStatus
	for _, t := range validTransitions {
		if t.From == status && t.Actor == actor {
			nexts = append(nexts, t.To)
		}
	}
	return nexts
}

// CanTransition checks if a given actor can move from one state to another.
// The returned error wraps ErrInvalidTransition.
func CanTransition(from, to models.OrderStatus, actor Actor) error {
	if transitionMap[transitionKey{From: from, To: to, Actor: actor}] {
		return nil
	}
	return fmt.Errorf("%w: %s → %s is not allowed for actor '%s'; valid transitions from %s are: %s",
		ErrInvalidTransition, from, to, actor, from, describeValidFrom(from, actor))
}

func describeValidFrom(status models.OrderStatus, actor Actor) string {
	if IsTerminal(status) {
		return "none (terminal state)"
	}
	nexts := ValidTransitionsFor(status, actor)
	if len(nexts) == 0 {
		return "none"
	}
	parts := make([]string, len(nexts))
	for i, s := range nexts {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

// GetAllTransitions returns the full state machine for documentation
func GetAllTransitions() []Transition {
	return validTransitions
}
