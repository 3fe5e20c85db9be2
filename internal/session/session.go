// Package session implements the per-actor dialogue state machine. Sessions
// are transient: they live in memory, are keyed by actor id, and are
// discarded on flow completion, reset, or process restart. All durable
// effects go through the service layer.
package session

import (
	"sync"

	"github.com/khidmaty/khidmaty/internal/model"
)

// Flow is the tagged variant of an in-progress dialogue. Each variant
// carries only the step enum and fields its own role needs, so a session
// cannot hold state that its flow has no step for.
type Flow interface {
	isFlow()
}

// RegistrationStep enumerates the provider-registration dialogue in order.
type RegistrationStep int

const (
	RegStepName RegistrationStep = iota
	RegStepPhone
	RegStepCategory
	RegStepDivision // education only
	RegStepTier
	RegStepCoupon
	RegStepLocation
)

// ProviderRegistration collects a provider profile field by field. Name,
// phone and category are persisted as soon as they complete; location is
// the terminal step.
type ProviderRegistration struct {
	Step     RegistrationStep
	Name     string
	Phone    string
	Category string
	Division string
	Tier     model.Tier
}

func (*ProviderRegistration) isFlow() {}

// IntakeStep enumerates the requester-intake dialogue in order.
type IntakeStep int

const (
	IntakeStepGroup IntakeStep = iota
	IntakeStepService
	IntakeStepDivision // education only
	IntakeStepContact
	IntakeStepLocation
	IntakeStepChoose // matches delivered, awaiting selection/rating
)

// RequesterIntake collects a service request. After matches are delivered
// the flow parks at IntakeStepChoose holding the persisted request id so
// select buttons can bind to it.
type RequesterIntake struct {
	Step      IntakeStep
	Group     string
	Category  string
	Division  string
	Phone     string
	RequestID int64
}

func (*RequesterIntake) isFlow() {}

// ActivationStep enumerates the subscription re-activation dialogue.
type ActivationStep int

const (
	ActivationStepCode ActivationStep = iota
	ActivationStepTier
	ActivationStepCoupon
)

// SubscriptionActivation re-activates an existing provider found by short
// code, possibly on behalf of someone else (an operator topping up a
// provider).
type SubscriptionActivation struct {
	Step          ActivationStep
	TargetActorID int64
	TargetName    string
	Tier          model.Tier
}

func (*SubscriptionActivation) isFlow() {}

// AccountQuery awaits a provider short code and replies with stats.
type AccountQuery struct{}

func (*AccountQuery) isFlow() {}

// CouponRedeem is the bare redeem flow: one code, tier inferred from the
// face amount.
type CouponRedeem struct{}

func (*CouponRedeem) isFlow() {}

// Session is one actor's transient dialogue state.
type Session struct {
	ActorID int64
	Flow    Flow
}

// Store keeps sessions keyed by actor id. Events for one actor arrive
// serialized, so the lock only guards the map against unrelated actors.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[int64]*Session)}
}

// Get returns the actor's session, or nil when none is in progress.
func (s *Store) Get(actorID int64) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[actorID]
}

// Put stores or replaces the actor's session.
func (s *Store) Put(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ActorID] = sess
}

// Clear discards the actor's session.
func (s *Store) Clear(actorID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, actorID)
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
