package session

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/khidmaty/khidmaty/internal/catalog"
	"github.com/khidmaty/khidmaty/internal/model"
)

// Registry is the persisted provider/request surface the dispatcher needs.
type Registry interface {
	SaveProvider(ctx context.Context, p *model.Provider) (int64, error)
	ProviderByActorID(ctx context.Context, actorID int64) (*model.Provider, error)
	ProviderByShortCode(ctx context.Context, code int64) (*model.Provider, error)
	CreateRequest(ctx context.Context, req *model.ServiceRequest) error
}

// Matcher is the matching-engine surface the dispatcher needs.
type Matcher interface {
	FindProviders(ctx context.Context, category, division string, origin model.GeoPoint, maxDistanceKm float64, maxResults int) (model.MatchResult, error)
	MarkShown(ctx context.Context, result model.MatchResult) error
	Select(ctx context.Context, requestID, providerID int64) (int64, error)
	Rate(ctx context.Context, providerID int64, score int) (float64, int64, error)
}

// Subscriptions is the coupon-redemption surface the dispatcher needs.
type Subscriptions interface {
	Redeem(ctx context.Context, code string, redeemerID int64, desired model.Tier) (model.Activation, error)
}

// Admin is the operator-report surface the dispatcher needs.
type Admin interface {
	Report(ctx context.Context, callerID int64) ([]string, error)
}

// Config bounds the matching performed from requester intake.
type Config struct {
	MatchRadiusKm float64
	MaxResults    int
}

// Dispatcher interprets inbound events against each actor's session and
// drives the flows. One dispatcher serves all actors; the store is passed
// in, never global.
type Dispatcher struct {
	sessions *Store
	registry Registry
	matcher  Matcher
	subs     Subscriptions
	admin    Admin
	cfg      Config
}

// NewDispatcher wires a dispatcher over the session store and services.
func NewDispatcher(sessions *Store, registry Registry, matcher Matcher, subs Subscriptions, admin Admin, cfg Config) *Dispatcher {
	if cfg.MatchRadiusKm <= 0 {
		cfg.MatchRadiusKm = 40
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 50
	}
	return &Dispatcher{
		sessions: sessions,
		registry: registry,
		matcher:  matcher,
		subs:     subs,
		admin:    admin,
		cfg:      cfg,
	}
}

// Handle processes one inbound event and returns the replies to deliver.
// Unexpected failures are contained here: the error is logged with context,
// the actor gets a generic retry message, and the session is left as-is so
// the same step can be retried.
func (d *Dispatcher) Handle(ctx context.Context, ev model.Event) []model.Reply {
	replies, err := d.dispatch(ctx, ev)
	if err != nil {
		log.Error().
			Err(err).
			Int64("actor_id", ev.Actor()).
			Type("event", ev).
			Msg("event handling failed")
		return []model.Reply{model.NewReply(ev.Actor(),
			"Something went wrong on our side. Please try again, or type /start to return to the menu.")}
	}
	return replies
}

func (d *Dispatcher) dispatch(ctx context.Context, ev model.Event) ([]model.Reply, error) {
	switch e := ev.(type) {
	case model.TextMessage:
		return d.handleText(ctx, e)
	case model.ContactShared:
		return d.handleContact(ctx, e)
	case model.LocationShared:
		return d.handleLocation(ctx, e)
	case model.ButtonPressed:
		return d.handleButton(ctx, e)
	}
	return []model.Reply{d.mainMenu(ev.Actor(), "I did not understand that. Use the menu buttons or type /start.")}, nil
}

// Menu keywords, matched on normalized text. Typing any of these always
// interrupts an in-progress flow.
var (
	serviceKeys  = keySet("services", "service", "show services", "the services")
	registerKeys = keySet("register", "registration", "provider registration",
		"register as provider", "sign up as provider", "craftsman registration")
	activateKeys = keySet("activate", "activation", "activate subscription", "renew subscription")
	accountKeys  = keySet("my account", "account", "my stats")
	redeemKeys   = keySet("redeem", "redeem coupon", "redeem code")
	aboutKeys    = keySet("about", "about us", "who we are")
	contactKeys  = keySet("contact", "contact us", "call us", "reach us")
	startKeys    = keySet("start", "menu", "main menu")
	backKey      = "back"
	adminKey     = "conf"
)

func keySet(keys ...string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[catalog.Normalize(k)] = true
	}
	return m
}

func (d *Dispatcher) handleText(ctx context.Context, e model.TextMessage) ([]model.Reply, error) {
	norm := catalog.Normalize(e.Text)

	switch {
	case norm == backKey:
		return d.handleBack(ctx, e.ActorID)
	case startKeys[norm]:
		d.sessions.Clear(e.ActorID)
		return []model.Reply{d.mainMenu(e.ActorID, "Welcome to Khidmaty.")}, nil
	case serviceKeys[norm]:
		return d.startIntake(e.ActorID)
	case registerKeys[norm]:
		d.sessions.Put(&Session{ActorID: e.ActorID, Flow: &ProviderRegistration{Step: RegStepName}})
		return []model.Reply{model.NewReply(e.ActorID, "Provider registration. Please enter your full name:")}, nil
	case activateKeys[norm]:
		d.sessions.Put(&Session{ActorID: e.ActorID, Flow: &SubscriptionActivation{Step: ActivationStepCode}})
		return []model.Reply{model.NewReply(e.ActorID, "Enter your provider code (e.g. 2001) to activate or renew your subscription:")}, nil
	case accountKeys[norm]:
		d.sessions.Put(&Session{ActorID: e.ActorID, Flow: &AccountQuery{}})
		return []model.Reply{model.NewReply(e.ActorID, "Enter your provider code to see your stats:")}, nil
	case redeemKeys[norm]:
		d.sessions.Put(&Session{ActorID: e.ActorID, Flow: &CouponRedeem{}})
		return []model.Reply{model.NewReply(e.ActorID, "Enter the coupon code to redeem:")}, nil
	case aboutKeys[norm]:
		return []model.Reply{model.NewReply(e.ActorID,
			"Khidmaty connects requesters with nearby service providers. Pick a service, share your location, and we list the closest providers with their contact details. Free for requesters; providers pay a small subscription.")}, nil
	case contactKeys[norm]:
		return []model.Reply{model.NewReply(e.ActorID, "Support: 0916564000")}, nil
	case norm == adminKey:
		return d.adminReport(ctx, e.ActorID)
	}

	sess := d.sessions.Get(e.ActorID)
	if sess == nil {
		// No flow in progress: a typed category or service name starts
		// requester intake directly.
		return d.intakeFromFreeText(e)
	}

	switch f := sess.Flow.(type) {
	case *ProviderRegistration:
		return d.registrationText(ctx, sess, f, e)
	case *RequesterIntake:
		return d.intakeText(ctx, sess, f, e)
	case *SubscriptionActivation:
		return d.activationText(ctx, sess, f, e)
	case *AccountQuery:
		return d.accountText(ctx, sess, e)
	case *CouponRedeem:
		return d.redeemText(ctx, sess, e)
	}
	return []model.Reply{d.mainMenu(e.ActorID, "I did not understand that. Use the menu buttons or type /start.")}, nil
}

func (d *Dispatcher) handleContact(ctx context.Context, e model.ContactShared) ([]model.Reply, error) {
	sess := d.sessions.Get(e.ActorID)
	if sess == nil {
		return []model.Reply{model.NewReply(e.ActorID, "Start with /start and pick an option first.")}, nil
	}
	switch f := sess.Flow.(type) {
	case *ProviderRegistration:
		if f.Step == RegStepPhone {
			// providers must type their number; a contact card is not accepted
			return []model.Reply{model.NewReply(e.ActorID,
				"Please type your phone number manually in the form 09XXXXXXXX. Shared contacts are not accepted during registration.")}, nil
		}
	case *RequesterIntake:
		if f.Step == IntakeStepContact {
			return d.intakeContact(sess, f, e.ActorID, e.Phone)
		}
	}
	return []model.Reply{model.NewReply(e.ActorID, "I was not expecting a contact right now. Continue the current step or type /start.")}, nil
}

func (d *Dispatcher) handleLocation(ctx context.Context, e model.LocationShared) ([]model.Reply, error) {
	sess := d.sessions.Get(e.ActorID)
	if sess == nil {
		return []model.Reply{model.NewReply(e.ActorID, "To use your location: pick a service first, then share it when asked.")}, nil
	}
	switch f := sess.Flow.(type) {
	case *ProviderRegistration:
		if f.Step == RegStepLocation {
			return d.finishRegistration(ctx, sess, f, e)
		}
	case *RequesterIntake:
		if f.Step == IntakeStepLocation {
			return d.finishIntake(ctx, sess, f, e)
		}
	}
	return []model.Reply{model.NewReply(e.ActorID, "I was not expecting a location right now. Continue the current step or type /start.")}, nil
}

func (d *Dispatcher) mainMenu(actorID int64, text string) model.Reply {
	r := model.NewReply(actorID, text+"\nMain menu:")
	r.Choices = []string{
		"Services", "Provider Registration",
		"Activate Subscription", "My Account",
		"About Us", "Contact Us",
	}
	return r
}

func (d *Dispatcher) adminReport(ctx context.Context, actorID int64) ([]model.Reply, error) {
	chunks, err := d.admin.Report(ctx, actorID)
	if err != nil {
		if isRejection(err) {
			return []model.Reply{model.NewReply(actorID, "Operator-only command.")}, nil
		}
		return nil, err
	}
	replies := make([]model.Reply, len(chunks))
	for i, c := range chunks {
		replies[i] = model.NewReply(actorID, c)
	}
	return replies, nil
}
