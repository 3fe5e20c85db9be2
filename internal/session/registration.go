package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/khidmaty/khidmaty/internal/catalog"
	"github.com/khidmaty/khidmaty/internal/model"
	"github.com/khidmaty/khidmaty/internal/service"
	"github.com/khidmaty/khidmaty/internal/validator"
)

func (d *Dispatcher) registrationText(ctx context.Context, sess *Session, f *ProviderRegistration, e model.TextMessage) ([]model.Reply, error) {
	switch f.Step {
	case RegStepName:
		name := strings.TrimSpace(e.Text)
		if name == "" {
			return []model.Reply{model.NewReply(e.ActorID, "Please enter your full name:")}, nil
		}
		f.Name = name
		if err := d.saveRegistrationProgress(ctx, sess.ActorID, f); err != nil {
			return nil, err
		}
		f.Step = RegStepPhone
		d.sessions.Put(sess)
		return []model.Reply{promptRegistration(e.ActorID, f)}, nil

	case RegStepPhone:
		phone, err := validator.NormalizePhone(e.Text)
		if err != nil {
			return []model.Reply{model.NewReply(e.ActorID,
				"That does not look like a valid phone number. Please enter it in the form 09XXXXXXXX:")}, nil
		}
		f.Phone = phone
		if err := d.saveRegistrationProgress(ctx, sess.ActorID, f); err != nil {
			return nil, err
		}
		f.Step = RegStepCategory
		d.sessions.Put(sess)
		return []model.Reply{promptRegistration(e.ActorID, f)}, nil

	case RegStepCategory:
		svc, ok := catalog.ResolveService(e.Text)
		if !ok {
			r := promptRegistration(e.ActorID, f)
			r.Text = "I do not recognize that service. Pick one of the listed services:"
			return []model.Reply{r}, nil
		}
		f.Category = svc
		if err := d.saveRegistrationProgress(ctx, sess.ActorID, f); err != nil {
			return nil, err
		}
		if catalog.IsEducation(svc) {
			f.Step = RegStepDivision
		} else {
			f.Step = RegStepTier
		}
		d.sessions.Put(sess)
		return []model.Reply{promptRegistration(e.ActorID, f)}, nil

	case RegStepDivision:
		div, ok := catalog.ResolveDivision(e.Text)
		if !ok {
			r := promptRegistration(e.ActorID, f)
			r.Text = "Pick one of the listed teaching divisions:"
			return []model.Reply{r}, nil
		}
		f.Division = div
		if err := d.saveRegistrationProgress(ctx, sess.ActorID, f); err != nil {
			return nil, err
		}
		f.Step = RegStepTier
		d.sessions.Put(sess)
		return []model.Reply{promptRegistration(e.ActorID, f)}, nil

	case RegStepTier:
		// tier is normally picked via button; accept typed tier names too
		tier, ok := model.ParseTier(catalog.Normalize(e.Text))
		if !ok || tier == model.TierNone {
			return []model.Reply{promptRegistration(e.ActorID, f)}, nil
		}
		return d.registrationTierPicked(ctx, sess, f, tier)

	case RegStepCoupon:
		return d.registrationCoupon(ctx, sess, f, e)

	case RegStepLocation:
		return []model.Reply{promptRegistration(e.ActorID, f)}, nil
	}
	return []model.Reply{promptRegistration(e.ActorID, f)}, nil
}

// saveRegistrationProgress persists whatever the flow has collected so far.
// Called as each profile step completes, so an interrupted registration is
// resumable and already visible to the operator report; the save failing
// keeps the flow on the current step for a retry.
func (d *Dispatcher) saveRegistrationProgress(ctx context.Context, actorID int64, f *ProviderRegistration) error {
	_, err := d.registry.SaveProvider(ctx, &model.Provider{
		ActorID:  actorID,
		Name:     f.Name,
		Phone:    f.Phone,
		Category: f.Category,
		Division: f.Division,
	})
	return err
}

// registrationTierPicked moves to the coupon step. The profile row already
// exists from the per-step saves, so the redemption transaction has a
// provider to update.
func (d *Dispatcher) registrationTierPicked(ctx context.Context, sess *Session, f *ProviderRegistration, tier model.Tier) ([]model.Reply, error) {
	f.Tier = tier
	f.Step = RegStepCoupon
	d.sessions.Put(sess)
	return []model.Reply{promptRegistration(sess.ActorID, f)}, nil
}

func (d *Dispatcher) registrationCoupon(ctx context.Context, sess *Session, f *ProviderRegistration, e model.TextMessage) ([]model.Reply, error) {
	act, err := d.subs.Redeem(ctx, e.Text, sess.ActorID, f.Tier)
	if err != nil {
		if msg, ok := redeemRejection(err); ok {
			// keep the step; the actor can try another code or go back
			return []model.Reply{model.NewReply(e.ActorID, msg)}, nil
		}
		return nil, err
	}
	f.Step = RegStepLocation
	d.sessions.Put(sess)
	r := promptRegistration(e.ActorID, f)
	r.Text = fmt.Sprintf("Coupon accepted. Your %s subscription is active until %s.\n%s",
		act.Level, act.ExpiresAt.Format("2006-01-02"), r.Text)
	return []model.Reply{r}, nil
}

func (d *Dispatcher) finishRegistration(ctx context.Context, sess *Session, f *ProviderRegistration, e model.LocationShared) ([]model.Reply, error) {
	code, err := d.registry.SaveProvider(ctx, &model.Provider{
		ActorID:  e.ActorID,
		Name:     f.Name,
		Phone:    f.Phone,
		Category: f.Category,
		Division: f.Division,
		Location: &model.GeoPoint{Lat: e.Lat, Lon: e.Lon},
	})
	if err != nil {
		return nil, err
	}
	d.sessions.Clear(e.ActorID)
	return []model.Reply{model.NewReply(e.ActorID, fmt.Sprintf(
		"Registration complete. Your provider code is %d. Keep it: you will need it to check your stats and renew your subscription.", code))}, nil
}

// promptRegistration builds the prompt for the flow's current step. Back
// navigation reuses it so every step has exactly one prompt.
func promptRegistration(actorID int64, f *ProviderRegistration) model.Reply {
	switch f.Step {
	case RegStepName:
		return model.NewReply(actorID, "Provider registration. Please enter your full name:")
	case RegStepPhone:
		return model.NewReply(actorID, "Enter your phone number (09XXXXXXXX):")
	case RegStepCategory:
		r := model.NewReply(actorID, "Which service do you provide?")
		r.Choices = serviceChoices()
		return r
	case RegStepDivision:
		r := model.NewReply(actorID, "Which teaching division?")
		r.Choices = catalog.EducationDivisions()
		return r
	case RegStepTier:
		r := model.NewReply(actorID, "Choose a subscription tier:")
		r.Buttons = [][]model.Button{
			{{Label: "Gold (100, 32 days)", Payload: "pick_sub:gold"}},
			{{Label: "Silver (60, 30 days)", Payload: "pick_sub:silver"}},
		}
		return r
	case RegStepCoupon:
		return model.NewReply(actorID, fmt.Sprintf(
			"Enter your %s coupon code:", f.Tier))
	case RegStepLocation:
		r := model.NewReply(actorID,
			"Finally, share your work location so requesters near you can find you.")
		r.RequestLocation = true
		return r
	}
	return model.NewReply(actorID, "Provider registration. Please enter your full name:")
}

func serviceChoices() []string {
	var out []string
	for _, g := range catalog.Groups() {
		if len(g.Services) == 0 {
			out = append(out, g.Name)
			continue
		}
		out = append(out, g.Services...)
	}
	return out
}

// redeemRejection maps redemption sentinels to the message shown to the
// actor. The bool is false for non-domain failures, which propagate.
func redeemRejection(err error) (string, bool) {
	switch {
	case errors.Is(err, service.ErrCouponNotFound):
		return "No coupon matches that code. Check the spelling and try again:", true
	case errors.Is(err, service.ErrCouponUsed):
		return "That coupon has already been used. Enter a different code:", true
	case errors.Is(err, service.ErrTierMismatch):
		return "That coupon's amount does not match the chosen tier. Enter a matching code or go back and pick the other tier:", true
	case errors.Is(err, service.ErrProviderNotFound):
		return "No provider record found for this account. Complete registration first.", true
	}
	return "", false
}

func isRejection(err error) bool {
	return errors.Is(err, service.ErrNotAuthorized)
}
