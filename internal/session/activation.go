package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/khidmaty/khidmaty/internal/catalog"
	"github.com/khidmaty/khidmaty/internal/model"
	"github.com/khidmaty/khidmaty/internal/service"
)

func (d *Dispatcher) activationText(ctx context.Context, sess *Session, f *SubscriptionActivation, e model.TextMessage) ([]model.Reply, error) {
	switch f.Step {
	case ActivationStepCode:
		code, err := strconv.ParseInt(strings.TrimSpace(e.Text), 10, 64)
		if err != nil {
			return []model.Reply{model.NewReply(e.ActorID,
				"Provider codes are numbers, e.g. 2001. Enter yours:")}, nil
		}
		p, err := d.registry.ProviderByShortCode(ctx, code)
		if err != nil {
			if errors.Is(err, service.ErrProviderNotFound) {
				return []model.Reply{model.NewReply(e.ActorID,
					"No provider with that code. Check the number and try again:")}, nil
			}
			return nil, err
		}
		f.TargetActorID = p.ActorID
		f.TargetName = p.Name
		f.Step = ActivationStepTier
		d.sessions.Put(sess)
		return []model.Reply{promptActivation(e.ActorID, f)}, nil

	case ActivationStepTier:
		tier, ok := model.ParseTier(catalog.Normalize(e.Text))
		if !ok || tier == model.TierNone {
			return []model.Reply{promptActivation(e.ActorID, f)}, nil
		}
		return d.activationTierPicked(sess, f, tier)

	case ActivationStepCoupon:
		act, err := d.subs.Redeem(ctx, e.Text, f.TargetActorID, f.Tier)
		if err != nil {
			if msg, ok := redeemRejection(err); ok {
				return []model.Reply{model.NewReply(e.ActorID, msg)}, nil
			}
			return nil, err
		}
		d.sessions.Clear(e.ActorID)
		return []model.Reply{model.NewReply(e.ActorID, fmt.Sprintf(
			"Done. %s's %s subscription is active until %s.",
			f.TargetName, act.Level, act.ExpiresAt.Format("2006-01-02")))}, nil
	}
	return []model.Reply{promptActivation(e.ActorID, f)}, nil
}

func (d *Dispatcher) activationTierPicked(sess *Session, f *SubscriptionActivation, tier model.Tier) ([]model.Reply, error) {
	f.Tier = tier
	f.Step = ActivationStepCoupon
	d.sessions.Put(sess)
	return []model.Reply{promptActivation(sess.ActorID, f)}, nil
}

func promptActivation(actorID int64, f *SubscriptionActivation) model.Reply {
	switch f.Step {
	case ActivationStepCode:
		return model.NewReply(actorID, "Enter your provider code (e.g. 2001) to activate or renew your subscription:")
	case ActivationStepTier:
		r := model.NewReply(actorID, fmt.Sprintf("Renewing for %s. Choose the tier:", f.TargetName))
		r.Buttons = [][]model.Button{
			{{Label: "Gold (100, 32 days)", Payload: "pick_tier:gold"}},
			{{Label: "Silver (60, 30 days)", Payload: "pick_tier:silver"}},
		}
		return r
	case ActivationStepCoupon:
		return model.NewReply(actorID, fmt.Sprintf("Enter the %s coupon code:", f.Tier))
	}
	return model.NewReply(actorID, "Enter your provider code (e.g. 2001) to activate or renew your subscription:")
}

func (d *Dispatcher) accountText(ctx context.Context, sess *Session, e model.TextMessage) ([]model.Reply, error) {
	code, err := strconv.ParseInt(strings.TrimSpace(e.Text), 10, 64)
	if err != nil {
		return []model.Reply{model.NewReply(e.ActorID,
			"Provider codes are numbers, e.g. 2001. Enter yours:")}, nil
	}
	p, err := d.registry.ProviderByShortCode(ctx, code)
	if err != nil {
		if errors.Is(err, service.ErrProviderNotFound) {
			return []model.Reply{model.NewReply(e.ActorID,
				"No provider with that code. Check the number and try again:")}, nil
		}
		return nil, err
	}
	if p.ActorID != e.ActorID {
		return []model.Reply{model.NewReply(e.ActorID,
			"That code belongs to a different account.")}, nil
	}
	d.sessions.Clear(e.ActorID)
	return []model.Reply{model.NewReply(e.ActorID, accountSummary(p))}, nil
}

func accountSummary(p *model.Provider) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (code %d)\n", p.Name, p.ShortCode)
	fmt.Fprintf(&b, "Service: %s", p.Category)
	if p.Division != "" {
		fmt.Fprintf(&b, " (%s)", p.Division)
	}
	b.WriteString("\n")
	if p.ExpiresAt != nil && p.Level != model.TierNone {
		fmt.Fprintf(&b, "Subscription: %s until %s\n", p.Level, p.ExpiresAt.Format("2006-01-02"))
	} else {
		b.WriteString("Subscription: inactive\n")
	}
	fmt.Fprintf(&b, "Shown to requesters: %d times\nSelected: %d times\n", p.TimesShown, p.TimesSelected)
	if p.RatingsReceived > 0 {
		fmt.Fprintf(&b, "Rating: %.1f/5 from %d rating(s)", p.AvgRating, p.RatingsReceived)
	} else {
		b.WriteString("Rating: none yet")
	}
	return b.String()
}

func (d *Dispatcher) redeemText(ctx context.Context, sess *Session, e model.TextMessage) ([]model.Reply, error) {
	// tier is inferred from the coupon's face amount
	act, err := d.subs.Redeem(ctx, e.Text, e.ActorID, model.TierNone)
	if err != nil {
		if msg, ok := redeemRejection(err); ok {
			return []model.Reply{model.NewReply(e.ActorID, msg)}, nil
		}
		return nil, err
	}
	d.sessions.Clear(e.ActorID)
	return []model.Reply{model.NewReply(e.ActorID, fmt.Sprintf(
		"Coupon accepted. Your %s subscription is active until %s.",
		act.Level, act.ExpiresAt.Format("2006-01-02")))}, nil
}
