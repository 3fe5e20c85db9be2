package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/khidmaty/khidmaty/internal/model"
	"github.com/khidmaty/khidmaty/internal/service"
)

func (d *Dispatcher) handleButton(ctx context.Context, e model.ButtonPressed) ([]model.Reply, error) {
	verb, arg, _ := strings.Cut(e.Payload, ":")
	switch verb {
	case "back":
		return d.handleBack(ctx, e.ActorID)
	case "pick_sub":
		return d.pickSubscription(ctx, e.ActorID, arg)
	case "pick_tier":
		return d.pickTier(e.ActorID, arg)
	case "select":
		return d.selectProvider(ctx, e.ActorID, arg)
	case "rate":
		return d.rateProvider(ctx, e.ActorID, arg)
	}
	return []model.Reply{model.NewReply(e.ActorID, "That button is no longer valid. Type /start for the menu.")}, nil
}

func (d *Dispatcher) pickSubscription(ctx context.Context, actorID int64, arg string) ([]model.Reply, error) {
	sess := d.sessions.Get(actorID)
	f, ok := flowAs[*ProviderRegistration](sess)
	if !ok || f.Step != RegStepTier {
		return []model.Reply{model.NewReply(actorID, "That button is no longer valid. Type /start for the menu.")}, nil
	}
	tier, ok := model.ParseTier(arg)
	if !ok || tier == model.TierNone {
		return []model.Reply{promptRegistration(actorID, f)}, nil
	}
	return d.registrationTierPicked(ctx, sess, f, tier)
}

func (d *Dispatcher) pickTier(actorID int64, arg string) ([]model.Reply, error) {
	sess := d.sessions.Get(actorID)
	f, ok := flowAs[*SubscriptionActivation](sess)
	if !ok || f.Step != ActivationStepTier {
		return []model.Reply{model.NewReply(actorID, "That button is no longer valid. Type /start for the menu.")}, nil
	}
	tier, ok := model.ParseTier(arg)
	if !ok || tier == model.TierNone {
		return []model.Reply{promptActivation(actorID, f)}, nil
	}
	return d.activationTierPicked(sess, f, tier)
}

func (d *Dispatcher) selectProvider(ctx context.Context, actorID int64, arg string) ([]model.Reply, error) {
	sess := d.sessions.Get(actorID)
	f, ok := flowAs[*RequesterIntake](sess)
	if !ok || f.Step != IntakeStepChoose {
		return []model.Reply{model.NewReply(actorID, "That list has expired. Type /start and request the service again.")}, nil
	}
	shortCode, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return []model.Reply{model.NewReply(actorID, "That button is no longer valid. Type /start for the menu.")}, nil
	}
	p, err := d.registry.ProviderByShortCode(ctx, shortCode)
	if err != nil {
		if errors.Is(err, service.ErrProviderNotFound) {
			return []model.Reply{model.NewReply(actorID, "That provider is no longer available. Pick another from the list.")}, nil
		}
		return nil, err
	}

	assignedID, err := d.matcher.Select(ctx, f.RequestID, p.ID)
	if err != nil {
		return nil, err
	}
	if assignedID != p.ID {
		// an earlier selection stands; repeat its details instead
		return []model.Reply{model.NewReply(actorID,
			"You already picked a provider for this request; the earlier choice stands.")}, nil
	}

	r := model.NewReply(actorID, fmt.Sprintf(
		"%s will take your request.\nPhone: %s\n\nAfter the work is done, you can rate them below.",
		p.Name, p.Phone))
	row := make([]model.Button, 0, 5)
	for score := 1; score <= 5; score++ {
		row = append(row, model.Button{
			Label:   strconv.Itoa(score),
			Payload: fmt.Sprintf("rate:%d:%d", p.ShortCode, score),
		})
	}
	r.Buttons = [][]model.Button{row}
	return []model.Reply{r}, nil
}

func (d *Dispatcher) rateProvider(ctx context.Context, actorID int64, arg string) ([]model.Reply, error) {
	codeStr, scoreStr, ok := strings.Cut(arg, ":")
	if !ok {
		return []model.Reply{model.NewReply(actorID, "That button is no longer valid. Type /start for the menu.")}, nil
	}
	shortCode, err := strconv.ParseInt(codeStr, 10, 64)
	if err != nil {
		return []model.Reply{model.NewReply(actorID, "That button is no longer valid. Type /start for the menu.")}, nil
	}
	score, err := strconv.Atoi(scoreStr)
	if err != nil {
		return []model.Reply{model.NewReply(actorID, "That button is no longer valid. Type /start for the menu.")}, nil
	}

	p, err := d.registry.ProviderByShortCode(ctx, shortCode)
	if err != nil {
		if errors.Is(err, service.ErrProviderNotFound) {
			return []model.Reply{model.NewReply(actorID, "That provider no longer exists.")}, nil
		}
		return nil, err
	}
	avg, count, err := d.matcher.Rate(ctx, p.ID, score)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRating) {
			return []model.Reply{model.NewReply(actorID, "Ratings go from 1 to 5.")}, nil
		}
		return nil, err
	}
	d.sessions.Clear(actorID)
	return []model.Reply{model.NewReply(actorID, fmt.Sprintf(
		"Thanks for the feedback. %s now averages %.1f/5 over %d rating(s).", p.Name, avg, count))}, nil
}

func flowAs[F Flow](sess *Session) (F, bool) {
	var zero F
	if sess == nil {
		return zero, false
	}
	f, ok := sess.Flow.(F)
	return f, ok
}
