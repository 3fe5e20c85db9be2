package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/khidmaty/khidmaty/internal/catalog"
	"github.com/khidmaty/khidmaty/internal/model"
	"github.com/khidmaty/khidmaty/internal/validator"
)

func (d *Dispatcher) startIntake(actorID int64) ([]model.Reply, error) {
	f := &RequesterIntake{Step: IntakeStepGroup}
	d.sessions.Put(&Session{ActorID: actorID, Flow: f})
	return []model.Reply{promptIntake(actorID, f)}, nil
}

// intakeFromFreeText lets an idle actor type a service or group name
// directly instead of walking the menu.
func (d *Dispatcher) intakeFromFreeText(e model.TextMessage) ([]model.Reply, error) {
	if svc, ok := catalog.ResolveService(e.Text); ok {
		f := &RequesterIntake{Category: svc}
		if g, found := catalog.GroupOf(svc); found {
			f.Group = g
		}
		if catalog.IsEducation(svc) {
			f.Step = IntakeStepDivision
		} else {
			f.Step = IntakeStepContact
		}
		d.sessions.Put(&Session{ActorID: e.ActorID, Flow: f})
		return []model.Reply{promptIntake(e.ActorID, f)}, nil
	}
	if g, ok := catalog.ResolveGroup(e.Text); ok {
		f := &RequesterIntake{Step: IntakeStepService, Group: g.Name}
		d.sessions.Put(&Session{ActorID: e.ActorID, Flow: f})
		return []model.Reply{promptIntake(e.ActorID, f)}, nil
	}
	return []model.Reply{d.mainMenu(e.ActorID, "I did not understand that. Use the menu buttons or type /start.")}, nil
}

func (d *Dispatcher) intakeText(ctx context.Context, sess *Session, f *RequesterIntake, e model.TextMessage) ([]model.Reply, error) {
	switch f.Step {
	case IntakeStepGroup:
		g, ok := catalog.ResolveGroup(e.Text)
		if !ok {
			r := promptIntake(e.ActorID, f)
			r.Text = "Pick one of the listed categories:"
			return []model.Reply{r}, nil
		}
		f.Group = g.Name
		if len(g.Services) == 0 {
			f.Category = g.Name
			if catalog.IsEducation(g.Name) {
				f.Step = IntakeStepDivision
			} else {
				f.Step = IntakeStepContact
			}
		} else {
			f.Step = IntakeStepService
		}
		d.sessions.Put(sess)
		return []model.Reply{promptIntake(e.ActorID, f)}, nil

	case IntakeStepService:
		svc, ok := catalog.ResolveService(e.Text)
		if !ok {
			r := promptIntake(e.ActorID, f)
			r.Text = "Pick one of the listed services:"
			return []model.Reply{r}, nil
		}
		f.Category = svc
		if catalog.IsEducation(svc) {
			f.Step = IntakeStepDivision
		} else {
			f.Step = IntakeStepContact
		}
		d.sessions.Put(sess)
		return []model.Reply{promptIntake(e.ActorID, f)}, nil

	case IntakeStepDivision:
		div, ok := catalog.ResolveDivision(e.Text)
		if !ok {
			r := promptIntake(e.ActorID, f)
			r.Text = "Pick one of the listed teaching divisions:"
			return []model.Reply{r}, nil
		}
		f.Division = div
		f.Step = IntakeStepContact
		d.sessions.Put(sess)
		return []model.Reply{promptIntake(e.ActorID, f)}, nil

	case IntakeStepContact:
		return d.intakeContact(sess, f, e.ActorID, e.Text)

	case IntakeStepLocation:
		return []model.Reply{promptIntake(e.ActorID, f)}, nil

	case IntakeStepChoose:
		// provider details are only revealed through the select buttons
		if _, err := strconv.ParseInt(strings.TrimSpace(e.Text), 10, 64); err == nil {
			return []model.Reply{model.NewReply(e.ActorID,
				"Please use the buttons under the list to pick a provider; typed codes are not accepted here.")}, nil
		}
		return []model.Reply{model.NewReply(e.ActorID,
			"Pick a provider with the buttons above, or type /start for the menu.")}, nil
	}
	return []model.Reply{promptIntake(e.ActorID, f)}, nil
}

func (d *Dispatcher) intakeContact(sess *Session, f *RequesterIntake, actorID int64, raw string) ([]model.Reply, error) {
	phone, err := validator.NormalizePhone(raw)
	if err != nil {
		return []model.Reply{model.NewReply(actorID,
			"That does not look like a valid phone number. Enter it in the form 09XXXXXXXX, or share your contact:")}, nil
	}
	f.Phone = phone
	f.Step = IntakeStepLocation
	d.sessions.Put(sess)
	return []model.Reply{promptIntake(actorID, f)}, nil
}

func (d *Dispatcher) finishIntake(ctx context.Context, sess *Session, f *RequesterIntake, e model.LocationShared) ([]model.Reply, error) {
	req := &model.ServiceRequest{
		ActorID:  e.ActorID,
		Category: f.Category,
		Division: f.Division,
		Phone:    f.Phone,
		Location: model.GeoPoint{Lat: e.Lat, Lon: e.Lon},
	}
	if err := d.registry.CreateRequest(ctx, req); err != nil {
		return nil, err
	}

	origin := model.GeoPoint{Lat: e.Lat, Lon: e.Lon}
	result, err := d.matcher.FindProviders(ctx, f.Category, f.Division, origin, d.cfg.MatchRadiusKm, d.cfg.MaxResults)
	if err != nil {
		return nil, err
	}
	if len(result.Matches) == 0 {
		d.sessions.Clear(e.ActorID)
		return []model.Reply{model.NewReply(e.ActorID, fmt.Sprintf(
			"Your request %s is recorded, but no %s providers are available within %.0f km yet. We will keep your request on file.",
			req.Reference, f.Category, d.cfg.MatchRadiusKm))}, nil
	}

	reply := buildMatchReply(e.ActorID, f.Category, result)
	// counters move only once the list is actually going out
	if err := d.matcher.MarkShown(ctx, result); err != nil {
		return nil, err
	}
	f.RequestID = req.ID
	f.Step = IntakeStepChoose
	d.sessions.Put(sess)
	return []model.Reply{reply}, nil
}

func buildMatchReply(actorID int64, category string, result model.MatchResult) model.Reply {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d %s provider(s) near you:\n", result.Total, category)
	buttons := make([][]model.Button, 0, len(result.Matches))
	for i, m := range result.Matches {
		fmt.Fprintf(&b, "\n%d. %s, %.1f km away", i+1, m.Provider.Name, m.DistanceKm)
		if m.Provider.RatingsReceived > 0 {
			fmt.Fprintf(&b, ", rated %.1f/5 (%d)", m.Provider.AvgRating, m.Provider.RatingsReceived)
		}
		buttons = append(buttons, []model.Button{{
			Label:   fmt.Sprintf("%d. %s", i+1, m.Provider.Name),
			Payload: fmt.Sprintf("select:%d", m.Provider.ShortCode),
		}})
	}
	if result.Truncated {
		fmt.Fprintf(&b, "\n\nShowing the closest %d of %d.", len(result.Matches), result.Total)
	}
	b.WriteString("\n\nTap a provider to get their contact details.")
	r := model.NewReply(actorID, b.String())
	r.Buttons = buttons
	return r
}

func promptIntake(actorID int64, f *RequesterIntake) model.Reply {
	switch f.Step {
	case IntakeStepGroup:
		r := model.NewReply(actorID, "What kind of service do you need?")
		for _, g := range catalog.Groups() {
			r.Choices = append(r.Choices, g.Name)
		}
		return r
	case IntakeStepService:
		r := model.NewReply(actorID, fmt.Sprintf("%s. Which service exactly?", f.Group))
		for _, g := range catalog.Groups() {
			if g.Name == f.Group {
				r.Choices = append(r.Choices, g.Services...)
			}
		}
		return r
	case IntakeStepDivision:
		r := model.NewReply(actorID, "Which teaching division do you need?")
		r.Choices = catalog.EducationDivisions()
		return r
	case IntakeStepContact:
		r := model.NewReply(actorID, "Enter a phone number the provider can reach you on, or share your contact:")
		r.RequestContact = true
		return r
	case IntakeStepLocation:
		r := model.NewReply(actorID, "Share your location so we can find the nearest providers:")
		r.RequestLocation = true
		return r
	}
	r := model.NewReply(actorID, "What kind of service do you need?")
	for _, g := range catalog.Groups() {
		r.Choices = append(r.Choices, g.Name)
	}
	return r
}
