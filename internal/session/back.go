package session

import (
	"context"

	"github.com/khidmaty/khidmaty/internal/model"
)

// handleBack steps the current flow to its previous prompt and discards
// everything collected at the current step and after, so moving forward
// again re-collects it. Backing out of the first step ends the flow.
func (d *Dispatcher) handleBack(ctx context.Context, actorID int64) ([]model.Reply, error) {
	sess := d.sessions.Get(actorID)
	if sess == nil {
		return []model.Reply{d.mainMenu(actorID, "Nothing to go back from.")}, nil
	}

	switch f := sess.Flow.(type) {
	case *ProviderRegistration:
		prev, ok := registrationPredecessor(f)
		if !ok {
			d.sessions.Clear(actorID)
			return []model.Reply{d.mainMenu(actorID, "Registration cancelled.")}, nil
		}
		if prev == f.Step {
			r := promptRegistration(actorID, f)
			r.Text = "Your coupon is already applied and cannot be returned, so this step cannot be undone. " + r.Text
			return []model.Reply{r}, nil
		}
		f.Step = prev
		discardRegistrationFrom(f, prev)
		d.sessions.Put(sess)
		return []model.Reply{promptRegistration(actorID, f)}, nil

	case *RequesterIntake:
		prev, ok := intakePredecessor(f)
		if !ok {
			d.sessions.Clear(actorID)
			return []model.Reply{d.mainMenu(actorID, "Request cancelled.")}, nil
		}
		f.Step = prev
		discardIntakeFrom(f, prev)
		d.sessions.Put(sess)
		return []model.Reply{promptIntake(actorID, f)}, nil

	case *SubscriptionActivation:
		switch f.Step {
		case ActivationStepTier:
			f.Step = ActivationStepCode
			f.TargetActorID = 0
			f.TargetName = ""
			f.Tier = model.TierNone
		case ActivationStepCoupon:
			f.Step = ActivationStepTier
			f.Tier = model.TierNone
		default:
			d.sessions.Clear(actorID)
			return []model.Reply{d.mainMenu(actorID, "Activation cancelled.")}, nil
		}
		d.sessions.Put(sess)
		return []model.Reply{promptActivation(actorID, f)}, nil
	}

	// single-step flows have nowhere to go back to
	d.sessions.Clear(actorID)
	return []model.Reply{d.mainMenu(actorID, "Cancelled.")}, nil
}

func registrationPredecessor(f *ProviderRegistration) (RegistrationStep, bool) {
	switch f.Step {
	case RegStepPhone:
		return RegStepName, true
	case RegStepCategory:
		return RegStepPhone, true
	case RegStepDivision:
		return RegStepCategory, true
	case RegStepTier:
		if f.Division != "" {
			return RegStepDivision, true
		}
		return RegStepCategory, true
	case RegStepCoupon:
		return RegStepTier, true
	case RegStepLocation:
		// the coupon is spent; re-entering the coupon step would demand a
		// second code, so back from here returns to the tier prompt only
		// when no coupon was consumed. It always was, so stay put.
		return RegStepLocation, true
	}
	return 0, false
}

func discardRegistrationFrom(f *ProviderRegistration, step RegistrationStep) {
	if step <= RegStepName {
		f.Name = ""
	}
	if step <= RegStepPhone {
		f.Phone = ""
	}
	if step <= RegStepCategory {
		f.Category = ""
		f.Division = ""
	}
	if step <= RegStepDivision {
		f.Division = ""
	}
	if step <= RegStepTier {
		f.Tier = model.TierNone
	}
}

func intakePredecessor(f *RequesterIntake) (IntakeStep, bool) {
	switch f.Step {
	case IntakeStepService:
		return IntakeStepGroup, true
	case IntakeStepDivision:
		if f.Group != "" && f.Group != f.Category {
			return IntakeStepService, true
		}
		return IntakeStepGroup, true
	case IntakeStepContact:
		if f.Division != "" {
			return IntakeStepDivision, true
		}
		if f.Group != "" && f.Group != f.Category {
			return IntakeStepService, true
		}
		return IntakeStepGroup, true
	case IntakeStepLocation:
		return IntakeStepContact, true
	case IntakeStepChoose:
		// the request is already persisted; backing out ends the flow
		return 0, false
	}
	return 0, false
}

func discardIntakeFrom(f *RequesterIntake, step IntakeStep) {
	if step <= IntakeStepGroup {
		f.Group = ""
	}
	if step <= IntakeStepService {
		f.Category = ""
	}
	if step <= IntakeStepDivision {
		f.Division = ""
	}
	if step <= IntakeStepContact {
		f.Phone = ""
	}
}
