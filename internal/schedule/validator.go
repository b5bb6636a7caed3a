// Package schedule decides whether a proposed interview time is acceptable.
//
// Rules run in a fixed order and the first failure wins:
//
//	NotInPast             the slot is strictly after now
//	NoWeekends            the local day is Monday through Friday
//	OutsideBusinessHours  the local hour is in [9, 18)
//	InvalidMeetingLink    reschedule only; a supplied link is an absolute URL
package schedule

import (
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/recruitflow/internal/apperr"
	"github.com/starford/recruitflow/internal/models"
)

// Business hours, local time. EndHour is exclusive.
const (
	StartHour = 9
	EndHour   = 18
)

// Validator evaluates scheduling rules against an injected clock in a fixed
// business timezone.
type Validator struct {
	clock Clock
	loc   *time.Location
}

// NewValidator creates a Validator. A nil clock uses SystemClock and a nil
// location uses time.Local.
func NewValidator(clock Clock, loc *time.Location) *Validator {
	if clock == nil {
		clock = SystemClock{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &Validator{clock: clock, loc: loc}
}

// Location returns the business timezone.
func (v *Validator) Location() *time.Location { return v.loc }

// Now returns the injected clock's time in the business timezone.
func (v *Validator) Now() time.Time { return v.clock.Now().In(v.loc) }

// Validate checks a proposed slot. existing is the interview being
// rescheduled, or nil for a new one; only reschedules check the link.
// It returns nil or a *apperr.ScheduleRejectedError.
func (v *Validator) Validate(at time.Time, link string, existing *models.Interview) error {
	if reason, ok := v.check(at, link, existing != nil); !ok {
		return &apperr.ScheduleRejectedError{Reason: reason}
	}
	return nil
}

func (v *Validator) check(at time.Time, link string, checkLink bool) (apperr.ScheduleReason, bool) {
	if !at.After(v.clock.Now()) {
		return apperr.ReasonNotInPast, false
	}
	local := at.In(v.loc)
	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return apperr.ReasonNoWeekends, false
	}
	if h := local.Hour(); h < StartHour || h >= EndHour {
		return apperr.ReasonOutsideBusinessHours, false
	}
	if checkLink && !ValidMeetingLink(link) {
		return apperr.ReasonInvalidMeetingLink, false
	}
	return "", true
}

// ValidMeetingLink reports whether link is empty or an absolute URL with a host.
func ValidMeetingLink(link string) bool {
	if link == "" {
		return true
	}
	if err := validation.Validate(link, is.RequestURL); err != nil {
		return false
	}
	u, err := url.Parse(link)
	return err == nil && u.IsAbs() && u.Host != ""
}

// Rules describes the active rules, in evaluation order.
func (v *Validator) Rules() []Rule {
	return []Rule{
		{Reason: apperr.ReasonNotInPast, Description: "the interview must start strictly after the current time"},
		{Reason: apperr.ReasonNoWeekends, Description: "the interview must fall on Monday through Friday in " + v.loc.String()},
		{Reason: apperr.ReasonOutsideBusinessHours, Description: "the interview must start between 09:00 and 17:59 in " + v.loc.String()},
		{Reason: apperr.ReasonInvalidMeetingLink, Description: "on reschedule, a supplied meeting link must be an absolute URL"},
	}
}

// Rule is a human-readable rule description.
type Rule struct {
	Reason      apperr.ScheduleReason `json:"reason"`
	Description string                `json:"description"`
}
