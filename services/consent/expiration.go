package consent

import "time"

// startOfDay truncates t to its calendar day.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ExpiredByDate reports whether the consent's validity window is over:
// today is strictly past ValidUntil.
func (c *Consent) ExpiredByDate(now time.Time) bool {
	return startOfDay(now).After(startOfDay(c.ValidUntil))
}

// NonRecurringAlreadyUsed reports whether a one-off consent was exercised
// on a previous calendar day. Non-recurring consents may only be used on
// the day of first use.
func (c *Consent) NonRecurringAlreadyUsed(now time.Time) bool {
	if c.RecurringIndicator {
		return false
	}
	today := startOfDay(now)
	for _, u := range c.Usages {
		if startOfDay(u.UsageDate).Before(today) {
			return true
		}
	}
	return false
}

// ShouldExpire decides whether a sweep must flip the consent to EXPIRED.
// TPP-issued funds-confirmation consents are exempt: they carry no
// validity window the bank enforces.
func (c *Consent) ShouldExpire(now time.Time) bool {
	if c.Type == TypePiisTpp {
		return false
	}
	if c.Status.Finalised() {
		return false
	}
	return c.ExpiredByDate(now) || c.NonRecurringAlreadyUsed(now)
}

// ConfirmationExpired reports whether a record still awaiting SCA has
// outlived the bank's confirmation timeout. Enforcement is pure wall-clock
// comparison, so it survives process restarts.
func (c *Consent) ConfirmationExpired(now time.Time, timeout time.Duration) bool {
	if c.Status != StatusReceived && c.Status != StatusPartiallyAuthorised {
		return false
	}
	return c.CreatedAt.Add(timeout).Before(now)
}

// EffectiveFrequency caps the TPP-requested daily access frequency at the
// bank's maximum.
func EffectiveFrequency(tppRequested, aspspMax int) int {
	if tppRequested < 0 {
		tppRequested = -tppRequested
	}
	if tppRequested < aspspMax {
		return tppRequested
	}
	return aspspMax
}
