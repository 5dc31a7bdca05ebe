package ynab

import "slices"

type Frequency string

const (
	Never           Frequency = "never"
	Daily           Frequency = "daily"
	Weekly          Frequency = "weekly"
	EveryOtherWeek  Frequency = "everyOtherWeek"
	TwiceAMonth     Frequency = "twiceAMonth"
	Every4Weeks     Frequency = "every4Weeks"
	Monthly         Frequency = "monthly"
	EveryOtherMonth Frequency = "everyOtherMonth"
	Every3Months    Frequency = "every3Months"
	Every4Months    Frequency = "every4Months"
	TwiceAYear      Frequency = "twiceAYear"
	Yearly          Frequency = "yearly"
	EveryOtherYear  Frequency = "everyOtherYear"
)

// SupportedFrequencies are accepted by YNAB when saving a scheduled transaction.
var SupportedFrequencies = []Frequency{Daily, Weekly, Monthly, Yearly}

// UnsupportedFrequencies are returned by YNAB but rejected when saving.
var UnsupportedFrequencies = []Frequency{
	EveryOtherWeek,
	TwiceAMonth,
	Every4Weeks,
	EveryOtherMonth,
	Every3Months,
	Every4Months,
	TwiceAYear,
}

// NormalizeFrequency drops frequencies YNAB cannot save; the empty result is left out of payloads.
// Anything else, unknown values included, passes through unchanged.
func NormalizeFrequency(f Frequency) Frequency {
	if slices.Contains(UnsupportedFrequencies, f) {
		return ""
	}
	return f
}
