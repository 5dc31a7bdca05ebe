package bill

import "github.com/billsforynab/bills/pkg/ynab"

type ratio struct {
	num, den int64
}

// occurrences per month, as a fraction
var perMonth = map[ynab.Frequency]ratio{
	ynab.Never:           {0, 1},
	ynab.Daily:           {365, 12},
	ynab.Weekly:          {52, 12},
	ynab.EveryOtherWeek:  {26, 12},
	ynab.TwiceAMonth:     {2, 1},
	ynab.Every4Weeks:     {13, 12},
	ynab.Monthly:         {1, 1},
	ynab.EveryOtherMonth: {1, 2},
	ynab.Every3Months:    {1, 3},
	ynab.Every4Months:    {1, 4},
	ynab.TwiceAYear:      {1, 6},
	ynab.Yearly:          {1, 12},
	ynab.EveryOtherYear:  {1, 24},
}

// MonthlyAmount normalizes amount (milliunits per occurrence) to milliunits per month, rounded half
// away from zero. Unknown frequencies count as never.
func MonthlyAmount(amount int64, frequency ynab.Frequency) int64 {
	r, ok := perMonth[frequency]
	if !ok {
		return 0
	}
	return roundDiv(amount*r.num, r.den)
}

func roundDiv(n, d int64) int64 {
	if n < 0 {
		return -((-n + d/2) / d)
	}
	return (n + d/2) / d
}
