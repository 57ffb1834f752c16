package markethours

import "time"

// NYSE full-day holidays. Early-close half days are treated as regular
// sessions; the broker rejects anything after the early close.
var holidays = map[string]bool{
	// 2025
	"2025-01-01": true, // New Year's Day
	"2025-01-20": true, // Martin Luther King Jr. Day
	"2025-02-17": true, // Washington's Birthday
	"2025-04-18": true, // Good Friday
	"2025-05-26": true, // Memorial Day
	"2025-06-19": true, // Juneteenth
	"2025-07-04": true, // Independence Day
	"2025-09-01": true, // Labor Day
	"2025-11-27": true, // Thanksgiving Day
	"2025-12-25": true, // Christmas Day

	// 2026
	"2026-01-01": true,
	"2026-01-19": true,
	"2026-02-16": true,
	"2026-04-03": true,
	"2026-05-25": true,
	"2026-06-19": true,
	"2026-07-03": true, // Independence Day (observed)
	"2026-09-07": true,
	"2026-11-26": true,
	"2026-12-25": true,
}

// IsHoliday returns true if t (in exchange-local time) is a full-day
// market holiday.
func IsHoliday(t time.Time) bool {
	return holidays[t.In(eastern).Format("2006-01-02")]
}
