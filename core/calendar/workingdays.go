package calendar

import "github.com/trezcool/shule/core"

// isWorkingDay reports whether d is a working day of the session.
// A WORKING_DAY entry wins over weekly off days & holidays.
func isWorkingDay(sess Session, entries []Entry, d core.Date) bool {
	if !sess.Contains(d) {
		return false
	}
	var holiday bool
	for _, e := range entries {
		if !e.Covers(d) {
			continue
		}
		switch e.Type {
		case TypeWorkingDay:
			return true
		case TypeHoliday:
			holiday = true
		}
	}
	return !holiday && !sess.WeeklyOffDays.Contains(d.ISOWeekday())
}

// workingDates lists the working days of the session between from and to (inclusive).
func workingDates(sess Session, entries []Entry, from, to core.Date) []core.Date {
	if from.Before(sess.StartDate) {
		from = sess.StartDate
	}
	if to.After(sess.EndDate) {
		to = sess.EndDate
	}
	var dates []core.Date
	for d := from; !d.After(to); d = d.AddDays(1) {
		if isWorkingDay(sess, entries, d) {
			dates = append(dates, d)
		}
	}
	return dates
}

// countWorkingDays counts the working days of the whole session.
func countWorkingDays(sess Session, entries []Entry) int {
	return len(workingDates(sess, entries, sess.StartDate, sess.EndDate))
}
