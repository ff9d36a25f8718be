package alerts

import (
	"time"

	"github.com/faceguard/core/internal/domain"
)

// Matches implements the conjunction spec.md §4.6 describes: all
// configured conditions must hold, with AnyPerson evaluated last so it can
// short-circuit a match regardless of the other predicates. ExcludedPersons
// is an absolute veto that AnyPerson does not override — an excluded
// person must never alert no matter how broadly a rule is scoped.
// Departments and MinAccessLevel are not checked: a rule that sets them
// matches as if they were unset.
func Matches(cond domain.TriggerConditions, personID, cameraID string, confidence float64, now time.Time) bool {
	if cond.ExcludedPersons[personID] {
		return false
	}

	allMatch := true
	if len(cond.PersonIDs) > 0 && !cond.PersonIDs[personID] {
		allMatch = false
	}
	if len(cond.CameraIDs) > 0 && !cond.CameraIDs[cameraID] {
		allMatch = false
	}
	if cond.ConfidenceMin != nil && confidence < *cond.ConfidenceMin {
		allMatch = false
	}
	if cond.ConfidenceMax != nil && confidence > *cond.ConfidenceMax {
		allMatch = false
	}
	if len(cond.TimeRanges) > 0 && !inAnyTimeRange(cond.TimeRanges, now) {
		allMatch = false
	}

	if cond.AnyPerson {
		return true
	}
	return allMatch
}

func inAnyTimeRange(ranges []domain.TimeRange, now time.Time) bool {
	hour := now.Hour()
	for _, r := range ranges {
		if r.StartHour <= r.EndHour {
			if hour >= r.StartHour && hour <= r.EndHour {
				return true
			}
		} else {
			// wraps past midnight
			if hour >= r.StartHour || hour <= r.EndHour {
				return true
			}
		}
	}
	return false
}
