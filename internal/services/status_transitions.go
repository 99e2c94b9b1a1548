package services

import "tyreworks/internal/models"

// Legal booking lifecycle moves. Rejected, cancelled and completed are
// terminal; completed is reachable only from confirmed.
var BookingTransitions = map[models.BookingState]map[models.BookingState]bool{
	models.BookingPending: {
		models.BookingConfirmed: true,
		models.BookingRejected:  true,
		models.BookingCancelled: true,
	},
	models.BookingConfirmed: {
		models.BookingCancelled: true,
		models.BookingCompleted: true,
	},
	models.BookingRejected:  {},
	models.BookingCancelled: {},
	models.BookingCompleted: {},
}

func canTransition(current, to models.BookingState) bool {
	nexts, ok := BookingTransitions[current]
	if !ok {
		return false
	}
	return nexts[to]
}
