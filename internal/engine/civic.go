package engine

import "github.com/AnshRaj112/civicquest-backend/internal/models"

// SignReward is granted for placing a sign. More severe reports earn more.
func SignReward(severity int) models.RewardBundle {
	if severity < 1 {
		severity = 1
	}
	if severity > 5 {
		severity = 5
	}
	return Bundle(20+5*severity, 2*severity, 0, 0, 0)
}

// CivicActionReward is granted once per user for joining a civic action.
func CivicActionReward() models.RewardBundle {
	return Bundle(40, 10, 0, 0, 0)
}
