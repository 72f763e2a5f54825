package dispatch

import (
	"log/slog"

	"github.com/example/ride-pooling/internal/models"
)

// LogNotifier just records proposal notices. Used when no push channel is
// configured so local runs still show what would be delivered.
type LogNotifier struct {
	Logger *slog.Logger
}

func (d *LogNotifier) NotifyProposal(userID string, n models.ProposalNotice) error {
	if d.Logger != nil {
		d.Logger.Info("ride proposed",
			"user_id", userID,
			"ride_id", n.RideID,
			"request_id", n.RequestID,
			"price_per_passenger", n.PricePerPassenger,
		)
	}
	return nil
}
