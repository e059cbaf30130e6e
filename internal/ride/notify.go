package ride

import "log/slog"

// Notifier is the user-alert seam. The presentation layer implements it;
// the default just logs.
type Notifier interface {
	RideCompleted(price int)
	RideDeclined()
	PaymentCollected()
}

type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) RideCompleted(price int) {
	n.Logger.Info("ride completed", "fare", price)
}

func (n *LogNotifier) RideDeclined() {
	n.Logger.Info("driver declined the ride")
}

func (n *LogNotifier) PaymentCollected() {
	n.Logger.Info("ride finished, payment collected")
}
