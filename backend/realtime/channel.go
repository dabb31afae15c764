package realtime

import "rideapp/backend"

// Channel is one live table subscription. At most one channel exists
// per topic; tearing it down sends a leave frame.
type Channel struct {
	client  *Client
	topic   string
	table   string
	handler backend.ChangeHandler
}

func (ch *Channel) Topic() string { return ch.topic }

func (ch *Channel) Unsubscribe() error {
	return ch.client.leave(ch.topic)
}
