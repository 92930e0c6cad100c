package icontact

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/icontact-sdk/client-go/internal/delivery"
)

// WaitForDelivery polls the delivery details of a scheduled message until
// the service reports it released to recipients, and returns the last
// details seen. Errors from the service end the wait; the poll interval
// backs off while the details do not change.
//
// Example:
//
//	details, err := client.WaitForDelivery(ctx, messageID,
//	    icontact.WithWaitTimeout(30*time.Minute))
func (c *Client) WaitForDelivery(ctx context.Context, messageID int64, opts ...WaitOption) (*DeliveryDetails, error) {
	cfg := &waitConfig{
		timeout:     defaultWaitTimeout,
		minReleased: 1,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	var details *DeliveryDetails
	poller := delivery.NewPoller(cfg.pollInterval)
	checks, err := poller.Run(ctx, func(ctx context.Context) (delivery.State, error) {
		d, err := c.MessageDeliveryDetails(ctx, messageID)
		if err != nil {
			return delivery.State{}, err
		}
		details = d

		var released int64
		if d.Released != nil {
			released = d.Released.Count
		}
		return delivery.State{
			Done:        released >= cfg.minReleased,
			Fingerprint: fmt.Sprintf("%d/%d", released, len(d.Channels)),
		}, nil
	})
	if err != nil {
		return details, err
	}

	c.log.Debug("message delivered", zap.Int64("message_id", messageID), zap.Int("checks", checks))
	return details, nil
}
