// Package delivery waits for a sent message to reach its recipients by
// polling the service.
//
// # Backoff
//
// [Poller] checks immediately, then waits between checks. The interval
// grows from 2s to 30s while the observed state does not change and drops
// back to the initial interval when it does. A random jitter of up to 30%
// of the interval is added to every wait so several waiting clients do not
// poll in step.
//
// # Usage
//
//	p := delivery.NewPoller(2 * time.Second)
//	_, err := p.Run(ctx, func(ctx context.Context) (delivery.State, error) {
//	    details, err := fetch(ctx)
//	    if err != nil {
//	        return delivery.State{}, err
//	    }
//	    return delivery.State{Done: details.Released > 0, Fingerprint: details.Summary()}, nil
//	})
package delivery
