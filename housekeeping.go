package main

import (
	"fmt"
	"time"

	"github.com/unilink-net/unilink/webhooks"
)

type HousekeepingCmd struct {
}

// Run reports deliveries that have exhausted their attempts. Exhausted
// deliveries are kept as an audit trail, never deleted.
func (c *HousekeepingCmd) Run(ctx *Context) error {
	db, err := ctx.open()
	if err != nil {
		return err
	}

	failed, err := webhooks.Failed(db)
	if err != nil {
		return err
	}
	for i := range failed {
		d := &failed[i]
		fmt.Printf("delivery %d endpoint %d event %s attempts %d age %s\n",
			d.ID, d.WebhookEndpointID, d.EventType, d.AttemptCount, webhooks.Age(d).Round(time.Second))
	}
	fmt.Println(len(failed), "deliveries exhausted their attempts")
	return nil
}
