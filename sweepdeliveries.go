package main

import (
	"context"
	"fmt"

	"github.com/unilink-net/unilink/webhooks"
)

type SweepDeliveriesCmd struct {
}

func (c *SweepDeliveriesCmd) Run(ctx *Context) error {
	db, err := ctx.open()
	if err != nil {
		return err
	}

	result, err := webhooks.Sweep(context.Background(), db)
	if err != nil {
		return err
	}
	fmt.Println("selected", result.Selected, "deliveries, delivered", result.Delivered)
	return nil
}
