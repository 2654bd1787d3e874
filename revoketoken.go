package main

import (
	"fmt"

	"github.com/unilink-net/unilink/models"
)

type RevokeTokenCmd struct {
	Token string `required:"" help:"the raw token to revoke"`
}

func (c *RevokeTokenCmd) Run(ctx *Context) error {
	db, err := ctx.open()
	if err != nil {
		return err
	}

	tokens := models.NewTokens(db)
	token, err := tokens.FindByRaw(c.Token)
	if err != nil {
		return err
	}
	if err := tokens.Revoke(token); err != nil {
		return err
	}
	fmt.Println("revoked token", token.ID, "for application", token.ApplicationID)
	return nil
}
