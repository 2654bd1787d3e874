package main

import (
	"fmt"

	"github.com/unilink-net/unilink/models"
)

type RegisterAppCmd struct {
	Owner        string   `required:"" help:"email address of the owning user"`
	Name         string   `required:"" help:"name of the application"`
	Description  string   `help:"description of the application"`
	RedirectURIs []string `help:"redirect uris of the application"`
	Scopes       []string `default:"profile:read" help:"scopes granted to the application"`
	Type         string   `default:"server" enum:"web,mobile,server" help:"type of the application"`
	RateLimit    int      `default:"1000" help:"requests per hour, 0 disables the limit"`
}

func (c *RegisterAppCmd) Run(ctx *Context) error {
	db, err := ctx.open()
	if err != nil {
		return err
	}

	owner, err := models.NewUsers(db).FindByEmail(c.Owner)
	if err != nil {
		return err
	}

	app, err := models.NewApplications(db).Create(owner.ID, c.Name, c.Description, c.RedirectURIs, c.Scopes, models.ApplicationType(c.Type), c.RateLimit)
	if err != nil {
		return err
	}

	// the secret is only shown here; store it somewhere safe
	fmt.Println("client_id:", app.ClientID)
	fmt.Println("client_secret:", app.ClientSecret)
	return nil
}
