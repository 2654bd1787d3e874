package main

import (
	"github.com/alecthomas/kong"
	"gorm.io/gorm"
)

type Context struct {
	Debug bool

	gorm.Config
	gorm.Dialector
}

func (c *Context) open() (*gorm.DB, error) {
	db, err := gorm.Open(c.Dialector, &c.Config)
	if err != nil {
		return nil, err
	}
	return db, configureDB(db)
}

var cli struct {
	DSN   string `name:"db" default:"unilink.db" help:"database connection string"`
	Debug bool   `help:"Enable debug mode."`

	Serve           ServeCmd           `cmd:"" help:"Serve the HTTP API."`
	AutoMigrate     AutoMigrateCmd     `cmd:"" help:"Create or update the database schema."`
	CreateUser      CreateUserCmd      `cmd:"" help:"Create a user and their profile."`
	RegisterApp     RegisterAppCmd     `cmd:"" help:"Register an application and print its credentials."`
	RevokeToken     RevokeTokenCmd     `cmd:"" help:"Revoke an access token."`
	SweepDeliveries SweepDeliveriesCmd `cmd:"" help:"Run one retry pass over undelivered webhooks."`
	Housekeeping    HousekeepingCmd    `cmd:"" help:"Report webhook deliveries that have exhausted their retries."`
}

func main() {
	ctx := kong.Parse(&cli)
	err := ctx.Run(&Context{
		Debug:     cli.Debug,
		Dialector: newDialector(cli.DSN),
		Config: gorm.Config{
			TranslateError: true,
		},
	})
	ctx.FatalIfErrorf(err)
}
