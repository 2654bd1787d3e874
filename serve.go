package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/unilink-net/unilink/api"
	"github.com/unilink-net/unilink/internal/httpx"
)

type ServeCmd struct {
	Addr string `default:"localhost:8080" help:"address to listen"`
}

func (s *ServeCmd) Run(ctx *Context) error {
	db, err := ctx.open()
	if err != nil {
		return err
	}

	env := api.NewEnv(db)
	envFn := func(r *http.Request) *api.Env { return env }

	c := chi.NewRouter()
	c.Use(middleware.RequestID)
	c.Use(middleware.RealIP)
	c.Use(middleware.Logger)
	c.Use(middleware.Recoverer)
	c.Use(httpx.CORS)

	c.Route("/", func(r chi.Router) {
		r.Post("/auth", httpx.HandlerFunc(envFn, api.TokenCreate))
		r.Post("/auth/revoke", httpx.HandlerFunc(envFn, api.TokenRevoke))

		r.Route("/users", func(r chi.Router) {
			r.Get("/profile", httpx.HandlerFunc(envFn, api.ProfilesShow))
			r.Get("/profile/{id:[0-9]+}", httpx.HandlerFunc(envFn, api.ProfilesShow))
			r.Get("/directory", httpx.HandlerFunc(envFn, api.DirectoryIndex))
		})

		r.Route("/credentials", func(r chi.Router) {
			r.Get("/list", httpx.HandlerFunc(envFn, api.CredentialsIndex))
			r.Post("/verify", httpx.HandlerFunc(envFn, api.CredentialsVerify))
		})

		r.Route("/webhooks", func(r chi.Router) {
			r.Get("/", httpx.HandlerFunc(envFn, api.WebhooksIndex))
			r.Post("/", httpx.HandlerFunc(envFn, api.WebhooksCreate))
			r.Patch("/{id:[0-9]+}", httpx.HandlerFunc(envFn, api.WebhooksUpdate))
		})

		r.Post("/webhook-dispatch", httpx.HandlerFunc(envFn, api.WebhookDispatch))
	})

	walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
		route = strings.Replace(route, "/*/", "/", -1)
		fmt.Printf("%s %s\n", method, route)
		return nil
	}

	if err := chi.Walk(c, walkFunc); err != nil {
		fmt.Printf("Logging err: %s\n", err.Error())
	}

	svr := &http.Server{
		Addr:         s.Addr,
		Handler:      c,
		ReadTimeout:  15 * time.Second,
		// webhook dispatch can hold a request for the delivery timeout
		WriteTimeout: 30 * time.Second,
	}
	return svr.ListenAndServe()
}
