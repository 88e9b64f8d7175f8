// Package main is the entry point of the application
package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (app *application) routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", app.handleHealth)
	r.Get("/ws", app.authenticate(app.handleWebSocket))

	return r
}
