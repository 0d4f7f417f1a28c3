// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package healthcheck

import (
	"context"
	"net/http"
	"time"

	"github.com/alexliesenfeld/health"
	"github.com/gorilla/mux"
)

const (
	Path = "/health"

	checkName    = "transform-ledger"
	checkTimeout = 5 * time.Second
)

// Checker is anything that can report its own health
type Checker interface {
	HealthCheck() error
}

// NewHandler returns the health endpoint handler for c
func NewHandler(c Checker) http.Handler {
	healthChecker := health.NewChecker(
		health.WithCacheDuration(0),
		health.WithTimeout(checkTimeout),
		health.WithCheck(health.Check{
			Name: checkName,
			Check: func(context.Context) error {
				return c.HealthCheck()
			},
		}),
	)
	return health.NewHandler(healthChecker)
}

// RegisterRoutes mounts the health endpoint on r
func RegisterRoutes(r *mux.Router, c Checker) {
	r.Handle(Path, NewHandler(c)).Methods(http.MethodGet)
}
