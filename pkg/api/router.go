// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package api

import (
	"fmt"
	"net"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"resenje.org/web"

	"github.com/ethersphere/raffle/pkg/jsonhttp"
	"github.com/ethersphere/raffle/pkg/logging/httpaccess"
)

const maxBodyBytes = 1 << 16

func (s *server) setupRouting() {
	apiVersion := "v1" // only one api version exists, this should be configurable with more

	handle := func(router *mux.Router, path string, handler http.Handler) {
		router.Handle(path, handler)
		router.Handle("/"+apiVersion+path, handler)
	}

	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(jsonhttp.NotFoundHandler)

	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "Raffle Node")
	})

	router.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "User-agent: *\nDisallow: /")
	})

	router.Path("/health").Handler(web.ChainHandlers(
		httpaccess.SetAccessLogLevelHandler(0),
		web.FinalHandlerFunc(s.healthHandler),
	))

	if s.MetricsRegistry != nil {
		router.Path("/metrics").Handler(web.ChainHandlers(
			httpaccess.SetAccessLogLevelHandler(0),
			web.FinalHandler(promhttp.InstrumentMetricHandler(
				s.MetricsRegistry,
				promhttp.HandlerFor(s.MetricsRegistry, promhttp.HandlerOpts{}),
			)),
		))
	}

	handle(router, "/raffle", jsonhttp.MethodHandler{
		"GET": http.HandlerFunc(s.raffleStatusHandler),
	})
	handle(router, "/raffle/enter", jsonhttp.MethodHandler{
		"POST": web.ChainHandlers(
			s.rateLimitHandler,
			jsonhttp.NewMaxBodyBytesHandler(maxBodyBytes),
			web.FinalHandlerFunc(s.raffleEnterHandler),
		),
	})
	handle(router, "/raffle/players/{index}", jsonhttp.MethodHandler{
		"GET": http.HandlerFunc(s.rafflePlayerHandler),
	})
	handle(router, "/raffle/upkeep", jsonhttp.MethodHandler{
		"GET": http.HandlerFunc(s.checkUpkeepHandler),
		"POST": web.ChainHandlers(
			s.rateLimitHandler,
			web.FinalHandlerFunc(s.performUpkeepHandler),
		),
	})
	handle(router, "/raffle/reset", jsonhttp.MethodHandler{
		"POST": web.ChainHandlers(
			s.adminHandler,
			web.FinalHandlerFunc(s.raffleResetHandler),
		),
	})
	handle(router, "/raffle/rounds", jsonhttp.MethodHandler{
		"GET": http.HandlerFunc(s.roundsHandler),
	})
	handle(router, "/raffle/rounds/{number}", jsonhttp.MethodHandler{
		"GET": http.HandlerFunc(s.roundHandler),
	})

	handle(router, "/accounts/{address}/balance", jsonhttp.MethodHandler{
		"GET": http.HandlerFunc(s.balanceHandler),
	})
	handle(router, "/accounts/{address}/faucet", jsonhttp.MethodHandler{
		"POST": web.ChainHandlers(
			s.rateLimitHandler,
			web.FinalHandlerFunc(s.faucetHandler),
		),
	})

	handle(router, "/vrf/requests", jsonhttp.MethodHandler{
		"GET": web.ChainHandlers(
			s.coordinatorHandler,
			web.FinalHandlerFunc(s.pendingRequestsHandler),
		),
	})
	handle(router, "/vrf/requests/{id}/fulfill", jsonhttp.MethodHandler{
		"POST": web.ChainHandlers(
			s.coordinatorHandler,
			s.rateLimitHandler,
			jsonhttp.NewMaxBodyBytesHandler(maxBodyBytes),
			web.FinalHandlerFunc(s.fulfillHandler),
		),
	})
	handle(router, "/vrf/subscriptions/{id}", jsonhttp.MethodHandler{
		"GET": web.ChainHandlers(
			s.coordinatorHandler,
			web.FinalHandlerFunc(s.subscriptionHandler),
		),
	})

	handle(router, "/events", http.HandlerFunc(s.eventsWsHandler))

	s.Handler = web.ChainHandlers(
		httpaccess.NewHTTPAccessLogHandler(s.Logger, logrus.InfoLevel, "api access"),
		handlers.RecoveryHandler(handlers.RecoveryLogger(s.Logger.NewEntry()), handlers.PrintRecoveryStack(false)),
		s.pageviewMetricsHandler,
		func(h http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if o := r.Header.Get("Origin"); o != "" && s.checkOrigin(r) {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
					w.Header().Set("Access-Control-Allow-Origin", o)
					w.Header().Set("Access-Control-Allow-Headers", "Origin, Accept, Authorization, Content-Type, X-Requested-With, Access-Control-Request-Headers, Access-Control-Request-Method")
					w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS, POST")
					w.Header().Set("Access-Control-Max-Age", "3600")
				}
				h.ServeHTTP(w, r)
			})
		},
		web.FinalHandler(router),
	)
}

// rateLimitHandler limits mutating requests per client ip.
func (s *server) rateLimitHandler(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !s.limiter.Allow(ip, 1) {
			s.metrics.RateLimited.Inc()
			s.Logger.Debugf("api: rate limit exceeded for %s", ip)
			jsonhttp.TooManyRequests(w, "too many requests")
			return
		}
		h.ServeHTTP(w, r)
	})
}

func (s *server) adminHandler(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.AdminEnabled {
			s.Logger.Tracef("api: admin endpoint forbidden %s", r.URL.String())
			jsonhttp.Forbidden(w, nil)
			return
		}
		h.ServeHTTP(w, r)
	})
}

func (s *server) coordinatorHandler(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Coordinator == nil {
			jsonhttp.NotFound(w, "no development coordinator")
			return
		}
		h.ServeHTTP(w, r)
	})
}
