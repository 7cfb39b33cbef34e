package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gochats/internal/common"
	"gochats/internal/config"
)

// NewRouter builds the full HTTP pipeline:
// CORS, panic recovery, request log, rate limit, then per-route body parsing, auth, plan check and validation.
func NewRouter(cfg *config.Config, h *ChatHandler, limiter *common.RateLimiter, er *common.ErrorResponder, logger *slog.Logger) http.Handler {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		er.Respond(w, r, common.NotFoundError("Route not found", nil))
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		er.Respond(w, r, common.New(common.CodeMethodNotAllowed,
			fmt.Sprintf("Method %s not allowed on %s", r.Method, r.URL.Path)))
	})
	router.Use(tagRoute)

	authenticate := common.Authenticate([]byte(cfg.JWT.Secret), er)
	requirePro := common.Authorize(er, common.RequirePlan("pro"))

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	api.Handle("/message", chain(http.HandlerFunc(h.CreateMessage),
		h.DecodeBody, authenticate, requirePro, h.ValidateCreateMessage,
	)).Methods(http.MethodPost)

	api.Handle("/chat/{writerUserId}/{receiverUserId}", chain(http.HandlerFunc(h.GetChat),
		authenticate,
	)).Methods(http.MethodGet)

	api.Handle("/message/messageStatus/{id}", chain(http.HandlerFunc(h.UpdateMessageStatus),
		authenticate, requirePro,
	)).Methods(http.MethodPut)

	api.Handle("/message/{id}", chain(http.HandlerFunc(h.DeleteMessage),
		authenticate, requirePro,
	)).Methods(http.MethodDelete)

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/api-docs", serveAPIDocs).Methods(http.MethodGet)
	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api-docs", http.StatusFound)
	}).Methods(http.MethodGet)

	// logging and throttling sit outside mux so unmatched requests pass through them too
	return chain(router,
		common.CORS, common.Recoverer(er), common.RequestLogger(logger), common.RateLimit(limiter, er),
	)
}

// chain applies middlewares so that the first one listed runs first.
func chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

func tagRoute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				common.TagRoute(r, tpl)
			}
		}
		next.ServeHTTP(w, r)
	})
}
