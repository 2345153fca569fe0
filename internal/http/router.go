package http

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

type RouterConfig struct {
	Players *PlayerHandler
	Courts  *CourtHandler
	State   *StateHandler
	Events  http.Handler
	Metrics http.Handler
	// RouteMiddleware runs after route matching, so RouteTemplate resolves.
	RouteMiddleware []func(http.Handler) http.Handler
	Middleware      []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	router := mux.NewRouter()
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methodNotAllowed(w, allowedMethods(router, r)...)
	})

	if cfg.Players != nil {
		router.HandleFunc("/players", cfg.Players.List).Methods(http.MethodGet)
		router.HandleFunc("/players", cfg.Players.Create).Methods(http.MethodPost)
		router.HandleFunc("/players/import", cfg.Players.Import).Methods(http.MethodPost)
		router.HandleFunc("/players/scores", cfg.Players.Scores).Methods(http.MethodGet)
		router.HandleFunc("/players/{id}/level", cfg.Players.AdjustLevel).Methods(http.MethodPut)
	}

	if cfg.Courts != nil {
		router.HandleFunc("/courts", cfg.Courts.List).Methods(http.MethodGet)
		router.HandleFunc("/courts/{id}", cfg.Courts.Get).Methods(http.MethodGet)
		router.HandleFunc("/courts/{id}/players", cfg.Courts.AssignPlayer).Methods(http.MethodPost)
		router.HandleFunc("/courts/{id}/start", cfg.Courts.Start).Methods(http.MethodPost)
		router.HandleFunc("/courts/{id}/complete", cfg.Courts.Complete).Methods(http.MethodPost)
		router.HandleFunc("/courts/{id}/reset", cfg.Courts.Reset).Methods(http.MethodPost)
		router.HandleFunc("/courts/{id}/queue", cfg.Courts.Enqueue).Methods(http.MethodPost)
		router.HandleFunc("/courts/{id}/queue/{index}", cfg.Courts.RemoveQueueGroup).Methods(http.MethodDelete)
		router.HandleFunc("/courts/{id}/magic-queue", cfg.Courts.MagicQueue).Methods(http.MethodPost)
		router.HandleFunc("/magic-queue", cfg.Courts.AutoFill).Methods(http.MethodPost)
	}

	if cfg.State != nil {
		router.HandleFunc("/history", cfg.State.History).Methods(http.MethodGet)
		router.HandleFunc("/state", cfg.State.Export).Methods(http.MethodGet)
		router.HandleFunc("/reset", cfg.State.Reset).Methods(http.MethodPost)
	}

	if cfg.Events != nil {
		router.Handle("/events", cfg.Events).Methods(http.MethodGet)
	}
	if cfg.Metrics != nil {
		router.Handle("/metrics", cfg.Metrics).Methods(http.MethodGet)
	}

	for _, mw := range cfg.RouteMiddleware {
		if mw != nil {
			router.Use(mw)
		}
	}

	var handler http.Handler = router
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

// allowedMethods lists the methods registered for the request path.
func allowedMethods(router *mux.Router, r *http.Request) []string {
	var allowed []string
	_ = router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		methods, err := route.GetMethods()
		if err != nil {
			return nil
		}
		probe := r.Clone(r.Context())
		for _, method := range methods {
			probe.Method = method
			var match mux.RouteMatch
			if route.Match(probe, &match) {
				allowed = append(allowed, method)
			}
		}
		return nil
	})
	return allowed
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
