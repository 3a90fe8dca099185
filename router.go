package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/solexious/LUMOS-Code/announce"
	c "github.com/solexious/LUMOS-Code/config"
	"github.com/solexious/LUMOS-Code/power"
)

const authRealm = "lumos"

// newRouter serves the config API. Reads are open, changes need the admin
// credentials of the record that is current at request time.
func newRouter(cfile string, current func() *c.Config, monitor *power.Monitor) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	configHandler := c.ConfigHandler(cfile)

	r.Route("/api", func(r chi.Router) {
		r.Get("/config", configHandler)
		r.With(adminAuth(current)).Post("/config", configHandler)
		r.Get("/node", nodeHandler(current))
		r.Get("/power", powerStateHandler(monitor))
		r.With(adminAuth(current)).Post("/power", powerReadingHandler(monitor))
	})
	return r
}

// adminAuth checks basic auth against the current record. middleware.BasicAuth
// takes a fixed credential map, so it is rebuilt per request from the live
// record.
func adminAuth(current func() *c.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			conf := current()
			password, err := conf.WebPassword()
			if err != nil {
				slog.Error("Can't resolve the admin password", "error", err)
				http.Error(w, "Admin password unavailable", http.StatusInternalServerError)
				return
			}
			creds := map[string]string{conf.Web.Username: password}
			middleware.BasicAuth(authRealm, creds)(next).ServeHTTP(w, r)
		})
	}
}

func nodeHandler(current func() *c.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(announce.Describe(current())); err != nil {
			slog.Error("Encoding node descriptor failed", "error", err)
		}
	}
}

// powerReading is one sample of both supplies as raw ADC values.
type powerReading struct {
	LED  int `json:"LED"`
	Self int `json:"Self"`
}

func writePowerState(w http.ResponseWriter, monitor *power.Monitor) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(monitor.State()); err != nil {
		slog.Error("Encoding power state failed", "error", err)
	}
}

func powerStateHandler(monitor *power.Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writePowerState(w, monitor)
	}
}

// powerReadingHandler feeds a sample taken by the node into the monitor and
// answers with the smoothed state.
func powerReadingHandler(monitor *power.Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var reading powerReading
		if err := json.NewDecoder(r.Body).Decode(&reading); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		for name, v := range map[string]int{"LED": reading.LED, "Self": reading.Self} {
			if v < 0 || v > c.AdcMax {
				http.Error(w, fmt.Sprintf("%s reading must be between 0 and %d, got %d", name, c.AdcMax, v), http.StatusBadRequest)
				return
			}
		}
		monitor.Add(reading.LED, reading.Self)
		slog.Debug("Power reading", "led", reading.LED, "self", reading.Self)
		writePowerState(w, monitor)
	}
}
