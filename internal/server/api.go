package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/zzfadi/CodexBar-sub003/internal/provider"
	"github.com/zzfadi/CodexBar-sub003/internal/store"
)

// API serves read-only JSON over the probe history. Mutation happens only
// through probes; the menubar just renders what is here.
type API struct {
	probes *store.ProbeRepo
	mux    *http.ServeMux
}

func NewAPI(probes *store.ProbeRepo) *API {
	a := &API{probes: probes, mux: http.NewServeMux()}
	a.mux.HandleFunc("/api/providers", a.listProviders)
	a.mux.HandleFunc("/api/usage", a.latestUsage)
	a.mux.HandleFunc("/api/history", a.history)
	return a
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}
	a.mux.ServeHTTP(w, r)
}

func (a *API) listProviders(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, provider.Names())
}

// latestUsage returns the newest probe per provider, skipping providers
// that have never been probed.
func (a *API) latestUsage(w http.ResponseWriter, r *http.Request) {
	out := []*store.Probe{}
	for _, name := range provider.Names() {
		probe, err := a.probes.Latest(r.Context(), name)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if probe != nil {
			out = append(out, probe)
		}
	}
	jsonResponse(w, http.StatusOK, out)
}

func (a *API) history(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("provider")
	if name == "" {
		jsonError(w, http.StatusBadRequest, "provider query parameter required")
		return
	}
	if _, err := provider.Get(name); err != nil {
		jsonError(w, http.StatusNotFound, err.Error())
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			jsonError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	probes, err := a.probes.History(r.Context(), name, limit)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}
	jsonResponse(w, http.StatusOK, probes)
}

type errorBody struct {
	Error string `json:"error"`
}

func jsonResponse(w http.ResponseWriter, status int, data any) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(status)
	if data == nil || status == http.StatusNoContent {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, errorBody{Error: message})
}
