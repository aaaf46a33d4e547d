package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/danielpatrickdp/safe-advisor/go-advisor/internal/advisor"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds /advise request bodies.
const maxBodyBytes = 1 << 16

// Router builds the HTTP surface over svc.
func Router(svc *advisor.Service, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))
	r.Use(cors)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": svc.Health(), "ready": svc.Ready()})
	})

	r.Post("/advise", func(w http.ResponseWriter, r *http.Request) {
		var body adviseBody
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err := dec.Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request: "+err.Error())
			return
		}
		req, err := body.request()
		if err != nil {
			writeError(w, http.StatusBadRequest, "malformed request: "+err.Error())
			return
		}
		adv, err := svc.Advise(req)
		if errors.Is(err, advisor.ErrNotReady) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, adv)
	})

	r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
		snap, ok := svc.Snapshot()
		if !ok {
			writeError(w, http.StatusServiceUnavailable, advisor.ErrNotReady.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"version_id": snap.VersionID,
			"origin":     snap.Origin,
			"loaded_at":  snap.LoadedAt.Format(time.RFC3339),
		})
	})

	return r
}

// adviseBody is the /advise payload. player_total and dealer_upcard are
// required; usable_ace defaults to 0.
type adviseBody struct {
	PlayerTotal  *int `json:"player_total"`
	DealerUpcard *int `json:"dealer_upcard"`
	UsableAce    *int `json:"usable_ace"`
}

func (b adviseBody) request() (advisor.Request, error) {
	if b.PlayerTotal == nil {
		return advisor.Request{}, errors.New("missing field player_total")
	}
	if b.DealerUpcard == nil {
		return advisor.Request{}, errors.New("missing field dealer_upcard")
	}
	req := advisor.Request{PlayerTotal: *b.PlayerTotal, DealerUpcard: *b.DealerUpcard}
	if b.UsableAce != nil {
		req.UsableAce = *b.UsableAce
	}
	return req, nil
}

// cors allows any origin, as the advisor is queried from browser front ends.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("elapsed", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
