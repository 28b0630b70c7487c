// Package api exposes the reserve operations over HTTP/JSON.
//
// The caller's identity is taken from the X-Signer header as a base58
// public key. Verifying the transaction signature behind it is the job of
// the gateway in front of this service.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"reserve-swap/internal/observability"
	"reserve-swap/internal/pda"
	"reserve-swap/internal/reserve"
)

// SignerHeader carries the verified signer of a request.
const SignerHeader = "X-Signer"

// Config captures the dependencies required to construct the server.
type Config struct {
	Service *reserve.Service
	Logger  logrus.FieldLogger

	// DevFaucet enables POST /v1/accounts/{address}/mint.
	DevFaucet bool

	// Ready reports backend health for /healthz. Optional.
	Ready func(ctx context.Context) error
}

// Server encapsulates dependencies for the HTTP API.
type Server struct {
	svc       *reserve.Service
	logger    logrus.FieldLogger
	devFaucet bool
	ready     func(ctx context.Context) error

	router http.Handler
}

// New constructs a configured HTTP router.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	s := &Server{
		svc:       cfg.Service,
		logger:    cfg.Logger.WithField("component", "api"),
		devFaucet: cfg.DevFaucet,
		ready:     cfg.Ready,
	}
	s.router = s.buildRouter()
	return s
}

// Handler exposes the configured HTTP router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.Health)
	r.Handle("/metrics", observability.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Get("/reserves/premium/{id}", s.GetPremium)
		v1.Get("/reserves/premium/{id}/normal", s.ListNormal)
		v1.Get("/reserves/normal/{id}", s.GetNormal)
		v1.Get("/accounts/{address}", s.GetAccount)
		v1.Get("/accounts/{address}/transfers", s.GetTransfers)

		v1.Group(func(signed chi.Router) {
			signed.Use(requireSigner)
			signed.Post("/reserves/premium", s.CreatePremium)
			signed.Post("/reserves/normal", s.CreateNormal)
			signed.Post("/swap/premium-for-normal", s.swapHandler(reserve.PremiumForNormal))
			signed.Post("/swap/normal-for-premium", s.swapHandler(reserve.NormalForPremium))
			signed.Post("/withdraw/premium", s.WithdrawPremium)
			signed.Post("/withdraw/normal", s.WithdrawNormal)
			signed.Post("/accounts", s.OpenAccount)
		})

		if s.devFaucet {
			v1.Post("/accounts/{address}/mint", s.Mint)
		}
	})

	return r
}

// Health reports whether the backing store answers.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WithError(err).Warn("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type signerKey struct{}

// requireSigner rejects requests whose X-Signer is missing or is not an
// ed25519 public key. Derived reserve addresses never sign.
func requireSigner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signer := r.Header.Get(SignerHeader)
		if signer == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing_signer", Message: SignerHeader + " header is required"})
			return
		}
		if err := pda.ValidateSigner(signer); err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid_signer", Message: err.Error()})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), signerKey{}, signer)))
	})
}

func signerFrom(ctx context.Context) string {
	signer, _ := ctx.Value(signerKey{}).(string)
	return signer
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start).String(),
			"request_id": chimw.GetReqID(r.Context()),
		}).Debug("request served")
	})
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}
	return nil
}
