package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ChainStatus is the on-chain connectivity snapshot reported by /status
type ChainStatus struct {
	Connected     bool   `json:"connected"`
	RPCURL        string `json:"rpc_url"`
	IntentAddress string `json:"intent_address"`
	LatestBlock   uint64 `json:"latest_block,omitempty"`
}

// ChainStatusFunc supplies the chain snapshot without the server holding a
// chain client of its own.
type ChainStatusFunc func(ctx context.Context) ChainStatus

// FlowStatusFunc supplies the current payment flow snapshot
type FlowStatusFunc func() interface{}

// Server represents a health check HTTP server
type Server struct {
	port          string
	monitor       *Monitor
	prober        Prober
	chainStatus   ChainStatusFunc
	flowStatus    FlowStatusFunc
	metricsAPIKey string
}

// NewServer creates a new health check server
func NewServer(port string, monitor *Monitor, prober Prober, chainStatus ChainStatusFunc, flowStatus FlowStatusFunc) *Server {
	return &Server{
		port:          port,
		monitor:       monitor,
		prober:        prober,
		chainStatus:   chainStatus,
		flowStatus:    flowStatus,
		metricsAPIKey: os.Getenv("METRICS_API_KEY"),
	}
}

// metricsAuthMiddleware is a middleware that checks for a valid API key
func (s *Server) metricsAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip auth if no API key is configured
		if s.metricsAPIKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		// Get API key from Authorization header
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Missing Authorization header", http.StatusUnauthorized)
			return
		}

		// Check if the header has the correct format
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
			return
		}

		// Validate API key
		if parts[1] != s.metricsAPIKey {
			http.Error(w, "Invalid API key", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Start starts the health check server
func (s *Server) Start() {
	// Health check endpoint
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Readiness check: the chain client must be connected and the signing
	// service circuit must not be open.
	http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		chain := s.chainStatus(r.Context())
		if !chain.Connected {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("Chain client not connected"))
			return
		}
		if !s.monitor.IsBackendAvailable() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("Signing service unavailable"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Ready"))
	})

	// Combined status endpoint
	http.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		backend := s.monitor.GetMetrics()

		status := map[string]interface{}{
			"chain":   s.chainStatus(r.Context()),
			"signer":  backend,
			"payment": s.flowStatus(),
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(status); err != nil {
			log.Printf("Error encoding status JSON: %v", err)
		}
	})

	// Circuit breaker admin control endpoint
	http.HandleFunc("/health/reset", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		s.monitor.Reset()
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Signing service circuit breaker reset"))
	})

	// Force an out-of-band probe against the signing service
	http.HandleFunc("/health/check", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		status := s.monitor.ForceHealthCheck(r.Context(), s.prober)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(fmt.Sprintf("Signing service %s", status)))
	})

	// Expose Prometheus metrics with API key authentication
	http.Handle("/metrics", s.metricsAuthMiddleware(promhttp.Handler()))

	log.Printf("Starting health and metrics server on port %s", s.port)
	if err := http.ListenAndServe(":"+s.port, nil); err != nil {
		log.Printf("Health server error: %v", err)
	}
}
