package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geoclient-munger/pkg/munger"
)

const maxBodyBytes = 10 << 20

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the munger over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		cfg.Server.Port = port

		m, err := loadMunger(ctx, "serve")
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(m),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port), zap.Int("layers", m.Registry().Len()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

type requestIDKey struct{}

// withRequestID tags every request with a uuid, echoed in X-Request-ID.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey{}).(string)
	return id
}

// layerInfo is the /layers view of a loaded layer.
type layerInfo struct {
	Name        string `json:"name"`
	TargetField string `json:"target_field"`
	IDProperty  string `json:"id_property"`
	SourceCRS   string `json:"source_crs"`
	Features    int    `json:"features"`
	Logging     bool   `json:"logging"`
}

func describeLayers(m *munger.Munger) []layerInfo {
	layers := m.Registry().Layers()
	out := make([]layerInfo, len(layers))
	for i, l := range layers {
		out[i] = layerInfo{
			Name:        l.Name(),
			TargetField: l.Config.TargetField,
			IDProperty:  l.Config.IDProperty,
			SourceCRS:   l.Config.SourceCRS,
			Features:    l.Features.Len(),
			Logging:     l.Logging(),
		}
	}
	return out
}

func newRouter(m *munger.Munger) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(withRequestID)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"layers":      m.Registry().Len(),
			"working_crs": m.WorkingCRS(),
		})
	})

	r.Get("/layers", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, describeLayers(m))
	})

	r.Post("/munge", func(w http.ResponseWriter, r *http.Request) {
		log := zap.L().With(zap.String("request_id", requestID(r)))

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}

		trimmed := bytes.TrimSpace(body)
		if len(trimmed) == 0 {
			writeError(w, http.StatusBadRequest, "empty request body")
			return
		}

		var responses []munger.Response
		single := trimmed[0] == '{'
		if single {
			var resp munger.Response
			if err := decodeNumbers(trimmed, &resp); err != nil || resp == nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			responses = []munger.Response{resp}
		} else if err := decodeNumbers(trimmed, &responses); err != nil {
			writeError(w, http.StatusBadRequest, "request body must be a JSON object or array of objects")
			return
		}

		var stats mungeStats
		for _, resp := range responses {
			if resp != nil {
				stats.add(m.Apply(resp))
			}
		}
		log.Info("munge request",
			zap.Int("responses", len(responses)),
			zap.Int("fields_munged", stats.matched),
			zap.Int("fields_unchanged", stats.unchanged),
		)

		if single {
			writeJSON(w, http.StatusOK, responses[0])
			return
		}
		writeJSON(w, http.StatusOK, responses)
	})

	return r
}

// decodeNumbers decodes JSON keeping numbers as json.Number, so values echo
// back exactly as sent.
func decodeNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return eris.New("trailing data after JSON value")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
