// Package httpapi exposes the engine over HTTP: connection and plugin
// listings, plugin metadata, and plugin execution, matching the four-route
// surface of the reference web service exactly down to status codes and
// error message text.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	qr "github.com/jpmoresmau/queryrunner"
	"github.com/jpmoresmau/queryrunner/internal/engine"
)

// connectionDTO is the GET /connections element shape.
type connectionDTO struct {
	Name   string `json:"name"`
	DBType string `json:"db_type"`
}

// pluginDTO is the GET /plugins element shape.
type pluginDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// pluginMetadataDTO is the GET /plugins/{name} shape.
type pluginMetadataDTO struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  []qr.Parameter `json:"parameters"`
}

// NewHandler builds the full route mux, wrapping every handler with a
// permissive CORS layer (any origin and any request header, GET and POST
// advertised as allowed methods, OPTIONS preflights answered directly),
// since the reference service is deployed for same-origin and cross-origin
// browser clients alike.
func NewHandler(eng *engine.Engine, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("httpapi")

	mux := http.NewServeMux()
	mux.HandleFunc("GET /connections", handleConnections(eng))
	mux.HandleFunc("GET /plugins", handlePlugins(eng))
	mux.HandleFunc("GET /plugins/{name}", handlePluginMetadata(eng))
	mux.HandleFunc("POST /plugins/{plugin}/{connection}", handlePluginExecute(eng, logger))
	return withCORS(mux)
}

func handleConnections(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		infos := eng.ListConnections()
		out := make([]connectionDTO, len(infos))
		for i, info := range infos {
			out[i] = connectionDTO{Name: info.Name, DBType: string(info.Kind)}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handlePlugins(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		infos, err := eng.ListPlugins(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]pluginDTO, len(infos))
		for i, info := range infos {
			out[i] = pluginDTO{Name: info.Name, Description: info.Description}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handlePluginMetadata(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		meta, err := eng.PluginMetadata(r.Context(), name)
		if err != nil {
			writeError(w, err)
			return
		}
		params := meta.Parameters
		if params == nil {
			params = []qr.Parameter{}
		}
		writeJSON(w, http.StatusOK, pluginMetadataDTO{
			Name:        name,
			Description: meta.Description,
			Parameters:  params,
		})
	}
}

func handlePluginExecute(eng *engine.Engine, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plugin := r.PathValue("plugin")
		connection := r.PathValue("connection")

		var variables map[string]string
		if err := json.NewDecoder(r.Body).Decode(&variables); err != nil {
			writeError(w, qr.Detailf(qr.ErrBadParameter, "plugin `%s` failed on connection `%s` while parsing parameters: %s", plugin, connection, err))
			return
		}

		result, err := eng.Run(r.Context(), plugin, connection, variables)
		if err != nil {
			logger.Error("execution failed", zap.String("plugin", plugin), zap.String("connection", connection), zap.Error(err))
			writeError(w, err)
			return
		}
		if result == nil {
			writeJSON(w, http.StatusOK, "no results returned")
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// writeError maps a classified engine error to its HTTP status and exact
// message body, matching the reference service's error enum one case at a
// time. An error matching none of the sentinels is a programming error and
// maps to a bare 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, qr.ErrPluginMissing), errors.Is(err, qr.ErrConnectionMissing):
		status = http.StatusNotFound
	case errors.Is(err, qr.ErrBadParameter):
		status = http.StatusBadRequest
	case errors.Is(err, qr.ErrPluginMetadata), errors.Is(err, qr.ErrPluginExecution),
		errors.Is(err, qr.ErrDriver), errors.Is(err, qr.ErrUnsupportedType),
		errors.Is(err, qr.ErrConfiguration):
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
