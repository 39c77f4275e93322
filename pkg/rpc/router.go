// Copyright © 2018 One Concern

package rpc

import (
	"context"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/oneconcern/stablebench/pkg/dlogger"

	"github.com/docker/go-units"
	"github.com/go-chi/chi/v5"
	"github.com/justinas/alice"
	"go.uber.org/zap"
)

// MaxBodySize limits the size of arguments posted over HTTP
const MaxBodySize = 4 * units.GiB

// Router dispatches calls to services
type Router struct {
	mx       sync.RWMutex
	services map[string]*Service
	l        *zap.Logger
}

// NewRouter builds an empty router
func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		services: make(map[string]*Service),
		l:        dlogger.Component(logger, "router"),
	}
}

// Add services to the router. A service with the same name is replaced.
func (r *Router) Add(services ...*Service) *Router {
	r.mx.Lock()
	defer r.mx.Unlock()
	for _, s := range services {
		r.services[s.Name()] = s
	}
	return r
}

// Service by name
func (r *Router) Service(name string) (*Service, bool) {
	r.mx.RLock()
	defer r.mx.RUnlock()
	s, ok := r.services[name]
	return s, ok
}

// Services names, sorted
func (r *Router) Services() []string {
	r.mx.RLock()
	defer r.mx.RUnlock()
	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call a method of a service
func (r *Router) Call(ctx context.Context, service, method string, raw []byte) Result {
	s, ok := r.Service(service)
	if !ok {
		return failed(InvalidCanister, "")
	}
	return s.Call(ctx, method, raw)
}

// Handler exposes the router over HTTP:
//
//	GET  /                    lists services
//	GET  /{service}           lists the methods of a service
//	POST /{service}/{method}  calls a method, with a JSON array of arguments as body
func (r *Router) Handler() http.Handler {
	mux := chi.NewRouter()
	mux.Get("/", r.listServices)
	mux.Get("/{service}", r.listMethods)
	mux.Post("/{service}/{method}", r.call)

	return alice.New(recoverer(r.l), accessLog(r.l)).Then(mux)
}

func (r *Router) listServices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, r.Services())
}

func (r *Router) listMethods(w http.ResponseWriter, req *http.Request) {
	s, ok := r.Service(chi.URLParam(req, "service"))
	if !ok {
		writeJSON(w, http.StatusNotFound, failed(InvalidCanister, ""))
		return
	}
	writeJSON(w, http.StatusOK, s.Methods())
}

func (r *Router) call(w http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, MaxBodySize))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, failed(CanisterError, err.Error()))
		return
	}

	result := r.Call(req.Context(), chi.URLParam(req, "service"), chi.URLParam(req, "method"), body)
	status := http.StatusOK
	if result.Err != nil && result.Err.Kind == InvalidCanister {
		status = http.StatusNotFound
	}
	writeJSON(w, status, result)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func recoverer(l *zap.Logger) alice.Constructor {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					l.Error("http handler panicked", zap.Any("panic", rec), zap.String("path", req.URL.Path))
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, req)
		})
	}
}

func accessLog(l *zap.Logger) alice.Constructor {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, req)
			l.Debug("http",
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Duration("elapsed", time.Since(start)),
			)
		})
	}
}

// Serve the router over HTTP until the context is done
func Serve(ctx context.Context, addr string, r *Router) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		r.l.Info("serving", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}
