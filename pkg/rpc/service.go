// Copyright © 2018 One Concern

package rpc

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/oneconcern/stablebench/pkg/dlogger"
	"github.com/oneconcern/stablebench/pkg/meter"
	"github.com/oneconcern/stablebench/pkg/metrics"

	"go.uber.org/zap"
)

// Service is a named set of methods, called one at a time
type Service struct {
	metrics.Enable
	m *metrics.CallMetrics

	name    string
	methods map[string]Method
	counter meter.Counter
	l       *zap.Logger

	mx sync.Mutex
}

// Option configures a service
type Option func(*Service)

// WithLogger sets the logger of a service
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.l = l
		}
	}
}

// WithCounter sets the instruction counter used for calls. Defaults to a clock.
func WithCounter(c meter.Counter) Option {
	return func(s *Service) {
		if c != nil {
			s.counter = c
		}
	}
}

// WithMetrics toggles call metrics. Metrics must have been initialized with metrics.Init.
func WithMetrics(enabled bool) Option {
	return func(s *Service) {
		s.EnableMetrics(enabled && metrics.Enabled())
	}
}

// NewService builds an empty service
func NewService(name string, opts ...Option) *Service {
	s := &Service{
		name:    name,
		methods: make(map[string]Method),
		counter: meter.ClockCounter{},
		l:       zap.NewNop(),
	}
	for _, apply := range opts {
		apply(s)
	}
	s.l = dlogger.Component(s.l, "rpc").With(zap.String("service", name))
	if s.MetricsEnabled() {
		s.m = s.EnsureMetrics("rpc", &metrics.CallMetrics{}).(*metrics.CallMetrics)
	}
	return s
}

// Name of the service
func (s *Service) Name() string { return s.name }

// Register methods
func (s *Service) Register(methods ...Method) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	for _, m := range methods {
		if _, exists := s.methods[m.Name]; exists {
			return ErrDuplicateMethod.Wrapf("%s.%s", s.name, m.Name)
		}
		s.methods[m.Name] = m
	}
	return nil
}

// MustRegister registers methods, panicking on duplicates
func (s *Service) MustRegister(methods ...Method) *Service {
	if err := s.Register(methods...); err != nil {
		panic(err)
	}
	return s
}

// Methods of the service, sorted by name
func (s *Service) Methods() []Method {
	s.mx.Lock()
	defer s.mx.Unlock()
	out := make([]Method, 0, len(s.methods))
	for _, m := range s.methods {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Call a method with JSON encoded arguments
func (s *Service) Call(ctx context.Context, method string, raw []byte) Result {
	args, err := ParseArgs(raw)
	if err != nil {
		return failed(CanisterError, err.Error())
	}
	return s.CallArgs(ctx, method, args)
}

// CallArgs calls a method with parsed arguments
func (s *Service) CallArgs(ctx context.Context, method string, args Args) (result Result) {
	s.mx.Lock()
	defer s.mx.Unlock()

	m, ok := s.methods[method]
	if !ok {
		return failed(CanisterError, fmt.Sprintf("method %q not found in %s", method, s.name))
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	start := time.Now()
	sw, err := s.counter.Start()
	if err != nil {
		return failed(CanisterError, err.Error())
	}

	defer func() {
		instructions, _ := sw.Stop()
		result.Instructions = instructions
		if r := recover(); r != nil {
			s.l.Error("call panicked", zap.String("method", method), zap.Any("panic", r))
			result = failed(CanisterError, fmt.Sprintf("%s: %v", method, r))
			result.Instructions = instructions
		}
		if s.m != nil {
			s.m.Called(start, s.name, method)(instructions, result.Failure())
		}
		s.l.Debug("call",
			zap.String("method", method),
			zap.Stringer("kind", m.Kind),
			zap.Uint64("instructions", instructions),
			zap.Bool("ok", result.Err == nil),
		)
	}()

	value, err := m.Handler(meter.WithStopwatch(ctx, sw), args)
	if err != nil {
		return failed(CanisterError, err.Error())
	}
	return Result{Ok: value}
}
