package rpc

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/oneconcern/stablebench/pkg/errors"
	"github.com/oneconcern/stablebench/pkg/meter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func greeter(t testing.TB) *Service {
	t.Helper()
	return NewService("greeter", WithCounter(meter.ClockCounter{})).MustRegister(
		Method{Name: "greet", Kind: Query, Handler: func(_ context.Context, args Args) (interface{}, error) {
			var name string
			if err := args.Decode(&name); err != nil {
				return nil, err
			}
			return "Hello from WASI: " + name, nil
		}},
		Method{Name: "add", Kind: Update, Handler: func(_ context.Context, args Args) (interface{}, error) {
			var a, b uint64
			if err := args.Decode(&a, &b); err != nil {
				return nil, err
			}
			return a + b, nil
		}},
		Method{Name: "perf", Kind: Query, Handler: func(ctx context.Context, _ Args) (interface{}, error) {
			time.Sleep(time.Millisecond)
			return meter.Performance(ctx), nil
		}},
		Method{Name: "fail", Kind: Update, Handler: func(context.Context, Args) (interface{}, error) {
			return nil, fmt.Errorf("bench1_insert_person: disk full")
		}},
		Method{Name: "panic", Kind: Update, Handler: func(context.Context, Args) (interface{}, error) {
			panic("assertion failed")
		}},
	)
}

func TestServiceCall(t *testing.T) {
	s := greeter(t)
	ctx := context.Background()

	res := s.Call(ctx, "greet", []byte(`["world"]`))
	require.NoError(t, res.Failure())
	assert.Equal(t, "Hello from WASI: world", res.Ok)

	res = s.CallArgs(ctx, "add", MustArgs(40, 2))
	require.NoError(t, res.Failure())
	assert.Equal(t, uint64(42), res.Ok)

	res = s.Call(ctx, "perf", nil)
	require.NoError(t, res.Failure())
	assert.True(t, res.Ok.(uint64) >= uint64(time.Millisecond))
	assert.True(t, res.Instructions >= res.Ok.(uint64))

	res = s.Call(ctx, "fail", nil)
	require.Error(t, res.Failure())
	assert.Equal(t, CanisterError, res.Err.Kind)
	assert.Equal(t, "bench1_insert_person: disk full", res.Err.Message)

	res = s.Call(ctx, "panic", nil)
	require.Error(t, res.Failure())
	assert.Equal(t, "panic: assertion failed", res.Err.Message)

	res = s.Call(ctx, "add", []byte(`[1]`))
	require.Error(t, res.Failure())
	assert.Contains(t, res.Err.Message, "expected 2 arguments")

	res = s.Call(ctx, "add", []byte(`{`))
	require.Error(t, res.Failure())

	res = s.Call(ctx, "missing", nil)
	require.Error(t, res.Failure())
	assert.Equal(t, CanisterError, res.Err.Kind)

	methods := s.Methods()
	require.Len(t, methods, 5)
	assert.Equal(t, "add", methods[0].Name)

	err := s.Register(Method{Name: "add"})
	assert.True(t, errors.Is(err, ErrDuplicateMethod))
}

func TestResultEnvelope(t *testing.T) {
	for _, tc := range []struct {
		result   Result
		expected string
	}{
		{Result{Ok: "x"}, `{"Ok":"x"}`},
		{Result{Ok: nil}, `{"Ok":null}`},
		{failed(InvalidCanister, ""), `{"Err":"InvalidCanister"}`},
		{failed(CanisterError, "boom"), `{"Err":{"CanisterError":{"message":"boom"}}}`},
	} {
		buf, err := json.Marshal(tc.result)
		require.NoError(t, err)
		assert.JSONEq(t, tc.expected, string(buf))

		var decoded Result
		require.NoError(t, json.Unmarshal(buf, &decoded))
		assert.Equal(t, tc.result.Err, decoded.Err)
		assert.Equal(t, tc.result.Ok, decoded.Ok)
	}

	var decoded Result
	assert.Error(t, json.Unmarshal([]byte(`{"Err":"Unknown"}`), &decoded))
	assert.Error(t, json.Unmarshal([]byte(`{"Err":{"Other":1}}`), &decoded))
}

func TestRouterHTTP(t *testing.T) {
	r := NewRouter(nil).Add(greeter(t))
	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	post := func(pth, body string) (int, Result) {
		resp, err := http.Post(srv.URL+pth, "application/json", bytes.NewBufferString(body))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		var res Result
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
		return resp.StatusCode, res
	}

	status, res := post("/greeter/greet", `["http"]`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Hello from WASI: http", res.Ok)

	status, res = post("/greeter/add", `[1, 2]`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(3), res.Ok)

	status, res = post("/nowhere/greet", `[]`)
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, res.Err)
	assert.Equal(t, InvalidCanister, res.Err.Kind)

	status, res = post("/greeter/fail", ``)
	assert.Equal(t, http.StatusOK, status)
	require.NotNil(t, res.Err)
	assert.Equal(t, CanisterError, res.Err.Kind)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	var services []string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&services))
	_ = resp.Body.Close()
	assert.Equal(t, []string{"greeter"}, services)

	resp, err = http.Get(srv.URL + "/greeter")
	require.NoError(t, err)
	var methods []struct {
		Name string `json:"name"`
		Kind string `json:"kind"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&methods))
	_ = resp.Body.Close()
	require.Len(t, methods, 5)
	assert.Equal(t, "update", methods[0].Kind)

	resp, err = http.Get(srv.URL + "/nowhere")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func freeAddr(t testing.TB) string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestServe(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	r := NewRouter(nil).Add(greeter(t))
	addr := freeAddr(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, addr, r) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	require.Eventually(t, func() bool {
		resp, err := client.Get("http://" + addr + "/")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	client.CloseIdleConnections()
}
