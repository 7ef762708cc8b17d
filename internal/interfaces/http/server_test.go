package http

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/SeqQuant/internal/config"
	"github.com/turtacn/SeqQuant/internal/interfaces/http/handlers"
)

func TestNewServer(t *testing.T) {
	mux := http.NewServeMux()
	server := NewServer(config.ServerConfig{Host: "127.0.0.1", Port: 8080}, mux, nil)

	require.NotNil(t, server)
	assert.Equal(t, "127.0.0.1:8080", server.Addr())
	assert.Equal(t, config.DefaultShutdownTimeout, server.shutdownTimeout)
	assert.Same(t, mux, server.Handler().(*http.ServeMux))
}

func TestServer_ServeAndStop(t *testing.T) {
	router := NewRouter(RouterConfig{HealthHandler: handlers.NewHealthHandler("test")})
	server := NewServer(config.ServerConfig{ShutdownTimeout: time.Second}, router, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- server.Serve(ln) }()

	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", ln.Addr()))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"alive"`)

	require.NoError(t, server.Stop(context.Background()))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_StopWithoutStart(t *testing.T) {
	server := NewServer(config.ServerConfig{}, http.NewServeMux(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, server.Stop(ctx))
}
