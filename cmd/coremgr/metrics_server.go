package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/kubescape/go-logger/helpers"

	"github.com/EricSciullo/POE-Core-Manager/pkg/lib"
)

func startMetricsServer(addr string, handler http.Handler, log lib.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("prometheus metrics server started", helpers.String("address", addr), helpers.String("path", "/metrics"))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("prometheus metrics server stopped", helpers.Error(err))
		}
	}()
	return srv
}
