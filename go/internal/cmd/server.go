package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/mcdev12/prizevote/go/internal/voter/gateway"
)

func setupServer(config *Config, gatewayService *gateway.Service) *http.Server {
	return &http.Server{
		Addr:        fmt.Sprintf(":%s", config.Gateway.Port),
		Handler:     gatewayService.Handler(),
		ReadTimeout: 10 * time.Second,
		// WriteTimeout stays unset so WebSocket feeds are not cut off
		IdleTimeout: 120 * time.Second,
	}
}
