// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/proofgraph/services/orchestrator/handlers"
	"github.com/AleutianAI/proofgraph/services/orchestrator/observability"
)

// Deps is everything the routes need.
type Deps struct {
	Runner    handlers.SessionRunner
	WebSocket handlers.WebSocketConfig
	Metrics   *observability.Metrics

	// Gatherer backs /metrics. Nil leaves the endpoint unregistered.
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

func SetupRoutes(router *gin.Engine, d Deps) {
	router.GET("/", handlers.Root)
	router.GET("/health", handlers.HealthCheck)
	if d.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	ws := handlers.HandleExploreWebSocket(d.Runner, d.WebSocket, d.Metrics, d.Logger)

	// Path used by existing frontends.
	router.GET("/ws/analyze", ws)

	v1 := router.Group("/v1")
	{
		v1.GET("/explore/ws", ws)
		v1.POST("/explore", handlers.HandleExplore(d.Runner, d.WebSocket.MaxStatementBytes, d.WebSocket.Screener, d.Logger))
	}
}
