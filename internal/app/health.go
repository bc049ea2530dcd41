package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

// HealthChecker probes the storage backends the account flows depend on.
// Both probes run concurrently and share one deadline.
type HealthChecker struct {
	infra Infrastructure
}

func NewHealthChecker(infra Infrastructure) *HealthChecker {
	return &HealthChecker{
		infra: infra,
	}
}

type componentStatus struct {
	name string
	err  error
}

func (h *HealthChecker) check(ctx context.Context) []componentStatus {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	results := make(chan componentStatus, 2)

	go func() {
		results <- componentStatus{name: "postgres", err: h.infra.Postgres().Ping(ctx)}
	}()

	go func() {
		results <- componentStatus{name: "redis", err: h.infra.Redis().Ping(ctx)}
	}()

	return []componentStatus{<-results, <-results}
}

func (h *HealthChecker) Handler(c *gin.Context) {
	components := gin.H{}
	healthy := true

	for _, result := range h.check(c.Request.Context()) {
		if result.err != nil {
			healthy = false
			components[result.name] = fmt.Sprintf("fail: %v", result.err)
		} else {
			components[result.name] = "pass"
		}
	}

	status := http.StatusOK
	overall := "pass"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "fail"
	}

	c.JSON(status, gin.H{
		"status":     overall,
		"components": components,
	})
}
