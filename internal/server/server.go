// internal/server/server.go
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// startTime is used to report process uptime.
var startTime = time.Now()

// HealthResponse is the payload of the health endpoint.
type HealthResponse struct {
	Status        string `json:"status"`
	Backend       string `json:"backend"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// NewRouter builds the small HTTP surface of the bot process: a liveness
// endpoint for container orchestration and a root note describing the
// process. The panel itself lives entirely on Discord.
func NewRouter(backendKind string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{
			Status:        "ok",
			Backend:       backendKind,
			UptimeSeconds: int64(time.Since(startTime).Seconds()),
		})
	})

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Kronos Discord bot is running.",
			"backend": backendKind,
			"notes": []string{
				"Service control happens through Discord slash commands.",
				"This HTTP surface only exposes process health.",
			},
		})
	})

	return router
}
