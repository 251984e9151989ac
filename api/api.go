// Package api exposes the small HTTP surface that runs next to the
// bot: a heartbeat endpoint for liveness probes
package api

import (
	"fmt"
	"net/http"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Serve blocks on the heartbeat listener.
func Serve() error {
	router := gin.New()

	router.Use(
		gin.Recovery(),
		ginzap.Ginzap(zap.L(), "15:04:05.000", true),
	)

	// HEAD /api/heartbeat 		-> Used to check if the bot process is alive
	router.HEAD("/api/heartbeat", heartbeat)

	return router.Run(fmt.Sprintf(":%d", viper.GetInt("host.port")))
}

func heartbeat(c *gin.Context) {
	c.Status(http.StatusOK)
}
