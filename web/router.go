package web

import (
	"stemsep/config"
	"stemsep/job"

	"github.com/gin-gonic/gin"
)

func SetupRouter(p *job.Processor, cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), LogMiddleware())
	r.SetHTMLTemplate(pageTemplate())
	h := NewHandler(p, cfg)

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.GET("/", h.handleIndex)
	r.POST("/separate", AuthMiddleware(cfg), h.handleSeparate)
	r.GET("/results/*path", h.handleResult)

	return r
}
