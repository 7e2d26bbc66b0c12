package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRouter registers the admin routes on a fresh gin engine.
func SetupRouter(db *gorm.DB) *gin.Engine {
	router := gin.Default()
	router.Use(cors.Default())

	router.GET("/ping", PingHandler())
	router.GET("/metrics", MetricsHandler())
	router.GET("/acquisition_issues", ListAcquisitionIssuesHandler(db))
	router.GET("/source_domains", ListSourceDomainsHandler(db))
	router.PUT("/source_domains/:domain", UpdateSourceDomainHandler(db))
	return router
}
