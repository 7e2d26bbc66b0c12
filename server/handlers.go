package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/JamisonProctor/planz/model"
	"github.com/JamisonProctor/planz/utils"
	. "github.com/JamisonProctor/planz/utils/log"
)

const defaultIssueLimit = 100

// SourceDomainView is a SourceDomain together with how many source urls are
// registered under it.
type SourceDomainView struct {
	Domain         string `json:"domain"`
	IsAllowed      bool   `json:"is_allowed"`
	Notes          string `json:"notes"`
	SourceUrlCount int    `json:"source_url_count"`
}

type updateSourceDomainRequest struct {
	IsAllowed *bool   `json:"is_allowed" binding:"required"`
	Notes     *string `json:"notes"`
}

func PingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	}
}

// ListAcquisitionIssuesHandler lists acquisition issues, most recently seen
// first. Optional query parameters: reason, domain, limit.
func ListAcquisitionIssuesHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := defaultIssueLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = n
		}

		query := db.Model(&model.AcquisitionIssue{})
		if reason := c.Query("reason"); reason != "" {
			query = query.Where("reason = ?", reason)
		}
		if domain := c.Query("domain"); domain != "" {
			query = query.Where("domain = ?", strings.ToLower(domain))
		}

		var issues []model.AcquisitionIssue
		if err := query.Order("last_seen_at desc").Limit(limit).Find(&issues).Error; err != nil {
			Log.WithError(err).Error("fail to list acquisition issues")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, issues)
	}
}

func ListSourceDomainsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var views []SourceDomainView
		err := db.Model(&model.SourceDomain{}).
			Select("source_domains.domain, source_domains.is_allowed, source_domains.notes, " +
				"count(source_urls.id) as source_url_count").
			Joins("left join source_urls on source_urls.domain_id = source_domains.id").
			Group("source_domains.id").
			Order("source_domains.domain").
			Scan(&views).Error
		if err != nil {
			Log.WithError(err).Error("fail to list source domains")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if views == nil {
			views = []SourceDomainView{}
		}
		c.JSON(http.StatusOK, views)
	}
}

// UpdateSourceDomainHandler flips the operator kill switch of a domain. The
// domain must already exist, domains are only created by discovery.
func UpdateSourceDomainHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateSourceDomainRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		name := strings.ToLower(c.Param("domain"))
		var domain model.SourceDomain
		result := db.Where("domain = ?", name).Limit(1).Find(&domain)
		if result.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": result.Error.Error()})
			return
		}
		if result.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown domain " + name})
			return
		}

		updates := map[string]interface{}{"is_allowed": *req.IsAllowed}
		if req.Notes != nil {
			updates["notes"] = *req.Notes
		}
		if err := db.Model(&domain).Updates(updates).Error; err != nil {
			Log.WithError(err).WithField("domain", name).Error("fail to update source domain")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		Log.WithField("domain", name).WithField("is_allowed", *req.IsAllowed).Info("source domain updated")

		domain.IsAllowed = *req.IsAllowed
		if req.Notes != nil {
			domain.Notes = *req.Notes
		}

		c.JSON(http.StatusOK, SourceDomainView{
			Domain:    domain.Domain,
			IsAllowed: domain.IsAllowed,
			Notes:     domain.Notes,
		})
	}
}

func MetricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(utils.MetricsRegistry, promhttp.HandlerOpts{}))
}
