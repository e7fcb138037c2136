// Package api is the boundary gateway: the fixed request/response
// surface between the untrusted shell UI and the privileged pipeline.
// Every operation maps to exactly one pipeline, catalog or host call,
// and every failure comes back as a value the UI can branch on.
package api

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/filedrop/filedrop/pkg/host"
	"github.com/filedrop/filedrop/pkg/pipeline"
	"github.com/filedrop/filedrop/pkg/sysinfo"
	"github.com/filedrop/filedrop/pkg/types"
)

type Gateway struct {
	pipeline *pipeline.Pipeline
	dialog   host.DialogProvider
	notifier host.Notifier
	logger   *log.Logger
}

func New(p *pipeline.Pipeline, dialog host.DialogProvider, notifier host.Notifier, logger *log.Logger) *Gateway {
	return &Gateway{
		pipeline: p,
		dialog:   dialog,
		notifier: notifier,
		logger:   logger,
	}
}

func (g *Gateway) RegisterRoutes(router *gin.Engine) {
	router.Use(requestID())

	api := router.Group("/api")
	api.GET("/system", g.getSystemInfo)
	api.POST("/dialog/open", g.openFileDialog)
	api.POST("/file/read", g.readFile)
	api.GET("/files", g.getFiles)
	api.POST("/files", g.handleFileSelected)
	api.DELETE("/files/:id", g.removeFile)
	api.POST("/files/reconcile", g.reconcile)
	api.POST("/notify", g.showNotification)
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func (g *Gateway) getSystemInfo(c *gin.Context) {
	info, err := sysinfo.Collect(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, info)
}

func (g *Gateway) openFileDialog(c *gin.Context) {
	paths, err := g.dialog.OpenFileDialog(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if paths == nil {
		paths = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"paths": paths})
}

func (g *Gateway) readFile(c *gin.Context) {
	var req struct {
		Path string `json:"path" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}

	payload, err := g.pipeline.Read(c.Request.Context(), req.Path)
	if errors.Is(err, types.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"payload": payload})
}

func (g *Gateway) handleFileSelected(c *gin.Context) {
	var rec types.Record
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid record"})
		return
	}

	id, err := g.pipeline.Ingest(c.Request.Context(), &rec)
	if err != nil {
		// the shell branches on success, never on a raw fault
		g.logger.Warn("ingest failed", "id", rec.ID, "error", err)
		c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "id": id})
}

func (g *Gateway) removeFile(c *gin.Context) {
	id := c.Param("id")

	if err := g.pipeline.Remove(c.Request.Context(), id); err != nil {
		g.logger.Warn("remove failed", "id", id, "error", err)
		c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (g *Gateway) getFiles(c *gin.Context) {
	files, err := g.pipeline.Files(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if files == nil {
		files = []*types.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

func (g *Gateway) reconcile(c *gin.Context) {
	removed, err := g.pipeline.Reconcile(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (g *Gateway) showNotification(c *gin.Context) {
	var n host.Notification
	if err := c.ShouldBindJSON(&n); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification"})
		return
	}

	g.notifier.Notify(c.Request.Context(), n)
	c.Status(http.StatusAccepted)
}
