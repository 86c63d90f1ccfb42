package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/danmuck/irlink/internal/comm"
	"github.com/danmuck/irlink/internal/protocol/frame"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"
)

const version = "0.1.0"

type portInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) RegisterRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.ID,
			"version": version,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/ports", func(c *gin.Context) {
		ports, err := s.listPorts()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		list := lo.Map(comm.SortedPortNames(ports), func(name string, _ int) portInfo {
			return portInfo{Name: name, Description: ports[name]}
		})
		c.JSON(http.StatusOK, gin.H{"ports": list})
	})

	s.router.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": comm.ListRooms()})
	})

	s.router.GET("/channel", func(c *gin.Context) {
		kind, target := s.ActiveChannel()
		c.JSON(http.StatusOK, gin.H{
			"kind":   kind.String(),
			"target": target,
		})
	})

	s.router.GET("/frames", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"frames": s.Recent()})
	})

	s.router.POST("/send", func(c *gin.Context) {
		payload, err := io.ReadAll(io.LimitReader(c.Request.Body, frame.MaxWireLen+1))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := s.Send(payload); err != nil {
			status := http.StatusBadGateway
			if errors.Is(err, frame.ErrPayloadTooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "sent", "bytes": len(payload)})
	})
}
