// Package api provides the REST API server for als2hapax
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/james-see/als2hapax/pkg/als"
	"github.com/james-see/als2hapax/pkg/config"
	"github.com/james-see/als2hapax/pkg/converter"
	"github.com/james-see/als2hapax/pkg/converter/devices"
	"github.com/james-see/als2hapax/pkg/rack"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title als2hapax API
// @version 1.0
// @description API for turning Ableton Live racks into Hapax instrument definitions
// @host localhost:8080
// @BasePath /api/v1

type server struct {
	conv      *converter.Converter
	maxUpload int64
}

// NewRouter builds the API routes
func NewRouter(cfg config.Config) *gin.Engine {
	s := &server{
		conv: converter.New(devices.NewHapax(),
			converter.WithDefaultChannel(cfg.Channel),
			converter.WithDefaultPort(cfg.OutPort),
			converter.WithLogger(cfg.Logger()),
		),
		maxUpload: cfg.MaxUploadBytes(),
	}

	r := gin.Default()
	r.MaxMultipartMemory = s.maxUpload

	// CORS middleware
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/ports", s.listPorts)
		v1.POST("/inspect", s.handleInspect)
		v1.POST("/convert", s.handleConvert)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// StartServer starts the API server on the configured port
func StartServer(cfg config.Config) error {
	return NewRouter(cfg).Run(fmt.Sprintf(":%d", cfg.ServerPort))
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "als2hapax",
	})
}

// listPorts godoc
// @Summary List output ports
// @Description Returns the OUTPORT values the target device accepts
// @Tags info
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/ports [get]
func (s *server) listPorts(c *gin.Context) {
	device := s.conv.GetDevice()
	c.JSON(http.StatusOK, gin.H{
		"device":  device.Name(),
		"ports":   device.Ports(),
		"default": device.DefaultPort(),
	})
}

// handleInspect godoc
// @Summary Inspect a Live project
// @Description Upload an .als file and list the Instrument and Drum racks found in it
// @Tags convert
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Live project"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /api/v1/inspect [post]
func (s *server) handleInspect(c *gin.Context) {
	name, data, ok := s.readUpload(c)
	if !ok {
		return
	}

	racks, err := s.conv.Inspect(data)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"filename": name,
		"racks":    racks,
	})
}

// handleConvert godoc
// @Summary Convert a Live project
// @Description Upload an .als file with rack selections and receive a zip of Hapax definitions
// @Tags convert
// @Accept multipart/form-data
// @Produce application/zip
// @Param file formData file true "Live project"
// @Param selections formData string false "JSON array of rack selections; empty converts every rack"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /api/v1/convert [post]
func (s *server) handleConvert(c *gin.Context) {
	name, data, ok := s.readUpload(c)
	if !ok {
		return
	}

	var selections []converter.Selection
	if raw := c.PostForm("selections"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &selections); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid selections: %v", err)})
			return
		}
	}

	archive, err := s.conv.Convert(data, converter.ProjectName(name), selections)
	if err != nil {
		writeError(c, err)
		return
	}

	out, err := archive.Bytes()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", archive.Name))
	c.Data(http.StatusOK, "application/zip", out)
}

// readUpload reads the "file" form field and writes an error response on failure
func (s *server) readUpload(c *gin.Context) (string, []byte, bool) {
	if c.Request.ContentLength > s.maxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
		return "", nil, false
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
			return "", nil, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return "", nil, false
	}
	defer func() { _ = file.Close() }()

	if converter.DetectFormat(header.Filename) != converter.FormatALS {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File must be an .als file"})
		return "", nil, false
	}

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return "", nil, false
	}
	return header.Filename, data, true
}

// writeError maps pipeline errors to HTTP responses naming the failing track
func writeError(c *gin.Context, err error) {
	var (
		formatErr   *als.FormatError
		validErr    *rack.ValidationError
		capacityErr *rack.CapacityExceededError
	)
	switch {
	case errors.As(err, &formatErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &validErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "track": validErr.Track})
	case errors.As(err, &capacityErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "track": capacityErr.Track})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
