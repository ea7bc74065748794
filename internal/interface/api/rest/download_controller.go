package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"transfer-manager-api/internal/application/ports"
	domain "transfer-manager-api/internal/domain/download"
	"transfer-manager-api/internal/infrastructure/jwt"
	"transfer-manager-api/internal/interface/api/rest/dto/download"
	"transfer-manager-api/internal/interface/api/rest/middleware"
	"transfer-manager-api/internal/interface/api/rest/validator"
)

type DownloadController struct {
	downloadService ports.DownloadService
	logger          *zap.Logger
}

func NewDownloadController(
	r *gin.Engine,
	downloadService ports.DownloadService,
	logger *zap.Logger,
	jwtService *jwt.Service,
) *DownloadController {
	dc := &DownloadController{
		downloadService: downloadService,
		logger:          logger,
	}

	r.POST(RouteDownloads, middleware.AuthMiddleware(jwtService), dc.RegisterHandler)
	r.GET(RouteDownload, dc.GetStatusHandler)

	return dc
}

func (dc *DownloadController) RegisterHandler(c *gin.Context) {
	var req download.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}
	if errs := validator.ValidateRegisterDownload(req); errs != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": errs,
		})
		return
	}

	cmd := download.ToRegisterCommand(req, c.GetInt64(middleware.CtxTenantID), c.GetInt64(middleware.CtxOrganizationID))

	d, err := dc.downloadService.Register(c.Request.Context(), cmd)
	if err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(
			http.StatusInternalServerError,
			gin.H{"error": "failed to register download"},
		)
		dc.logger.Error("Register() error", zap.Error(err))
		return
	}

	c.JSON(http.StatusAccepted, download.ToResponseDownload(d))
}

func (dc *DownloadController) GetStatusHandler(c *gin.Context) {
	ok, downloadID := validator.IsUUID(c.Param("download_id"))
	if !ok {
		c.JSON(
			http.StatusBadRequest,
			gin.H{"error": "download_id must be a valid UUID"},
		)
		return
	}

	d, err := dc.downloadService.GetStatus(c.Request.Context(), downloadID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "download not found"})
			return
		}
		c.JSON(
			http.StatusInternalServerError,
			gin.H{"error": "failed to get download"},
		)
		dc.logger.Error("GetStatus() error", zap.Error(err))
		return
	}

	c.JSON(http.StatusOK, download.ToResponseDownload(d))
}
