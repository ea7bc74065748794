package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"transfer-manager-api/internal/application/ports"
	"transfer-manager-api/internal/domain/session"
	"transfer-manager-api/internal/infrastructure/jwt"
	"transfer-manager-api/internal/interface/api/rest/dto/upload"
	"transfer-manager-api/internal/interface/api/rest/middleware"
	"transfer-manager-api/internal/interface/api/rest/validator"
)

type UploadController struct {
	uploadService ports.UploadService
	logger        *zap.Logger
}

func NewUploadController(
	r *gin.Engine,
	uploadService ports.UploadService,
	logger *zap.Logger,
	jwtService *jwt.Service,
) *UploadController {
	uc := &UploadController{
		uploadService: uploadService,
		logger:        logger,
	}

	auth := middleware.AuthMiddleware(jwtService)
	r.POST(RouteUploadsSingle, auth, uc.InitiateSingleHandler)
	r.POST(RouteUploadsMultipart, auth, uc.InitiateMultipartHandler)
	r.POST(RouteUploadParts, auth, uc.RecordPartHandler)
	r.POST(RouteUploadComplete, auth, uc.CompleteHandler)
	r.POST(RouteUploadCancel, auth, uc.CancelHandler)
	r.GET(RouteUpload, uc.GetStatusHandler)

	return uc
}

func (uc *UploadController) InitiateSingleHandler(c *gin.Context) {
	var req upload.InitiateSingleRequest
	// for a good boost of performance(x3 minimum) and to avoid reflection under the hood
	// better to use codegen for marshal/unmarshal for example:
	// https://github.com/mailru/easyjson
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}
	if errs := validator.ValidateInitiateSingle(req); errs != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": errs,
		})
		return
	}

	cmd := upload.ToInitiateSingleCommand(req, c.GetInt64(middleware.CtxTenantID), c.GetInt64(middleware.CtxOrganizationID))

	s, err := uc.uploadService.InitiateSingle(c.Request.Context(), cmd)
	if err != nil {
		uc.respondError(c, "InitiateSingle", err)
		return
	}

	c.JSON(http.StatusCreated, upload.ToResponseSingle(s))
}

func (uc *UploadController) InitiateMultipartHandler(c *gin.Context) {
	var req upload.InitiateMultipartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}
	if errs := validator.ValidateInitiateMultipart(req); errs != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": errs,
		})
		return
	}

	cmd := upload.ToInitiateMultipartCommand(req, c.GetInt64(middleware.CtxTenantID), c.GetInt64(middleware.CtxOrganizationID))

	m, err := uc.uploadService.InitiateMultipart(c.Request.Context(), cmd)
	if err != nil {
		uc.respondError(c, "InitiateMultipart", err)
		return
	}

	c.JSON(http.StatusCreated, upload.ToResponseMultipart(m))
}

func (uc *UploadController) RecordPartHandler(c *gin.Context) {
	ok, sessionID := validator.IsUUID(c.Param("session_id"))
	if !ok {
		c.JSON(
			http.StatusBadRequest,
			gin.H{"error": "session_id must be a valid UUID"},
		)
		return
	}

	var req upload.RecordPartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}
	if errs := validator.ValidateRecordPart(req); errs != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": errs,
		})
		return
	}

	part, err := uc.uploadService.RecordPart(c.Request.Context(), ports.RecordPartCommand{
		SessionID:  sessionID,
		PartNumber: req.PartNumber,
		ETag:       req.ETag,
		SizeBytes:  req.SizeBytes,
	})
	if err != nil {
		uc.respondError(c, "RecordPart", err)
		return
	}

	c.JSON(http.StatusOK, upload.ToResponsePart(part))
}

func (uc *UploadController) CompleteHandler(c *gin.Context) {
	ok, sessionID := validator.IsUUID(c.Param("session_id"))
	if !ok {
		c.JSON(
			http.StatusBadRequest,
			gin.H{"error": "session_id must be a valid UUID"},
		)
		return
	}

	// the body is optional for multipart completion
	var req upload.CompleteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid request body",
				"details": err.Error(),
			})
			return
		}
	}

	view, err := uc.uploadService.Complete(c.Request.Context(), sessionID, req.ETag)
	if err != nil {
		uc.respondError(c, "Complete", err)
		return
	}

	c.JSON(http.StatusOK, upload.ToResponseStatus(view))
}

func (uc *UploadController) CancelHandler(c *gin.Context) {
	ok, sessionID := validator.IsUUID(c.Param("session_id"))
	if !ok {
		c.JSON(
			http.StatusBadRequest,
			gin.H{"error": "session_id must be a valid UUID"},
		)
		return
	}

	if err := uc.uploadService.Cancel(c.Request.Context(), sessionID); err != nil {
		uc.respondError(c, "Cancel", err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (uc *UploadController) GetStatusHandler(c *gin.Context) {
	ok, sessionID := validator.IsUUID(c.Param("session_id"))
	if !ok {
		c.JSON(
			http.StatusBadRequest,
			gin.H{"error": "session_id must be a valid UUID"},
		)
		return
	}

	view, err := uc.uploadService.GetStatus(c.Request.Context(), sessionID)
	if err != nil {
		uc.respondError(c, "GetStatus", err)
		return
	}

	c.JSON(http.StatusOK, upload.ToResponseStatus(view))
}

func (uc *UploadController) respondError(c *gin.Context, op string, err error) {
	var (
		vErr *session.ValidationError
		cErr *session.ConflictError
		eErr *session.ExpiredError
		pErr *session.PartConflictError
		iErr *session.IncompleteError
	)

	switch {
	case errors.Is(err, session.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "upload session not found"})
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &iErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":         err.Error(),
			"missing_parts": iErr.Missing,
		})
	case errors.As(err, &cErr), errors.As(err, &eErr), errors.As(err, &pErr):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrStaleVersion):
		c.JSON(http.StatusConflict, gin.H{"error": "concurrent modification, retry the request"})
	default:
		c.JSON(
			http.StatusInternalServerError,
			gin.H{"error": "upload operation failed"},
		)
		uc.logger.Error(op+"() error", zap.Error(err))
	}
}
