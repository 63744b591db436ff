package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cartercloud/cartercloud/auth"
	apperrors "github.com/cartercloud/cartercloud/errors"
	"github.com/cartercloud/cartercloud/logger"
	"github.com/cartercloud/cartercloud/metadata"
	"github.com/cartercloud/cartercloud/util"
	"github.com/cartercloud/cartercloud/vault"
)

// Handlers binds the storage service and the credential verifier to the HTTP
// routes.
type Handlers struct {
	vault    *vault.Service
	verifier auth.Verifier
	log      *logger.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(v *vault.Service, verifier auth.Verifier, log *logger.Logger) *Handlers {
	return &Handlers{
		vault:    v,
		verifier: verifier,
		log:      log.WithComponent("handlers"),
	}
}

// RegisterRoutes installs the API routes on the engine.
func (h *Handlers) RegisterRoutes(engine *gin.Engine) {
	engine.POST("/login", h.Login)
	engine.GET("/files", h.ListFiles)
	engine.GET("/files/:id", h.DownloadFile)
	engine.DELETE("/files/:id", h.DeleteFile)
	engine.POST("/upload", h.Upload)
	engine.POST("/fetch-url", h.FetchURL)
	engine.POST("/folders", h.ReplaceFolders)
	engine.DELETE("/folders/:id", h.DeleteFolder)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login verifies credentials and returns the user profile. There is no
// session: clients treat a 200 as logged in.
func (h *Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, apperrors.InvalidInput("", "request body must be a JSON object"))
		return
	}
	if req.Username == "" {
		RespondWithError(c, apperrors.MissingField("username"))
		return
	}
	if req.Password == "" {
		RespondWithError(c, apperrors.MissingField("password"))
		return
	}

	user, err := h.verifier.Verify(req.Username, req.Password)
	if err != nil {
		// Login keeps the legacy body shape rather than the error envelope.
		message := "Incorrect username or password."
		if appErr, ok := apperrors.AsAppError(err); ok {
			message = appErr.Message
		}
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": message})
		return
	}

	RespondOK(c, gin.H{"success": true, "user": user})
}

// ListFiles returns the full file/folder index after reconciling it against
// blob storage.
func (h *Handlers) ListFiles(c *gin.Context) {
	doc, err := h.vault.List(c.Request.Context())
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, doc)
}

// Upload ingests a base64-encoded file sent in the request body.
func (h *Handlers) Upload(c *gin.Context) {
	var req vault.UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, apperrors.InvalidInput("", "request body must be a JSON object"))
		return
	}

	rec, err := h.vault.IngestUpload(c.Request.Context(), req)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, rec)
}

// FetchURL ingests a file downloaded from a remote URL.
func (h *Handlers) FetchURL(c *gin.Context) {
	var req vault.FetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, apperrors.InvalidInput("", "request body must be a JSON object"))
		return
	}

	rec, err := h.vault.IngestURL(c.Request.Context(), req)
	if err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, rec)
}

// DownloadFile streams a file's content as an attachment.
func (h *Handlers) DownloadFile(c *gin.Context) {
	rec, data, err := h.vault.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithError(c, err)
		return
	}

	filename := util.SanitizeFilename(rec.Name)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Length", strconv.Itoa(len(data)))
	c.Data(http.StatusOK, rec.Type, data)
}

// DeleteFile removes a file. Deleting an id that no longer exists succeeds.
func (h *Handlers) DeleteFile(c *gin.Context) {
	if err := h.vault.Delete(c.Request.Context(), c.Param("id")); err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}

// ReplaceFolders installs a new folder tree. The request body is the
// complete folder list as a bare JSON array; clients resend it on every
// structural change.
func (h *Handlers) ReplaceFolders(c *gin.Context) {
	var folders []metadata.Folder
	if err := c.ShouldBindJSON(&folders); err != nil {
		RespondWithError(c, apperrors.InvalidInput("", "request body must be a JSON array of folders"))
		return
	}

	if err := h.vault.ReplaceFolders(c.Request.Context(), folders); err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}

// DeleteFolder removes a folder, its subfolders, and all contained files.
func (h *Handlers) DeleteFolder(c *gin.Context) {
	if err := h.vault.DeleteFolder(c.Request.Context(), c.Param("id")); err != nil {
		RespondWithError(c, err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}
