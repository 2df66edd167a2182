package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"github.com/ayato-h/albumdrop/registry"
	"github.com/ayato-h/albumdrop/tool"
	"github.com/ayato-h/albumdrop/types"
)

const (
	defaultQRSize = 200
	maxQRSize     = 512
)

// SessionController exposes the drop-session control operations.
type SessionController struct {
	reg  *registry.Registry
	host string
	port int // transfer engine port handed out in grants
}

func NewSessionController(reg *registry.Registry, host string, port int) *SessionController {
	if host == "" {
		host = tool.AdvertisedHost()
	}
	return &SessionController{reg: reg, host: host, port: port}
}

// StartSessionRequest is the body of POST /sessions.
type StartSessionRequest struct {
	Username  string `json:"username" binding:"required"`
	Directory string `json:"directory" binding:"required"`
	AlbumID   string `json:"albumId" binding:"required"`
}

// HandleStartSession mints credentials and returns the grant immediately; it
// never waits for the watcher to see any file.
func (ctrl *SessionController) HandleStartSession(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("username, directory and albumId are required"))
		return
	}

	sess, err := ctrl.reg.CreateSession(req.Username, req.Directory, req.AlbumID)
	if err != nil {
		if errors.Is(err, registry.ErrInvalidDirectory) {
			c.JSON(http.StatusBadRequest, tool.FastReturnError(err.Error()))
			return
		}
		tool.DefaultLogger.Errorf("[API] Failed to create session for %s: %v", req.Username, err)
		c.JSON(http.StatusInternalServerError, tool.FastReturnError("Failed to create session"))
		return
	}

	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(types.SessionGrant{
		Host:     ctrl.host,
		Username: sess.Username,
		Password: sess.Password,
		Port:     ctrl.port,
		Mode:     "ftp",
	}))
}

// HandleListSessions returns every active session, credentials included; the
// local-only middleware is what makes that acceptable.
func (ctrl *SessionController) HandleListSessions(c *gin.Context) {
	sessions := ctrl.reg.List()
	infos := make([]types.SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.Info())
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(infos))
}

// HandleResetAll revokes everything. Safe to call repeatedly.
func (ctrl *SessionController) HandleResetAll(c *gin.Context) {
	ctrl.reg.RevokeAll()
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

// TestCredentialsRequest is the body of POST /test-credentials.
type TestCredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (ctrl *SessionController) HandleTestCredentials(c *gin.Context) {
	var req TestCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body"))
		return
	}
	_, err := ctrl.reg.Authenticate(req.Username, req.Password)
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(gin.H{"valid": err == nil}))
}

// HandleSessionQR returns a PNG QR code of the session's ftp:// URL so a
// phone transfer client can be pointed at the drop directory in one scan.
// GET ?size=200x200 works the same as the api.qrserver.com parameter.
func (ctrl *SessionController) HandleSessionQR(c *gin.Context) {
	username := c.Param("username")
	sess, ok := ctrl.reg.Lookup(username)
	if !ok {
		c.JSON(http.StatusNotFound, tool.FastReturnError("No session for user"))
		return
	}

	size := parseSize(c.Query("size"))
	if size <= 0 {
		size = defaultQRSize
	}
	if size > maxQRSize {
		size = maxQRSize
	}

	ftpURL := fmt.Sprintf("ftp://%s:%s@%s:%d/",
		url.QueryEscape(sess.Username), url.QueryEscape(sess.Password), ctrl.host, ctrl.port)
	png, err := qrcode.Encode(ftpURL, qrcode.Medium, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, tool.FastReturnError("Failed to encode QR code: "+err.Error()))
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

// parseSize parses size from "200x200" or "200" and returns the pixel dimension.
func parseSize(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if idx := strings.Index(s, "x"); idx > 0 {
		s = strings.TrimSpace(s[:idx])
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
