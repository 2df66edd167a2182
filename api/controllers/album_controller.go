package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ayato-h/albumdrop/store"
	"github.com/ayato-h/albumdrop/tool"
)

// AlbumController exposes the album side of the drop flow: a UI creates an
// album, points a session at it, then reads back what landed in it.
type AlbumController struct {
	st store.Store
}

func NewAlbumController(st store.Store) *AlbumController {
	return &AlbumController{st: st}
}

// CreateAlbumRequest is the body of POST /albums. ID is optional, one is
// generated when empty.
type CreateAlbumRequest struct {
	ID   string `json:"id"`
	Name string `json:"name" binding:"required"`
}

func (ctrl *AlbumController) HandleCreateAlbum(c *gin.Context) {
	var req CreateAlbumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("name is required"))
		return
	}

	album, err := ctrl.st.CreateAlbum(c.Request.Context(), req.ID, req.Name)
	if err != nil {
		tool.DefaultLogger.Errorf("[API] Failed to create album %q: %v", req.Name, err)
		c.JSON(http.StatusInternalServerError, tool.FastReturnError("Failed to create album"))
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(albumView(album)))
}

func (ctrl *AlbumController) HandleGetAlbum(c *gin.Context) {
	album, err := ctrl.st.Album(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrAlbumNotFound) {
		c.JSON(http.StatusNotFound, tool.FastReturnError("Album not found"))
		return
	}
	if err != nil {
		tool.DefaultLogger.Errorf("[API] Failed to fetch album %s: %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, tool.FastReturnError("Failed to fetch album"))
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(albumView(album)))
}

// HandleListPhotos returns the album's photos, newest first. A missing album
// is a 404, an empty album is an empty list.
func (ctrl *AlbumController) HandleListPhotos(c *gin.Context) {
	ctx := c.Request.Context()
	albumID := c.Param("id")

	if _, err := ctrl.st.Album(ctx, albumID); err != nil {
		if errors.Is(err, store.ErrAlbumNotFound) {
			c.JSON(http.StatusNotFound, tool.FastReturnError("Album not found"))
			return
		}
		tool.DefaultLogger.Errorf("[API] Failed to fetch album %s: %v", albumID, err)
		c.JSON(http.StatusInternalServerError, tool.FastReturnError("Failed to fetch album"))
		return
	}

	photos, err := ctrl.st.Photos(ctx, albumID)
	if err != nil {
		tool.DefaultLogger.Errorf("[API] Failed to list photos of %s: %v", albumID, err)
		c.JSON(http.StatusInternalServerError, tool.FastReturnError("Failed to list photos"))
		return
	}

	out := make([]gin.H, 0, len(photos))
	for _, p := range photos {
		out = append(out, gin.H{
			"id":        p.ID,
			"url":       p.URL,
			"caption":   p.Caption,
			"createdAt": p.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(out))
}

func albumView(a store.Album) gin.H {
	return gin.H{
		"id":         a.ID,
		"name":       a.Name,
		"photoCount": a.PhotoCount,
		"createdAt":  a.CreatedAt,
	}
}
