package handler

import (
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"smartroom/internal/models"
	"smartroom/internal/service"
)

const (
	roomImagesFolder = "smartroom/rooms/images"
	roomVideosFolder = "smartroom/rooms/videos"
)

type RoomHandler struct {
	rooms *service.RoomService
	auth  *service.AuthService
	blobs service.BlobStore
}

func NewRoomHandler(rooms *service.RoomService, auth *service.AuthService, blobs service.BlobStore) *RoomHandler {
	return &RoomHandler{rooms: rooms, auth: auth, blobs: blobs}
}

// Search is the public room listing. Query params: keyword, category, city,
// minPrice, maxPrice, isApproved (admin tooling).
func (h *RoomHandler) Search(c *gin.Context) {
	filters := models.SearchFilters{
		Keyword:  c.Query("keyword"),
		Category: c.Query("category"),
		City:     c.Query("city"),
	}
	if v := c.Query("minPrice"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			filters.MinPrice = n
		}
	}
	if v := c.Query("maxPrice"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			filters.MaxPrice = n
		}
	}
	if v := c.Query("isApproved"); v != "" {
		approved := v == "true"
		filters.ApprovedOverride = &approved
	}

	rooms, err := h.rooms.SearchRooms(c.Request.Context(), filters)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "rooms": rooms})
}

func (h *RoomHandler) GetDetails(c *gin.Context) {
	room, err := h.rooms.GetRoomDetails(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "room": room})
}

// Create takes a multipart form: scalar fields plus JSON-encoded location,
// contactInfo, facilities and rules, plus images/videos file parts. Files are
// uploaded to the blob store before the service sees the room.
func (h *RoomHandler) Create(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}

	room, err := roomFromForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	room.Images, err = h.uploadFiles(ctx, form.File["images"], roomImagesFolder)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	room.Videos, err = h.uploadFiles(ctx, form.File["videos"], roomVideosFolder)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	if err := h.rooms.CreateRoom(ctx, room, c.GetString("userID")); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "room": room})
}

// Update accepts the same multipart shape as Create; any freshly uploaded
// images/videos become a wholesale replacement set.
func (h *RoomHandler) Update(c *gin.Context) {
	upd, files, err := roomUpdateFromForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if len(files["images"]) > 0 {
		upd.Images, err = h.uploadFiles(ctx, files["images"], roomImagesFolder)
		if err != nil {
			handleServiceError(c, err)
			return
		}
	}
	if len(files["videos"]) > 0 {
		upd.Videos, err = h.uploadFiles(ctx, files["videos"], roomVideosFolder)
		if err != nil {
			handleServiceError(c, err)
			return
		}
	}

	room, err := h.rooms.UpdateRoom(ctx, c.Param("id"), upd, c.GetString("userID"), models.ToRole(c.GetString("role")))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "room": room})
}

func (h *RoomHandler) Delete(c *gin.Context) {
	err := h.rooms.DeleteRoom(c.Request.Context(), c.Param("id"), c.GetString("userID"), models.ToRole(c.GetString("role")))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Room deleted successfully"})
}

func (h *RoomHandler) UpdateStatus(c *gin.Context) {
	var req struct {
		Status models.AvailabilityStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}

	room, err := h.rooms.UpdateAvailability(c.Request.Context(), c.Param("id"), req.Status, c.GetString("userID"), models.ToRole(c.GetString("role")))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "room": room})
}

func (h *RoomHandler) SubmitReview(c *gin.Context) {
	var req struct {
		RoomID  string `json:"roomId" binding:"required"`
		Rating  int    `json:"rating" binding:"required"`
		Comment string `json:"comment" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}

	reviewer, err := h.auth.GetProfile(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	room, err := h.rooms.SubmitReview(c.Request.Context(), req.RoomID, req.Rating, req.Comment, reviewer)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "room": room})
}

func (h *RoomHandler) GetOwnerRooms(c *gin.Context) {
	rooms, err := h.rooms.GetOwnerRooms(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "rooms": rooms})
}

func (h *RoomHandler) uploadFiles(ctx context.Context, files []*multipart.FileHeader, folder string) ([]models.MediaRef, error) {
	refs := make([]models.MediaRef, 0, len(files))
	for _, fh := range files {
		file, err := fh.Open()
		if err != nil {
			return nil, err
		}
		ref, err := h.blobs.Upload(ctx, file, fh.Size, fh.Header.Get("Content-Type"), fh.Filename, folder)
		file.Close()
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func roomFromForm(c *gin.Context) (*models.Room, error) {
	room := &models.Room{
		Title:       c.PostForm("title"),
		Description: c.PostForm("description"),
		Category:    models.RoomCategory(c.PostForm("category")),
	}

	if v := c.PostForm("price"); v != "" {
		price, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, errInvalidField("price")
		}
		room.Price = price
	}

	if v := c.PostForm("location"); v != "" {
		if err := json.Unmarshal([]byte(v), &room.Location); err != nil {
			return nil, errInvalidField("location")
		}
	}
	if v := c.PostForm("contactInfo"); v != "" {
		if err := json.Unmarshal([]byte(v), &room.ContactInfo); err != nil {
			return nil, errInvalidField("contactInfo")
		}
	}
	if v := c.PostForm("facilities"); v != "" {
		if err := json.Unmarshal([]byte(v), &room.Facilities); err != nil {
			return nil, errInvalidField("facilities")
		}
	}
	if v := c.PostForm("rules"); v != "" {
		if err := json.Unmarshal([]byte(v), &room.Rules); err != nil {
			return nil, errInvalidField("rules")
		}
	}

	return room, nil
}

func roomUpdateFromForm(c *gin.Context) (models.RoomUpdate, map[string][]*multipart.FileHeader, error) {
	var upd models.RoomUpdate

	form, err := c.MultipartForm()
	if err != nil {
		return upd, nil, errInvalidField("multipart form")
	}

	if v := c.PostForm("title"); v != "" {
		upd.Title = &v
	}
	if v := c.PostForm("description"); v != "" {
		upd.Description = &v
	}
	if v := c.PostForm("price"); v != "" {
		price, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return upd, nil, errInvalidField("price")
		}
		upd.Price = &price
	}
	if v := c.PostForm("category"); v != "" {
		cat := models.RoomCategory(v)
		upd.Category = &cat
	}
	if v := c.PostForm("location"); v != "" {
		var loc models.Location
		if err := json.Unmarshal([]byte(v), &loc); err != nil {
			return upd, nil, errInvalidField("location")
		}
		upd.Location = &loc
	}
	if v := c.PostForm("contactInfo"); v != "" {
		var info models.ContactInfo
		if err := json.Unmarshal([]byte(v), &info); err != nil {
			return upd, nil, errInvalidField("contactInfo")
		}
		upd.ContactInfo = &info
	}
	if v := c.PostForm("facilities"); v != "" {
		if err := json.Unmarshal([]byte(v), &upd.Facilities); err != nil {
			return upd, nil, errInvalidField("facilities")
		}
	}
	if v := c.PostForm("rules"); v != "" {
		if err := json.Unmarshal([]byte(v), &upd.Rules); err != nil {
			return upd, nil, errInvalidField("rules")
		}
	}

	return upd, form.File, nil
}
