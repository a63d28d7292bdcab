package handler

import (
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"smartroom/internal/service"
)

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Register takes a multipart form with an optional avatar file. Registration
// does not log the user in.
func (h *AuthHandler) Register(c *gin.Context) {
	input := service.RegisterInput{
		Name:     c.PostForm("name"),
		Email:    c.PostForm("email"),
		Phone:    c.PostForm("phone"),
		Password: c.PostForm("password"),
		Role:     c.PostForm("role"),
	}

	avatar, err := fileUploadFromForm(c, "avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid avatar upload"})
		return
	}
	if avatar != nil {
		defer avatar.Reader.(multipart.File).Close()
	}

	if _, err := h.auth.Register(c.Request.Context(), input, avatar); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Registration successful. Please login to continue.",
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var credentials struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&credentials); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid credentials"})
		return
	}

	token, user, err := h.auth.Login(c.Request.Context(), credentials.Email, credentials.Password)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "token": token, "user": user})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), c.GetString("token")); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged Out"})
}

func (h *AuthHandler) GetProfile(c *gin.Context) {
	user, err := h.auth.GetProfile(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

// UpdateProfile mutates name, phone and avatar. Email is immutable after
// registration.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var upd service.ProfileUpdate
	if v := c.PostForm("name"); v != "" {
		upd.Name = &v
	}
	if v := c.PostForm("phone"); v != "" {
		upd.Phone = &v
	}

	avatar, err := fileUploadFromForm(c, "avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid avatar upload"})
		return
	}
	if avatar != nil {
		defer avatar.Reader.(multipart.File).Close()
	}

	user, err := h.auth.UpdateProfile(c.Request.Context(), c.GetString("userID"), upd, avatar)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

// fileUploadFromForm returns nil when the part is absent.
func fileUploadFromForm(c *gin.Context, field string) (*service.FileUpload, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		// absent part, not an error
		return nil, nil
	}

	file, err := fh.Open()
	if err != nil {
		return nil, err
	}

	return &service.FileUpload{
		Reader:      file,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Filename:    fh.Filename,
	}, nil
}
