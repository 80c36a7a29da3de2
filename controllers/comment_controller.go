package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/gavelhub/gavel/models"
	"github.com/gavelhub/gavel/utils"
)

// CommentController handles append-only comments on listings.
type CommentController struct {
	db *gorm.DB
}

// NewCommentController creates a CommentController.
func NewCommentController(db *gorm.DB) *CommentController {
	return &CommentController{db: db}
}

// CreateComment appends an immutable comment to a listing. There is no edit
// or delete; comments surface with the listing detail in creation order.
func (c *CommentController) CreateComment(ctx *gin.Context) {
	var req struct {
		Message string `json:"message" binding:"required,max=500"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40060, "invalid request payload")
		return
	}

	message := utils.Sanitize(req.Message)
	if message == "" {
		utils.Error(ctx, http.StatusBadRequest, 40061, "message cannot be empty")
		return
	}

	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid listing id")
		return
	}

	var listing models.Listing
	if err := c.db.First(&listing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40440, "listing not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to load listing")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40120, "unauthorized")
		return
	}

	comment := models.Comment{
		ListingID: listing.ID,
		UserID:    userID,
		Message:   message,
	}
	if err := c.db.Create(&comment).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to create comment")
		return
	}

	if err := c.db.Preload("User").First(&comment, comment.ID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50062, "failed to load comment")
		return
	}

	utils.Success(ctx, gin.H{"comment": comment})
}
