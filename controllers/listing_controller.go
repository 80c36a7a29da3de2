package controllers

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/gavelhub/gavel/auctionerrors"
	"github.com/gavelhub/gavel/models"
	"github.com/gavelhub/gavel/repository"
	"github.com/gavelhub/gavel/utils"
)

// ListingController manages catalog browsing and listing creation.
type ListingController struct {
	db   *gorm.DB
	repo *repository.ListingRepository
}

// NewListingController creates a ListingController.
func NewListingController(db *gorm.DB, repo *repository.ListingRepository) *ListingController {
	return &ListingController{db: db, repo: repo}
}

// CreateListing creates a listing together with its asking-price bid. The
// initial bid is attributed to the owner; the listing starts active.
func (l *ListingController) CreateListing(ctx *gin.Context) {
	var req struct {
		Title       string  `json:"title" binding:"required,min=1,max=100"`
		Description string  `json:"description" binding:"max=1000"`
		ImageURL    string  `json:"image_url" binding:"max=200"`
		Price       float64 `json:"price"`
		Category    string  `json:"category"`
	}

	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	title := utils.Sanitize(strings.TrimSpace(req.Title))
	if title == "" {
		utils.Error(ctx, http.StatusBadRequest, 40021, "title cannot be empty")
		return
	}
	if req.Price < 0 || math.IsNaN(req.Price) || math.IsInf(req.Price, 0) {
		utils.Error(ctx, http.StatusBadRequest, 40022, "price must be a non-negative number")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40120, "unauthorized")
		return
	}

	var categoryID *uint
	if name := strings.TrimSpace(req.Category); name != "" {
		category, err := l.findCategory(name)
		if err != nil {
			if errors.Is(err, auctionerrors.ErrCategoryNotFound) {
				respondAuctionError(ctx, err)
				return
			}
			utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to load category")
			return
		}
		categoryID = &category.ID
	}

	listing := models.Listing{
		Title:       title,
		Description: utils.Sanitize(req.Description),
		ImageURL:    strings.TrimSpace(req.ImageURL),
		Active:      true,
		OwnerID:     userID,
		CategoryID:  categoryID,
	}

	err := l.db.Transaction(func(tx *gorm.DB) error {
		ask := models.Bid{Amount: req.Price, UserID: userID}
		if err := tx.Create(&ask).Error; err != nil {
			return fmt.Errorf("create asking bid: %w", err)
		}
		listing.CurrentBidID = &ask.ID
		if err := tx.Create(&listing).Error; err != nil {
			return fmt.Errorf("create listing: %w", err)
		}
		return nil
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to create listing")
		return
	}

	invalidateListingCaches()

	created, err := l.repo.GetListing(listing.ID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to load listing")
		return
	}
	utils.Success(ctx, gin.H{"listing": created})
}

// ListActive returns active listings, optionally filtered to one category by name.
func (l *ListingController) ListActive(ctx *gin.Context) {
	l.list(ctx, true)
}

// ListClosed mirrors ListActive for closed listings.
func (l *ListingController) ListClosed(ctx *gin.Context) {
	l.list(ctx, false)
}

func (l *ListingController) list(ctx *gin.Context, active bool) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	category := strings.TrimSpace(ctx.Query("category"))

	cacheKey := fmt.Sprintf("cache:listings:active=%t:cat=%s:page=%d:size=%d", active, category, page, pageSize)
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	query := l.db.Model(&models.Listing{}).
		Where("active = ?", active).
		Preload("CurrentBid").
		Preload("CurrentBid.User").
		Preload("Owner").
		Preload("Category")
	if category != "" {
		cat, err := l.findCategory(category)
		if err != nil {
			if errors.Is(err, auctionerrors.ErrCategoryNotFound) {
				respondAuctionError(ctx, err)
				return
			}
			utils.Error(ctx, http.StatusInternalServerError, 50033, "failed to load category")
			return
		}
		query = query.Where("category_id = ?", cat.ID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50034, "failed to count listings")
		return
	}

	var listings []models.Listing
	if err := query.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&listings).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50035, "failed to list listings")
		return
	}

	payload := gin.H{
		"items": listings,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	}
	utils.CacheSetJSON(cacheKey, wrap(payload), time.Hour)
	utils.Success(ctx, payload)
}

// GetListing returns one listing with comments, plus the caller's watching
// and owner flags when the request is authenticated. Closed listings render
// through the same endpoint with active=false.
func (l *ListingController) GetListing(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid listing id")
		return
	}

	listing, err := l.repo.GetListing(id)
	if err != nil {
		respondAuctionError(ctx, err)
		return
	}

	var comments []models.Comment
	if err := l.db.Where("listing_id = ?", id).Order("created_at ASC").Find(&comments).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50036, "failed to load comments")
		return
	}

	// Batch-load comment authors instead of preloading per row.
	if len(comments) > 0 {
		var authorIDs []uint
		for _, c := range comments {
			authorIDs = append(authorIDs, c.UserID)
		}
		authorIDs = utils.UniqueUint(authorIDs)

		var authors []models.User
		if err := l.db.Find(&authors, authorIDs).Error; err == nil {
			byID := make(map[uint]models.User, len(authors))
			for _, u := range authors {
				byID[u.ID] = u
			}
			for i := range comments {
				if u, ok := byID[comments[i].UserID]; ok {
					comments[i].User = u
				}
			}
		}
	}
	listing.Comments = comments

	watching := false
	isOwner := false
	if userID, ok := getUserID(ctx); ok {
		watching, _ = l.repo.IsWatching(id, userID)
		isOwner = listing.OwnerID == userID
	}

	utils.Success(ctx, gin.H{
		"listing":  listing,
		"watching": watching,
		"is_owner": isOwner,
	})
}

// MyWatchlist lists the caller's watched listings.
func (l *ListingController) MyWatchlist(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40120, "unauthorized")
		return
	}

	var user models.User
	if err := l.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50037, "failed to load user")
		return
	}

	var listings []models.Listing
	err := l.db.Model(&user).
		Preload("CurrentBid").
		Preload("CurrentBid.User").
		Preload("Owner").
		Preload("Category").
		Association("Watching").Find(&listings)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50038, "failed to load watchlist")
		return
	}

	utils.Success(ctx, gin.H{"items": listings, "count": len(listings)})
}

// findCategory resolves a category by its unique name.
func (l *ListingController) findCategory(name string) (models.Category, error) {
	var category models.Category
	if err := l.db.Where("name = ?", name).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Category{}, fmt.Errorf("category %q: %w", name, auctionerrors.ErrCategoryNotFound)
		}
		return models.Category{}, fmt.Errorf("load category %q: %w", name, err)
	}
	return category, nil
}

// Listing detail carries per-caller flags and is never cached; only the
// browse lists are.
func invalidateListingCaches() {
	utils.InvalidateByPrefix("cache:listings:")
}
