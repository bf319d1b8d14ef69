package handler

import (
	"net/http"

	"anoa.com/folio/internal/entity"
	publicationDto "anoa.com/folio/internal/modules/publication/dto"
	publication "anoa.com/folio/internal/modules/publication/service"
	"anoa.com/folio/pkg/response"
	"anoa.com/folio/pkg/validator"
	"github.com/gin-gonic/gin"
)

type PublicationHandler struct {
	publicationService publication.PublicationService
}

func NewPublicationHandler(publicationService publication.PublicationService) *PublicationHandler {
	return &PublicationHandler{
		publicationService: publicationService,
	}
}

func (h *PublicationHandler) CreatePublication(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input publicationDto.CreatePublicationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FirstValidationError(err)})
		return
	}

	pub, err := h.publicationService.Create(c.Request.Context(), userID, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, pub)
}

func (h *PublicationHandler) UpdatePublication(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input publicationDto.UpdatePublicationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FirstValidationError(err)})
		return
	}

	pub, err := h.publicationService.Update(c.Request.Context(), c.Param("pubId"), userID, input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, pub)
}

func (h *PublicationHandler) GetAllPublications(c *gin.Context) {
	pubs, err := h.publicationService.ListAll(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, pubs)
}

func (h *PublicationHandler) GetFeaturedPublications(c *gin.Context) {
	pubs, err := h.publicationService.ListFeatured(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, pubs)
}

// SearchPublications handles GET /publications/search?q=...&limit=...
func (h *PublicationHandler) SearchPublications(c *gin.Context) {
	var filter publicationDto.SearchFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FirstValidationError(err)})
		return
	}

	pubs, err := h.publicationService.Search(c.Request.Context(), filter)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, pubs)
}

func (h *PublicationHandler) GetPublication(c *gin.Context) {
	pub, err := h.publicationService.GetByID(c.Request.Context(), c.Param("pubId"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, pub)
}

func (h *PublicationHandler) GetPublicationsByAuthor(c *gin.Context) {
	pubs, err := h.publicationService.ListByAuthor(c.Request.Context(), c.Param("userId"))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, pubs)
}

func (h *PublicationHandler) DeletePublication(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.publicationService.Delete(c.Request.Context(), c.Param("pubId"), userID); err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Message(c, http.StatusOK, "Publication deleted successfully!")
}

// RatePublication handles PUT /publications/rate/:pubId and answers with every rating.
func (h *PublicationHandler) RatePublication(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input publicationDto.RateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FirstValidationError(err)})
		return
	}

	rate := entity.MinRate
	if input.Rate != nil {
		rate = *input.Rate
	}

	ratings, err := h.publicationService.AddRating(c.Request.Context(), c.Param("pubId"), userID, rate)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, ratings)
}

func (h *PublicationHandler) AddComment(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var input publicationDto.CommentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FirstValidationError(err)})
		return
	}

	comments, err := h.publicationService.AddComment(c.Request.Context(), c.Param("pubId"), userID, input.Text)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, comments)
}

func (h *PublicationHandler) DeleteComment(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	comments, err := h.publicationService.DeleteComment(c.Request.Context(), c.Param("pubId"), c.Param("commentId"), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, comments)
}
