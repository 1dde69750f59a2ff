package handler

import (
	"net/http"

	"github.com/bookhub/backend/internal/dto"
	"github.com/gin-gonic/gin"
)

type FeatureProvider interface {
	Features() *dto.FeaturesResponse
}

type FeatureHandler struct {
	features FeatureProvider
}

func NewFeatureHandler(features FeatureProvider) *FeatureHandler {
	return &FeatureHandler{features: features}
}

func (h *FeatureHandler) Features(c *gin.Context) {
	c.JSON(http.StatusOK, h.features.Features())
}
