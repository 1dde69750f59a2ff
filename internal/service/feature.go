package service

import (
	"github.com/bookhub/backend/config"
	"github.com/bookhub/backend/internal/dto"
)

// FeatureService exposes the startup feature switches. Values never change
// after construction.
type FeatureService struct {
	oauth2Enabled bool
}

func NewFeatureService(cfg *config.Config) *FeatureService {
	return &FeatureService{oauth2Enabled: cfg.OAuth2.Enabled}
}

func (s *FeatureService) OAuth2Enabled() bool {
	return s.oauth2Enabled
}

func (s *FeatureService) Features() *dto.FeaturesResponse {
	return &dto.FeaturesResponse{OAuth2Enabled: s.oauth2Enabled}
}
