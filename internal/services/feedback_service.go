package services

import (
	"context"
	"strings"

	"github.com/markdave123-py/aspiro/internal/core"
	"github.com/markdave123-py/aspiro/internal/models"
	"github.com/markdave123-py/aspiro/internal/pkg/apperrors"
)

const defaultFeedbackType = "general"

type FeedbackInput struct {
	Rating  int    `validate:"min=0,max=5"`
	Type    string `validate:"oneof=general bug feature improvement other"`
	Message string `validate:"required,max=2000"`
}

type FeedbackService struct {
	store core.FeedbackStore
}

func NewFeedbackService(store core.FeedbackStore) *FeedbackService {
	return &FeedbackService{store: store}
}

// Submit stores one write-once feedback row for userID.
func (s *FeedbackService) Submit(ctx context.Context, userID int64, in FeedbackInput) (*models.Feedback, error) {
	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
	if in.Type == "" {
		in.Type = defaultFeedbackType
	}
	in.Message = strings.TrimSpace(in.Message)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	fb, err := s.store.CreateFeedback(ctx, &models.Feedback{
		UserID:  userID,
		Rating:  in.Rating,
		Type:    in.Type,
		Message: in.Message,
	})
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	return fb, nil
}
