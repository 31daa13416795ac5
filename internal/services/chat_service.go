package services

import (
	"context"
	"strings"
	"time"

	"github.com/markdave123-py/aspiro/internal/core"
	"github.com/markdave123-py/aspiro/internal/core/history_engine"
	"github.com/markdave123-py/aspiro/internal/logging"
	"github.com/markdave123-py/aspiro/internal/models"
	"github.com/markdave123-py/aspiro/internal/pkg/apperrors"
)

// SystemPrompt steers the model towards short English lessons explained in Uzbek.
const SystemPrompt = `Siz Aspiro AI yordamchisiz. O'quvchilarga ingliz tili bo'yicha sodda, foydali, misollar bilan tushuntirib berasiz. Har doim o'zbek tilida gapiring.

Quyidagi qoidalarga amal qiling:
- Javoblarni sodda va tushunarli qiling
- Misollar keltiring
- O'zbek tilida tushuntiring
- Ingliz tilidagi so'zlar uchun talaffuz ko'rsatmalarini bering
- Qisqa va aniq javob bering`

type ChatInput struct {
	Message string `validate:"required,max=4000"`
}

// ChatService relays a message to the model and hands the finished turn to
// the history recorder.
type ChatService struct {
	llm      core.LLMProvider
	recorder history_engine.Recorder
	logger   logging.Logger
	now      func() time.Time
}

// NewChatService accepts a nil llm; Reply then fails with a configuration error.
func NewChatService(llm core.LLMProvider, recorder history_engine.Recorder, logger logging.Logger) *ChatService {
	return &ChatService{
		llm:      llm,
		recorder: recorder,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Reply returns the model's answer. Losing the turn from history never fails
// the reply.
func (s *ChatService) Reply(ctx context.Context, user *models.User, in ChatInput) (string, error) {
	in.Message = strings.TrimSpace(in.Message)
	if err := validateStruct(in); err != nil {
		return "", err
	}
	if s.llm == nil {
		return "", apperrors.Configuration("AI provider not configured")
	}

	answer, err := s.llm.Generate(ctx, SystemPrompt, in.Message)
	if err != nil {
		s.logger.Error(ctx, "model call failed", "user_id", user.ID, "err", err)
		return "", apperrors.Upstream("AI response error", err)
	}

	s.recorder.Record(models.Turn{
		UserID:      user.ID,
		UserMessage: in.Message,
		AIResponse:  answer,
		At:          s.now(),
	})
	return answer, nil
}
