// Package openai predicts exam outcomes from submitted report text.
package openai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/jobpal/jobpal-server/internal/application/port"
)

const systemPrompt = "You are an assistant for a school career office. " +
	"Read a student's report about a job-hunting event and estimate whether " +
	"the student passed the selection step it describes. Respond with exactly " +
	"one word: PASS, FAIL, or UNKNOWN."

// Predictor implements port.ResultPredictor using OpenAI
type Predictor struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *zap.Logger
}

// NewPredictor creates a new OpenAI result predictor
func NewPredictor(apiKey, model string, temperature float32, logger *zap.Logger) *Predictor {
	return &Predictor{
		client:      openai.NewClient(apiKey),
		model:       model,
		temperature: temperature,
		logger:      logger,
	}
}

// PredictResult estimates the selection outcome described by a report.
func (p *Predictor) PredictResult(ctx context.Context, reportContent string) (string, error) {
	p.logger.Debug("Predicting report result", zap.Int("report_length", len(reportContent)))

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: p.temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: reportContent,
			},
		},
	})
	if err != nil {
		p.logger.Error("OpenAI API call failed", zap.Error(err))
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	answer := normalizeAnswer(resp.Choices[0].Message.Content)
	p.logger.Info("Report result predicted", zap.String("result", answer))
	return answer, nil
}

// normalizeAnswer clamps a model reply to one of the three known labels.
func normalizeAnswer(content string) string {
	answer := strings.ToUpper(strings.TrimSpace(content))
	switch {
	case strings.HasPrefix(answer, "PASS"):
		return "PASS"
	case strings.HasPrefix(answer, "FAIL"):
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

var _ port.ResultPredictor = (*Predictor)(nil)
