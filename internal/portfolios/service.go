package portfolios

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"portfolio-backend/internal/extract"
	"portfolio-backend/internal/shared/metrics"
	"portfolio-backend/internal/shared/storage/object"
	"portfolio-backend/internal/shared/telemetry"
	"portfolio-backend/internal/shared/util"
	"portfolio-backend/internal/workflow"
)

const portfolioMimeType = "text/html; charset=utf-8"

// Service generates portfolios by invoking the workflow engine and
// extracting the HTML document from its response.
type Service struct {
	Repo     Repo
	Store    object.ObjectStore
	Workflow workflow.Runner
}

// Generate sends the profile fields to the workflow engine, extracts the
// returned HTML, stores it and persists a portfolio record. The extracted
// document is returned alongside the record.
func (s *Service) Generate(ctx context.Context, userID string, req GenerateRequest) (Portfolio, string, error) {
	if strings.TrimSpace(req.FullName) == "" {
		return Portfolio{}, "", fmt.Errorf("%w: fullName is required", ErrInvalidInput)
	}

	inputs := req.inputs()
	metrics.IncGenerationStarted()
	start := time.Now()

	env := s.Workflow.Run(ctx, inputs, userID)
	metrics.ObserveWorkflowDurationMs(float64(time.Since(start).Microseconds()) / 1000.0)

	html := extract.HTML(env.JSON)
	if html == "" {
		metrics.IncGenerationFailed()
		telemetry.Error("portfolio.generate.empty", map[string]any{
			"user_id":         userID,
			"workflow_status": env.StatusCode,
		})
		switch {
		case env.StatusCode == 0:
			return Portfolio{}, "", ErrWorkflowUnreachable
		case env.StatusCode == http.StatusRequestTimeout:
			return Portfolio{}, "", ErrWorkflowTimeout
		case env.StatusCode >= 400:
			return Portfolio{}, "", fmt.Errorf("%w: status %d", ErrWorkflowFailed, env.StatusCode)
		default:
			return Portfolio{}, "", ErrNoHTML
		}
	}

	id := uuid.NewString()
	storageKey := path.Join("portfolios", util.HashUserKey(userID), id+".html")
	size, err := s.Store.SaveWithKey(ctx, storageKey, portfolioMimeType, strings.NewReader(html))
	if err != nil {
		metrics.IncGenerationFailed()
		return Portfolio{}, "", fmt.Errorf("store portfolio: %w", err)
	}

	portfolio := Portfolio{
		ID:         id,
		UserID:     userID,
		StorageKey: storageKey,
		MimeType:   portfolioMimeType,
		SizeBytes:  size,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, portfolio); err != nil {
		metrics.IncGenerationFailed()
		return Portfolio{}, "", fmt.Errorf("persist portfolio: %w", err)
	}

	metrics.IncGenerationCompleted()
	telemetry.Info("portfolio.generate.complete", map[string]any{
		"user_id":         userID,
		"portfolio_id":    portfolio.ID,
		"workflow_status": env.StatusCode,
		"size_bytes":      portfolio.SizeBytes,
	})
	return portfolio, html, nil
}

// inputs maps the request onto the flat workflow input mapping. Values are
// trimmed; attachment metadata travels under sys.files.
func (req GenerateRequest) inputs() map[string]any {
	inputs := map[string]any{
		"full_name":        strings.TrimSpace(req.FullName),
		"job_title":        strings.TrimSpace(req.JobTitle),
		"about_me":         strings.TrimSpace(req.AboutMe),
		"skills":           strings.TrimSpace(req.Skills),
		"email":            strings.TrimSpace(req.Email),
		"phone":            strings.TrimSpace(req.Phone),
		"location":         strings.TrimSpace(req.Location),
		"birth":            strings.TrimSpace(req.Birth),
		"experience_years": strings.TrimSpace(req.ExperienceYears),
		"education":        strings.TrimSpace(req.Education),
		"social_links":     strings.TrimSpace(req.SocialLinks),
	}
	if text := strings.TrimSpace(req.AttachmentsText); text != "" {
		inputs["attachments_text"] = text
	}
	if len(req.Attachments) > 0 {
		files := make([]map[string]any, 0, len(req.Attachments))
		for _, a := range req.Attachments {
			files = append(files, map[string]any{
				"name": a.Name,
				"size": a.Size,
				"mime": a.Mime,
			})
		}
		inputs["sys.files"] = files
	}
	return inputs
}
