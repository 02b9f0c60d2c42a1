package portfolios

import "time"

// AttachmentMeta describes a file the user attached; only metadata is
// forwarded to the workflow engine, under the sys.files input.
type AttachmentMeta struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Mime string `json:"mime"`
}

// GenerateRequest carries the profile fields sent to the workflow engine.
type GenerateRequest struct {
	FullName        string           `json:"fullName"`
	JobTitle        string           `json:"jobTitle"`
	AboutMe         string           `json:"aboutMe"`
	Skills          string           `json:"skills"`
	Email           string           `json:"email"`
	Phone           string           `json:"phone"`
	Location        string           `json:"location"`
	Birth           string           `json:"birth"`
	ExperienceYears string           `json:"experienceYears"`
	Education       string           `json:"education"`
	SocialLinks     string           `json:"socialLinks"`
	Attachments     []AttachmentMeta `json:"attachments,omitempty"`
	AttachmentsText string           `json:"attachmentsText,omitempty"`
}

// PortfolioResponse is the outward-facing representation of a portfolio.
type PortfolioResponse struct {
	PortfolioID string    `json:"portfolioId"`
	MimeType    string    `json:"mimeType"`
	SizeBytes   int64     `json:"sizeBytes"`
	CreatedAt   time.Time `json:"createdAt"`
}

// GenerateResponse returns the stored record together with the extracted
// document so the client can render it without a second round trip.
type GenerateResponse struct {
	PortfolioResponse
	HTML string `json:"html"`
}

func toResponse(p Portfolio) PortfolioResponse {
	return PortfolioResponse{
		PortfolioID: p.ID,
		MimeType:    p.MimeType,
		SizeBytes:   p.SizeBytes,
		CreatedAt:   p.CreatedAt,
	}
}
