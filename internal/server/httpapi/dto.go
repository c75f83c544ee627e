package httpapi

import (
	"time"

	"github.com/docgate/docgate/internal/server/models"
)

type accountDTO struct {
	ID                  string    `json:"id"`
	Email               string    `json:"email"`
	Role                string    `json:"role"`
	Status              string    `json:"status"`
	RegistrationDetails string    `json:"registrationDetails"`
	RejectionReason     *string   `json:"rejectionReason,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

func toAccountDTO(a *models.Account) accountDTO {
	return accountDTO{
		ID:                  a.ID,
		Email:               a.Email,
		Role:                string(a.Role),
		Status:              string(a.Status),
		RegistrationDetails: a.RegistrationDetails,
		RejectionReason:     a.RejectionReason,
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
	}
}

type documentDTO struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

func toDocumentDTO(r models.BlobReference) documentDTO {
	return documentDTO{Name: r.Name, Size: r.Size, LastModified: r.LastModified}
}

type signedURLDTO struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type loginDTO struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
	Account   accountDTO `json:"account"`
}

type bulkDeleteErrorDTO struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type bulkDeleteDTO struct {
	Deleted  []string             `json:"deleted"`
	NotFound []string             `json:"notFound"`
	Errors   []bulkDeleteErrorDTO `json:"errors"`
}

func toBulkDeleteDTO(r *models.BulkDeleteResult) bulkDeleteDTO {
	out := bulkDeleteDTO{
		Deleted:  r.Deleted,
		NotFound: r.NotFound,
		Errors:   make([]bulkDeleteErrorDTO, 0, len(r.Errors)),
	}
	for _, e := range r.Errors {
		out.Errors = append(out.Errors, bulkDeleteErrorDTO{Name: e.Name, Reason: e.Reason})
	}
	return out
}

type registerRequest struct {
	Email               string `json:"email"`
	Password            string `json:"password"`
	RegistrationDetails string `json:"registrationDetails"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

type bulkDeleteRequest struct {
	Names []string `json:"names"`
}
