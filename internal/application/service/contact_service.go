package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"crypto-donation-tracker/internal/domain/entity"
	"crypto-donation-tracker/internal/infrastructure/config"
	"crypto-donation-tracker/internal/infrastructure/logger"

	"go.uber.org/zap"
)

var (
	// ErrRelayDisabled is returned when the email relay is switched off
	ErrRelayDisabled = errors.New("email relay is disabled")
	// ErrUnknownForm is returned for a form kind without a template
	ErrUnknownForm = errors.New("unknown form")
)

// FormRelay sends template parameters through a transactional email service
type FormRelay interface {
	Send(ctx context.Context, templateID string, params map[string]string) error
}

// ContactService forwards contact and donation forms to the email relay
type ContactService struct {
	relay     FormRelay
	enabled   bool
	templates map[entity.FormKind]string
	logger    *logger.Logger
}

// NewContactService creates the form relay service
func NewContactService(cfg *config.Config, relay FormRelay, logger *logger.Logger) *ContactService {
	return &ContactService{
		relay:   relay,
		enabled: cfg.Email.Enabled,
		templates: map[entity.FormKind]string{
			entity.FormContact: cfg.Email.ContactTemplateID,
			entity.FormDonate:  cfg.Email.DonateTemplateID,
		},
		logger: logger.WithComponent("contact-service"),
	}
}

// Submit relays the form and returns the thank-you text for the sender.
// Unlike a fire-and-forget form, relay failures are returned to the caller.
func (s *ContactService) Submit(ctx context.Context, form entity.FormSubmission) (string, error) {
	templateID, ok := s.templates[form.Kind]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownForm, form.Kind)
	}
	if !s.enabled {
		return "", ErrRelayDisabled
	}

	name := firstNonEmpty(form.Name, form.DonorName, "Anonymous")
	message := strings.TrimSpace(form.Message)
	if message == "" {
		message = fmt.Sprintf("Donation of $%s from %s", firstNonEmpty(form.Amount, "Unknown"), name)
	}

	params := map[string]string{
		"from_name":  name,
		"from_email": form.Email,
		"message":    message,
	}
	if err := s.relay.Send(ctx, templateID, params); err != nil {
		s.logger.Error("Failed to relay form", zap.String("kind", string(form.Kind)), zap.Error(err))
		return "", fmt.Errorf("failed to relay %s form: %w", form.Kind, err)
	}

	what := "message"
	if form.Kind == entity.FormDonate {
		what = "donation"
	}
	s.logger.Info("Form relayed", zap.String("kind", string(form.Kind)))
	return fmt.Sprintf("Thank you, %s! Your %s has been sent. We'll reply soon. ❤️", name, what), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
