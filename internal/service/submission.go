package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/emrgen/coa/internal/model"
	"github.com/emrgen/coa/internal/queue"
	"github.com/emrgen/coa/internal/store"
	"github.com/sirupsen/logrus"
)

// SubmissionService records public form submissions and announces each one
// on the queue for the notification worker.
type SubmissionService struct {
	store store.SubmissionStore
	queue queue.Queue
}

func NewSubmissionService(store store.SubmissionStore, queue queue.Queue) *SubmissionService {
	return &SubmissionService{store: store, queue: queue}
}

func (s *SubmissionService) SubmitContact(ctx context.Context, sub *model.ContactSubmission) (*model.ContactSubmission, error) {
	sub.Name = strings.TrimSpace(sub.Name)
	sub.Message = strings.TrimSpace(sub.Message)
	email, err := normalizeEmail(sub.Email)
	if err != nil {
		return nil, err
	}
	sub.Email = email
	if sub.Name == "" || sub.Message == "" {
		return nil, fmt.Errorf("%w: name and message are required", ErrValidation)
	}

	if err := s.store.CreateContactSubmission(ctx, sub); err != nil {
		logrus.Errorf("error saving contact submission from %s: %v", sub.Email, err)
		return nil, fmt.Errorf("save contact submission: %w", err)
	}

	s.publish(ctx, queue.EventContact, sub.Email, sub)
	return sub, nil
}

func (s *SubmissionService) SubmitSample(ctx context.Context, sub *model.SampleSubmission) (*model.SampleSubmission, error) {
	sub.Name = strings.TrimSpace(sub.Name)
	sub.Compound = strings.TrimSpace(sub.Compound)
	email, err := normalizeEmail(sub.Email)
	if err != nil {
		return nil, err
	}
	sub.Email = email
	if sub.Name == "" || sub.Compound == "" {
		return nil, fmt.Errorf("%w: name and compound are required", ErrValidation)
	}
	if !model.ValidAnalysisType(sub.AnalysisType) {
		return nil, fmt.Errorf("%w: unknown analysis type %q", ErrValidation, sub.AnalysisType)
	}
	if sub.Quantity < 0 {
		return nil, fmt.Errorf("%w: quantity cannot be negative", ErrValidation)
	}
	sub.Status = model.StatusPending

	if err := s.store.CreateSampleSubmission(ctx, sub); err != nil {
		logrus.Errorf("error saving sample submission from %s: %v", sub.Email, err)
		return nil, fmt.Errorf("save sample submission: %w", err)
	}

	s.publish(ctx, queue.EventSample, sub.Email, sub)
	return sub, nil
}

// Subscribe adds email to the newsletter. Subscribing twice fails with ErrAlreadySubscribed.
func (s *SubmissionService) Subscribe(ctx context.Context, email string) (*model.NewsletterSubscription, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	sub := &model.NewsletterSubscription{Email: email}
	if err := s.store.CreateNewsletterSubscription(ctx, sub); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, fmt.Errorf("subscribe %s: %w", email, ErrAlreadySubscribed)
		}
		logrus.Errorf("error subscribing %s: %v", email, err)
		return nil, fmt.Errorf("subscribe %s: %w", email, err)
	}

	s.publish(ctx, queue.EventNewsletter, email, sub)
	return sub, nil
}

func (s *SubmissionService) ListContacts(ctx context.Context) ([]*model.ContactSubmission, error) {
	return s.store.ListContactSubmissions(ctx)
}

func (s *SubmissionService) ListSamples(ctx context.Context) ([]*model.SampleSubmission, error) {
	return s.store.ListSampleSubmissions(ctx)
}

func (s *SubmissionService) ListSubscriptions(ctx context.Context) ([]*model.NewsletterSubscription, error) {
	return s.store.ListNewsletterSubscriptions(ctx)
}

// publish never fails the submission; the row is already saved.
func (s *SubmissionService) publish(ctx context.Context, eventType, key string, payload any) {
	if s.queue == nil {
		return
	}
	event, err := queue.NewEvent(eventType, key, payload)
	if err != nil {
		logrus.Errorf("error encoding %s event: %v", eventType, err)
		return
	}
	if err := s.queue.Publish(ctx, event); err != nil {
		logrus.Errorf("error publishing %s event: %v", eventType, err)
	}
}

func normalizeEmail(email string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return "", fmt.Errorf("%w: invalid email address %q", ErrValidation, email)
	}
	return strings.ToLower(addr.Address), nil
}
