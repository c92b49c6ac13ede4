package submissions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrNameRequired = errors.New("name is required")

type Service struct {
	repo Repository
	now  func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now as the source of submission timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo: repo,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates and sanitizes rawName and appends it to the log.
func (s *Service) Submit(ctx context.Context, rawName string) (Submission, error) {
	if strings.TrimSpace(rawName) == "" {
		return Submission{}, ErrNameRequired
	}

	name := Sanitize(rawName)
	if name == "" {
		return Submission{}, ErrNameRequired
	}

	sub := NewSubmission(name, s.now())
	if err := s.repo.Append(ctx, sub); err != nil {
		return Submission{}, fmt.Errorf("store submission: %w", err)
	}
	return sub, nil
}

func (s *Service) List(ctx context.Context) ([]Submission, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	if list == nil {
		list = []Submission{}
	}
	return list, nil
}
