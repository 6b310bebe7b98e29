package screener

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/haukened/phishscreen/internal/screen/common/log"
	"github.com/haukened/phishscreen/internal/screen/common/utils"
	"github.com/haukened/phishscreen/internal/screen/domain"
	"github.com/haukened/phishscreen/internal/screen/repos/membership"
)

// Screener implements the URL and email screening use cases.
type Screener struct {
	allow      domain.AllowList
	classifier Classifier
	logger     log.Logger
	repo       MembershipRepository
}

type ScreenerOptions struct {
	AllowList  domain.AllowList
	Classifier Classifier // optional; nil disables CheckEmail
	Logger     log.Logger
	Repository MembershipRepository
}

func NewScreener(opts ScreenerOptions) *Screener {
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	return &Screener{
		allow:      opts.AllowList,
		classifier: opts.Classifier,
		logger:     opts.Logger,
		repo:       opts.Repository,
	}
}

// CheckURL tests raw against the membership filter with the configured
// allow-list applied.
func (s *Screener) CheckURL(raw string) (domain.URLCheck, error) {
	if strings.TrimSpace(raw) == "" {
		return domain.URLCheck{}, fmt.Errorf("%w: url is required", domain.ErrInvalidInput)
	}
	res, err := s.repo.Check(raw, s.allow)
	if err != nil {
		return domain.URLCheck{}, err
	}
	switch {
	case res.IsPossiblySpam:
		s.logger.Info(map[string]any{
			"url":    res.NormalizedURL.String(),
			"domain": registrableDomain(res.NormalizedURL),
		}, "url flagged")
	case res.Allowed:
		s.logger.Debug(map[string]any{"url": res.NormalizedURL.String()}, "url allow-listed")
	}
	return res, nil
}

// CheckEmail classifies a normalized copy of email. Classifier failures and
// verdicts outside Safe/Caution/Danger come back wrapped in
// domain.ErrGateway.
func (s *Screener) CheckEmail(ctx context.Context, email domain.Email) (domain.Classification, error) {
	if s.classifier == nil {
		return domain.Classification{}, domain.ErrClassifierDisabled
	}
	norm := email.Normalized()
	if err := norm.Validate(); err != nil {
		return domain.Classification{}, err
	}

	c, err := s.classifier.Classify(ctx, norm)
	if err != nil {
		s.logger.Warn(map[string]any{"error": err}, "classifier failed")
		if errors.Is(err, domain.ErrGateway) {
			return domain.Classification{}, err
		}
		return domain.Classification{}, fmt.Errorf("%w: %w", domain.ErrGateway, err)
	}
	if err := c.Validate(); err != nil {
		s.logger.Warn(map[string]any{"verdict": c.Verdict.String()}, "classifier returned unknown verdict")
		return domain.Classification{}, err
	}
	s.logger.Debug(map[string]any{"verdict": c.Verdict.String(), "sender": norm.Sender}, "email classified")
	return c, nil
}

// Ready reports whether URL checks can be served.
func (s *Screener) Ready() bool { return s.repo.Ready() }

// ClassifierEnabled reports whether CheckEmail is available.
func (s *Screener) ClassifierEnabled() bool { return s.classifier != nil }

// Stats returns the membership repository statistics.
func (s *Screener) Stats() membership.RepoStats { return s.repo.Stats() }

func registrableDomain(key domain.CanonicalURL) string {
	host, _, _ := strings.Cut(key.String(), "/")
	return utils.RegistrableDomain(host)
}
