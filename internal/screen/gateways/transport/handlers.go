package transport

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/haukened/phishscreen/internal/screen/domain"
)

type handlers struct {
	svc     Screener
	timeout time.Duration
}

type checkURLRequest struct {
	URL string `json:"url"`
}

type checkURLResponse struct {
	IsPossiblySpam bool   `json:"isPossiblySpam"`
	NormalizedURL  string `json:"normalizedURL"`
}

type checkEmailRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Sender  string `json:"sender"`
}

type checkEmailResponse struct {
	Status string `json:"status"`
	Color  string `json:"color"`
	Reason string `json:"reason"`
}

type healthResponse struct {
	Status     string `json:"status"`
	Loaded     bool   `json:"loaded"`
	Classifier bool   `json:"classifier"`
}

type filterStatsResponse struct {
	Bits                  uint64  `json:"bits"`
	Probes                uint    `json:"probes"`
	Capacity              uint64  `json:"capacity"`
	ErrorRate             float64 `json:"errorRate"`
	FillRatio             float64 `json:"fillRatio"`
	EstimatedFalsePosRate float64 `json:"estimatedFalsePositiveRate"`
}

type statsResponse struct {
	Loaded    bool                `json:"loaded"`
	Entries   int                 `json:"entries"`
	Sources   []string            `json:"sources"`
	LoadedAt  *time.Time          `json:"loadedAt,omitempty"`
	Reloads   uint64              `json:"reloads"`
	Checks    uint64              `json:"checks"`
	Positives uint64              `json:"positives"`
	Overrides uint64              `json:"overrides"`
	Filter    filterStatsResponse `json:"filter"`
}

func (h *handlers) checkURL(c *fiber.Ctx) error {
	var req checkURLRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.URL) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "url is required")
	}
	res, err := h.svc.CheckURL(req.URL)
	if err != nil {
		return err
	}
	return c.JSON(checkURLResponse{
		IsPossiblySpam: res.IsPossiblySpam,
		NormalizedURL:  res.NormalizedURL.String(),
	})
}

func (h *handlers) checkEmail(c *fiber.Ctx) error {
	var req checkEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	ctx := c.UserContext()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	res, err := h.svc.CheckEmail(ctx, domain.Email{Subject: req.Subject, Body: req.Body, Sender: req.Sender})
	if err != nil {
		return err
	}
	return c.JSON(checkEmailResponse{
		Status: res.Verdict.String(),
		Color:  res.Verdict.Color(),
		Reason: res.Rationale,
	})
}

// healthz is 200 once the corpus is loaded and 503 before.
func (h *handlers) healthz(c *fiber.Ctx) error {
	resp := healthResponse{Status: "ok", Loaded: h.svc.Ready(), Classifier: h.svc.ClassifierEnabled()}
	if !resp.Loaded {
		resp.Status = "loading"
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}
	return c.JSON(resp)
}

func (h *handlers) stats(c *fiber.Ctx) error {
	st := h.svc.Stats()
	resp := statsResponse{
		Loaded:    st.Loaded,
		Entries:   st.Entries,
		Sources:   st.Sources,
		Reloads:   st.Reloads,
		Checks:    st.Checks,
		Positives: st.Positives,
		Overrides: st.Overrides,
		Filter: filterStatsResponse{
			Bits:                  st.Filter.Bits,
			Probes:                st.Filter.Probes,
			Capacity:              st.Filter.Capacity,
			ErrorRate:             st.Filter.ErrorRate,
			FillRatio:             st.Filter.FillRatio,
			EstimatedFalsePosRate: st.Filter.EstimatedFalsePosRate,
		},
	}
	if st.Loaded {
		at := st.LoadedAt.UTC()
		resp.LoadedAt = &at
	}
	if resp.Sources == nil {
		resp.Sources = []string{}
	}
	return c.JSON(resp)
}
