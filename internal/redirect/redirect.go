// Package redirect plans the "contact via Telegram" navigation: the app deep
// link on mobile with a timed web fallback, the web URL in a new tab elsewhere.
package redirect

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"onionsite/internal/config"
	"onionsite/internal/metrics"
	"onionsite/internal/models"
)

var mobileUA = regexp.MustCompile(`(?i)Android|webOS|iPhone|iPad|iPod|BlackBerry|IEMobile|Opera Mini`)

var ErrNoBotUsername = errors.New("bot username is not configured")

type Target string

const (
	TargetSelf  Target = "_self"
	TargetBlank Target = "_blank"
)

// Step opens URL in Target once After has elapsed since the click.
type Step struct {
	URL    string        `json:"url"`
	Target Target        `json:"target"`
	After  time.Duration `json:"after"`
}

type Plan struct {
	Mobile bool   `json:"mobile"`
	Steps  []Step `json:"steps"`
}

// Navigator opens URLs on behalf of the host.
type Navigator interface {
	Open(ctx context.Context, url string, target Target) error
}

type Planner struct {
	botUsername   string
	clickDelay    time.Duration
	fallbackDelay time.Duration
}

func NewPlanner(cfg config.RedirectConfig) (*Planner, error) {
	username := strings.TrimPrefix(strings.TrimSpace(cfg.BotUsername), "@")
	if username == "" {
		return nil, ErrNoBotUsername
	}
	p := &Planner{
		botUsername:   username,
		clickDelay:    cfg.ClickDelay,
		fallbackDelay: cfg.FallbackDelay,
	}
	if p.clickDelay < 0 {
		p.clickDelay = models.DefaultRedirectClickDelay
	}
	if p.fallbackDelay <= 0 {
		p.fallbackDelay = models.DefaultRedirectFallbackDelay
	}
	return p, nil
}

func IsMobile(userAgent string) bool {
	return mobileUA.MatchString(userAgent)
}

func (p *Planner) DeepLink() string {
	return "tg://resolve?domain=" + p.botUsername
}

func (p *Planner) WebURL() string {
	return "https://t.me/" + p.botUsername
}

// Plan returns the navigation steps for a click from userAgent.
func (p *Planner) Plan(userAgent string) Plan {
	if IsMobile(userAgent) {
		metrics.IncRedirect("mobile")
		return Plan{
			Mobile: true,
			Steps: []Step{
				{URL: p.DeepLink(), Target: TargetSelf, After: p.clickDelay},
				{URL: p.WebURL(), Target: TargetSelf, After: p.clickDelay + p.fallbackDelay},
			},
		}
	}

	metrics.IncRedirect("desktop")
	return Plan{Steps: []Step{{URL: p.WebURL(), Target: TargetBlank, After: p.clickDelay}}}
}

// Execute opens every step at its offset. Cancelling ctx drops the pending steps.
func Execute(ctx context.Context, plan Plan, nav Navigator) error {
	start := time.Now()
	for _, step := range plan.Steps {
		if wait := step.After - time.Since(start); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		if err := nav.Open(ctx, step.URL, step.Target); err != nil {
			return fmt.Errorf("open %s: %w", step.URL, err)
		}
	}
	return nil
}
