package service

import (
	"time"

	"onionsite/internal/models"
)

// PresentationShell maps gate and consent state to the surface a host must render.
type PresentationShell struct {
	BannerDelay time.Duration
}

func NewPresentationShell(bannerDelay time.Duration) PresentationShell {
	if bannerDelay <= 0 {
		bannerDelay = models.DefaultBannerDelay
	}
	return PresentationShell{BannerDelay: bannerDelay}
}

// Present shows the disclaimer while gated, the banner while consent is unset, and nothing otherwise.
func (p PresentationShell) Present(gateOpen bool, status models.ConsentStatus) models.View {
	switch {
	case !gateOpen:
		return models.View{Surface: models.SurfaceDisclaimer}
	case status == models.ConsentUnset:
		return models.View{Surface: models.SurfaceConsentBanner, BannerDelay: p.BannerDelay}
	default:
		return models.View{Surface: models.SurfaceNone}
	}
}
