package models

import "time"

type Surface string

const (
	SurfaceNone          Surface = "none"
	SurfaceDisclaimer    Surface = "disclaimer"
	SurfaceConsentBanner Surface = "consent_banner"
)

// View is what the host must render for the current state.
type View struct {
	Surface     Surface       `json:"surface"`
	BannerDelay time.Duration `json:"banner_delay,omitempty"`
}

func (v View) ShowsDisclaimer() bool {
	return v.Surface == SurfaceDisclaimer
}

func (v View) ShowsBanner() bool {
	return v.Surface == SurfaceConsentBanner
}
