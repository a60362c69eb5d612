package geocoding

import (
	apphttp "livability_backend/internal/http"
	"livability_backend/platform/config"
	"livability_backend/platform/logger"
)

// Module wires the address lookup HTTP routes.
type Module struct {
	svc     *Service
	handler *Handler
}

func NewModule(cfg config.ProviderConfig, log *logger.Logger) *Module {
	svc := NewService(cfg.GetPDOKBaseURL(), cfg.GetNominatimURL(), cfg.GetProviderTimeout(), log)
	return &Module{svc: svc, handler: NewHandler(svc)}
}

// Service exposes the geocoder to other modules.
func (m *Module) Service() *Service {
	return m.svc
}

func (m *Module) Name() string {
	return "geocoding"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Limited.Group("/geocoding")
	group.GET("/lookup", m.handler.LookupAddress)
}

var _ apphttp.Module = (*Module)(nil)
