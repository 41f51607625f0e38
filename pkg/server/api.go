package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ushadow/envwire/pkg/catalog"
	"github.com/ushadow/envwire/pkg/envvar"
	"github.com/ushadow/envwire/pkg/infra"
	"github.com/ushadow/envwire/pkg/settings"
)

// API binds the wiring endpoints to a gin engine. It composes the catalog,
// the settings store, and the capability wiring registry; the resolution
// logic itself lives in pkg/envvar and pkg/infra.
type API struct {
	catalog  *catalog.Catalog
	settings *settings.Service
	wirings  *infra.WiringRegistry
}

// NewAPI creates the API over its collaborators.
func NewAPI(c *catalog.Catalog, store *settings.Service, wirings *infra.WiringRegistry) *API {
	return &API{catalog: c, settings: store, wirings: wirings}
}

// Bind registers all routes on the engine.
func (a *API) Bind(engine *gin.Engine) {
	api := engine.Group("/api")
	api.GET("/services", a.listServices)
	api.GET("/services/:id/env", a.serviceEnv)
	api.GET("/settings/candidates", a.settingCandidates)
	api.GET("/settings/value", a.settingValue)
	api.PUT("/settings", a.putSetting)
	api.POST("/services/:id/wire", a.wireProvider)
	api.POST("/resolve", a.resolve)
	api.POST("/resolve/apply", a.applyResolution)
}

// detail writes the error payload shape clients expect: {"detail": "..."}.
func detail(c *gin.Context, status int, err error) {
	log.Debug().Int("status", status).Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
	c.JSON(status, gin.H{"detail": err.Error()})
}

func detailMsg(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"detail": msg})
}

func (a *API) listServices(c *gin.Context) {
	c.JSON(http.StatusOK, a.catalog.Templates())
}

func (a *API) serviceEnv(c *gin.Context) {
	template, err := a.catalog.Template(c.Param("id"))
	if err != nil {
		detail(c, http.StatusNotFound, err)
		return
	}
	c.JSON(http.StatusOK, template.Env)
}

func (a *API) settingCandidates(c *gin.Context) {
	candidates, err := a.settings.Candidates(c.Request.Context(), c.Query("namespace"))
	if err != nil {
		detail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, candidates)
}

func (a *API) settingValue(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		detailMsg(c, http.StatusBadRequest, "query parameter 'path' is required")
		return
	}
	value, err := a.settings.Value(c.Request.Context(), path)
	if err != nil {
		detail(c, http.StatusNotFound, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path, "value": value})
}

type putSettingRequest struct {
	Path  string `json:"path" binding:"required"`
	Value string `json:"value"`
}

func (a *API) putSetting(c *gin.Context) {
	var req putSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, err)
		return
	}
	if err := a.settings.Put(c.Request.Context(), req.Path, req.Value); err != nil {
		detail(c, http.StatusBadRequest, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": req.Path})
}

type wireRequest struct {
	Capability string `json:"capability" binding:"required"`
	ProviderID string `json:"provider_id"`
}

// wireProvider links or unlinks a capability provider for the service in the
// path. An empty provider_id unwires the capability.
func (a *API) wireProvider(c *gin.Context) {
	var req wireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, err)
		return
	}

	consumerID := c.Param("id")
	if req.ProviderID == "" {
		a.wirings.Unwire(consumerID, req.Capability)
	} else if err := a.wirings.Wire(consumerID, req.Capability, req.ProviderID); err != nil {
		detail(c, http.StatusBadRequest, err)
		return
	}
	c.JSON(http.StatusOK, a.wirings.Wirings(consumerID))
}

type resolveRequest struct {
	ServiceID  string            `json:"service_id" binding:"required"`
	Detections []infra.Detection `json:"detections"`
}

// resolveItem is the per-variable resolution the API returns: the wiring
// decision plus the ranked mapping suggestions for the field.
type resolveItem struct {
	Resolved    envvar.Resolved    `json:"resolved"`
	Suggestions []envvar.Candidate `json:"suggestions"`
}

func (a *API) resolve(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, err)
		return
	}

	template, err := a.catalog.Template(req.ServiceID)
	if err != nil {
		detail(c, http.StatusNotFound, err)
		return
	}

	providerOverrides, err := a.wirings.ProviderOverrides(req.ServiceID)
	if err != nil {
		detail(c, http.StatusInternalServerError, err)
		return
	}
	scanOverrides := infra.ScanOverrides(req.Detections, template.Env)
	overrides := infra.MergeOverrides(providerOverrides, scanOverrides)

	candidates, err := a.settings.Candidates(c.Request.Context(), "")
	if err != nil {
		detail(c, http.StatusInternalServerError, err)
		return
	}

	items := make([]resolveItem, 0, len(template.Env))
	for _, spec := range template.Env {
		items = append(items, resolveItem{
			Resolved:    envvar.ResolveInitial(spec, overrides),
			Suggestions: envvar.RankSuggestions(spec.Name, candidates),
		})
	}

	log.Info().Str("service", req.ServiceID).Int("vars", len(items)).
		Int("overrides", len(overrides)).Msg("Resolved service configuration")
	c.JSON(http.StatusOK, items)
}

// Apply actions for POST /api/resolve/apply.
const (
	ActionManual  = "manual"
	ActionMapping = "mapping"
)

type applyRequest struct {
	Action  string          `json:"action" binding:"required"`
	Current envvar.Resolved `json:"current" binding:"required"`

	// Value is the typed value for action "manual".
	Value string `json:"value"`

	// SettingPath is the chosen mapping target for action "mapping".
	SettingPath string `json:"setting_path"`

	// Persist stores a manual value at its synthesized path immediately
	// instead of leaving it for deployment time.
	Persist bool `json:"persist"`
}

func (a *API) applyResolution(c *gin.Context) {
	var req applyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, err)
		return
	}

	var updated envvar.Resolved
	switch req.Action {
	case ActionManual:
		updated = envvar.ApplyManualValue(req.Current, req.Value)
		if req.Persist && updated.Source == envvar.SourceNewSetting {
			if err := a.settings.Put(c.Request.Context(), updated.NewSettingPath, updated.Value); err != nil {
				detail(c, http.StatusBadRequest, err)
				return
			}
		}
	case ActionMapping:
		if err := settings.ValidatePath(req.SettingPath); err != nil {
			detail(c, http.StatusBadRequest, err)
			return
		}
		updated = envvar.ApplySettingMapping(req.Current, req.SettingPath)
	default:
		detailMsg(c, http.StatusBadRequest, "action must be 'manual' or 'mapping'")
		return
	}

	c.JSON(http.StatusOK, updated)
}
