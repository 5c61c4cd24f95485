package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/palimpsest-cms/palimpsest"
	"github.com/palimpsest-cms/palimpsest/internal/domain"
	"github.com/palimpsest-cms/palimpsest/internal/present/rest/middleware"
	"github.com/palimpsest-cms/palimpsest/internal/present/rest/presenter"
	"github.com/palimpsest-cms/palimpsest/internal/service"
	"github.com/palimpsest-cms/palimpsest/internal/usecase"
)

// PublishedReader serves the public delivery path (published variants only,
// possibly cached).
type PublishedReader interface {
	FindPublished(ctx context.Context, collection, documentID, locale string) (domain.DocumentVariant, error)
}

type Handler struct {
	content       *usecase.ContentUsecase
	policy        *service.PolicyService
	signal        *service.SignalService
	delivery      PublishedReader
	defaultLocale string
}

func NewHandler(
	content *usecase.ContentUsecase,
	policy *service.PolicyService,
	signal *service.SignalService,
	delivery PublishedReader,
	defaultLocale string,
) *Handler {
	if defaultLocale == "" {
		defaultLocale = "en"
	}
	return &Handler{
		content:       content,
		policy:        policy,
		signal:        signal,
		delivery:      delivery,
		defaultLocale: defaultLocale,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo, auth *middleware.AuthMiddleware) {
	e.GET("/health", h.handleHealth)
	e.GET("/published/:collection/:id", h.handleDelivery)
	e.GET("/realtime", h.handleRealtime)

	api := e.Group("/api/v1", auth.IdentifyEditor)
	api.GET("/content/:collection", h.handleList)
	api.POST("/content/:collection", h.handleCreate, auth.RequireEditor)
	api.GET("/content/:collection/:id", h.handleFind)
	api.PUT("/content/:collection/:id", h.handleUpdate, auth.RequireEditor)
	api.DELETE("/content/:collection/:id", h.handleDelete, auth.RequireEditor)
	api.POST("/content/:collection/:id/publish", h.handlePublish, auth.RequireEditor)
	api.POST("/content/:collection/:id/unpublish", h.handleUnpublish, auth.RequireEditor)
	api.GET("/content/:collection/:id/locales", h.handleLocaleStatuses)
	api.POST("/content/:collection/:id/locales/:locale", h.handleAddLocale, auth.RequireEditor)
	api.DELETE("/content/:collection/:id/locales/:locale", h.handleDeleteLocale, auth.RequireEditor)
	api.GET("/content/:collection/:id/versions", h.handleVersions)
	api.GET("/content/:collection/:id/versions/:version", h.handleVersion)
	api.POST("/content/:collection/:id/versions/:version/restore", h.handleRestore, auth.RequireEditor)
	api.GET("/settings/versioning", h.handleGetSettings)
	api.PUT("/settings/versioning", h.handlePutSettings, auth.RequireEditor)
}

func (h *Handler) handleHealth(c echo.Context) error {
	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleList(c echo.Context) error {
	ctx := c.Request().Context()

	opts := domain.ListOptions{
		Locale: c.QueryParam("locale"),
		SortBy: c.QueryParam("sort"),
	}

	if statusStr := c.QueryParam("status"); statusStr != "" {
		status, err := palimpsest.ParseStatus(statusStr)
		if err != nil {
			return presenter.BadRequestMessage(c, "invalid status parameter")
		}
		opts.Status = status
	}

	opts.Ascending = c.QueryParam("order") == "asc"

	if offsetStr := c.QueryParam("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return presenter.BadRequestMessage(c, "invalid offset parameter")
		}
		opts.Offset = offset
	}

	limit := 20
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		limitInt, err := strconv.Atoi(limitStr)
		if err != nil || limitInt <= 0 {
			return presenter.BadRequestMessage(c, "invalid limit parameter")
		}
		limit = limitInt
	}
	if limit > 100 {
		limit = 100
	}
	opts.Limit = limit

	page, err := h.content.List(ctx, c.Param("collection"), opts)
	if err != nil {
		return presenter.DomainError(c, err)
	}
	return presenter.OK(c, page)
}

func (h *Handler) handleCreate(c echo.Context) error {
	ctx := c.Request().Context()

	var payload map[string]any
	if err := c.Bind(&payload); err != nil {
		return presenter.BadRequest(c, err)
	}

	variant, err := h.content.Create(ctx, c.Param("collection"), payload, usecase.CreateOptions{
		Locale: c.QueryParam("locale"),
		Editor: middleware.EditorID(c),
	})
	if err != nil {
		return presenter.DomainError(c, err)
	}
	return presenter.Created(c, variant)
}

func (h *Handler) handleFind(c echo.Context) error {
	ctx := c.Request().Context()

	status := palimpsest.StatusDraft
	if statusStr := c.QueryParam("status"); statusStr != "" {
		parsed, err := palimpsest.ParseStatus(statusStr)
		if err != nil {
			return presenter.BadRequestMessage(c, "invalid status parameter")
		}
		status = parsed
	}

	variant, err := h.content.FindByDocumentID(ctx, c.Param("collection"), c.Param("id"), c.QueryParam("locale"), status)
	if err != nil {
		return presenter.DomainError(c, err)
	}
	return presenter.OK(c, variant)
}

func (h *Handler) handleUpdate(c echo.Context) error {
	ctx := c.Request().Context()

	var payload map[string]any
	if err := c.Bind(&payload); err != nil {
		return presenter.BadRequest(c, err)
	}

	opts := usecase.UpdateOptions{
		Locale: c.QueryParam("locale"),
		Editor: middleware.EditorID(c),
	}
	if statusStr := c.QueryParam("status"); statusStr != "" {
		status, err := palimpsest.ParseStatus(statusStr)
		if err != nil {
			return presenter.BadRequestMessage(c, "invalid status parameter")
		}
		opts.Status = status
	}

	variant, err := h.content.Update(ctx, c.Param("collection"), c.Param("id"), payload, opts)
	if err != nil {
		return presenter.DomainError(c, err)
	}
	return presenter.OK(c, variant)
}

func (h *Handler) handleDelete(c echo.Context) error {
	ctx := c.Request().Context()

	err := h.content.Delete(ctx, c.Param("collection"), c.Param("id"))
	if err != nil {
		return presenter.DomainError(c, err)
	}
	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handlePublish(c echo.Context) error {
	ctx := c.Request().Context()

	var body struct {
		ApprovedBy string `json:"approvedBy"`
	}
	// publish has an optional body
	_ = c.Bind(&body)

	variant, err := h.content.Publish(ctx, c.Param("collection"), c.Param("id"), usecase.PublishOptions{
		Locale:     c.QueryParam("locale"),
		ApprovedBy: body.ApprovedBy,
		Editor:     middleware.EditorID(c),
	})
	if err != nil {
		return presenter.DomainError(c, err)
	}
	return presenter.OK(c, variant)
}

func (h *Handler) handleUnpublish(c echo.Context) error {
	ctx := c.Request().Context()

	err := h.content.Unpublish(ctx, c.Param("collection"), c.Param("id"), c.QueryParam("locale"))
	if err != nil {
		return presenter.DomainError(c, err)
	}
	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleLocaleStatuses(c echo.Context) error {
	ctx := c.Request().Context()

	statuses, err := h.content.GetLocaleStatuses(ctx, c.Param("collection"), c.Param("id"))
	if err != nil {
		return presenter.DomainError(c, err)
	}
	return presenter.OK(c, statuses)
}

func (h *Handler) handleAddLocale(c echo.Context) error {
	ctx := c.Request().Context()

	var payload map[string]any
	if err := c.Bind(&payload); err != nil {
		return presenter.BadRequest(c, err)
	}

	variant, err := h.content.AddLocale(ctx, c.Param("collection"), c.Param("id"), c.Param("locale"), payload, middleware.EditorID(c))
	if err != nil {
		return presenter.DomainError(c, err)
	}
	return presenter.Created(c, variant)
}

func (h *Handler) handleDeleteLocale(c echo.Context) error {
	ctx := c.Request().Context()

	err := h.content.DeleteLocale(ctx, c.Param("collection"), c.Param("id"), c.Param("locale"))
	if err != nil {
		return presenter.DomainError(c, err)
	}
	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleVersions(c echo.Context) error {
	ctx := c.Request().Context()

	versions, err := h.content.GetVersions(ctx, c.Param("collection"), c.Param("id"), c.QueryParam("locale"))
	if err != nil {
		return presenter.DomainError(c, err)
	}
	return presenter.OK(c, versions)
}

func (h *Handler) handleVersion(c echo.Context) error {
	ctx := c.Request().Context()

	versionID, err := strconv.ParseInt(c.Param("version"), 10, 64)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid version number")
	}

	entry, err := h.content.GetVersion(ctx, c.Param("collection"), c.Param("id"), c.QueryParam("locale"), versionID)
	if err != nil {
		return presenter.DomainError(c, err)
	}
	return presenter.OK(c, entry)
}

func (h *Handler) handleRestore(c echo.Context) error {
	ctx := c.Request().Context()

	versionID, err := strconv.ParseInt(c.Param("version"), 10, 64)
	if err != nil {
		return presenter.BadRequestMessage(c, "invalid version number")
	}

	variant, err := h.content.RestoreVersion(ctx, c.Param("collection"), c.Param("id"), c.QueryParam("locale"), versionID, middleware.EditorID(c))
	if err != nil {
		return presenter.DomainError(c, err)
	}
	return presenter.OK(c, variant)
}

func (h *Handler) handleGetSettings(c echo.Context) error {
	ctx := c.Request().Context()

	settings, err := h.policy.Settings(ctx)
	if err != nil {
		return presenter.DomainError(c, err)
	}
	return presenter.OK(c, settings)
}

func (h *Handler) handlePutSettings(c echo.Context) error {
	ctx := c.Request().Context()

	var values map[string]string
	if err := c.Bind(&values); err != nil {
		return presenter.BadRequest(c, err)
	}

	if err := h.policy.UpdateSettings(ctx, values); err != nil {
		return presenter.DomainError(c, err)
	}
	return presenter.OK(c, echo.Map{"status": "ok"})
}

// handleDelivery is the public read path. Only published variants are
// visible here and reads go through the memcached layer.
func (h *Handler) handleDelivery(c echo.Context) error {
	ctx := c.Request().Context()

	locale := c.QueryParam("locale")
	if locale == "" {
		locale = h.defaultLocale
	}

	variant, err := h.delivery.FindPublished(ctx, c.Param("collection"), c.Param("id"), locale)
	if err != nil {
		return presenter.DomainError(c, err)
	}
	return presenter.OK(c, variant.Payload)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type realtimeRequest struct {
	Type        string   `json:"type"`
	Collections []string `json:"collections"`
}

func (h *Handler) handleRealtime(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return err
	}
	defer func() {
		ws.Close()
	}()

	ctx := c.Request().Context()

	// Realtime owns its exit: it stops when ctx is cancelled (the server
	// cancels the request context once this handler returns). Neither
	// channel is closed here; closing output while Realtime is blocked
	// sending an event would panic outside the Recover middleware.
	input := make(chan []string)
	output := make(chan palimpsest.Event)

	go h.signal.Realtime(ctx, input, output)

	quit := make(chan struct{}, 1)

	go func() {
		for {
			var req realtimeRequest
			err := ws.ReadJSON(&req)
			if err != nil {

				wsErr, ok := err.(*websocket.CloseError)
				if ok {
					if !(wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
						slog.DebugContext(
							ctx, "WebSocket closed",
							slog.String("error", wsErr.Error()),
							slog.String("module", "socket"),
						)
					}
				} else {
					slog.ErrorContext(
						ctx, "Error reading message",
						slog.String("error", err.Error()),
						slog.String("module", "socket"),
					)
				}

				quit <- struct{}{}
				break
			}

			switch req.Type {
			case "listen":
				select {
				case input <- req.Collections:
				case <-ctx.Done():
					return
				}
				slog.DebugContext(
					ctx, fmt.Sprintf("Socket subscribe: %s", req.Collections),
					slog.String("module", "socket"),
				)
			case "h": // heartbeat
				// do nothing
			default:
				slog.InfoContext(
					ctx, "Unknown request type",
					slog.String("type", req.Type),
					slog.String("module", "socket"),
				)
			}
		}
	}()

	for {
		select {
		case <-quit:
			return nil
		case event := <-output:
			err := ws.WriteJSON(event)
			if err != nil {
				slog.ErrorContext(
					ctx, "Error writing message",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return nil
			}
		}
	}
}
