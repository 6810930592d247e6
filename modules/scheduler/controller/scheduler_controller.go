package controller

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"group-scheduler/core/constants"
	"group-scheduler/core/controller"
	"group-scheduler/core/errors"
	"group-scheduler/core/logger"
	"group-scheduler/core/utils"
	"group-scheduler/modules/scheduler/dto"
	"group-scheduler/modules/scheduler/entity"
	"group-scheduler/modules/scheduler/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const streamHeartbeat = 25 * time.Second

// SchedulerController handles proposal HTTP requests
type SchedulerController struct {
	controller.BaseController
	SchedulerService service.SchedulerServiceInterface
}

func NewSchedulerController(svc service.SchedulerServiceInterface) *SchedulerController {
	return &SchedulerController{
		BaseController:   controller.NewBaseController(),
		SchedulerService: svc,
	}
}

// getUserIDFromContext extracts user ID from JWT context
func (c *SchedulerController) getUserIDFromContext(ctx echo.Context) (string, error) {
	tokenData := ctx.Get(constants.ContextTokenData)
	if tokenData == nil {
		return "", errors.NewAppError(errors.ErrUnauthorized, "User not authenticated", nil)
	}

	claims, ok := tokenData.(*utils.TokenClaims)
	if !ok {
		return "", errors.NewAppError(errors.ErrUnauthorized, "Invalid token data", nil)
	}

	return claims.UserID, nil
}

func (c *SchedulerController) proposalID(ctx echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return uuid.Nil, c.BadRequest(errors.ErrInvalidInput, "Invalid proposal ID")
	}
	return id, nil
}

// CreateProposal handles POST /proposals
func (c *SchedulerController) CreateProposal(ctx echo.Context) error {
	userID, err := c.getUserIDFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	var req dto.CreateProposalRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid request body")
	}

	result, appErr := c.SchedulerService.CreateProposal(ctx.Request().Context(), userID, &req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, result, "Proposal created successfully")
}

// ListMyProposals handles GET /proposals
func (c *SchedulerController) ListMyProposals(ctx echo.Context) error {
	userID, err := c.getUserIDFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	result, appErr := c.SchedulerService.ListMyProposals(ctx.Request().Context(), userID)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, result, "Proposals retrieved successfully")
}

// GetProposal handles GET /proposals/:id
func (c *SchedulerController) GetProposal(ctx echo.Context) error {
	id, err := c.proposalID(ctx)
	if err != nil {
		return err
	}

	result, appErr := c.SchedulerService.GetProposal(ctx.Request().Context(), id)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, result, "Proposal retrieved successfully")
}

// GetGrid handles GET /proposals/:id/grid
func (c *SchedulerController) GetGrid(ctx echo.Context) error {
	id, err := c.proposalID(ctx)
	if err != nil {
		return err
	}

	result, appErr := c.SchedulerService.GetGrid(ctx.Request().Context(), id)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, result, "Grid retrieved successfully")
}

// SubmitAvailability handles PUT /proposals/:id/availability
func (c *SchedulerController) SubmitAvailability(ctx echo.Context) error {
	userID, err := c.getUserIDFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}
	id, err := c.proposalID(ctx)
	if err != nil {
		return err
	}

	var req dto.SubmitAvailabilityRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid request body")
	}

	result, appErr := c.SchedulerService.SubmitAvailability(ctx.Request().Context(), userID, id, &req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, result, "Availability saved successfully")
}

// GetSuggestions handles GET /proposals/:id/suggestions
func (c *SchedulerController) GetSuggestions(ctx echo.Context) error {
	id, err := c.proposalID(ctx)
	if err != nil {
		return err
	}

	suggestions, appErr := c.SchedulerService.ComputeAvailability(ctx.Request().Context(), id)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, dto.SuggestionsResponse{
		ProposalID:  id.String(),
		Suggestions: suggestions,
	}, "Suggestions computed successfully")
}

// GetStoredSuggestions handles GET /proposals/:id/suggestions/stored
func (c *SchedulerController) GetStoredSuggestions(ctx echo.Context) error {
	id, err := c.proposalID(ctx)
	if err != nil {
		return err
	}

	result, appErr := c.SchedulerService.ListStoredSuggestions(ctx.Request().Context(), id)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	return c.SuccessResponse(ctx, result, "Suggestions retrieved successfully")
}

// ExportCalendar handles GET /proposals/:id/calendar.ics
func (c *SchedulerController) ExportCalendar(ctx echo.Context) error {
	id, err := c.proposalID(ctx)
	if err != nil {
		return err
	}

	body, appErr := c.SchedulerService.ExportCalendar(ctx.Request().Context(), id)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", id.String()+".ics"))
	return ctx.Blob(http.StatusOK, "text/calendar; charset=utf-8", []byte(body))
}

// StreamSuggestions handles GET /proposals/:id/suggestions/stream. It sends
// the current suggestions, then a fresh list after every submission, as
// server-sent events until the client disconnects.
func (c *SchedulerController) StreamSuggestions(ctx echo.Context) error {
	id, err := c.proposalID(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()

	initial, appErr := c.SchedulerService.ComputeAvailability(reqCtx, id)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	// Only the latest list matters; an unread older one is replaced.
	updates := make(chan []entity.Suggestion, 1)
	unsubscribe, appErr := c.SchedulerService.OnNewSubmission(id, func(suggestions []entity.Suggestion) {
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- suggestions:
		default:
		}
	})
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}
	defer unsubscribe()

	res := ctx.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)

	if err := writeEvent(res, "suggestions", initial); err != nil {
		return nil
	}

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-reqCtx.Done():
			logger.Debug("SchedulerController:StreamSuggestions:Closed", "proposal_id", id)
			return nil
		case suggestions := <-updates:
			if err := writeEvent(res, "suggestions", suggestions); err != nil {
				return nil
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}

func writeEvent(res *echo.Response, name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", name, payload); err != nil {
		return err
	}
	res.Flush()
	return nil
}
