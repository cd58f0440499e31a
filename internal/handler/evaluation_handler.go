package handler

import (
	"errors"
	"runtime/debug"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/evalarena/evalarena-go-api/internal/dto"
	"github.com/evalarena/evalarena-go-api/internal/middleware"
	"github.com/evalarena/evalarena-go-api/internal/service"
	"github.com/evalarena/evalarena-go-api/internal/utils"
)

// EvaluationHandler wires evaluation HTTP routes.
type EvaluationHandler struct {
	evaluations service.EvaluationService
	reviews     service.ManualReviewService
	logger      zerolog.Logger
	exposeStack bool
}

// NewEvaluationHandler constructs the handler. exposeStack attaches stack
// traces to internal error responses and must stay off in production.
func NewEvaluationHandler(evaluations service.EvaluationService, reviews service.ManualReviewService, logger zerolog.Logger, exposeStack bool) *EvaluationHandler {
	return &EvaluationHandler{
		evaluations: evaluations,
		reviews:     reviews,
		logger:      logger.With().Str("component", "evaluation_handler").Logger(),
		exposeStack: exposeStack,
	}
}

// Register attaches evaluation endpoints. Identity resolution is optional
// everywhere except the owner-scoped listing.
func (h *EvaluationHandler) Register(router fiber.Router, optionalIdentity, requireIdentity fiber.Handler) {
	router.Post("/evaluate-set", optionalIdentity, h.evaluateSet)
	router.Get("/sets/:id", h.getSet)
	router.Get("/share/:id", h.getShared)
	router.Post("/sets/:id/evaluate", optionalIdentity, h.applyVerdict)
	router.Get("/user/sets", optionalIdentity, requireIdentity, h.listUserSets)
}

func (h *EvaluationHandler) evaluateSet(c *fiber.Ctx) error {
	var req dto.EvaluateSetRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if len(req.Questions) == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "at least one question is required")
	}
	if len(req.Models) == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "at least one model is required")
	}

	owner := middleware.IdentityFromCtx(c)
	resp, err := h.evaluations.CreateAndRun(c.Context(), req, owner)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "evaluation completed", resp)
}

func (h *EvaluationHandler) getSet(c *fiber.Ctx) error {
	id := c.Params("id")
	debugRequested := c.QueryBool("debug")

	set, err := h.evaluations.Get(c.Context(), id, debugRequested)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "evaluation set retrieved", set)
}

func (h *EvaluationHandler) getShared(c *fiber.Ctx) error {
	set, err := h.evaluations.GetShared(c.Context(), c.Params("id"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "shared evaluation set retrieved", set)
}

func (h *EvaluationHandler) applyVerdict(c *fiber.Ctx) error {
	var req dto.ManualEvaluationRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	actor := middleware.IdentityFromCtx(c)
	evaluation, err := h.reviews.ApplyVerdict(c.Context(), c.Params("id"), req, actor)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "evaluation updated", fiber.Map{"evaluation": evaluation})
}

func (h *EvaluationHandler) listUserSets(c *fiber.Ctx) error {
	owner := middleware.IdentityFromCtx(c)
	if owner == nil {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	page := c.QueryInt("page", 1)
	pageSize := c.QueryInt("pageSize", 20)

	sets, err := h.evaluations.ListUserSets(c.Context(), *owner, page, pageSize)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "evaluation sets retrieved", sets)
}

func (h *EvaluationHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrEvaluationSetNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "evaluation set not found")
	case errors.Is(err, service.ErrResultNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "model result not found")
	case errors.Is(err, service.ErrForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "evaluation set belongs to another user")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		return h.internalError(c, err)
	}
}

func (h *EvaluationHandler) internalError(c *fiber.Ctx, err error) error {
	h.logger.Error().Err(err).Str("path", c.Path()).Msg("internal server error")
	if h.exposeStack {
		return utils.Fail(c, fiber.StatusInternalServerError, "internal server error", string(debug.Stack()))
	}
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
