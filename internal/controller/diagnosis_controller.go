package controller

import (
	"errors"

	"ai-diagnosis-be/internal/dto"
	"ai-diagnosis-be/internal/pkg/serverutils"
	"ai-diagnosis-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IDiagnosisController interface {
	RegisterRoutes(r fiber.Router)
	CreateSession(ctx *fiber.Ctx) error
	Score(ctx *fiber.Ctx) error
	NextQuestion(ctx *fiber.Ctx) error
	RecordAnswer(ctx *fiber.Ctx) error
	GetBoosts(ctx *fiber.Ctx) error
	GetProgress(ctx *fiber.Ctx) error
	ExportSession(ctx *fiber.Ctx) error
	ImportSession(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
}

type diagnosisController struct {
	service service.IDiagnosisService
}

func NewDiagnosisController(service service.IDiagnosisService) IDiagnosisController {
	return &diagnosisController{service: service}
}

func (c *diagnosisController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/diagnosis/sessions")
	h.Post("/", c.CreateSession)
	h.Post("/:id/score", c.Score)
	h.Get("/:id/questions/next", c.NextQuestion)
	h.Post("/:id/answers", c.RecordAnswer)
	h.Get("/:id/boosts", c.GetBoosts)
	h.Get("/:id/progress", c.GetProgress)
	h.Get("/:id/export", c.ExportSession)
	h.Post("/:id/import", c.ImportSession)
	h.Delete("/:id", c.DeleteSession)
}

func (c *diagnosisController) CreateSession(ctx *fiber.Ctx) error {
	res, err := c.service.CreateSession(ctx.Context())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.Status(fiber.StatusCreated).JSON(res)
}

func (c *diagnosisController) Score(ctx *fiber.Ctx) error {
	var request dto.ScoreRequest
	if err := ctx.BodyParser(&request); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid request body"))
	}
	if err := serverutils.ValidateStruct(&request); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	res, err := c.service.Score(ctx.Context(), ctx.Params("id"), &request)
	if err != nil {
		return mapServiceError(ctx, err)
	}
	return ctx.JSON(res)
}

func (c *diagnosisController) NextQuestion(ctx *fiber.Ctx) error {
	condition := ctx.Query("condition", "")

	res, err := c.service.NextQuestion(ctx.Context(), ctx.Params("id"), condition)
	if err != nil {
		return mapServiceError(ctx, err)
	}
	return ctx.JSON(res)
}

func (c *diagnosisController) RecordAnswer(ctx *fiber.Ctx) error {
	var request dto.RecordAnswerRequest
	if err := ctx.BodyParser(&request); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid request body"))
	}
	if err := serverutils.ValidateStruct(&request); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	res, err := c.service.RecordAnswer(ctx.Context(), ctx.Params("id"), &request)
	if err != nil {
		return mapServiceError(ctx, err)
	}
	return ctx.JSON(res)
}

func (c *diagnosisController) GetBoosts(ctx *fiber.Ctx) error {
	res, err := c.service.GetBoosts(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return mapServiceError(ctx, err)
	}
	return ctx.JSON(res)
}

func (c *diagnosisController) GetProgress(ctx *fiber.Ctx) error {
	res, err := c.service.GetProgress(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return mapServiceError(ctx, err)
	}
	return ctx.JSON(res)
}

func (c *diagnosisController) ExportSession(ctx *fiber.Ctx) error {
	res, err := c.service.ExportSession(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return mapServiceError(ctx, err)
	}
	return ctx.JSON(res)
}

func (c *diagnosisController) ImportSession(ctx *fiber.Ctx) error {
	body := ctx.Body()
	if len(body) == 0 {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "snapshot body is required"))
	}

	if err := c.service.ImportSession(ctx.Context(), ctx.Params("id"), body); err != nil {
		return mapServiceError(ctx, err)
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

func (c *diagnosisController) DeleteSession(ctx *fiber.Ctx) error {
	if err := c.service.DeleteSession(ctx.Context(), ctx.Params("id")); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

func mapServiceError(ctx *fiber.Ctx, err error) error {
	if errors.Is(err, service.ErrSessionNotFound) {
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, err.Error()))
	}
	return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
}
