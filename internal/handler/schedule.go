package handler

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fitagenda/fitagenda/internal/conflict"
	"github.com/fitagenda/fitagenda/internal/model"
	"github.com/fitagenda/fitagenda/internal/series"
	"github.com/fitagenda/fitagenda/internal/service"
)

// ScheduleHandler exposes the scheduling core over HTTP. It is glue:
// parse, delegate, translate errors.
type ScheduleHandler struct {
	scheduleService *service.ScheduleService
	logger          *zap.Logger
}

func NewScheduleHandler(scheduleService *service.ScheduleService, logger *zap.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		scheduleService: scheduleService,
		logger:          logger,
	}
}

// Register mounts all scheduling routes under /api.
func (h *ScheduleHandler) Register(app *fiber.App) {
	api := app.Group("/api")

	api.Post("/recurring-schedules", h.createRecurringSchedule)
	api.Get("/recurring-schedules", h.listRecurringSchedules)
	api.Get("/recurring-schedules/:id", h.getRecurringSchedule)
	api.Get("/recurring-schedules/:id/instances", h.getSeriesInstances)
	api.Patch("/recurring-schedules/:id/active", h.setRuleActive)
	api.Delete("/recurring-schedules/:id", h.deleteRecurringSchedule)

	api.Post("/sessions", h.createSession)
	api.Get("/sessions", h.listSessions)
	api.Get("/sessions/:id", h.getSession)
	api.Patch("/sessions/:id", h.patchSession)
	api.Delete("/sessions/:id", h.deleteSession)
	api.Post("/sessions/check-conflicts", h.checkConflicts)
}

func (h *ScheduleHandler) createRecurringSchedule(c *fiber.Ctx) error {
	var req ruleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	rule, err := req.toModel()
	if err != nil {
		return writeError(c, err)
	}

	instances, err := h.scheduleService.CreateRecurringSchedule(c.Context(), rule)
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"rule":      rule,
		"instances": toInstanceResponses(instances),
	})
}

func (h *ScheduleHandler) listRecurringSchedules(c *fiber.Ctx) error {
	professorID, err := strconv.ParseInt(c.Query("professorId"), 10, 64)
	if err != nil {
		return badRequest(c, "professorId query parameter is required")
	}

	rules, err := h.scheduleService.GetRulesByProfessor(c.Context(), professorID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{"rules": rules})
}

func (h *ScheduleHandler) getRecurringSchedule(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid rule ID")
	}

	rule, err := h.scheduleService.GetRule(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{"rule": rule})
}

func (h *ScheduleHandler) getSeriesInstances(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid rule ID")
	}

	instances, err := h.scheduleService.GetSeriesInstances(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{"instances": toInstanceResponses(instances)})
}

func (h *ScheduleHandler) setRuleActive(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid rule ID")
	}

	var req struct {
		Active *bool `json:"active"`
	}
	if err := c.BodyParser(&req); err != nil || req.Active == nil {
		return badRequest(c, "Body must carry an \"active\" boolean")
	}

	if err := h.scheduleService.SetRuleActive(c.Context(), id, *req.Active); err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{"id": id, "active": *req.Active})
}

// deleteRecurringSchedule requires an explicit policy: cascade removes
// the generated instances, detach keeps them as standalone sessions.
func (h *ScheduleHandler) deleteRecurringSchedule(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid rule ID")
	}

	policy, err := service.ParseDeletePolicy(c.Query("policy"))
	if err != nil {
		return badRequest(c, "policy query parameter must be \"cascade\" or \"detach\"")
	}

	if err := h.scheduleService.DeleteRule(c.Context(), id, policy); err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{"id": id, "policy": string(policy)})
}

func (h *ScheduleHandler) createSession(c *fiber.Ctx) error {
	var req sessionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	inst, err := h.scheduleService.CreateSession(c.Context(), req.toModel())
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(toInstanceResponse(inst))
}

// listSessions returns a calendar page for either side of the pairing:
// ?professorId= for the trainer's agenda, ?studentId= for one client's.
func (h *ScheduleHandler) listSessions(c *fiber.Ctx) error {
	from, to, err := parseRange(c.Query("from"), c.Query("to"))
	if err != nil {
		return badRequest(c, err.Error())
	}

	var instances []*model.Instance
	switch {
	case c.Query("professorId") != "":
		professorID, err := strconv.ParseInt(c.Query("professorId"), 10, 64)
		if err != nil {
			return badRequest(c, "professorId must be an integer")
		}
		instances, err = h.scheduleService.GetSchedule(c.Context(), professorID, from, to)
		if err != nil {
			return writeError(c, err)
		}
	case c.Query("studentId") != "":
		studentID, err := strconv.ParseInt(c.Query("studentId"), 10, 64)
		if err != nil {
			return badRequest(c, "studentId must be an integer")
		}
		instances, err = h.scheduleService.GetStudentSchedule(c.Context(), studentID, from, to)
		if err != nil {
			return writeError(c, err)
		}
	default:
		return badRequest(c, "professorId or studentId query parameter is required")
	}

	return c.JSON(fiber.Map{"instances": toInstanceResponses(instances)})
}

func (h *ScheduleHandler) getSession(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid session ID")
	}

	inst, err := h.scheduleService.GetInstance(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(toInstanceResponse(inst))
}

func (h *ScheduleHandler) patchSession(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid session ID")
	}

	var req sessionPatchRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	change := series.Change{
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		StudentID: req.StudentID,
		Location:  req.Location,
		Value:     req.Value,
		Service:   req.Service,
		Notes:     req.Notes,
	}
	if req.Status != nil {
		status, err := model.ParseInstanceStatus(*req.Status)
		if err != nil {
			verr := model.NewValidationError()
			verr.Add("status", err.Error())
			return writeError(c, verr)
		}
		change.Status = &status
	}

	inst, err := h.scheduleService.MutateInstance(c.Context(), id, change)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(toInstanceResponse(inst))
}

func (h *ScheduleHandler) deleteSession(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid session ID")
	}

	if err := h.scheduleService.DeleteInstance(c.Context(), id); err != nil {
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{"id": id})
}

func (h *ScheduleHandler) checkConflicts(c *fiber.Ctx) error {
	var req checkConflictsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	result, err := h.scheduleService.CheckConflicts(c.Context(), conflict.Window{
		ProfessorID: req.ProfessorID,
		Start:       req.StartTime,
		End:         req.EndTime,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(result)
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": fiber.Map{
			"type":    "bad_request",
			"message": message,
		},
	})
}

func parseRange(fromStr, toStr string) (time.Time, time.Time, error) {
	from := time.Now().AddDate(0, -1, 0)
	to := time.Now().AddDate(0, 6, 0)

	if fromStr != "" {
		parsed, err := time.Parse(dateLayout, fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, errInvalidRange
		}
		from = parsed
	}
	if toStr != "" {
		parsed, err := time.Parse(dateLayout, toStr)
		if err != nil {
			return time.Time{}, time.Time{}, errInvalidRange
		}
		to = parsed
	}
	return from, to, nil
}

var errInvalidRange = fiber.NewError(fiber.StatusBadRequest, "from/to must be dates in YYYY-MM-DD format")
