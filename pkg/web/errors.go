package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/coinflux/ruleflow/pkg/compiler"
	"github.com/coinflux/ruleflow/pkg/persistence"
	"github.com/coinflux/ruleflow/pkg/workflow"
)

// compileFailedProblem is an RFC 7807 problem document extended with the
// full compiler error list, so the editor can surface every problem at once.
type compileFailedProblem struct {
	Type     string                  `json:"type"`
	Title    string                  `json:"title"`
	Status   int                     `json:"status"`
	Detail   string                  `json:"detail"`
	Instance string                  `json:"instance"`
	Errors   []compiler.CompileError `json:"errors"`
}

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleWorkflowError maps repository and lifecycle errors onto problem
// responses.
func handleWorkflowError(c fiber.Ctx, err error) error {
	var compileFailed *workflow.CompileFailedError

	switch {
	case errors.As(err, &compileFailed):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(compileFailedProblem{
			Type:     "compile_failed",
			Title:    "Unprocessable Entity",
			Status:   fiber.StatusUnprocessableEntity,
			Detail:   "workflow graph failed to compile",
			Instance: c.Path(),
			Errors:   compileFailed.Errors,
		})

	case workflow.IsConflict(err):
		problem := problems.NewStatusProblem(409).
			WithInstance(c.Path()).
			WithType("lifecycle_conflict").
			WithDetail(err.Error())

		return c.Status(fiber.StatusConflict).JSON(problem)

	case persistence.IsWorkflowNotFound(err):
		return notFound(c, "workflow not found")

	default:
		return internalError(c, err)
	}
}
