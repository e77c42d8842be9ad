package admin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lumenlms/lumen/internal/controller"
	"github.com/lumenlms/lumen/internal/dto"
	"github.com/lumenlms/lumen/internal/service"
	"github.com/rs/zerolog/log"
)

type AdminQuizController struct {
	adminService service.AdminQuizService
}

func NewAdminQuizController(as service.AdminQuizService) *AdminQuizController {
	return &AdminQuizController{adminService: as}
}

func parseID(ctx *gin.Context, param string) (uint, bool) {
	val, err := strconv.ParseUint(ctx.Param(param), 10, 32)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid " + param + " format"})
		return 0, false
	}
	return uint(val), true
}

// CreateQuiz godoc
// @Summary (Admin) Create a quiz
// @Description Creates a quiz with its questions and options. The quiz starts unpublished.
// @Tags Admin - Quizzes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param quiz body dto.QuizCreateDTO true "Quiz definition including questions"
// @Success 201 {object} dto.QuizDetailDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid quiz or question definition"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/quizzes [post]
func (c *AdminQuizController) CreateQuiz(ctx *gin.Context) {
	var req dto.QuizCreateDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("CreateQuiz: failed to bind request")
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	quiz, err := c.adminService.CreateQuiz(req)
	if err != nil {
		if ve, ok := err.(*service.ValidationError); ok {
			ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: ve.Error()})
			return
		}
		log.Error().Err(err).Msg("CreateQuiz: service error")
		controller.RespondError(ctx, err)
		return
	}
	log.Info().Uint("quizID", quiz.ID).Str("title", quiz.Title).Msg("Quiz created")
	ctx.JSON(http.StatusCreated, quiz)
}

// SetPublishState godoc
// @Summary (Admin) Publish or unpublish a quiz
// @Description Toggles student visibility. Unpublishing does not touch open attempts.
// @Tags Admin - Quizzes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param quiz_id path int true "Quiz ID"
// @Param state body dto.PublishStateDTO true "Desired publish state"
// @Success 204 "No Content"
// @Failure 400 {object} dto.ErrorResponse "Invalid input"
// @Failure 404 {object} dto.ErrorResponse "Quiz not found"
// @Router /admin/quizzes/{quiz_id}/publish [patch]
func (c *AdminQuizController) SetPublishState(ctx *gin.Context) {
	quizID, ok := parseID(ctx, "quiz_id")
	if !ok {
		return
	}

	var req dto.PublishStateDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	if err := c.adminService.SetPublishState(quizID, req); err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// GetQuizAttempts godoc
// @Summary (Admin) List all attempts for a quiz
// @Description Every student attempt on the quiz, for oversight and grading queues.
// @Tags Admin - Quizzes
// @Produce json
// @Security BearerAuth
// @Param quiz_id path int true "Quiz ID"
// @Success 200 {array} dto.AttemptSummaryDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid quiz ID format"
// @Failure 404 {object} dto.ErrorResponse "Quiz not found"
// @Router /admin/quizzes/{quiz_id}/attempts [get]
func (c *AdminQuizController) GetQuizAttempts(ctx *gin.Context) {
	quizID, ok := parseID(ctx, "quiz_id")
	if !ok {
		return
	}

	attempts, err := c.adminService.GetQuizAttempts(quizID)
	if err != nil {
		log.Error().Err(err).Uint("quizID", quizID).Msg("GetQuizAttempts: service error")
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, attempts)
}

// GradeEssays godoc
// @Summary (Admin) Grade essay responses
// @Description Applies manual scores to essay questions of a completed attempt and recomputes the total.
// @Tags Admin - Quizzes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param attempt_id path int true "Attempt ID"
// @Param grades body dto.EssayGradesRequest true "Per-question essay scores"
// @Success 200 {object} dto.AttemptResultDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid input or non-essay question referenced"
// @Failure 404 {object} dto.ErrorResponse "Attempt or question not found"
// @Failure 409 {object} dto.ErrorResponse "Attempt not yet completed"
// @Router /admin/attempts/{attempt_id}/essay-grades [put]
func (c *AdminQuizController) GradeEssays(ctx *gin.Context) {
	attemptID, ok := parseID(ctx, "attempt_id")
	if !ok {
		return
	}

	var req dto.EssayGradesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	result, err := c.adminService.GradeEssays(attemptID, req)
	if err != nil {
		if ve, ok := err.(*service.ValidationError); ok {
			ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: ve.Error()})
			return
		}
		controller.RespondError(ctx, err)
		return
	}
	log.Info().Uint("attemptID", attemptID).Msg("Essay grades applied")
	ctx.JSON(http.StatusOK, result)
}
