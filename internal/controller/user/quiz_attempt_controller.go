package user

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lumenlms/lumen/internal/controller"
	"github.com/lumenlms/lumen/internal/dto"
	"github.com/lumenlms/lumen/internal/middleware"
	"github.com/lumenlms/lumen/internal/service"
	"github.com/rs/zerolog/log"
)

type QuizAttemptController struct {
	quizService    service.QuizService
	attemptService service.AttemptService
	recorder       service.ResponseRecorder
}

func NewQuizAttemptController(
	qs service.QuizService,
	as service.AttemptService,
	rr service.ResponseRecorder,
) *QuizAttemptController {
	return &QuizAttemptController{
		quizService:    qs,
		attemptService: as,
		recorder:       rr,
	}
}

func parseID(ctx *gin.Context, param string) (uint, bool) {
	val, err := strconv.ParseUint(ctx.Param(param), 10, 32)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid " + param + " format"})
		return 0, false
	}
	return uint(val), true
}

func studentID(ctx *gin.Context) (uint, bool) {
	id, ok := middleware.StudentID(ctx)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Authentication required"})
		return 0, false
	}
	return id, true
}

// GetAvailableQuizzes godoc
// @Summary (Student) List available quizzes
// @Description Published quizzes the student may browse, with question counts and time limits.
// @Tags Student - Quizzes & Attempts
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.QuizSummaryDTO
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /quizzes [get]
func (c *QuizAttemptController) GetAvailableQuizzes(ctx *gin.Context) {
	quizzes, err := c.quizService.GetAvailableQuizzes()
	if err != nil {
		log.Error().Err(err).Msg("GetAvailableQuizzes: service error")
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, quizzes)
}

// GetQuizDetails godoc
// @Summary (Student) Get quiz details
// @Description Full quiz view with questions and options. Answer keys are never included.
// @Tags Student - Quizzes & Attempts
// @Produce json
// @Security BearerAuth
// @Param quiz_id path int true "Quiz ID"
// @Success 200 {object} dto.QuizDetailDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid quiz ID format"
// @Failure 403 {object} dto.ErrorResponse "Quiz not currently available"
// @Failure 404 {object} dto.ErrorResponse "Quiz not found"
// @Router /quizzes/{quiz_id} [get]
func (c *QuizAttemptController) GetQuizDetails(ctx *gin.Context) {
	quizID, ok := parseID(ctx, "quiz_id")
	if !ok {
		return
	}
	detail, err := c.quizService.GetQuizDetails(quizID)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, detail)
}

// StartAttempt godoc
// @Summary (Student) Start a quiz attempt
// @Description Opens a new attempt if the availability and attempt-limit gates allow it.
// @Tags Student - Quizzes & Attempts
// @Produce json
// @Security BearerAuth
// @Param quiz_id path int true "Quiz ID"
// @Success 201 {object} dto.AttemptDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid quiz ID format"
// @Failure 403 {object} dto.ErrorResponse "Quiz not available or disabled"
// @Failure 404 {object} dto.ErrorResponse "Quiz not found"
// @Failure 409 {object} dto.ErrorResponse "Attempt limit reached, retake not allowed, or attempt already in progress"
// @Router /quizzes/{quiz_id}/attempts [post]
func (c *QuizAttemptController) StartAttempt(ctx *gin.Context) {
	quizID, ok := parseID(ctx, "quiz_id")
	if !ok {
		return
	}
	sID, ok := studentID(ctx)
	if !ok {
		return
	}

	attempt, err := c.attemptService.StartAttempt(quizID, sID)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	log.Info().Uint("quizID", quizID).Uint("studentID", sID).Uint("attemptID", attempt.ID).Msg("Attempt started")
	ctx.JSON(http.StatusCreated, attempt)
}

// RecordAnswer godoc
// @Summary (Student) Record an answer
// @Description Saves or overwrites the answer for one question of an open attempt.
// @Tags Student - Quizzes & Attempts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param attempt_id path int true "Attempt ID"
// @Param answer body dto.RecordAnswerRequest true "Answer payload"
// @Success 200 {object} dto.ResponseDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid input"
// @Failure 403 {object} dto.ErrorResponse "Attempt belongs to another student"
// @Failure 404 {object} dto.ErrorResponse "Attempt or question not found"
// @Failure 409 {object} dto.ErrorResponse "Attempt already completed or expired"
// @Router /attempts/{attempt_id}/answers [put]
func (c *QuizAttemptController) RecordAnswer(ctx *gin.Context) {
	attemptID, ok := parseID(ctx, "attempt_id")
	if !ok {
		return
	}
	sID, ok := studentID(ctx)
	if !ok {
		return
	}

	var req dto.RecordAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("RecordAnswer: failed to bind request")
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	resp, err := c.recorder.RecordAnswer(attemptID, sID, req)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// SubmitAttempt godoc
// @Summary (Student) Submit an attempt
// @Description Closes the attempt and grades every question. Unanswered questions score zero.
// @Tags Student - Quizzes & Attempts
// @Produce json
// @Security BearerAuth
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.AttemptResultDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid attempt ID format"
// @Failure 403 {object} dto.ErrorResponse "Attempt belongs to another student"
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Failure 409 {object} dto.ErrorResponse "Attempt already completed"
// @Router /attempts/{attempt_id}/submit [post]
func (c *QuizAttemptController) SubmitAttempt(ctx *gin.Context) {
	attemptID, ok := parseID(ctx, "attempt_id")
	if !ok {
		return
	}
	sID, ok := studentID(ctx)
	if !ok {
		return
	}

	result, err := c.attemptService.SubmitAttempt(attemptID, sID)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// GetAttemptResult godoc
// @Summary (Student) Get an attempt result
// @Description Graded breakdown of a completed attempt. Open attempts have no result yet.
// @Tags Student - Quizzes & Attempts
// @Produce json
// @Security BearerAuth
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.AttemptResultDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid attempt ID format"
// @Failure 403 {object} dto.ErrorResponse "Attempt belongs to another student"
// @Failure 404 {object} dto.ErrorResponse "Attempt not found or not yet completed"
// @Router /attempts/{attempt_id}/result [get]
func (c *QuizAttemptController) GetAttemptResult(ctx *gin.Context) {
	attemptID, ok := parseID(ctx, "attempt_id")
	if !ok {
		return
	}
	sID, ok := studentID(ctx)
	if !ok {
		return
	}

	result, err := c.attemptService.GetAttemptResult(attemptID, sID)
	if err != nil {
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// GetMyAttempts godoc
// @Summary (Student) List my attempts for a quiz
// @Description All attempts the student has made on a quiz, newest first.
// @Tags Student - Quizzes & Attempts
// @Produce json
// @Security BearerAuth
// @Param quiz_id path int true "Quiz ID"
// @Success 200 {array} dto.AttemptSummaryDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid quiz ID format"
// @Failure 404 {object} dto.ErrorResponse "Quiz not found"
// @Router /quizzes/{quiz_id}/my-attempts [get]
func (c *QuizAttemptController) GetMyAttempts(ctx *gin.Context) {
	quizID, ok := parseID(ctx, "quiz_id")
	if !ok {
		return
	}
	sID, ok := studentID(ctx)
	if !ok {
		return
	}

	attempts, err := c.attemptService.GetMyAttempts(quizID, sID)
	if err != nil {
		log.Error().Err(err).Uint("quizID", quizID).Uint("studentID", sID).Msg("GetMyAttempts: service error")
		controller.RespondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, attempts)
}
