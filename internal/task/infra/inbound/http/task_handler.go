package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	sharedUtils "github.com/davicafu/hexatodo/internal/shared/infra/utils"
	taskDomain "github.com/davicafu/hexatodo/internal/task/domain"
	"github.com/davicafu/hexatodo/internal/task/infra/inbound/view"
	"github.com/davicafu/hexatodo/pkg/utils"
)

// Mensajes que muestra la interfaz.
const (
	MsgMarkedComplete   = "Task marked as complete"
	MsgMarkedIncomplete = "Task marked as incomplete"
	MsgToggleFailed     = "Failed to update task status"
	MsgNoTasks          = "No tasks yet. Create your first task!"
	MsgNoMatches        = "No tasks match your filters."
)

// TaskRepository son los casos de uso que expone el handler.
type TaskRepository interface {
	ListTasks(ctx context.Context) ([]taskDomain.Task, error)
	Tasks() []taskDomain.Task
	CreateTask(ctx context.Context, in taskDomain.CreateTaskInput) (*taskDomain.Task, error)
	UpdateTask(ctx context.Context, id uuid.UUID, in taskDomain.UpdateTaskInput) error
	DeleteTask(ctx context.Context, id uuid.UUID) error
	IsLoading() bool
}

// TaskHandler encapsula los endpoints HTTP de tareas.
type TaskHandler struct {
	repo  TaskRepository
	board *view.Board
	log   *zap.Logger
	now   func() time.Time
}

// NewTaskHandler crea un nuevo TaskHandler.
func NewTaskHandler(repo TaskRepository, board *view.Board, log *zap.Logger) *TaskHandler {
	return &TaskHandler{repo: repo, board: board, log: log, now: time.Now}
}

type createTaskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Priority    string  `json:"priority"`
	DueDate     *string `json:"dueDate"`
}

type updateTaskRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	Priority     *string `json:"priority"`
	DueDate      *string `json:"dueDate"`
	ClearDueDate bool    `json:"clearDueDate"`
	IsCompleted  *bool   `json:"isCompleted"`
}

type listMeta struct {
	Total     int    `json:"total"`
	Shown     int    `json:"shown"`
	Empty     bool   `json:"empty"`
	NoMatches bool   `json:"noMatches"`
	Message   string `json:"message,omitempty"`
	Loading   bool   `json:"loading"`
}

// ListTasks endpoint GET /tasks?q=&status=&priority=
func (h *TaskHandler) ListTasks(c *gin.Context) {
	filter, err := view.ParseFilter(c.Query("q"), c.Query("status"), c.Query("priority"))
	if err != nil {
		utils.SendErrorKind(c, http.StatusBadRequest, string(taskDomain.KindValidation), err.Error())
		return
	}

	tasks, err := h.repo.ListTasks(c.Request.Context())
	if err != nil {
		h.sendRepoError(c, err)
		return
	}
	h.board.Sync(tasks)

	shown := h.board.View(filter)
	meta := listMeta{
		Total:     len(tasks),
		Shown:     len(shown),
		Empty:     len(tasks) == 0,
		NoMatches: len(tasks) > 0 && len(shown) == 0,
		Loading:   h.repo.IsLoading(),
	}
	switch {
	case meta.Empty:
		meta.Message = MsgNoTasks
	case meta.NoMatches:
		meta.Message = MsgNoMatches
	}
	utils.SendSuccessWithMeta(c, http.StatusOK, shown, gin.H{"meta": meta})
}

type summaryResponse struct {
	view.Summary
	Upcoming []taskDomain.Task `json:"upcoming"`
}

// Summary endpoint GET /tasks/summary: contadores y tareas urgentes del panel.
func (h *TaskHandler) Summary(c *gin.Context) {
	tasks, err := h.repo.ListTasks(c.Request.Context())
	if err != nil {
		h.sendRepoError(c, err)
		return
	}
	h.board.Sync(tasks)

	utils.SendSuccess(c, http.StatusOK, summaryResponse{
		Summary:  view.Summarize(tasks, h.now()),
		Upcoming: view.Upcoming(tasks, view.UpcomingLimit),
	})
}

// CreateTask endpoint POST /tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}

	in := taskDomain.CreateTaskInput{Title: req.Title, Description: req.Description}
	if req.Priority != "" {
		in.Priority = taskDomain.Priority(req.Priority)
	}
	if req.DueDate != nil && *req.DueDate != "" {
		due, err := parseDate(*req.DueDate)
		if err != nil {
			utils.SendErrorKind(c, http.StatusBadRequest, string(taskDomain.KindValidation), err.Error())
			return
		}
		in.DueDate = &due
	}

	task, err := h.repo.CreateTask(c.Request.Context(), in)
	if err != nil {
		h.sendRepoError(c, err)
		return
	}
	h.board.Sync(h.repo.Tasks())
	utils.SendSuccess(c, http.StatusCreated, task)
}

// UpdateTask endpoint PATCH /tasks/:id. Solo los campos presentes cambian.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, err.Error())
		return
	}

	in := taskDomain.UpdateTaskInput{
		Title:        req.Title,
		Description:  req.Description,
		ClearDueDate: req.ClearDueDate,
		IsCompleted:  req.IsCompleted,
	}
	if req.Priority != nil {
		p := taskDomain.Priority(*req.Priority)
		in.Priority = &p
	}
	if req.DueDate != nil {
		if *req.DueDate == "" {
			in.ClearDueDate = true
		} else {
			due, err := parseDate(*req.DueDate)
			if err != nil {
				utils.SendErrorKind(c, http.StatusBadRequest, string(taskDomain.KindValidation), err.Error())
				return
			}
			in.DueDate = &due
		}
	}

	if err := h.repo.UpdateTask(c.Request.Context(), id, in); err != nil {
		h.sendRepoError(c, err)
		return
	}
	h.board.Sync(h.repo.Tasks())
	c.Status(http.StatusNoContent)
}

// DeleteTask endpoint DELETE /tasks/:id
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.repo.DeleteTask(c.Request.Context(), id); err != nil {
		h.sendRepoError(c, err)
		return
	}
	h.board.Sync(h.repo.Tasks())
	c.Status(http.StatusNoContent)
}

// ToggleTask endpoint POST /tasks/:id/toggle. Toggle optimista con rollback.
func (h *TaskHandler) ToggleTask(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if _, shown := h.board.Displayed(id); !shown {
		h.board.Sync(h.repo.Tasks())
	}

	m, err := h.board.Toggle(c.Request.Context(), id)
	switch {
	case errors.Is(err, view.ErrTaskNotDisplayed):
		utils.SendNotFound(c, "task not found")
		return
	case errors.Is(err, view.ErrMutationInFlight):
		utils.SendError(c, http.StatusConflict, err.Error())
		return
	case err != nil:
		status, kind := statusFor(err)
		utils.SendErrorKind(c, status, string(kind), MsgToggleFailed)
		return
	}

	h.board.Sync(h.repo.Tasks())
	utils.SendSuccessWithMeta(c, http.StatusOK, m, gin.H{
		"message": sharedUtils.Ternary(m.Requested, MsgMarkedComplete, MsgMarkedIncomplete),
	})
}

func (h *TaskHandler) sendRepoError(c *gin.Context, err error) {
	status, kind := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("Task request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	utils.SendErrorKind(c, status, string(kind), err.Error())
}

// statusFor traduce la categoría del error a un código HTTP.
func statusFor(err error) (int, taskDomain.ErrorKind) {
	kind := taskDomain.KindOf(err)
	switch kind {
	case taskDomain.KindValidation:
		return http.StatusBadRequest, kind
	case taskDomain.KindUnauthenticated:
		return http.StatusUnauthorized, kind
	case taskDomain.KindRemoteFailure:
		return http.StatusBadGateway, kind
	}
	return http.StatusInternalServerError, kind
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.SendBadRequest(c, "invalid task id")
		return uuid.Nil, false
	}
	return id, true
}

func parseDate(raw string) (time.Time, error) {
	d, err := time.Parse(taskDomain.DateLayout, raw)
	if err != nil {
		return time.Time{}, errors.New("dueDate: must be a date in YYYY-MM-DD format")
	}
	return d, nil
}
