package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"dance-school-crm/internal/repository"
	"dance-school-crm/internal/service"
	"dance-school-crm/internal/timerange"
)

type Handler struct {
	scheduleService   service.ScheduleService
	seriesService     service.SeriesService
	attendanceService service.AttendanceService
	groupRepo         repository.GroupRepository
	trainerRepo       repository.TrainerRepository
	roomRepo          repository.RoomRepository
	db                *sqlx.DB
	validate          *validator.Validate
	logger            *zap.Logger
}

func NewHandler(
	scheduleService service.ScheduleService,
	seriesService service.SeriesService,
	attendanceService service.AttendanceService,
	groupRepo repository.GroupRepository,
	trainerRepo repository.TrainerRepository,
	roomRepo repository.RoomRepository,
	db *sqlx.DB,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		scheduleService:   scheduleService,
		seriesService:     seriesService,
		attendanceService: attendanceService,
		groupRepo:         groupRepo,
		trainerRepo:       trainerRepo,
		roomRepo:          roomRepo,
		db:                db,
		validate:          validator.New(),
		logger:            logger,
	}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.Health)

	mux.HandleFunc("GET /api/sessions", h.ListSessions)
	mux.HandleFunc("POST /api/sessions", h.CreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", h.GetSession)
	mux.HandleFunc("PATCH /api/sessions/{id}", h.EditSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.DeleteSession)
	mux.HandleFunc("POST /api/sessions/{id}/cancel", h.CancelSession)

	mux.HandleFunc("POST /api/series", h.CreateSeries)
	mux.HandleFunc("GET /api/series", h.ListSeries)
	mux.HandleFunc("DELETE /api/series/{id}", h.DeleteSeries)

	mux.HandleFunc("POST /api/substitutions", h.Substitute)

	mux.HandleFunc("POST /api/sessions/{id}/attendance", h.RecordAttendance)
	mux.HandleFunc("GET /api/sessions/{id}/attendance", h.SessionAttendance)
	mux.HandleFunc("GET /api/students/{id}/attendance-stats", h.StudentStats)
	mux.HandleFunc("GET /api/groups/{id}/attendance-stats", h.GroupStats)

	mux.HandleFunc("GET /api/groups", h.ListGroups)
	mux.HandleFunc("GET /api/trainers", h.ListTrainers)
	mux.HandleFunc("GET /api/rooms", h.ListRooms)

	return RequestLogger(h.logger)(mux)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError переводит доменные ошибки в HTTP-статусы
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var conflict *service.ConflictError
	if errors.As(err, &conflict) {
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error":    "conflict",
			"conflict": conflict,
		})
		return
	}

	var invalidStudent *service.InvalidStudentError
	if errors.As(err, &invalidStudent) {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":      "invalid_student",
			"student_id": invalidStudent.StudentID,
			"group_id":   invalidStudent.GroupID,
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, service.ErrSessionFinished):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidRange), errors.Is(err, timerange.ErrInvalidTimeFormat):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		h.logger.Error("internal error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func (h *Handler) decode(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return h.validate.Struct(dst)
}

// parseDateRange читает from/to из query; по умолчанию — месяц от текущей даты.
func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	to := from.AddDate(0, 1, 0)

	if v := r.URL.Query().Get("from"); v != "" {
		parsed, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			return from, to, err
		}
		from = parsed
	}
	if v := r.URL.Query().Get("to"); v != "" {
		parsed, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			return from, to, err
		}
		to = parsed
	}
	return from, to, nil
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "db unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date, expected YYYY-MM-DD"})
		return
	}

	var groupID *int64
	if v := r.URL.Query().Get("group_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid group_id"})
			return
		}
		groupID = &id
	}

	sessions, err := h.scheduleService.GetSessions(from, to, groupID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	session, err := h.scheduleService.GetSession(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

type createSessionRequest struct {
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime   string `json:"start_time" validate:"required"`
	EndTime     string `json:"end_time" validate:"required"`
	GroupID     int64  `json:"group_id" validate:"required,gt=0"`
	TrainerID   int64  `json:"trainer_id" validate:"required,gt=0"`
	RoomID      *int64 `json:"room_id" validate:"omitempty,gt=0"`
	Description string `json:"description"`
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := h.decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	date, _ := time.ParseInLocation("2006-01-02", req.Date, time.Local)

	session, err := h.scheduleService.CreateSingleSession(service.CreateSessionInput{
		Date:        date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		GroupID:     req.GroupID,
		TrainerID:   req.TrainerID,
		RoomID:      req.RoomID,
		Description: req.Description,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

type editSessionRequest struct {
	Date        *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"`
	GroupID     *int64  `json:"group_id" validate:"omitempty,gt=0"`
	TrainerID   *int64  `json:"trainer_id" validate:"omitempty,gt=0"`
	RoomID      *int64  `json:"room_id" validate:"omitempty,gt=0"`
	ClearRoom   bool    `json:"clear_room"`
	Description *string `json:"description"`
}

func (h *Handler) EditSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req editSessionRequest
	if err := h.decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	patch := service.SessionPatch{
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		GroupID:     req.GroupID,
		TrainerID:   req.TrainerID,
		RoomID:      req.RoomID,
		ClearRoom:   req.ClearRoom,
		Description: req.Description,
	}
	if req.Date != nil {
		date, _ := time.ParseInLocation("2006-01-02", *req.Date, time.Local)
		patch.Date = &date
	}

	session, err := h.scheduleService.EditSession(id, patch)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

type cancelSessionRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) CancelSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req cancelSessionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
	}

	session, err := h.scheduleService.CancelSession(id, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if err := h.scheduleService.DeleteSession(id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createSeriesRequest struct {
	StartDate   string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate     string `json:"end_date" validate:"required,datetime=2006-01-02"`
	StartTime   string `json:"start_time" validate:"required"`
	EndTime     string `json:"end_time" validate:"required"`
	GroupID     int64  `json:"group_id" validate:"required,gt=0"`
	TrainerID   int64  `json:"trainer_id" validate:"required,gt=0"`
	RoomID      *int64 `json:"room_id" validate:"omitempty,gt=0"`
	Description string `json:"description"`
}

func (h *Handler) CreateSeries(w http.ResponseWriter, r *http.Request) {
	var req createSeriesRequest
	if err := h.decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	startDate, _ := time.ParseInLocation("2006-01-02", req.StartDate, time.Local)
	endDate, _ := time.ParseInLocation("2006-01-02", req.EndDate, time.Local)

	series, sessions, err := h.seriesService.CreateSeries(service.CreateSeriesInput{
		StartDate:   startDate,
		EndDate:     endDate,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		GroupID:     req.GroupID,
		TrainerID:   req.TrainerID,
		RoomID:      req.RoomID,
		Description: req.Description,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"series":   series,
		"sessions": sessions,
	})
}

func (h *Handler) ListSeries(w http.ResponseWriter, r *http.Request) {
	series, err := h.seriesService.GetAllSeries()
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"series": series})
}

func (h *Handler) DeleteSeries(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if err := h.seriesService.DeleteSeries(id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type substituteRequest struct {
	OriginalTrainerID   int64  `json:"original_trainer_id" validate:"required,gt=0"`
	SubstituteTrainerID int64  `json:"substitute_trainer_id" validate:"required,gt=0"`
	DateFrom            string `json:"date_from" validate:"required,datetime=2006-01-02"`
	DateTo              string `json:"date_to" validate:"required,datetime=2006-01-02"`
}

func (h *Handler) Substitute(w http.ResponseWriter, r *http.Request) {
	var req substituteRequest
	if err := h.decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	from, _ := time.ParseInLocation("2006-01-02", req.DateFrom, time.Local)
	to, _ := time.ParseInLocation("2006-01-02", req.DateTo, time.Local)

	result, err := h.scheduleService.Substitute(req.OriginalTrainerID, req.SubstituteTrainerID, from, to)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type recordAttendanceRequest struct {
	Entries []service.AttendanceEntry `json:"entries" validate:"required,min=1,dive"`
}

func (h *Handler) RecordAttendance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req recordAttendanceRequest
	if err := h.decode(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	count, err := h.attendanceService.RecordAttendance(id, req.Entries)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"recorded": count})
}

func (h *Handler) SessionAttendance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	records, err := h.attendanceService.GetSessionAttendance(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"attendance": records})
}

func (h *Handler) StudentStats(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	from, to, err := parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date, expected YYYY-MM-DD"})
		return
	}

	stats, err := h.attendanceService.StudentStats(id, from, to)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) GroupStats(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	from, to, err := parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date, expected YYYY-MM-DD"})
		return
	}

	stats, err := h.attendanceService.GroupStats(id, from, to)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.groupRepo.GetAll()
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"groups": groups})
}

func (h *Handler) ListTrainers(w http.ResponseWriter, r *http.Request) {
	trainers, err := h.trainerRepo.GetAll()
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"trainers": trainers})
}

func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.roomRepo.GetAll()
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rooms": rooms})
}
