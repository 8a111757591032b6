package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jobpal/jobpal-server/internal/application/service"
	appworkflow "github.com/jobpal/jobpal-server/internal/application/workflow"
	"github.com/jobpal/jobpal-server/internal/domain/entity"
	domainwf "github.com/jobpal/jobpal-server/internal/domain/workflow"
)

// ActivityRequest carries the fields of a job-hunting application
type ActivityRequest struct {
	EventCategory        int        `json:"eventCategory" binding:"min=0,max=9"`
	Company              string     `json:"company" binding:"required"`
	Location             string     `json:"location" binding:"required"`
	LocationType         int        `json:"locationType" binding:"min=0,max=2"`
	SchoolCheck          bool       `json:"schoolCheck"`
	StartTime            time.Time  `json:"startTime" binding:"required"`
	FinishTime           time.Time  `json:"finishTime" binding:"required"`
	TardinessAbsenceType int        `json:"tardinessAbsenceType" binding:"min=0,max=3"`
	TardyLeaveTime       *time.Time `json:"tardyLeaveTime"`
	Remarks              string     `json:"remarks"`
}

func (r ActivityRequest) toInput() service.NewActivityInput {
	return service.NewActivityInput{
		EventCategory:        entity.EventCategory(r.EventCategory),
		Company:              r.Company,
		Location:             r.Location,
		LocationType:         entity.LocationType(r.LocationType),
		SchoolCheck:          r.SchoolCheck,
		StartTime:            r.StartTime,
		FinishTime:           r.FinishTime,
		TardinessAbsenceType: entity.TardinessAbsenceType(r.TardinessAbsenceType),
		TardyLeaveTime:       r.TardyLeaveTime,
		Remarks:              r.Remarks,
	}
}

// ActivityResponse represents a job-hunting activity in API responses
type ActivityResponse struct {
	JobHuntID            string     `json:"jobHuntId"`
	UserID               string     `json:"userId"`
	EventCategory        int        `json:"eventCategory"`
	Company              string     `json:"company"`
	Location             string     `json:"location"`
	LocationType         int        `json:"locationType"`
	SchoolCheck          bool       `json:"schoolCheck"`
	SchoolChecked        *bool      `json:"schoolChecked,omitempty"`
	StartTime            string     `json:"startTime"`
	FinishTime           string     `json:"finishTime"`
	TardinessAbsenceType int        `json:"tardinessAbsenceType"`
	TardyLeaveTime       *string    `json:"tardyLeaveTime,omitempty"`
	State                string     `json:"state"`
	ReportContent        string     `json:"reportContent,omitempty"`
	Result               int        `json:"result"`
	PredictedResult      string     `json:"predictedResult,omitempty"`
	Remarks              string     `json:"remarks,omitempty"`
	ReNotify             bool       `json:"reNotify"`
	CreatedAt            string     `json:"createdAt"`
	UpdatedAt            string     `json:"updatedAt"`
}

// ExamReportResponse represents the structured exam report
type ExamReportResponse struct {
	OpponentCount int    `json:"opponentCount"`
	OpponentTitle string `json:"opponentTitle"`
	ExamRound     int    `json:"examRound"`
	ExamCategory  string `json:"examCategory"`
	ExamContent   string `json:"examContent"`
	Impressions   string `json:"impressions"`
}

// HistoryResponse is one audit row of a workflow item
type HistoryResponse struct {
	ActorUserID   string `json:"actorUserId"`
	PreviousState string `json:"previousState"`
	NewState      string `json:"newState"`
	ActionName    string `json:"actionName"`
	OccurredAt    string `json:"occurredAt"`
}

// ActivityDetailResponse is an activity with its exam report and history
type ActivityDetailResponse struct {
	Activity   ActivityResponse    `json:"activity"`
	ExamReport *ExamReportResponse `json:"examReport,omitempty"`
	History    []HistoryResponse   `json:"history"`
}

func toActivityResponse(a *entity.JobHuntActivity) ActivityResponse {
	resp := ActivityResponse{
		JobHuntID:            a.JobHuntID,
		UserID:               a.UserID,
		EventCategory:        int(a.EventCategory),
		Company:              a.Company,
		Location:             a.Location,
		LocationType:         int(a.LocationType),
		SchoolCheck:          a.SchoolCheck,
		SchoolChecked:        a.SchoolCheckedFlag,
		StartTime:            a.StartTime.Format(time.RFC3339),
		FinishTime:           a.FinishTime.Format(time.RFC3339),
		TardinessAbsenceType: int(a.TardinessAbsenceType),
		State:                string(a.State),
		ReportContent:        a.ReportContent,
		Result:               int(a.Result),
		PredictedResult:      a.PredictedResult,
		Remarks:              a.Remarks,
		ReNotify:             a.ReNotifyFlag,
		CreatedAt:            a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:            a.UpdatedAt.Format(time.RFC3339),
	}
	if a.TardyLeaveTime != nil {
		t := a.TardyLeaveTime.Format(time.RFC3339)
		resp.TardyLeaveTime = &t
	}
	return resp
}

func toHistoryResponses(histories []*entity.StateHistory) []HistoryResponse {
	out := make([]HistoryResponse, 0, len(histories))
	for _, h := range histories {
		out = append(out, HistoryResponse{
			ActorUserID:   h.ActorUserID,
			PreviousState: h.PreviousState,
			NewState:      h.NewState,
			ActionName:    h.ActionName,
			OccurredAt:    h.Timestamp.Format(time.RFC3339),
		})
	}
	return out
}

// CreateActivity handles POST /api/activities
func (h *Handlers) CreateActivity(c *gin.Context) {
	var req ActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid activity payload")
		return
	}

	activity, err := h.jobService.Submit(c.Request.Context(), sessionFrom(c), req.toInput())
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, toActivityResponse(activity))
}

// ListActivities handles GET /api/activities
func (h *Handlers) ListActivities(c *gin.Context) {
	includeFinished := c.Query("includeFinished") == "true"

	activities, err := h.jobService.List(c.Request.Context(), sessionFrom(c), includeFinished)
	if err != nil {
		h.failErr(c, err)
		return
	}

	out := make([]ActivityResponse, 0, len(activities))
	for _, a := range activities {
		out = append(out, toActivityResponse(a))
	}
	ok(c, out)
}

// GetActivity handles GET /api/activities/:id
func (h *Handlers) GetActivity(c *gin.Context) {
	detail, err := h.jobService.GetDetail(c.Request.Context(), sessionFrom(c), c.Param("id"))
	if err != nil {
		h.failErr(c, err)
		return
	}

	resp := ActivityDetailResponse{
		Activity: toActivityResponse(detail.Activity),
		History:  toHistoryResponses(detail.History),
	}
	if detail.ExamReport != nil {
		resp.ExamReport = &ExamReportResponse{
			OpponentCount: detail.ExamReport.OpponentCount,
			OpponentTitle: detail.ExamReport.OpponentTitle,
			ExamRound:     detail.ExamReport.ExamRound,
			ExamCategory:  detail.ExamReport.ExamCategory,
			ExamContent:   detail.ExamReport.ExamContent,
			Impressions:   detail.ExamReport.Impressions,
		}
	}
	ok(c, resp)
}

// UpdateActivity handles PUT /api/activities/:id
func (h *Handlers) UpdateActivity(c *gin.Context) {
	var req ActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid activity payload")
		return
	}

	activity, err := h.jobService.Update(c.Request.Context(), sessionFrom(c), c.Param("id"), req.toInput())
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, toActivityResponse(activity))
}

// DeleteActivity handles DELETE /api/activities/:id
func (h *Handlers) DeleteActivity(c *gin.Context) {
	if err := h.jobService.Delete(c.Request.Context(), sessionFrom(c), c.Param("id")); err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, nil)
}

// ResubmitActivity handles POST /api/activities/:id/resubmit
func (h *Handlers) ResubmitActivity(c *gin.Context) {
	activity, err := h.jobService.Resubmit(c.Request.Context(), sessionFrom(c), c.Param("id"))
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, toActivityResponse(activity))
}

// ReportRequest carries the outcome report of an activity
type ReportRequest struct {
	ReportContent string `json:"reportContent" binding:"required"`
	Result        int    `json:"result" binding:"min=0,max=7"`
}

// SubmitReport handles POST /api/activities/:id/report
func (h *Handlers) SubmitReport(c *gin.Context) {
	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid report payload")
		return
	}

	activity, err := h.jobService.SubmitReport(c.Request.Context(), sessionFrom(c),
		c.Param("id"), req.ReportContent, entity.Result(req.Result))
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, toActivityResponse(activity))
}

// ExamReportRequest carries the structured exam report fields
type ExamReportRequest struct {
	OpponentCount int    `json:"opponentCount" binding:"min=0"`
	OpponentTitle string `json:"opponentTitle"`
	ExamRound     int    `json:"examRound" binding:"min=0"`
	ExamCategory  string `json:"examCategory"`
	ExamContent   string `json:"examContent"`
	Impressions   string `json:"impressions"`
}

// SubmitExamReport handles POST /api/activities/:id/exam-report
func (h *Handlers) SubmitExamReport(c *gin.Context) {
	var req ExamReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid exam report payload")
		return
	}

	err := h.jobService.SubmitExamReport(c.Request.Context(), sessionFrom(c), &entity.ExamReport{
		JobHuntID:     c.Param("id"),
		OpponentCount: req.OpponentCount,
		OpponentTitle: req.OpponentTitle,
		ExamRound:     req.ExamRound,
		ExamCategory:  req.ExamCategory,
		ExamContent:   req.ExamContent,
		Impressions:   req.Impressions,
	})
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, nil)
}

// RecordRosterCheck handles POST /api/activities/:id/roster-check
func (h *Handlers) RecordRosterCheck(c *gin.Context) {
	if err := h.jobService.RecordRosterCheck(c.Request.Context(), sessionFrom(c), c.Param("id")); err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, nil)
}

// TransitionRequest carries one workflow transition command
type TransitionRequest struct {
	Action       int    `json:"action" binding:"min=0,max=7"`
	CurrentState string `json:"currentState" binding:"required"`
	Confirmed    bool   `json:"confirmed"`
}

func (r TransitionRequest) toCommand(entityID string) appworkflow.TransitionCommand {
	return appworkflow.TransitionCommand{
		EntityID:     entityID,
		Action:       domainwf.Action(r.Action),
		CurrentState: domainwf.State(r.CurrentState),
		Confirmed:    r.Confirmed,
	}
}

// TransitionActivity handles PUT /api/activities/:id/transition
func (h *Handlers) TransitionActivity(c *gin.Context) {
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid transition payload")
		return
	}

	activity, err := h.engine.TransitionJobSearch(c.Request.Context(), sessionFrom(c),
		req.toCommand(c.Param("id")))
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, toActivityResponse(activity))
}

// ActionResponse is one action available to the session on an item
type ActionResponse struct {
	Action int    `json:"action"`
	Name   string `json:"name"`
}

// ActivityActions handles GET /api/activities/:id/actions
func (h *Handlers) ActivityActions(c *gin.Context) {
	actions, err := h.engine.PermittedJobSearchActions(c.Request.Context(), sessionFrom(c), c.Param("id"))
	if err != nil {
		h.failErr(c, err)
		return
	}

	out := make([]ActionResponse, 0, len(actions))
	for _, a := range actions {
		out = append(out, ActionResponse{
			Action: int(a),
			Name:   domainwf.ActionName(domainwf.KindJobSearch, a),
		})
	}
	ok(c, out)
}
