package handler

import (
	"net/http"

	"codearena/internal/api/middleware"
	"codearena/internal/app/service"
	"codearena/internal/common"

	"github.com/go-chi/chi/v5"
)

type SubmissionHandler struct {
	submissionService *service.SubmissionService
	jobService        *service.ExecutionJobService
}

func NewSubmissionHandler(ss *service.SubmissionService, js *service.ExecutionJobService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: ss, jobService: js}
}

func (h *SubmissionHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator) // All code evaluation routes require auth
	r.Post("/execute", h.execute)
	r.Post("/submit", h.submit)
	r.Post("/submit-async", h.submitAsync)
	r.Get("/jobs/{id}", h.getJob)
	r.Get("/s/{id}", h.getSubmission)
	r.Get("/u", h.listMine)
	r.Get("/p/{id}", h.listForProblem)
	r.Get("/p/{id}/count", h.countForProblem)
}

func (h *SubmissionHandler) execute(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	var req service.CodeRequest
	if err := common.DecodeAndValidate(r, &req); err != nil {
		common.HandleError(w, r, err)
		return
	}

	results, err := h.submissionService.Execute(r.Context(), userID, req)
	if err != nil {
		common.HandleError(w, r, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, "Code executed successfully", results)
}

func (h *SubmissionHandler) submit(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	var req service.CodeRequest
	if err := common.DecodeAndValidate(r, &req); err != nil {
		common.HandleError(w, r, err)
		return
	}

	result, err := h.submissionService.Submit(r.Context(), userID, req)
	if err != nil {
		common.HandleError(w, r, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, "Code submitted successfully", result)
}

func (h *SubmissionHandler) submitAsync(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	var req service.CodeRequest
	if err := common.DecodeAndValidate(r, &req); err != nil {
		common.HandleError(w, r, err)
		return
	}

	job, err := h.jobService.EnqueueSubmission(r.Context(), userID, req)
	if err != nil {
		common.HandleError(w, r, err)
		return
	}
	common.RespondWithData(w, http.StatusAccepted, "Submission queued", job)
}

func (h *SubmissionHandler) getJob(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	job, err := h.jobService.GetJob(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		common.HandleError(w, r, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, "Job fetched successfully", job)
}

func (h *SubmissionHandler) getSubmission(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	sub, err := h.submissionService.GetSubmission(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		common.HandleError(w, r, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, "Submission fetched successfully", sub)
}

func (h *SubmissionHandler) listMine(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	subs, err := h.submissionService.ListByUser(r.Context(), userID)
	if err != nil {
		common.HandleError(w, r, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, "Submissions fetched successfully", subs)
}

func (h *SubmissionHandler) listForProblem(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	subs, err := h.submissionService.ListForProblem(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		common.HandleError(w, r, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, "Submissions fetched successfully", subs)
}

func (h *SubmissionHandler) countForProblem(w http.ResponseWriter, r *http.Request) {
	count, err := h.submissionService.CountForProblem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.HandleError(w, r, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, "Submission count fetched successfully", map[string]int{"count": count})
}
