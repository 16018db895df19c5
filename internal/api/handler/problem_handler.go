package handler

import (
	"fmt"
	"net/http"

	"codearena/internal/api/middleware"
	"codearena/internal/app/service"
	"codearena/internal/common"

	"github.com/go-chi/chi/v5"
)

type ProblemHandler struct {
	problemService *service.ProblemService
}

func NewProblemHandler(ps *service.ProblemService) *ProblemHandler {
	return &ProblemHandler{problemService: ps}
}

func (h *ProblemHandler) RegisterRoutes(r chi.Router) {
	r.Get("/get-problem/{id}", h.getProblem)
	r.Get("/get-all-problems", h.listProblems)
	r.Get("/tags/{tag}", h.listByTag)
	r.Get("/difficulty/{level}", h.listByDifficulty)

	r.Group(func(authed chi.Router) {
		authed.Use(middleware.Authenticator)
		authed.Get("/submit-all", h.listSolved)

		authed.Group(func(admin chi.Router) {
			admin.Use(middleware.AdminOnly)
			admin.Post("/create-problem", h.createProblem)
			admin.Put("/p/{id}", h.updateProblem)
			admin.Delete("/p/{id}", h.deleteProblem)
		})
	})
}

func (h *ProblemHandler) createProblem(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req service.CreateProblemRequest
	if err := common.DecodeAndValidate(r, &req); err != nil {
		common.HandleError(w, r, err)
		return
	}

	problem, err := h.problemService.CreateProblem(r.Context(), userID, req)
	if err != nil {
		common.HandleError(w, r, err)
		return
	}
	common.RespondWithData(w, http.StatusCreated, "Problem created successfully", problem)
}

func (h *ProblemHandler) updateProblem(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateProblemRequest
	if err := common.DecodeAndValidate(r, &req); err != nil {
		common.HandleError(w, r, err)
		return
	}

	problem, err := h.problemService.UpdateProblem(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		common.HandleError(w, r, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, "Problem updated successfully", problem)
}

func (h *ProblemHandler) deleteProblem(w http.ResponseWriter, r *http.Request) {
	if err := h.problemService.DeleteProblem(r.Context(), chi.URLParam(r, "id")); err != nil {
		common.HandleError(w, r, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, "Problem deleted successfully", nil)
}

func (h *ProblemHandler) getProblem(w http.ResponseWriter, r *http.Request) {
	problem, err := h.problemService.GetProblem(r.Context(), chi.URLParam(r, "id"), middleware.IsAdmin(r.Context()))
	if err != nil {
		common.HandleError(w, r, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, "Problem fetched successfully", problem)
}

func (h *ProblemHandler) listProblems(w http.ResponseWriter, r *http.Request) {
	problems, err := h.problemService.ListProblems(r.Context(), middleware.IsAdmin(r.Context()))
	if err != nil {
		common.HandleError(w, r, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, "All problems fetched successfully", problems)
}

func (h *ProblemHandler) listByTag(w http.ResponseWriter, r *http.Request) {
	tag := chi.URLParam(r, "tag")
	problems, err := h.problemService.ListProblemsByTag(r.Context(), tag, middleware.IsAdmin(r.Context()))
	if err != nil {
		common.HandleError(w, r, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, fmt.Sprintf("Problems with tag %s fetched successfully", tag), problems)
}

func (h *ProblemHandler) listByDifficulty(w http.ResponseWriter, r *http.Request) {
	level := chi.URLParam(r, "level")
	problems, err := h.problemService.ListProblemsByDifficulty(r.Context(), level, middleware.IsAdmin(r.Context()))
	if err != nil {
		common.HandleError(w, r, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, fmt.Sprintf("Problems with difficulty %s fetched successfully", level), problems)
}

func (h *ProblemHandler) listSolved(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	problems, err := h.problemService.ListSolvedByUser(r.Context(), userID)
	if err != nil {
		common.HandleError(w, r, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, "Solved problems fetched successfully", problems)
}
