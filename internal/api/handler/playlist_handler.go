package handler

import (
	"net/http"

	"codearena/internal/api/middleware"
	"codearena/internal/app/service"
	"codearena/internal/common"

	"github.com/go-chi/chi/v5"
)

type PlaylistHandler struct {
	playlistService *service.PlaylistService
}

func NewPlaylistHandler(ps *service.PlaylistService) *PlaylistHandler {
	return &PlaylistHandler{playlistService: ps}
}

func (h *PlaylistHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)

	r.Get("/playlists", h.listPlaylists)
	r.Get("/playlists/{id}", h.getPlaylist)
	r.Get("/playlists/{id}/problems", h.listProblems)
	r.Get("/users/{userId}/playlists", h.listByUser)
	r.Get("/problems/{problemId}/playlists", h.listByProblem)

	r.Group(func(admin chi.Router) {
		admin.Use(middleware.AdminOnly)
		admin.Post("/playlists", h.createPlaylist)
		admin.Put("/playlists/{id}", h.updatePlaylist)
		admin.Delete("/playlists/{id}", h.deletePlaylist)
		admin.Post("/playlists/{id}/problems", h.addProblem)
		admin.Delete("/playlists/{id}/problems/{problemId}", h.removeProblem)
	})
}

func (h *PlaylistHandler) createPlaylist(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	var req service.PlaylistRequest
	if err := common.DecodeAndValidate(r, &req); err != nil {
		common.HandleError(w, r, err)
		return
	}
	pl, err := h.playlistService.CreatePlaylist(r.Context(), userID, req)
	if err != nil {
		common.HandleError(w, r, err)
		return
	}
	common.RespondWithData(w, http.StatusCreated, "Playlist created successfully", pl)
}

func (h *PlaylistHandler) listPlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := h.playlistService.ListPlaylists(r.Context())
	if err != nil {
		common.HandleError(w, r, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, "Playlists retrieved successfully", playlists)
}

func (h *PlaylistHandler) getPlaylist(w http.ResponseWriter, r *http.Request) {
	pl, err := h.playlistService.GetPlaylist(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.HandleError(w, r, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, "Playlist retrieved successfully", pl)
}

func (h *PlaylistHandler) updatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req service.PlaylistRequest
	if err := common.DecodeAndValidate(r, &req); err != nil {
		common.HandleError(w, r, err)
		return
	}
	pl, err := h.playlistService.UpdatePlaylist(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		common.HandleError(w, r, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, "Playlist updated successfully", pl)
}

func (h *PlaylistHandler) deletePlaylist(w http.ResponseWriter, r *http.Request) {
	if err := h.playlistService.DeletePlaylist(r.Context(), chi.URLParam(r, "id")); err != nil {
		common.HandleError(w, r, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, "Playlist deleted successfully", nil)
}

func (h *PlaylistHandler) addProblem(w http.ResponseWriter, r *http.Request) {
	var req service.AddProblemRequest
	if err := common.DecodeAndValidate(r, &req); err != nil {
		common.HandleError(w, r, err)
		return
	}
	pip, err := h.playlistService.AddProblem(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		common.HandleError(w, r, err)
		return
	}
	common.RespondWithData(w, http.StatusCreated, "Problem added to playlist successfully", pip)
}

func (h *PlaylistHandler) removeProblem(w http.ResponseWriter, r *http.Request) {
	err := h.playlistService.RemoveProblem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "problemId"))
	if err != nil {
		common.HandleError(w, r, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, "Problem removed from playlist successfully", nil)
}

func (h *PlaylistHandler) listProblems(w http.ResponseWriter, r *http.Request) {
	problems, err := h.playlistService.ListProblems(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.HandleError(w, r, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, "Problems retrieved successfully", problems)
}

func (h *PlaylistHandler) listByUser(w http.ResponseWriter, r *http.Request) {
	playlists, err := h.playlistService.ListByUser(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		common.HandleError(w, r, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, "Playlists retrieved successfully", playlists)
}

func (h *PlaylistHandler) listByProblem(w http.ResponseWriter, r *http.Request) {
	playlists, err := h.playlistService.ListByProblem(r.Context(), chi.URLParam(r, "problemId"))
	if err != nil {
		common.HandleError(w, r, err)
		return
	}
	common.RespondWithData(w, http.StatusOK, "Playlists retrieved successfully", playlists)
}
