package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"scout/scout/config"
	"scout/scout/controllers"
	"scout/scout/middlewares"
	"scout/scout/sources/storage"
	"scout/scout/utils/logging"
	"scout/scout/utils/types"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// SearchRoutes registers the crawl endpoints at the root of a group. All of
// them require a token.
func SearchRoutes(ctrl *controllers.SearchController, pages *controllers.PageController, cfg config.Config) func(chi.Router) {
	return func(r chi.Router) {
		r.Use(middlewares.AuthMiddleware(cfg))

		// websocket streams last as long as the crawl, so no timeout here
		r.HandleFunc("/search/ws", func(w http.ResponseWriter, r *http.Request) {
			conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
			if err != nil {
				logging.ErrorLogger.Error("websocket accept error", zap.Error(err))
				return
			}
			ctrl.SearchWebSocket(r.Context(), conn)
		})

		gr := r.With(middleware.Timeout(60 * time.Second))

		// POST /search : start a research session in the background
		gr.Post("/search", handleJSON(func(r *http.Request) (any, int, error) {
			var req types.SearchRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				return nil, http.StatusBadRequest, err
			}
			resp, err := ctrl.StartSearch(req)
			if err != nil {
				return nil, statusFor(err), err
			}
			return resp, http.StatusAccepted, nil
		}))

		// POST /browse : crawl the links written in user_input
		gr.Post("/browse", handleJSON(func(r *http.Request) (any, int, error) {
			var req types.BrowseRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				return nil, http.StatusBadRequest, err
			}
			resp, err := ctrl.StartBrowse(req)
			if err != nil {
				return nil, statusFor(err), err
			}
			return resp, http.StatusAccepted, nil
		}))

		gr.Get("/sessions/{session_id}", handleJSON(func(r *http.Request) (any, int, error) {
			resp, ok := ctrl.Session(chi.URLParam(r, "session_id"))
			if !ok {
				return nil, http.StatusNotFound, errors.New("session not found")
			}
			return resp, http.StatusOK, nil
		}))

		// GET /knowledge?user_input=...|session_id=...
		gr.Get("/knowledge", handleJSON(func(r *http.Request) (any, int, error) {
			q := r.URL.Query()
			items, err := ctrl.Knowledge(r.Context(), q.Get("user_input"), q.Get("session_id"))
			if err != nil {
				return nil, statusFor(err), err
			}
			return items, http.StatusOK, nil
		}))

		// DELETE /knowledge?session_id=...
		gr.Delete("/knowledge", handleJSON(func(r *http.Request) (any, int, error) {
			n, err := ctrl.DeleteKnowledge(r.Context(), r.URL.Query().Get("session_id"))
			if err != nil {
				return nil, statusFor(err), err
			}
			return map[string]int64{"deleted": n}, http.StatusOK, nil
		}))

		// GET /pages?url=... : archived text of a crawled page
		gr.Get("/pages", handleJSON(func(r *http.Request) (any, int, error) {
			page, err := pages.Page(r.Context(), r.URL.Query().Get("url"))
			if err != nil {
				return nil, statusFor(err), err
			}
			return page, http.StatusOK, nil
		}))
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, controllers.ErrEmptyInput),
		errors.Is(err, controllers.ErrNoLinks),
		errors.Is(err, controllers.ErrNoKnowledgeQ),
		errors.Is(err, controllers.ErrNoSessionID),
		errors.Is(err, controllers.ErrNoPageURL):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrPageNotFound):
		return http.StatusNotFound
	case errors.Is(err, controllers.ErrSessionBusy):
		return http.StatusConflict
	case errors.Is(err, controllers.ErrArchiveDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
