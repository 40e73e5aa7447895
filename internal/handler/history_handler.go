/*
Package handler provides the HTTP handlers for the durable chat surface.

While the relay delivers messages best-effort over the socket, these handlers
serve the persisted record: conversation pages and unread counts.
*/
package handler

import (
	"net/http"

	"coachlink/internal/app/store"
	"coachlink/internal/pkg/auth/jwt"
	"coachlink/internal/pkg/errs"
	"coachlink/internal/pkg/logx"
	"coachlink/internal/pkg/req"
	"coachlink/internal/pkg/resp"
)

// HandleChatHistory creates an HTTP HandlerFunc returning one page of the
// conversation between the caller and the partner named by the "partner"
// query parameter. Fetching a page also marks the caller's received rows
// as read.
func HandleChatHistory(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		partnerID := r.URL.Query().Get("partner")
		if partnerID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		limit := req.QueryInt(r, "limit", store.DefaultHistoryLimit)
		offset := req.QueryInt(r, "offset", 0)

		messages, err := deps.Store.History(r.Context(), payload.ID, partnerID, limit, offset)
		if err != nil {
			logx.Error(err, "Failed to load conversation history", "user_id", payload.ID, "partner_id", partnerID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		data := map[string]any{
			"messages": messages,
		}
		resp.RespondSuccess(w, r, data)
	}
}

// HandleUnreadSummary creates an HTTP HandlerFunc returning the caller's
// per-partner unread message counts. Clients rebuild their badge state from
// this after a page reload.
func HandleUnreadSummary(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		counts, err := deps.Store.UnreadSummary(r.Context(), payload.ID)
		if err != nil {
			logx.Error(err, "Failed to load unread summary", "user_id", payload.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		data := map[string]any{
			"unread": counts,
		}
		resp.RespondSuccess(w, r, data)
	}
}
