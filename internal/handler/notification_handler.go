package handler

import (
	"net/http"

	"coachlink/internal/pkg/auth/jwt"
	"coachlink/internal/pkg/errs"
	"coachlink/internal/pkg/logx"
	"coachlink/internal/pkg/resp"
)

// HandleListNotifications creates an HTTP HandlerFunc returning the caller's
// stored booking notifications, newest first.
func HandleListNotifications(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		notifications, err := deps.Store.Notifications(r.Context(), payload.ID)
		if err != nil {
			logx.Error(err, "Failed to load notifications", "user_id", payload.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		data := map[string]any{
			"notifications": notifications,
		}
		resp.RespondSuccess(w, r, data)
	}
}

// HandleClearNotifications creates an HTTP HandlerFunc deleting all of the
// caller's stored notifications. The realtime cancel events only clear the
// other party's volatile toast; this clears the durable record.
func HandleClearNotifications(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		if err := deps.Store.ClearNotifications(r.Context(), payload.ID); err != nil {
			logx.Error(err, "Failed to clear notifications", "user_id", payload.ID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}
