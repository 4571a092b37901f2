// decisions.go — отправка решений модератора.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/goartstore/moderation-dashboard/internal/api/errors"
	"github.com/bigkaa/goartstore/moderation-dashboard/internal/domain/decision"
	"github.com/bigkaa/goartstore/moderation-dashboard/internal/domain/model"
	"github.com/bigkaa/goartstore/moderation-dashboard/internal/service"
)

// maxDecisionBody — ограничение тела запроса решения.
const maxDecisionBody = 64 << 10

// decisionRequest — тело POST reject/request-changes.
type decisionRequest struct {
	Reason  string `json:"reason"`
	Comment string `json:"comment,omitempty"`
}

// decisionResponse — результат отправки: обновлённое объявление, действие,
// которым решение записано в истории, и форма.
type decisionResponse struct {
	Ad     *model.Advertisement `json:"ad"`
	Action model.DecisionAction `json:"action"`
	Form   decision.Snapshot    `json:"form"`
}

// SubmitDecision — POST /item/{id}/{action}, action: approve, reject, request-changes.
// Для reject и request-changes тело: {reason, comment?}.
func (h *APIHandler) SubmitDecision(w http.ResponseWriter, r *http.Request) {
	kind, err := decision.ParseKind(chi.URLParam(r, "action"))
	if err != nil {
		apierrors.NotFound(w, MessagePageNotFound)
		return
	}

	id, ok := parseAdID(w, r)
	if !ok {
		return
	}

	var (
		body decisionRequest
		ad   *model.Advertisement
		form decision.Snapshot
	)
	if err := json.NewDecoder(io.LimitReader(r.Body, maxDecisionBody)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		apierrors.ValidationError(w, "Некорректное тело запроса: ожидается JSON {reason, comment}")
		return
	}

	ad, form, err = h.decisions.Submit(r.Context(), id, decision.Submission{
		Kind:    kind,
		Reason:  body.Reason,
		Comment: body.Comment,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, decisionResponse{Ad: ad, Action: kind.Action(), Form: form})
	case errors.Is(err, decision.ErrReasonRequired):
		apierrors.ReasonRequired(w, decision.MessageReasonRequired)
	case errors.Is(err, decision.ErrSubmissionInFlight):
		apierrors.SubmissionInFlight(w, "Решение по объявлению уже отправляется")
	case errors.Is(err, service.ErrCanceled):
		h.logger.Debug("Отправка решения отменена клиентом", slog.Int64("ad_id", id))
	default:
		apierrors.DecisionFailed(w, decision.MessageSubmitFailed)
	}
}
