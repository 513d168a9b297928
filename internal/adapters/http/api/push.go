package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/okian/matchpred/internal/adapters/mq/queue"
	"github.com/okian/matchpred/internal/domain/dedupe"
	"github.com/okian/matchpred/internal/domain/model"
	"github.com/okian/matchpred/pkg/logger"
)

// headerCloudEventID carries the event id in binary-mode CloudEvents.
const headerCloudEventID = "ce-id"

// pushEnvelope is the part of a push body read before the pipeline runs.
type pushEnvelope struct {
	Message struct {
		MessageID    string            `json:"messageId"`
		MessageIDAlt string            `json:"message_id"`
		Attributes   map[string]string `json:"attributes"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// HandlePush handles POST /push. The body is passed to the pipeline as is;
// only the message id and attributes are read here. Malformed bodies are
// accepted too and end up as failure rows.
//
// Answers: 202 accepted, 200 duplicate, 429 queue full, 503 shutting down.
// A non-2xx answer asks the publisher to redeliver.
func (s *Server) HandlePush(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}

	var env pushEnvelope
	_ = json.Unmarshal(body, &env)

	msg := model.Message{
		ID:         messageID(&env, r),
		Data:       body,
		Attributes: env.Message.Attributes,
		ReceivedAt: time.Now(),
		Source:     model.SourcePush,
	}

	err = s.submitter.Submit(r.Context(), msg)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", ID: msg.ID})
	case errors.Is(err, dedupe.ErrDuplicate):
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", ID: msg.ID, Duplicate: true})
	case errors.Is(err, queue.ErrFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", ErrBackpressure)
	default:
		s.logger.Warn(r.Context(), "push rejected", logger.String("id", msg.ID), logger.Error(err))
		writeError(w, http.StatusServiceUnavailable, "unavailable", fmt.Errorf("%w: %w", ErrUnavailable, err))
	}
}

// messageID prefers the publisher's id so redeliveries share one key.
func messageID(env *pushEnvelope, r *http.Request) string {
	switch {
	case env.Message.MessageID != "":
		return env.Message.MessageID
	case env.Message.MessageIDAlt != "":
		return env.Message.MessageIDAlt
	case r.Header.Get(headerCloudEventID) != "":
		return r.Header.Get(headerCloudEventID)
	default:
		return uuid.New().String()
	}
}
