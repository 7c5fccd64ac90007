package controller

import (
	"errors"
	"net/http"

	"github.com/sharetube/roomsync/internal/domain"
	"github.com/sharetube/roomsync/internal/reconcile"
	"github.com/sharetube/roomsync/pkg/rest"
)

type timeRequest struct {
	Time *float64 `json:"time" validate:"required,gte=0"`
}

type mediaRequest struct {
	URL string `json:"url" validate:"required,http_url"`
}

type searchRequest struct {
	Query string `json:"query" validate:"required,max=200"`
}

// decode reads and validates a request body, writing the error response
// itself when it fails.
func (c controller) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := rest.ReadJSON(r, dst); err != nil {
		c.logger.InfoContext(r.Context(), "failed to read body", "error", err)
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return false
	}

	if validationErrors, ok := c.validate.Validate(dst); !ok {
		c.logger.InfoContext(r.Context(), "invalid body", "errors", validationErrors)
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return false
	}

	return true
}

func (c controller) accepted(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, reconcile.ErrStopped) {
			status = http.StatusServiceUnavailable
		}
		c.logger.WarnContext(r.Context(), "command rejected", "error", err)
		rest.WriteJSON(w, status, rest.Envelope{"error": err.Error()})
		return
	}

	rest.WriteJSON(w, http.StatusAccepted, rest.Envelope{"status": "accepted"})
}

func (c controller) getState(w http.ResponseWriter, r *http.Request) {
	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": c.engine.Snapshot()})
}

func (c controller) play(w http.ResponseWriter, r *http.Request) {
	c.accepted(w, r, c.engine.Play())
}

func (c controller) pause(w http.ResponseWriter, r *http.Request) {
	c.accepted(w, r, c.engine.Pause())
}

func (c controller) seek(w http.ResponseWriter, r *http.Request) {
	var req timeRequest
	if !c.decode(w, r, &req) {
		return
	}

	c.accepted(w, r, c.engine.Seek(domain.Seconds(*req.Time)))
}

func (c controller) pointerDown(w http.ResponseWriter, r *http.Request) {
	c.accepted(w, r, c.engine.PointerDown())
}

func (c controller) pointerUp(w http.ResponseWriter, r *http.Request) {
	var req timeRequest
	if !c.decode(w, r, &req) {
		return
	}

	c.accepted(w, r, c.engine.PointerUp(domain.Seconds(*req.Time)))
}

func (c controller) progress(w http.ResponseWriter, r *http.Request) {
	var req timeRequest
	if !c.decode(w, r, &req) {
		return
	}

	c.engine.OnProgress(domain.Seconds(*req.Time))
	c.accepted(w, r, nil)
}

// playing and paused are reported by a player backend, not the operator.
func (c controller) playing(w http.ResponseWriter, r *http.Request) {
	c.engine.OnPlay()
	c.accepted(w, r, nil)
}

func (c controller) paused(w http.ResponseWriter, r *http.Request) {
	c.engine.OnPause()
	c.accepted(w, r, nil)
}

func (c controller) selectMedia(w http.ResponseWriter, r *http.Request) {
	var req mediaRequest
	if !c.decode(w, r, &req) {
		return
	}

	c.accepted(w, r, c.engine.SelectMedia(req.URL))
}

func (c controller) search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !c.decode(w, r, &req) {
		return
	}

	c.accepted(w, r, c.engine.Search(req.Query))
}
