package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"

	"pushrelay/internal/domain/notification"
)

const maxNotificationBodySize = 1 << 20 // 1 MiB

var errTrailingData = errors.New("unexpected data after request body")

const (
	successPrefix = "Successfully sent message: "
	failurePrefix = "Error sending message: "
)

type NotificationHandler struct {
	notificationService *notification.Service
}

func NewNotificationHandler(notificationService *notification.Service) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// HandleSendNotification handles /sendNotification.
//
// Any method is accepted. The JSON body {tokens, title, body} is forwarded
// to the provider as one multicast message; the reply is plain text with
// 200 on success or 500 on any provider error.
func (h *NotificationHandler) HandleSendNotification(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	result, err := h.notificationService.Forward(r.Context(), req)
	if err != nil {
		if errors.Is(err, notification.ErrInvalidRequest) {
			writeText(w, http.StatusBadRequest, err.Error())
			return
		}
		writeText(w, http.StatusInternalServerError, fmt.Sprintf("%s%v", failurePrefix, err))
		return
	}

	writeText(w, http.StatusOK, successPrefix+result.String())
}

// decodeRequest reads the body into a Request. An empty body yields the zero
// Request. Mistyped fields are dropped unless strict validation is on.
func (h *NotificationHandler) decodeRequest(w http.ResponseWriter, r *http.Request) (notification.Request, bool) {
	var req notification.Request
	if r.Body == nil {
		return req, true
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxNotificationBodySize)
	dec := json.NewDecoder(r.Body)
	err := dec.Decode(&req)

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && !h.notificationService.StrictValidation() {
		log.WithFields(log.Fields{
			"field": typeErr.Field,
			"type":  typeErr.Value,
		}).Debug("Ignoring mistyped field in notification request")
		err = nil
	}
	if err == nil {
		err = expectEOF(dec)
	}

	var sizeErr *http.MaxBytesError
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return req, true
	case errors.As(err, &sizeErr):
		writeText(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return req, false
	default:
		writeText(w, http.StatusBadRequest, "Invalid request body")
		return req, false
	}
}

// expectEOF fails when anything but whitespace follows the first JSON value.
func expectEOF(dec *json.Decoder) error {
	var extra json.RawMessage
	switch err := dec.Decode(&extra); {
	case errors.Is(err, io.EOF):
		return nil
	case err != nil:
		return err
	default:
		return errTrailingData
	}
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	io.WriteString(w, body)
}
