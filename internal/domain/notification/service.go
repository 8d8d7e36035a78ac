package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const recordTimeout = 5 * time.Second

var (
	validate = validator.New()

	dispatchMeter    = otel.Meter("pushrelay/notification")
	dispatchTotal, _ = dispatchMeter.Int64Counter("pushrelay.dispatch.total",
		metric.WithDescription("Multicast sends forwarded to the provider"),
	)
	dispatchTokens, _ = dispatchMeter.Int64Counter("pushrelay.dispatch.tokens",
		metric.WithDescription("Per-token delivery outcomes reported by the provider"),
	)
)

// ServiceOptions configures optional collaborators of the Service.
type ServiceOptions struct {
	// Recorder stores each attempt; nil disables history.
	Recorder Recorder
	// Classify labels provider errors; nil labels everything "unknown".
	Classify ErrorClassifier
	// StrictValidation rejects malformed requests before calling the provider.
	StrictValidation bool
}

// Service forwards notification requests to the push provider.
type Service struct {
	messenger Messenger
	recorder  Recorder
	classify  ErrorClassifier
	strict    bool
}

// NewService creates a new notification service
func NewService(messenger Messenger, opts ServiceOptions) *Service {
	classify := opts.Classify
	if classify == nil {
		classify = func(error) string { return "unknown" }
	}
	return &Service{
		messenger: messenger,
		recorder:  opts.Recorder,
		classify:  classify,
		strict:    opts.StrictValidation,
	}
}

// StrictValidation reports whether requests are validated locally.
func (s *Service) StrictValidation() bool {
	return s.strict
}

// Validate checks a request against its schema. Errors wrap ErrInvalidRequest.
func (s *Service) Validate(req Request) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, formatValidationError(err))
	}
	return nil
}

// Forward sends the request to the provider as a single multicast message and
// returns the provider's result or error unchanged.
func (s *Service) Forward(ctx context.Context, req Request) (*Result, error) {
	if s.strict {
		if err := s.Validate(req); err != nil {
			return nil, err
		}
	}

	msg := NewMulticastMessage(req)
	result, err := s.messenger.SendMulticast(ctx, msg)
	if err == nil && result == nil {
		result = &Result{}
	}

	kind := ""
	if err != nil {
		kind = s.classify(err)
		log.WithFields(log.Fields{
			"token_count": len(msg.Tokens),
			"error_kind":  kind,
		}).WithError(err).Error("Multicast send failed")
		dispatchTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("outcome", "error"),
			attribute.String("error_kind", kind),
		))
	} else {
		s.logTokenFailures(ctx, result)
		log.WithFields(log.Fields{
			"token_count":   len(msg.Tokens),
			"success_count": result.SuccessCount,
			"failure_count": result.FailureCount,
		}).Info("Multicast send completed")
		dispatchTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "sent")))
	}

	s.record(ctx, req, result, err, kind)

	return result, err
}

func (s *Service) logTokenFailures(ctx context.Context, result *Result) {
	if result == nil {
		return
	}
	dispatchTokens.Add(ctx, int64(result.SuccessCount), metric.WithAttributes(attribute.String("outcome", "delivered")))
	dispatchTokens.Add(ctx, int64(result.FailureCount), metric.WithAttributes(attribute.String("outcome", "failed")))

	for i, r := range result.Responses {
		if r.Success() {
			continue
		}
		log.WithFields(log.Fields{
			"index":      i,
			"token":      r.Token,
			"error_kind": s.classify(r.Err),
		}).WithError(r.Err).Warn("Provider rejected token")
	}
}

func (s *Service) record(ctx context.Context, req Request, result *Result, sendErr error, kind string) {
	if s.recorder == nil {
		return
	}

	d := Dispatch{
		Title:      req.Title,
		Body:       req.Body,
		TokenCount: len(req.Tokens),
		ErrorKind:  kind,
	}
	if result != nil {
		d.SuccessCount = result.SuccessCount
		d.FailureCount = result.FailureCount
	}
	if sendErr != nil {
		d.Error = sendErr.Error()
	}

	// The caller may already be gone; the history write outlives the request.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if err := s.recorder.Record(rctx, d); err != nil {
		log.WithError(err).Warn("Failed to record dispatch")
	}
}

func formatValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}

	fe := verrs[0]
	field := strings.ToLower(fe.Field())

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must contain at least %s item(s)", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must contain at most %s items", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %q validation", field, fe.Tag())
	}
}
