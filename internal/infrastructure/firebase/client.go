package firebase

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/errorutils"
	"firebase.google.com/go/v4/messaging"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/option"

	"pushrelay/internal/domain/notification"
)

var fcmTracer = otel.Tracer("pushrelay.fcm")

// multicastSender is the subset of *messaging.Client used here.
type multicastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// Client implements notification.Messenger using Firebase Cloud Messaging
type Client struct {
	msgClient multicastSender
}

// NewClient initializes a Firebase app and returns an FCM client.
// An empty credentialsFile falls back to application default credentials.
func NewClient(ctx context.Context, credentialsFile string) (*Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	} else {
		log.Info("FIREBASE_CREDENTIALS_FILE not set, using application default credentials")
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	msgClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase messaging client: %w", err)
	}

	return &Client{msgClient: msgClient}, nil
}

// SendMulticast delivers msg to every token with one SendEachForMulticast call.
// Tokens are passed through untouched; the SDK enforces its own limits.
func (c *Client) SendMulticast(ctx context.Context, msg notification.MulticastMessage) (*notification.Result, error) {
	ctx, span := fcmTracer.Start(ctx, "fcm.SendEachForMulticast", trace.WithAttributes(
		attribute.Int("fcm.token_count", len(msg.Tokens)),
	))
	defer span.End()

	resp, err := c.msgClient.SendEachForMulticast(ctx, toMulticastMessage(msg))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("fcm.error_kind", Classify(err)))
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("fcm.success_count", resp.SuccessCount),
		attribute.Int("fcm.failure_count", resp.FailureCount),
	)

	return toResult(msg.Tokens, resp), nil
}

// Classify returns a short label for an FCM error.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case messaging.IsUnregistered(err):
		return "unregistered"
	case messaging.IsInvalidArgument(err):
		return "invalid_argument"
	case messaging.IsSenderIDMismatch(err), messaging.IsThirdPartyAuthError(err), errorutils.IsUnauthenticated(err), errorutils.IsPermissionDenied(err):
		return "unauthenticated"
	case messaging.IsQuotaExceeded(err):
		return "quota_exceeded"
	case messaging.IsUnavailable(err):
		return "unavailable"
	case messaging.IsInternal(err):
		return "internal"
	default:
		return "unknown"
	}
}

func toMulticastMessage(msg notification.MulticastMessage) *messaging.MulticastMessage {
	return &messaging.MulticastMessage{
		Tokens: msg.Tokens,
		Notification: &messaging.Notification{
			Title: msg.Notification.Title,
			Body:  msg.Notification.Body,
		},
	}
}

func toResult(tokens []string, resp *messaging.BatchResponse) *notification.Result {
	result := &notification.Result{
		SuccessCount: resp.SuccessCount,
		FailureCount: resp.FailureCount,
		Responses:    make([]notification.TokenResult, 0, len(resp.Responses)),
	}

	for i, sendResp := range resp.Responses {
		tr := notification.TokenResult{}
		if i < len(tokens) {
			tr.Token = tokens[i]
		}
		switch {
		case sendResp != nil && sendResp.Success:
			tr.MessageID = sendResp.MessageID
		case sendResp != nil && sendResp.Error != nil:
			tr.Err = sendResp.Error
		default:
			tr.Err = fmt.Errorf("fcm: send failed for token at index %d", i)
		}
		result.Responses = append(result.Responses, tr)
	}

	return result
}
