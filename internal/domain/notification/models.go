package notification

import (
	"errors"
	"fmt"
	"time"
)

// MaxMulticastTokens is the provider's per-call token limit. Only enforced
// locally in strict mode; otherwise the provider rejects oversized batches.
const MaxMulticastTokens = 500

// Domain errors
var (
	ErrInvalidRequest = errors.New("invalid notification request")
)

// Request is the payload accepted by the send endpoint. Fields are forwarded
// verbatim; validate tags only apply when strict validation is enabled.
// The max on Tokens must equal MaxMulticastTokens.
type Request struct {
	Tokens []string `json:"tokens" validate:"required,min=1,max=500,dive,required"`
	Title  string   `json:"title"`
	Body   string   `json:"body"`
}

// Notification is the visible part of a push message.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// MulticastMessage is the message handed to the provider: one notification
// addressed to every token in order.
type MulticastMessage struct {
	Notification Notification `json:"notification"`
	Tokens       []string     `json:"tokens"`
}

// NewMulticastMessage builds the provider message from a request without
// filtering or reordering tokens.
func NewMulticastMessage(req Request) MulticastMessage {
	return MulticastMessage{
		Notification: Notification{
			Title: req.Title,
			Body:  req.Body,
		},
		Tokens: req.Tokens,
	}
}

// TokenResult is the provider's outcome for a single token.
type TokenResult struct {
	Token     string `json:"token"`
	MessageID string `json:"message_id,omitempty"`
	Err       error  `json:"-"`
}

// Success reports whether the provider accepted the message for this token.
func (r TokenResult) Success() bool {
	return r.Err == nil
}

// Result is the provider's response to a multicast send.
type Result struct {
	SuccessCount int           `json:"success_count"`
	FailureCount int           `json:"failure_count"`
	Responses    []TokenResult `json:"responses"`
}

func (r *Result) String() string {
	if r == nil {
		return "success_count=0 failure_count=0"
	}
	return fmt.Sprintf("success_count=%d failure_count=%d", r.SuccessCount, r.FailureCount)
}

// Dispatch is a single forwarding attempt as stored in the history log.
type Dispatch struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	TokenCount   int       `json:"token_count"`
	SuccessCount int       `json:"success_count"`
	FailureCount int       `json:"failure_count"`
	Error        string    `json:"error,omitempty"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
