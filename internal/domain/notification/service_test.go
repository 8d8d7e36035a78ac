package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockMessenger implements Messenger for testing
type MockMessenger struct {
	SendMulticastFunc func(ctx context.Context, msg MulticastMessage) (*Result, error)
	Calls             []MulticastMessage
}

func (m *MockMessenger) SendMulticast(ctx context.Context, msg MulticastMessage) (*Result, error) {
	m.Calls = append(m.Calls, msg)
	if m.SendMulticastFunc != nil {
		return m.SendMulticastFunc(ctx, msg)
	}
	return &Result{SuccessCount: len(msg.Tokens)}, nil
}

// MockRecorder implements Recorder for testing
type MockRecorder struct {
	RecordFunc func(ctx context.Context, d Dispatch) error
	Recorded   []Dispatch
}

func (m *MockRecorder) Record(ctx context.Context, d Dispatch) error {
	m.Recorded = append(m.Recorded, d)
	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, d)
	}
	return nil
}

func TestForward_BuildsMessageVerbatim(t *testing.T) {
	messenger := &MockMessenger{}
	svc := NewService(messenger, ServiceOptions{})

	req := Request{Tokens: []string{"t2", "t1", "t2", ""}, Title: "Hi", Body: "There"}
	result, err := svc.Forward(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)

	require.Len(t, messenger.Calls, 1)
	got := messenger.Calls[0]
	assert.Equal(t, []string{"t2", "t1", "t2", ""}, got.Tokens)
	assert.Equal(t, Notification{Title: "Hi", Body: "There"}, got.Notification)
}

func TestForward_ReturnsProviderResult(t *testing.T) {
	want := &Result{
		SuccessCount: 1,
		FailureCount: 1,
		Responses: []TokenResult{
			{Token: "t1", MessageID: "projects/p/messages/1"},
			{Token: "t2", Err: errors.New("registration-token-not-registered")},
		},
	}
	messenger := &MockMessenger{
		SendMulticastFunc: func(ctx context.Context, msg MulticastMessage) (*Result, error) {
			return want, nil
		},
	}
	svc := NewService(messenger, ServiceOptions{})

	got, err := svc.Forward(context.Background(), Request{Tokens: []string{"t1", "t2"}})
	require.NoError(t, err)
	assert.Same(t, want, got)
}

func TestForward_EmptyRequestIsPassedThrough(t *testing.T) {
	messenger := &MockMessenger{}
	svc := NewService(messenger, ServiceOptions{})

	_, err := svc.Forward(context.Background(), Request{Tokens: []string{}})
	require.NoError(t, err)

	require.Len(t, messenger.Calls, 1)
	assert.Empty(t, messenger.Calls[0].Tokens)
	assert.Empty(t, messenger.Calls[0].Notification.Title)
}

func TestForward_ProviderErrorReturnedUnchanged(t *testing.T) {
	providerErr := errors.New("auth error: invalid credentials")
	messenger := &MockMessenger{
		SendMulticastFunc: func(ctx context.Context, msg MulticastMessage) (*Result, error) {
			return nil, providerErr
		},
	}
	svc := NewService(messenger, ServiceOptions{})

	result, err := svc.Forward(context.Background(), Request{Tokens: []string{"t1"}})
	assert.Nil(t, result)
	assert.Same(t, providerErr, err)
}

func TestForward_NilResultWithoutError(t *testing.T) {
	messenger := &MockMessenger{
		SendMulticastFunc: func(ctx context.Context, msg MulticastMessage) (*Result, error) {
			return nil, nil
		},
	}
	svc := NewService(messenger, ServiceOptions{})

	result, err := svc.Forward(context.Background(), Request{Tokens: []string{"t1"}})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "success_count=0 failure_count=0", result.String())
}

func TestForward_StrictValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{name: "valid", req: Request{Tokens: []string{"t1"}, Title: "Hi"}, wantErr: false},
		{name: "missing tokens", req: Request{Title: "Hi"}, wantErr: true},
		{name: "empty tokens", req: Request{Tokens: []string{}}, wantErr: true},
		{name: "blank token", req: Request{Tokens: []string{"t1", ""}}, wantErr: true},
		{name: "too many tokens", req: Request{Tokens: make([]string, MaxMulticastTokens+1)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			messenger := &MockMessenger{}
			svc := NewService(messenger, ServiceOptions{StrictValidation: true})

			_, err := svc.Forward(context.Background(), tt.req)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidRequest)
				assert.Empty(t, messenger.Calls, "provider must not be called for invalid requests")
				return
			}
			require.NoError(t, err)
			assert.Len(t, messenger.Calls, 1)
		})
	}
}

func TestForward_StrictValidationOffPassesMissingTokens(t *testing.T) {
	messenger := &MockMessenger{}
	svc := NewService(messenger, ServiceOptions{})

	_, err := svc.Forward(context.Background(), Request{Body: "no title, no tokens"})
	require.NoError(t, err)
	require.Len(t, messenger.Calls, 1)
	assert.Nil(t, messenger.Calls[0].Tokens)
}

func TestValidate_Messages(t *testing.T) {
	svc := NewService(&MockMessenger{}, ServiceOptions{})

	err := svc.Validate(Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tokens is required")

	err = svc.Validate(Request{Tokens: []string{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tokens must contain at least 1 item(s)")
}

func TestForward_RecordsDispatch(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		recorder := &MockRecorder{}
		messenger := &MockMessenger{
			SendMulticastFunc: func(ctx context.Context, msg MulticastMessage) (*Result, error) {
				return &Result{SuccessCount: 1, FailureCount: 1}, nil
			},
		}
		svc := NewService(messenger, ServiceOptions{Recorder: recorder})

		_, err := svc.Forward(context.Background(), Request{Tokens: []string{"a", "b"}, Title: "T", Body: "B"})
		require.NoError(t, err)

		require.Len(t, recorder.Recorded, 1)
		d := recorder.Recorded[0]
		assert.Equal(t, "T", d.Title)
		assert.Equal(t, "B", d.Body)
		assert.Equal(t, 2, d.TokenCount)
		assert.Equal(t, 1, d.SuccessCount)
		assert.Equal(t, 1, d.FailureCount)
		assert.Empty(t, d.Error)
		assert.Empty(t, d.ErrorKind)
	})

	t.Run("failure is classified", func(t *testing.T) {
		recorder := &MockRecorder{}
		messenger := &MockMessenger{
			SendMulticastFunc: func(ctx context.Context, msg MulticastMessage) (*Result, error) {
				return nil, errors.New("quota exceeded")
			},
		}
		svc := NewService(messenger, ServiceOptions{
			Recorder: recorder,
			Classify: func(error) string { return "quota_exceeded" },
		})

		_, err := svc.Forward(context.Background(), Request{Tokens: []string{"a"}})
		require.Error(t, err)

		require.Len(t, recorder.Recorded, 1)
		assert.Equal(t, "quota exceeded", recorder.Recorded[0].Error)
		assert.Equal(t, "quota_exceeded", recorder.Recorded[0].ErrorKind)
	})

	t.Run("recorder failure does not change outcome", func(t *testing.T) {
		recorder := &MockRecorder{
			RecordFunc: func(ctx context.Context, d Dispatch) error {
				return errors.New("db down")
			},
		}
		svc := NewService(&MockMessenger{}, ServiceOptions{Recorder: recorder})

		result, err := svc.Forward(context.Background(), Request{Tokens: []string{"a"}})
		require.NoError(t, err)
		assert.Equal(t, 1, result.SuccessCount)
	})

	t.Run("recording survives a cancelled request", func(t *testing.T) {
		var recordCtxErr error
		recorder := &MockRecorder{
			RecordFunc: func(ctx context.Context, d Dispatch) error {
				recordCtxErr = ctx.Err()
				return nil
			},
		}
		svc := NewService(&MockMessenger{}, ServiceOptions{Recorder: recorder})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := svc.Forward(ctx, Request{Tokens: []string{"a"}})
		require.NoError(t, err)
		assert.NoError(t, recordCtxErr)
	})
}
