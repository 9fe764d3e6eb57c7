package receiver

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/chirpwall/chirpwall/pkg/wire"
	"github.com/chirpwall/chirpwall/server/internal/store"
)

// Board is the mutation and read path the receiver forwards to.
// *dispatch.Dispatcher satisfies it.
type Board interface {
	Create(ctx context.Context, content, author string) (wire.Message, error)
	List() []wire.Message
}

// Receiver implements BoardServer on top of a Board.
type Receiver struct {
	board Board
}

// New creates a Receiver that serves b.
func New(b Board) *Receiver {
	return &Receiver{board: b}
}

// ListMessages returns all messages in creation order.
func (r *Receiver) ListMessages(_ context.Context, _ *ListMessagesRequest) (*ListMessagesResponse, error) {
	msgs := r.board.List()
	if msgs == nil {
		msgs = []wire.Message{}
	}
	return &ListMessagesResponse{Messages: msgs}, nil
}

// CreateMessage appends a message and broadcasts it exactly as the HTTP
// mutation does.
func (r *Receiver) CreateMessage(ctx context.Context, in *CreateMessageRequest) (*wire.Message, error) {
	m, err := r.board.Create(ctx, in.Content, in.Author)
	switch {
	case errors.Is(err, store.ErrValidation):
		return nil, status.Error(codes.InvalidArgument, "content and author are required")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, status.FromContextError(err).Err()
	case err != nil:
		return nil, status.Error(codes.Internal, err.Error())
	}

	slog.Debug("receiver: message created", "id", m.ID, "author", m.Author)
	return &m, nil
}
