//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"reflect"
)

// EventSink is a consumer of realtime events. A connection's sink feeds its
// write pump; permanent sinks (timeline, search index) observe broadcasts.
type EventSink interface {
	Consume(ctx context.Context, e event.Event) error
}

// IIdentityStore authenticates a bearer credential and resolves it to a
// stable identity with the display name already attached.
type IIdentityStore interface {
	Verify(ctx context.Context, token string) (domain.Identity, error)
}

// IMembershipStore answers durable channel membership questions.
type IMembershipStore interface {
	IsMember(ctx context.Context, channelID domain.ChannelID, userID domain.UserID) (bool, error)
}

// IMessageStore durably appends messages and serves paginated history.
// Append must commit before the caller broadcasts anything.
type IMessageStore interface {
	Append(ctx context.Context, channelID domain.ChannelID, userID domain.UserID, content, language string) (domain.Message, error)
	Page(ctx context.Context, channelID domain.ChannelID, before *string, limit int) ([]domain.Message, *string, bool, error)
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself. The supervisor recovers its panics.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker,
// avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
