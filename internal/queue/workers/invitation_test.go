package workers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/teamroster/internal/models"
	"github.com/nikhilbhutani/teamroster/internal/notify"
	"github.com/nikhilbhutani/teamroster/internal/queue"
)

type fakeSender struct {
	sent []notify.Invitation
	err  error
}

func (f *fakeSender) SendInvitation(ctx context.Context, inv notify.Invitation) error {
	f.sent = append(f.sent, inv)
	return f.err
}

func task(t *testing.T, inv notify.Invitation) *asynq.Task {
	data, err := json.Marshal(queue.InvitationDeliverPayload{Invitation: inv})
	require.NoError(t, err)
	return asynq.NewTask(queue.TypeInvitationDeliver, data)
}

func TestInvitationWorker_Delivers(t *testing.T) {
	sender := &fakeSender{}
	inv := notify.Invitation{MembershipID: uuid.New(), ContactAddress: "alice@example.com", Role: models.RoleViewer}

	require.NoError(t, NewInvitationWorker(sender).ProcessTask(context.Background(), task(t, inv)))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, inv.MembershipID, sender.sent[0].MembershipID)
}

func TestInvitationWorker_FailureSkipsRetry(t *testing.T) {
	sender := &fakeSender{err: errors.New("smtp 421")}
	err := NewInvitationWorker(sender).ProcessTask(context.Background(), task(t, notify.Invitation{MembershipID: uuid.New()}))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestInvitationWorker_BadPayload(t *testing.T) {
	err := NewInvitationWorker(&fakeSender{}).ProcessTask(context.Background(), asynq.NewTask(queue.TypeInvitationDeliver, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
