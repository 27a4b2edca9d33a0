package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"sacco-hub/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatService_SendAndStream(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	chair := f.member(t, "chair", domain.RoleMember)
	bob := f.member(t, "bob", domain.RoleMember)
	g := f.group(t, "savers", chair, bob)

	sub, err := f.svc.Chat.Subscribe(ctx, g.ID, bob)
	require.NoError(t, err)
	defer f.svc.Chat.Unsubscribe(sub.ID)

	msg, err := f.svc.Chat.SendMessage(ctx, g.ID, chair, "  hello all  ")
	require.NoError(t, err)
	assert.Equal(t, "hello all", msg.Content)
	require.NotNil(t, msg.Member)
	assert.Equal(t, "chair", msg.Member.Username)

	select {
	case ev := <-sub.Channel:
		assert.Equal(t, "message", ev.Name)
		assert.Equal(t, g.ID, ev.GroupID)
	case <-time.After(time.Second):
		t.Fatal("no event delivered to the group stream")
	}

	_, err = f.svc.Chat.SendMessage(ctx, g.ID, bob, "second")
	require.NoError(t, err)

	history, err := f.svc.Chat.ListMessages(ctx, g.ID, bob)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "hello all", history[0].Content)
	assert.Equal(t, "second", history[1].Content)
}

func TestChatService_Rules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	chair := f.member(t, "chair", domain.RoleMember)
	outsider := f.member(t, "outsider", domain.RoleMember)
	g := f.group(t, "savers", chair)

	_, err := f.svc.Chat.SendMessage(ctx, g.ID, outsider, "hi")
	assert.ErrorIs(t, err, domain.ErrNotAMember)

	_, err = f.svc.Chat.ListMessages(ctx, g.ID, outsider)
	assert.ErrorIs(t, err, domain.ErrNotAMember)

	_, err = f.svc.Chat.Subscribe(ctx, g.ID, outsider)
	assert.ErrorIs(t, err, domain.ErrNotAMember)

	_, err = f.svc.Chat.SendMessage(ctx, g.ID, chair, "   ")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.Chat.SendMessage(ctx, g.ID, chair, strings.Repeat("é", maxMessageLength+1))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.Chat.SendMessage(ctx, g.ID, chair, strings.Repeat("é", maxMessageLength))
	assert.NoError(t, err)
}
