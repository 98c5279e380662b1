package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
	"github.com/codequest-hub/codequest-progression/internal/domain/skilltree"
)

func seedXP(t *testing.T, f *engineFixture, xp int) {
	t.Helper()
	_, err := f.progress.AddXP(context.Background(), testUser, xp)
	require.NoError(t, err)
}

func chainNodes(f *engineFixture) {
	parent := shared.NodeID("go-basics")
	f.skills.addNode(&skilltree.SkillNode{ID: parent, Title: "Go Basics"})
	f.skills.addNode(&skilltree.SkillNode{
		ID:            "go-concurrency",
		ParentID:      &parent,
		Title:         "Go Concurrency",
		RequiredLevel: 3,
		RequiredXP:    600,
	})
}

func TestUnlockSkillNode_RootUnlocks(t *testing.T) {
	f := newEngineFixture()
	chainNodes(f)

	result, err := f.unlock.Handle(context.Background(), UnlockSkillNodeCommand{
		UserID: testUser,
		NodeID: "go-basics",
	})
	require.NoError(t, err)

	assert.False(t, result.AlreadyUnlocked)
	require.NotNil(t, result.Unlock)
	assert.Zero(t, result.Unlock.Progress)
	assert.Len(t, f.publisher.byType(shared.EventNodeUnlocked), 1)
}

func TestUnlockSkillNode_Idempotent(t *testing.T) {
	f := newEngineFixture()
	chainNodes(f)
	ctx := context.Background()

	_, err := f.unlock.Handle(ctx, UnlockSkillNodeCommand{UserID: testUser, NodeID: "go-basics"})
	require.NoError(t, err)

	second, err := f.unlock.Handle(ctx, UnlockSkillNodeCommand{UserID: testUser, NodeID: "go-basics"})
	require.NoError(t, err)

	assert.True(t, second.AlreadyUnlocked)
	assert.Len(t, f.publisher.byType(shared.EventNodeUnlocked), 1, "no second unlock event")
}

func TestUnlockSkillNode_GateErrorsAreTyped(t *testing.T) {
	f := newEngineFixture()
	chainNodes(f)
	ctx := context.Background()

	_, err := f.unlock.Handle(ctx, UnlockSkillNodeCommand{UserID: testUser, NodeID: "go-basics"})
	require.NoError(t, err)

	// Level 2 (260 XP) against a level-3 node: the level gate fails first.
	seedXP(t, f, 260)
	_, err = f.unlock.Handle(ctx, UnlockSkillNodeCommand{UserID: testUser, NodeID: "go-concurrency"})
	assert.ErrorIs(t, err, shared.ErrInsufficientLevel)

	// Level 3 but 510 XP against a 600 XP requirement: the XP gate fails.
	seedXP(t, f, 250)
	_, err = f.unlock.Handle(ctx, UnlockSkillNodeCommand{UserID: testUser, NodeID: "go-concurrency"})
	assert.ErrorIs(t, err, shared.ErrInsufficientXP)
}

func TestUnlockSkillNode_LockedParentBlocks(t *testing.T) {
	f := newEngineFixture()
	chainNodes(f)

	// Plenty of level and XP, but the parent is still locked.
	seedXP(t, f, 5000)
	_, err := f.unlock.Handle(context.Background(), UnlockSkillNodeCommand{
		UserID: testUser,
		NodeID: "go-concurrency",
	})
	assert.ErrorIs(t, err, shared.ErrParentNotUnlocked)
}

func TestUnlockSkillNode_UnknownNode(t *testing.T) {
	f := newEngineFixture()

	_, err := f.unlock.Handle(context.Background(), UnlockSkillNodeCommand{
		UserID: testUser,
		NodeID: "ghost",
	})
	assert.ErrorIs(t, err, shared.ErrNodeNotFound)
}

func TestUnlockSkillNode_SeedsProgressForMasteredTopic(t *testing.T) {
	f := newEngineFixture()
	topic := shared.TopicID("topic-go")
	f.addQuestion("q-1", topic)
	f.skills.addNode(&skilltree.SkillNode{
		ID:       "go-basics",
		Title:    "Go Basics",
		XPReward: 50,
		TopicRef: &topic,
	})
	ctx := context.Background()

	// The user masters the topic before the node exists in their tree.
	_, err := f.completion.Handle(ctx, passCommand("q-1"))
	require.NoError(t, err)

	_, err = f.unlock.Handle(ctx, UnlockSkillNodeCommand{UserID: testUser, NodeID: "go-basics"})
	require.NoError(t, err)

	unlock, err := f.skills.Get(ctx, testUser, "go-basics")
	require.NoError(t, err)
	assert.True(t, unlock.IsCompleted(), "unlocking a mastered topic completes immediately")
}
