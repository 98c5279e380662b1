package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codequest-hub/codequest-progression/internal/domain/progression"
	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
	"github.com/codequest-hub/codequest-progression/internal/domain/skilltree"
)

func skillCatalog() []*skilltree.SkillNode {
	rootID := shared.NodeID("go-basics")
	topic := shared.TopicID("concurrency")
	return []*skilltree.SkillNode{
		{
			ID:       rootID,
			Title:    "Go Basics",
			XPReward: 50,
		},
		{
			ID:            shared.NodeID("go-concurrency"),
			ParentID:      &rootID,
			Title:         "Concurrency",
			RequiredLevel: shared.Level(3),
			RequiredXP:    shared.XP(600),
			XPReward:      100,
			TopicRef:      &topic,
			OrderIndex:    1,
		},
		{
			ID:         shared.NodeID("go-testing"),
			ParentID:   &rootID,
			Title:      "Testing",
			XPReward:   75,
			OrderIndex: 2,
		},
	}
}

func TestGetSkillTree_AnnotatesStatusesPerUser(t *testing.T) {
	nodeRepo := &stubSkillRepo{nodes: skillCatalog()}

	now := time.Now().UTC()
	nodeRepo.unlocks = []*skilltree.SkillUnlock{
		{UserID: testUser, NodeID: "go-basics", Progress: 0, UnlockedAt: now, CompletedAt: &now},
		{UserID: testUser, NodeID: "go-concurrency", Progress: 0.5, UnlockedAt: now},
	}

	progressRepo := newStubProgressRepo()
	p := progression.NewUserProgress(testUser)
	p.XP = 700
	progressRepo.progress[testUser] = p

	handler := NewGetSkillTreeHandler(nodeRepo, nodeRepo, progressRepo)

	result, err := handler.Handle(context.Background(), GetSkillTreeQuery{UserID: testUser})

	require.NoError(t, err)
	assert.Equal(t, 2, result.UnlockedCount)
	assert.Equal(t, 1, result.CompletedCount)

	require.Len(t, result.Roots, 1)
	root := result.Roots[0]
	assert.Equal(t, "go-basics", root.ID)
	assert.Equal(t, string(skilltree.StatusCompleted), root.Status)
	assert.Equal(t, 1.0, root.Progress)

	require.Len(t, root.Children, 2)
	// Дети отсортированы по OrderIndex.
	concurrency := root.Children[0]
	assert.Equal(t, "go-concurrency", concurrency.ID)
	assert.Equal(t, string(skilltree.StatusUnlocked), concurrency.Status)
	assert.Equal(t, 0.5, concurrency.Progress)
	assert.Equal(t, "concurrency", concurrency.TopicRef)

	testingNode := root.Children[1]
	assert.Equal(t, "go-testing", testingNode.ID)
	assert.Equal(t, string(skilltree.StatusAvailable), testingNode.Status)
}

func TestGetSkillTree_FreshUserSeesLockedForest(t *testing.T) {
	nodeRepo := &stubSkillRepo{nodes: skillCatalog()}

	handler := NewGetSkillTreeHandler(nodeRepo, nodeRepo, newStubProgressRepo())

	result, err := handler.Handle(context.Background(), GetSkillTreeQuery{UserID: testUser})

	require.NoError(t, err)
	assert.Equal(t, 0, result.UnlockedCount)
	assert.Equal(t, 0, result.CompletedCount)

	require.Len(t, result.Roots, 1)
	root := result.Roots[0]
	// Корень без гейтов доступен с нулевым XP.
	assert.Equal(t, string(skilltree.StatusAvailable), root.Status)
	for _, child := range root.Children {
		assert.Equal(t, string(skilltree.StatusLocked), child.Status,
			"child %s must stay locked behind the parent", child.ID)
	}
}

func TestGetSkillTree_RequiresUserID(t *testing.T) {
	nodeRepo := &stubSkillRepo{}
	handler := NewGetSkillTreeHandler(nodeRepo, nodeRepo, newStubProgressRepo())

	_, err := handler.Handle(context.Background(), GetSkillTreeQuery{})
	assert.ErrorIs(t, err, shared.ErrValidation)
}
