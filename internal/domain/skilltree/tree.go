package skilltree

import (
	"sort"

	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// TREE ASSEMBLY (персонализированная проекция дерева)
// ══════════════════════════════════════════════════════════════════════════════

// NodeStatus - статус узла с точки зрения конкретного пользователя.
type NodeStatus string

const (
	// StatusLocked - узел виден, но не доступен (гейты не выполнены).
	StatusLocked NodeStatus = "locked"

	// StatusAvailable - все гейты выполнены, узел можно разблокировать.
	StatusAvailable NodeStatus = "available"

	// StatusUnlocked - узел разблокирован, прогресс накапливается.
	StatusUnlocked NodeStatus = "unlocked"

	// StatusCompleted - узел полностью освоен, награда выдана.
	StatusCompleted NodeStatus = "completed"
)

// AnnotatedNode - узел каталога, аннотированный статусом и прогрессом
// пользователя. Возвращается запросом дерева навыков.
type AnnotatedNode struct {
	Node     *SkillNode
	Status   NodeStatus
	Progress float64
	Children []*AnnotatedNode
}

// BuildForest собирает персонализированный лес из каталога узлов и
// разблокировок пользователя. Дети каждого узла отсортированы по OrderIndex,
// корни тоже. Узлы с несуществующим родителем не попадают в результат.
func BuildForest(nodes []*SkillNode, unlocks map[shared.NodeID]*SkillUnlock, userXP shared.XP) []*AnnotatedNode {
	annotated := make(map[shared.NodeID]*AnnotatedNode, len(nodes))
	for _, node := range nodes {
		annotated[node.ID] = &AnnotatedNode{Node: node}
	}

	for _, an := range annotated {
		an.Status, an.Progress = annotate(an.Node, unlocks, userXP)
	}

	var roots []*AnnotatedNode
	for _, node := range nodes {
		an := annotated[node.ID]
		if node.IsRoot() {
			roots = append(roots, an)
			continue
		}
		parent, ok := annotated[*node.ParentID]
		if !ok {
			continue
		}
		parent.Children = append(parent.Children, an)
	}

	sortByOrder(roots)
	for _, an := range annotated {
		sortByOrder(an.Children)
	}
	return roots
}

func annotate(node *SkillNode, unlocks map[shared.NodeID]*SkillUnlock, userXP shared.XP) (NodeStatus, float64) {
	if unlock, ok := unlocks[node.ID]; ok {
		if unlock.IsCompleted() {
			return StatusCompleted, 1
		}
		return StatusUnlocked, unlock.Progress
	}

	parentUnlocked := true
	if !node.IsRoot() {
		_, parentUnlocked = unlocks[*node.ParentID]
	}
	if EvaluateGates(node, userXP, parentUnlocked) == nil {
		return StatusAvailable, 0
	}
	return StatusLocked, 0
}

func sortByOrder(nodes []*AnnotatedNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Node.OrderIndex < nodes[j].Node.OrderIndex
	})
}
