package progression

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/codequest-hub/codequest-progression/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REASON CODES
// ══════════════════════════════════════════════════════════════════════════════

// Reason - закрытое множество причин начисления XP.
type Reason string

const (
	// ReasonQuestionPass - первое прохождение вопроса.
	ReasonQuestionPass Reason = "question_pass"
	// ReasonStreakBonus - бонус за продление серии дней.
	ReasonStreakBonus Reason = "streak_bonus"
	// ReasonTopicMastered - полное освоение темы.
	ReasonTopicMastered Reason = "topic_mastered"
	// ReasonNodeCompleted - завершение узла дерева навыков.
	ReasonNodeCompleted Reason = "node_completed"
	// ReasonDailyChallenge - выполнение ежедневного задания.
	ReasonDailyChallenge Reason = "daily_challenge"
)

// IsValid проверяет, что причина входит в закрытое множество.
func (r Reason) IsValid() bool {
	switch r {
	case ReasonQuestionPass, ReasonStreakBonus, ReasonTopicMastered,
		ReasonNodeCompleted, ReasonDailyChallenge:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление причины.
func (r Reason) String() string {
	return string(r)
}

// ══════════════════════════════════════════════════════════════════════════════
// TYPED METADATA
// Вместо открытой map каждая причина несёт свою типизированную нагрузку,
// чтобы потребители журнала могли исчерпывающе обрабатывать все варианты.
// ══════════════════════════════════════════════════════════════════════════════

// Metadata - закрытое множество типов метаданных записи журнала.
type Metadata interface {
	// MetaReason возвращает причину, к которой относится эта нагрузка.
	MetaReason() Reason
}

// BreakdownLine - одна строка разбивки награды (для квитанций в UI).
type BreakdownLine struct {
	Label  string `json:"label"`
	Amount int    `json:"amount"`
}

// QuestionPassMeta - метаданные начисления за первое прохождение вопроса.
type QuestionPassMeta struct {
	QuestionID shared.QuestionID `json:"question_id"`
	Breakdown  []BreakdownLine   `json:"breakdown"`
}

// MetaReason реализует Metadata.
func (QuestionPassMeta) MetaReason() Reason { return ReasonQuestionPass }

// StreakMeta - метаданные бонуса за серию.
type StreakMeta struct {
	Streak int `json:"streak"`
}

// MetaReason реализует Metadata.
func (StreakMeta) MetaReason() Reason { return ReasonStreakBonus }

// TopicMeta - метаданные освоения темы.
type TopicMeta struct {
	TopicID shared.TopicID `json:"topic_id"`
}

// MetaReason реализует Metadata.
func (TopicMeta) MetaReason() Reason { return ReasonTopicMastered }

// NodeMeta - метаданные завершения узла дерева навыков.
type NodeMeta struct {
	NodeID shared.NodeID `json:"node_id"`
	Title  string        `json:"title,omitempty"`
}

// MetaReason реализует Metadata.
func (NodeMeta) MetaReason() Reason { return ReasonNodeCompleted }

// ChallengeMeta - метаданные выполнения ежедневного задания.
type ChallengeMeta struct {
	ChallengeID string `json:"challenge_id"`
	Date        string `json:"date"` // YYYY-MM-DD
}

// MetaReason реализует Metadata.
func (ChallengeMeta) MetaReason() Reason { return ReasonDailyChallenge }

// EncodeMetadata сериализует метаданные в JSON для хранения.
func EncodeMetadata(meta Metadata) ([]byte, error) {
	if meta == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(meta)
}

// DecodeMetadata восстанавливает типизированную нагрузку по причине записи.
func DecodeMetadata(reason Reason, raw []byte) (Metadata, error) {
	if len(raw) == 0 {
		raw = []byte("{}")
	}

	switch reason {
	case ReasonQuestionPass:
		var m QuestionPassMeta
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	case ReasonStreakBonus:
		var m StreakMeta
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	case ReasonTopicMastered:
		var m TopicMeta
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	case ReasonNodeCompleted:
		var m NodeMeta
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	case ReasonDailyChallenge:
		var m ChallengeMeta
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, shared.ErrUnknownReason
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// LEDGER ENTRY
// ══════════════════════════════════════════════════════════════════════════════

// LedgerEntry - одна запись XP-журнала. Журнал append-only: запись никогда
// не изменяется и не удаляется после создания. Писать в журнал может только
// движок начислений.
type LedgerEntry struct {
	// ID - уникальный идентификатор записи.
	ID uuid.UUID

	// UserID - кому начислено.
	UserID shared.UserID

	// Amount - размер начисления (всегда положительный: движок не отзывает XP).
	Amount int

	// Reason - причина начисления.
	Reason Reason

	// Meta - типизированные метаданные причины.
	Meta Metadata

	// CreatedAt - время создания записи.
	CreatedAt time.Time
}

// NewLedgerEntry создаёт запись журнала с валидацией.
func NewLedgerEntry(userID shared.UserID, amount int, reason Reason, meta Metadata) (*LedgerEntry, error) {
	if userID.IsEmpty() {
		return nil, shared.NewDomainError("progression", "NewLedgerEntry", shared.ErrEmptyValue, "user ID is required")
	}
	if amount <= 0 {
		return nil, shared.ErrInvalidXPAmount
	}
	if !reason.IsValid() {
		return nil, shared.ErrUnknownReason
	}
	if meta != nil && meta.MetaReason() != reason {
		return nil, shared.NewDomainError("progression", "NewLedgerEntry", shared.ErrInvalidInput, "metadata does not match reason code")
	}

	return &LedgerEntry{
		ID:        uuid.New(),
		UserID:    userID,
		Amount:    amount,
		Reason:    reason,
		Meta:      meta,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REWARD COMPOSITION
// ══════════════════════════════════════════════════════════════════════════════

// Фиксированные веса наградного пакета за первое прохождение вопроса.
const (
	// BaseSolveXP - базовая награда за решение.
	BaseSolveXP = 10
	// NoHintsBonusXP - бонус за решение без подсказок.
	NoHintsBonusXP = 5
	// FirstTryBonusXP - бонус за первое прохождение.
	FirstTryBonusXP = 10
	// SpeedBonusXP - бонус за быстрое выполнение.
	SpeedBonusXP = 5
	// SpeedThresholdMs - порог времени выполнения для бонуса за скорость.
	SpeedThresholdMs = 60000
	// StreakBonusXP - бонус за продление серии дней.
	StreakBonusXP = 15
)

// ComposeQuestionReward собирает наградной пакет за первое прохождение.
// Вызывается только на ветке первого прохождения, поэтому бонус "с первой
// попытки" входит всегда. Каждая составляющая - отдельная строка разбивки.
func ComposeQuestionReward(hintsUsed int, executionMs int64) (total int, breakdown []BreakdownLine) {
	breakdown = append(breakdown, BreakdownLine{Label: "Solved", Amount: BaseSolveXP})

	if hintsUsed == 0 {
		breakdown = append(breakdown, BreakdownLine{Label: "No hints", Amount: NoHintsBonusXP})
	}

	breakdown = append(breakdown, BreakdownLine{Label: "First try", Amount: FirstTryBonusXP})

	if executionMs < SpeedThresholdMs {
		breakdown = append(breakdown, BreakdownLine{Label: "Speed bonus", Amount: SpeedBonusXP})
	}

	for _, line := range breakdown {
		total += line.Amount
	}
	return total, breakdown
}
