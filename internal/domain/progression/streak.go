package progression

import (
	"time"

	"github.com/codequest-hub/codequest-progression/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK STATE MACHINE
// Серия активных дней. Переходы сравнивают даты с точностью до календарного
// дня (UTC), компонент времени отбрасывается.
// ══════════════════════════════════════════════════════════════════════════════

// StreakTransition - исход одного шага автомата серии.
type StreakTransition string

const (
	// TransitionStarted - первая активность пользователя.
	TransitionStarted StreakTransition = "started"
	// TransitionSameDay - повторная активность в тот же день, счётчики не меняются.
	TransitionSameDay StreakTransition = "same_day"
	// TransitionExtended - активность на следующий день, серия продлена.
	TransitionExtended StreakTransition = "extended"
	// TransitionBroken - пропущен хотя бы один день, серия сброшена.
	TransitionBroken StreakTransition = "broken"
)

// StreakState - состояние автомата серии.
type StreakState struct {
	// Current - текущая серия дней.
	Current int

	// Best - лучшая серия дней.
	Best int

	// LastActiveDate - дата последней активности (начало дня, UTC).
	// Нулевое значение - активности ещё не было.
	LastActiveDate time.Time
}

// StreakResult - результат перехода автомата.
type StreakResult struct {
	// State - состояние после перехода.
	State StreakState

	// Transition - вид перехода.
	Transition StreakTransition

	// PreviousStreak - серия до перехода (для события "серия сломана").
	PreviousStreak int

	// BonusEligible - положен ли бонус за продление. Бонус начисляется
	// ровно один раз на каждое продвижение на следующий день.
	BonusEligible bool
}

// AdvanceStreak выполняет один шаг автомата серии для активности в день today.
// Функция чистая: вызывающий сам сохраняет новое состояние и начисляет бонус.
//
// Переходы по dayDiff = floor((today - lastActiveDate) / 1 день):
//   - нет lastActiveDate  -> серия = 1 (начальное состояние, без бонуса);
//   - dayDiff == 0        -> без изменений (повтор в тот же день безопасен);
//   - dayDiff == 1        -> серия += 1, положен бонус;
//   - dayDiff > 1         -> серия = 1, без бонуса.
//
// После любого перехода: Best = max(Best, Current), LastActiveDate = today.
func AdvanceStreak(state StreakState, today time.Time) StreakResult {
	day := timeutil.StartOfDay(today)
	prev := state.Current

	result := StreakResult{PreviousStreak: prev}

	switch {
	case state.LastActiveDate.IsZero():
		state.Current = 1
		result.Transition = TransitionStarted

	default:
		dayDiff := timeutil.DayDiff(state.LastActiveDate, day)

		switch {
		case dayDiff == 0:
			// Тот же день - счётчики не трогаем и дату не переписываем,
			// чтобы повторные решения за день были идемпотентны.
			result.Transition = TransitionSameDay
			result.State = state
			return result

		case dayDiff == 1:
			state.Current++
			result.Transition = TransitionExtended
			result.BonusEligible = true

		default:
			state.Current = 1
			result.Transition = TransitionBroken
		}
	}

	if state.Current > state.Best {
		state.Best = state.Current
	}
	state.LastActiveDate = day

	result.State = state
	return result
}
