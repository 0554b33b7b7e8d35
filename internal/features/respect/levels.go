// Package respect — levels.go вычисляет уровень и шкалу прогресса по счёту.
// Чистые функции без состояния: каждые 10 очков уважения — новый уровень.
package respect

// PointsPerLevel — ширина одного уровня и число делений шкалы.
const PointsPerLevel = 10

// Standing — производные от счёта значения для отображения.
type Standing struct {
	Score  int
	Level  int
	Filled int // Заполненные деления шкалы
	Empty  int // Пустые деления шкалы
}

// Level возвращает уровень для счёта.
//
// Примеры:
//
//	Level(1)  → 1
//	Level(10) → 1
//	Level(11) → 2
//	Level(21) → 3
func Level(score int) int {
	if score < DefaultScore {
		score = DefaultScore
	}
	return (score-1)/PointsPerLevel + 1
}

// Progress возвращает уровень и заполнение шкалы из 10 делений.
func Progress(score int) Standing {
	if score < DefaultScore {
		score = DefaultScore
	}
	filled := (score - 1) % PointsPerLevel
	return Standing{
		Score:  score,
		Level:  Level(score),
		Filled: filled,
		Empty:  PointsPerLevel - filled,
	}
}

// LeveledUp сообщает, поднялся ли уровень при переходе before → after.
// before должен быть настоящим счётом до мутации: восстанавливать его
// из after нельзя, дельта могла быть срезана нижней границей.
func LeveledUp(before, after int) bool {
	return Level(after) > Level(before)
}
