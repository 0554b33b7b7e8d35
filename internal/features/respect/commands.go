// Package respect — commands.go определяет, является ли сообщение командой уважения.
package respect

import "strings"

// Command — распознанная команда.
type Command int

const (
	CommandNone  Command = iota // Обычное сообщение
	CommandAll                  // .all
	CommandBonus                // .bonus
	CommandGive                 // +
	CommandTake                 // -
)

var commandTokens = map[string]Command{
	".all":   CommandAll,
	".bonus": CommandBonus,
	"+":      CommandGive,
	"-":      CommandTake,
}

// ParseCommand сравнивает ВЕСЬ текст (без пробелов по краям) с токенами команд.
// Префиксы и подстроки не считаются: "+ спасибо" — не команда.
func ParseCommand(text string) Command {
	return commandTokens[strings.TrimSpace(text)]
}

// String возвращает имя команды для логов и метрик.
func (c Command) String() string {
	switch c {
	case CommandAll:
		return "all"
	case CommandBonus:
		return "bonus"
	case CommandGive:
		return "give"
	case CommandTake:
		return "take"
	}
	return "none"
}
