package resolver

import (
	"errors"
	"fmt"
)

// Strategy определяет политику разрешения конфликтов версий.
type Strategy string

// Поддерживаемые стратегии
const (
	// StrategyFirstWriterWins сохраняет авторитетное состояние, отклоняя входящее изменение
	StrategyFirstWriterWins Strategy = "first_writer_wins"
	// StrategyLastWriterWins принимает входящее состояние целиком
	StrategyLastWriterWins Strategy = "last_writer_wins"
	// StrategyMerge сливает изменения пофилдово (стратегия по умолчанию)
	StrategyMerge Strategy = "merge"
	// StrategyUserChoice отказывается решать и отдает оба снимка наверх
	StrategyUserChoice Strategy = "user_choice"
	// StrategyAuto включает эвристический выбор стратегии с порогом уверенности
	StrategyAuto Strategy = "auto"
)

var (
	// ErrUnknownStrategy имя стратегии не входит в поддерживаемый набор.
	// На старте сервера это фатальная ошибка конфигурации.
	ErrUnknownStrategy = errors.New("unknown conflict resolution strategy")

	// ErrUserChoiceRequired сигнал управления, не сбой: стратегия отказалась
	// решать автоматически, конфликт передается пользователю вместе с обоими
	// снимками. Никогда не логируется как ошибка.
	ErrUserChoiceRequired = errors.New("user choice required")
)

// ParseStrategy разбирает имя стратегии из конфигурации или wire-сообщения.
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(name) {
	case StrategyFirstWriterWins, StrategyLastWriterWins, StrategyMerge,
		StrategyUserChoice, StrategyAuto:
		return Strategy(name), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}
