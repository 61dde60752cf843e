package dispatch

import "time"

// RetryPolicy — политика повторных попыток публикации.
//
// Консультируется в точке requeue после неудачной попытки:
// либо пост возвращается в очередь с backoff-окном, либо
// (при исчерпании лимита) уходит в историю со статусом failed.
type RetryPolicy struct {
	// MaxAttempts — максимальное количество попыток.
	// <= 0 — без ограничения (поведение старого приложения).
	MaxAttempts int

	// Backoff — стратегия задержки: "fixed", "exponential".
	Backoff string

	// InitialDelay — начальная задержка (default: 1m).
	InitialDelay time.Duration

	// MaxDelay — максимальная задержка (default: 30m).
	MaxDelay time.Duration
}

// Exhausted возвращает true, если лимит попыток исчерпан.
func (p RetryPolicy) Exhausted(attempts int) bool {
	return p.MaxAttempts > 0 && attempts >= p.MaxAttempts
}

// Delay вычисляет задержку перед следующей попыткой.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	initial := p.InitialDelay
	if initial <= 0 {
		initial = time.Minute
	}

	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 30 * time.Minute
	}

	var delay time.Duration
	switch p.Backoff {
	case "exponential":
		// delay = initial * 2^(attempt-1)
		delay = initial
		for i := 1; i < attempt; i++ {
			delay *= 2
			if delay > maxDelay {
				delay = maxDelay
				break
			}
		}
	default:
		// "fixed" или неизвестная стратегия
		delay = initial
	}

	if delay > maxDelay {
		delay = maxDelay
	}

	return delay
}
