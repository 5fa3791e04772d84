package engagement

import "time"

// initialRetryDelay は失敗直後の再試行までの待ち時間。
const initialRetryDelay = 30 * time.Second

// nextDelay は連続失敗回数から次回実行までの待ち時間を返す。
// 失敗がなければinterval。失敗時は30秒から2倍ずつ伸ばし、intervalを上限とする。
func nextDelay(consecutiveFailures int, interval time.Duration) time.Duration {
	if consecutiveFailures <= 0 {
		return interval
	}
	delay := initialRetryDelay
	for i := 1; i < consecutiveFailures; i++ {
		delay *= 2
		if delay >= interval {
			return interval
		}
	}
	if delay > interval {
		return interval
	}
	return delay
}
