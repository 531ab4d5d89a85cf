package cache

import "fmt"

const (
	SessionKeyPrefix   = "pulasafe:session:%s"
	InflightKeyPrefix  = "pulasafe:inflight:%s:%s"
	RateLimitKeyPrefix = "rl:%s:%s"
)

func SessionKey(device string) string {
	return fmt.Sprintf(SessionKeyPrefix, device)
}

func InflightKey(action, subject string) string {
	return fmt.Sprintf(InflightKeyPrefix, action, subject)
}

func RateLimitKey(resource, id string) string {
	return fmt.Sprintf(RateLimitKeyPrefix, resource, id)
}
