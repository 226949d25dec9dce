package notifier

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const deviceLockPrefix = "clover:device_lock:"

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// DeviceLock keeps one payment operation in flight per terminal.
type DeviceLock struct {
	client redis.UniversalClient
}

func NewDeviceLock(client redis.UniversalClient) *DeviceLock {
	return &DeviceLock{client: client}
}

func DeviceLockKey(deviceID string) string {
	return deviceLockPrefix + deviceID
}

func (l *DeviceLock) Acquire(ctx context.Context, deviceID, owner string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, DeviceLockKey(deviceID), owner, ttl).Result()
}

// Release deletes the lock only while owner still holds it.
func (l *DeviceLock) Release(ctx context.Context, deviceID, owner string) (bool, error) {
	n, err := releaseScript.Run(ctx, l.client, []string{DeviceLockKey(deviceID)}, owner).Int64()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (l *DeviceLock) ForceRelease(ctx context.Context, deviceID string) error {
	return l.client.Del(ctx, DeviceLockKey(deviceID)).Err()
}

func (l *DeviceLock) Owner(ctx context.Context, deviceID string) (string, error) {
	owner, err := l.client.Get(ctx, DeviceLockKey(deviceID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return owner, err
}
