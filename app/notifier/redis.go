package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	MessageTypeLatestResponse = "CLOVER_LATEST_RESPONSE"

	posConfigChannelPrefix = "clover:pos_config:"
	operationChannelPrefix = "clover:operation:"
)

var ErrNoSubscribers = errors.New("no subscribers on channel")

// PosConfigMessage tells a POS config to re-read the latest terminal response.
type PosConfigMessage struct {
	Type            string `json:"type"`
	PosConfigID     uint64 `json:"pos_config_id"`
	PaymentMethodID uint64 `json:"payment_method_id"`
	Reference       string `json:"reference,omitempty"`
}

func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

func PosConfigChannel(posConfigID uint64) string {
	return posConfigChannelPrefix + strconv.FormatUint(posConfigID, 10)
}

func OperationChannel(reference string) string {
	return operationChannelPrefix + reference
}

type Publisher struct {
	client redis.UniversalClient
}

func NewPublisher(client redis.UniversalClient) *Publisher {
	return &Publisher{client: client}
}

// NotifyPosConfig publishes on the config channel. A channel nobody listens to yields ErrNoSubscribers.
func (p *Publisher) NotifyPosConfig(ctx context.Context, message PosConfigMessage) error {
	if message.Type == "" {
		message.Type = MessageTypeLatestResponse
	}
	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}

	receivers, err := p.client.Publish(ctx, PosConfigChannel(message.PosConfigID), payload).Result()
	if err != nil {
		return err
	}
	if receivers == 0 {
		return ErrNoSubscribers
	}
	return nil
}

func (p *Publisher) PublishCompletion(ctx context.Context, reference string, payload []byte) error {
	return p.client.Publish(ctx, OperationChannel(reference), payload).Err()
}

// AwaitCompletion subscribes to the operation channel, then runs check so that a completion
// persisted before the subscription is not missed. It returns the first payload seen.
func (p *Publisher) AwaitCompletion(ctx context.Context, reference string, check func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	sub := p.client.Subscribe(ctx, OperationChannel(reference))
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return nil, err
	}

	if check != nil {
		payload, err := check(ctx)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			return payload, nil
		}
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg, ok := <-sub.Channel():
		if !ok {
			return nil, redis.ErrClosed
		}
		return []byte(msg.Payload), nil
	}
}
