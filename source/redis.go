package source

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"sbahn.dev/delays/model"
)

const DefaultRedisChannel = "sbahn:delays"

// Message published for every stored record.
type RecordMessage struct {
	ID            int64     `json:"id"`
	Line          string    `json:"line"`
	Station       string    `json:"station,omitempty"`
	ScheduledTime string    `json:"scheduled_time"`
	Delay         int       `json:"delay_minutes"`
	Direction     string    `json:"direction"`
	Source        string    `json:"source"`
	CapturedAt    time.Time `json:"captured_at"`
}

func NewRecordMessage(r *model.DelayRecord) RecordMessage {
	return RecordMessage{
		ID:            r.ID,
		Line:          r.Line,
		Station:       r.Station,
		ScheduledTime: r.ScheduledTime.String(),
		Delay:         r.Delay,
		Direction:     r.Direction.String(),
		Source:        string(r.Source),
		CapturedAt:    r.CapturedAt.UTC(),
	}
}

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Publishes stored records as JSON on a Redis channel.
type RedisSink struct {
	Channel string
	client  publisher
}

func NewRedisSink(client *redis.Client) *RedisSink {
	return &RedisSink{
		Channel: DefaultRedisChannel,
		client:  client,
	}
}

// Connects to redisURL (redis://host:port/db) and checks the
// connection.
func DialRedisSink(ctx context.Context, redisURL string) (*RedisSink, *redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("pinging redis: %w", err)
	}

	return NewRedisSink(client), client, nil
}

func (s *RedisSink) Publish(ctx context.Context, r *model.DelayRecord) error {
	data, err := json.Marshal(NewRecordMessage(r))
	if err != nil {
		return fmt.Errorf("marshaling record %d: %w", r.ID, err)
	}

	if err := s.client.Publish(ctx, s.Channel, data).Err(); err != nil {
		return fmt.Errorf("publishing record %d: %w", r.ID, err)
	}

	return nil
}
