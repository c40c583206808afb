package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// QueueSynthesize holds pending asynchronous speech-generation jobs.
const QueueSynthesize = "queue:synthesize"

type Queue struct {
	client *redis.Client
}

// Job is one asynchronous synthesis request. Empty voice or model fall
// back to the provider profile's defaults.
type Job struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	VoiceID   string    `json:"voice_id,omitempty"`
	ModelID   string    `json:"model_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func New(redisURL string) (*Queue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Queue{client: client}, nil
}

func (q *Queue) Close() error {
	return q.client.Close()
}

func (q *Queue) Enqueue(ctx context.Context, queueName string, job *Job) error {
	job.CreatedAt = time.Now()

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	return q.client.RPush(ctx, queueName, data).Err()
}

func (q *Queue) Dequeue(ctx context.Context, queueName string, timeout time.Duration) (*Job, error) {
	result, err := q.client.BLPop(ctx, timeout, queueName).Result()
	if err == redis.Nil {
		return nil, nil // No job available
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue: %w", err)
	}

	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected redis response")
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	return &job, nil
}

// EnqueueSynthesize enqueues one speech-generation job and returns its id.
func (q *Queue) EnqueueSynthesize(ctx context.Context, text, voiceID, modelID string) (uuid.UUID, error) {
	job := &Job{
		ID:      uuid.New(),
		Text:    text,
		VoiceID: voiceID,
		ModelID: modelID,
	}
	if err := q.Enqueue(ctx, QueueSynthesize, job); err != nil {
		return uuid.Nil, err
	}
	return job.ID, nil
}
