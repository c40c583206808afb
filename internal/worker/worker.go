package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/voxpipe/voxpipe/internal/queue"
	"github.com/voxpipe/voxpipe/internal/services"
)

// Worker drains the synthesize queue and runs each job through the same
// pipeline the synchronous API uses, so async jobs get identical chunking,
// retry and ledger behavior. Finished audio lands in outputDir as <id>.mp3.
type Worker struct {
	queue     *queue.Queue
	pipeline  *services.Pipeline
	outputDir string
}

func New(q *queue.Queue, pipeline *services.Pipeline, outputDir string) *Worker {
	return &Worker{
		queue:     q,
		pipeline:  pipeline,
		outputDir: outputDir,
	}
}

// Start runs concurrency consumers until the context is cancelled.
// Consumers are independent: each job is one sequential pipeline run, but
// several jobs may be in flight at once, sharing only the ledger.
func (w *Worker) Start(ctx context.Context, concurrency int) {
	log.Printf("Worker started with concurrency: %d", concurrency)

	if err := os.MkdirAll(w.outputDir, 0o750); err != nil {
		log.Printf("Failed to create output dir: %v", err)
		return
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < concurrency; i++ {
		g.Go(func() error {
			w.consume(ctx)
			return nil
		})
	}
	_ = g.Wait()

	log.Println("Worker shutting down...")
}

func (w *Worker) consume(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			job, err := w.queue.Dequeue(ctx, queue.QueueSynthesize, 5*time.Second)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("Error dequeuing synthesis job: %v", err)
				continue
			}

			if job == nil {
				continue // No job available, retry
			}

			log.Printf("Processing synthesis job %s (%d chars)", job.ID, len(job.Text))

			if err := w.handleSynthesize(ctx, job); err != nil {
				log.Printf("Job %s failed: %v", job.ID, err)
			} else {
				log.Printf("Job %s completed successfully", job.ID)
			}
		}
	}
}

// handleSynthesize runs the pipeline for one job and persists the audio.
// Every chunk attempt is already ledger-recorded inside the pipeline, so a
// failure here needs no extra bookkeeping beyond the log line.
func (w *Worker) handleSynthesize(ctx context.Context, job *queue.Job) error {
	audio, err := w.pipeline.GenerateWithModel(ctx, job.Text, job.VoiceID, job.ModelID)
	if err != nil {
		return fmt.Errorf("synthesis failed: %w", err)
	}

	outPath := filepath.Join(w.outputDir, job.ID.String()+".mp3")
	if err := os.WriteFile(outPath, audio, 0o640); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	log.Printf("Job %s wrote %d bytes to %s", job.ID, len(audio), outPath)
	return nil
}
