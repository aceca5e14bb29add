package queue

import (
	"context"
	"log"
	"sync"
	"time"
)

// JobProcessor runs a pool of workers that pull jobs off the registered
// queues and dispatch them to their handlers.
type JobProcessor struct {
	queue       *RedisQueue
	workerCount int
	stopChan    chan struct{}
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewJobProcessor creates a new JobProcessor
func NewJobProcessor(queue *RedisQueue, workerCount int) *JobProcessor {
	ctx, cancel := context.WithCancel(context.Background())
	return &JobProcessor{
		queue:       queue,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start starts the worker pool
func (p *JobProcessor) Start() {
	log.Printf("Starting job processor with %d workers", p.workerCount)

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop stops the worker pool and waits for in-flight jobs to finish
func (p *JobProcessor) Stop() {
	log.Println("Stopping job processor")
	close(p.stopChan)
	p.cancel()
	p.wg.Wait()
	log.Println("Job processor stopped")
}

// worker is a goroutine that processes jobs
func (p *JobProcessor) worker(id int) {
	defer p.wg.Done()

	jobTypes := make([]JobType, 0, len(p.queue.handlers))
	for jobType := range p.queue.handlers {
		jobTypes = append(jobTypes, jobType)
	}

	if len(jobTypes) == 0 {
		log.Printf("Worker %d exiting: no handlers registered", id)
		return
	}

	log.Printf("Worker %d started", id)

	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d stopping", id)
			return
		default:
			for _, jobType := range jobTypes {
				job, err := p.queue.Dequeue(jobType)
				if err != nil {
					log.Printf("Worker %d error getting job from queue %s: %v", id, jobType, err)
					continue
				}
				if job == nil {
					continue
				}

				p.processJob(job)

				// One job per iteration so other queues get a turn
				break
			}

			// Brief pause to avoid hammering Redis
			time.Sleep(100 * time.Millisecond)
		}
	}
}

func (p *JobProcessor) processJob(job *Job) {
	handler, ok := p.queue.handlers[job.Type]
	if !ok {
		log.Printf("No handler registered for job type: %s", job.Type)
		return
	}

	result, err := handler(p.ctx, *job)
	if err != nil {
		if failErr := p.queue.Fail(job, err); failErr != nil {
			log.Printf("Error handling failure of job %s: %v", job.ID, failErr)
		}
		return
	}

	if err := p.queue.Complete(job, result); err != nil {
		log.Printf("Error marking job %s as completed: %v", job.ID, err)
	}
}
