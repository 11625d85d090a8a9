package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// Result is the webhook acknowledgement. Added and Removed are omitted when
// the push touched no images.
type Result struct {
	Received bool     `json:"received"`
	Added    []string `json:"Added,omitempty"`
	Removed  []string `json:"Removed,omitempty"`
}

// Webhook reacts to pushes that add images under Prefix.
type Webhook struct {
	Prefix string
	// GroupByCommit sends all images a commit added as one request instead
	// of one request per image.
	GroupByCommit bool
	// Async triggers generation in the background and returns at once.
	Async   bool
	Trigger Trigger
	Runs    *RunLog
	Logger  echo.Logger

	wg sync.WaitGroup
}

func (w *Webhook) prefix() string {
	if w.Prefix == "" {
		return DefaultImagePrefix
	}
	return w.Prefix
}

var webhookLog = log.New("webhook")

func (w *Webhook) logger() echo.Logger {
	if w.Logger == nil {
		return webhookLog
	}
	return w.Logger
}

// Handle triggers generation for the images in ev. Failures are logged and
// recorded per item and never stop the remaining items.
func (w *Webhook) Handle(ctx context.Context, ev PushEvent) Result {
	added, removed := ev.Images(w.prefix())
	res := Result{Received: true, Added: added, Removed: removed}
	if len(added) == 0 {
		return res
	}

	jobs := w.jobs(ev)
	if w.Async {
		// The request context ends with the response; generation must outlive it.
		bg := context.WithoutCancel(ctx)
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.run(bg, jobs)
		}()
		return res
	}
	w.run(ctx, jobs)
	return res
}

// Wait blocks until background triggering started by Handle has finished.
func (w *Webhook) Wait() {
	w.wg.Wait()
}

type job struct {
	commitID string
	req      Request
}

func (w *Webhook) jobs(ev PushEvent) []job {
	var jobs []job
	for _, g := range ev.ImageGroups(w.prefix()) {
		if w.GroupByCommit {
			jobs = append(jobs, job{commitID: g.CommitID, req: Request{ImagePaths: g.Paths}})
			continue
		}
		for _, p := range g.Paths {
			jobs = append(jobs, job{commitID: g.CommitID, req: Request{ImagePath: p}})
		}
	}
	return jobs
}

func (w *Webhook) run(ctx context.Context, jobs []job) {
	for _, j := range jobs {
		started := time.Now()
		postID, err := w.Trigger.Trigger(ctx, j.req)
		run := Run{
			Source:     SourceWebhook,
			CommitID:   j.commitID,
			ImagePaths: j.req.Paths(),
			PostID:     postID,
			Status:     RunOK,
			StartedAt:  started,
			Duration:   time.Since(started),
		}
		if err != nil {
			run.Status = RunError
			run.Error = err.Error()
			w.logger().Errorf("webhook: generation for %v failed: %v", run.ImagePaths, err)
		} else {
			w.logger().Infof("webhook: post %d generated for %v", postID, run.ImagePaths)
		}
		if w.Runs != nil {
			if _, err := w.Runs.Record(ctx, run); err != nil {
				w.logger().Warnf("webhook: %v", err)
			}
		}
	}
}
