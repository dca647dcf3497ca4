package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/fires/internal/domain/model"
	"github.com/okian/fires/pkg/logger"
)

type submitResult int

const (
	resultAccepted submitResult = iota
	resultDuplicate
	resultFailed
)

// alignmentBody is the wire shape of POST /alignment/{user}.
type alignmentBody struct {
	SubmissionID string             `json:"submission_id"`
	Ratings      map[string]float64 `json:"ratings"`
	SubmittedAt  string             `json:"submitted_at"`
}

func toBody(sub model.AlignmentSubmission) alignmentBody {
	ratings := make(map[string]float64, model.DimensionCount)
	for i, d := range model.Dimensions {
		ratings[string(d)] = sub.Ratings[i]
	}
	return alignmentBody{
		SubmissionID: sub.SubmissionID,
		Ratings:      ratings,
		SubmittedAt:  sub.SubmittedAt.UTC().Format(time.RFC3339),
	}
}

// CheckHealth returns an error unless baseURL answers GET /healthz with 200.
func CheckHealth(ctx context.Context, client *http.Client, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("health request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status %d", resp.StatusCode)
	}
	return nil
}

// Submit posts every submission to baseURL using cfg.Workers concurrent
// senders. Individual request failures are counted, not returned; the error
// is reserved for an unreachable server or a cancelled context.
func Submit(ctx context.Context, cfg Config, baseURL string, subs []model.AlignmentSubmission, log logger.Logger) (Stats, error) {
	start := time.Now()
	client := &http.Client{Timeout: cfg.Timeout}
	if err := CheckHealth(ctx, client, baseURL); err != nil {
		return Stats{}, err
	}

	workers := max(cfg.Workers, 1)
	log.Info(ctx, "submitting alignments",
		logger.Int("count", len(subs)),
		logger.Int("workers", workers),
		logger.String("url", baseURL),
	)

	var accepted, duplicate, failed atomic.Int64
	ch := make(chan model.AlignmentSubmission, workers*2)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sub := range ch {
				switch submitOne(ctx, client, baseURL, sub) {
				case resultAccepted:
					accepted.Add(1)
				case resultDuplicate:
					duplicate.Add(1)
				default:
					failed.Add(1)
				}
			}
		}()
	}

feed:
	for _, sub := range subs {
		select {
		case <-ctx.Done():
			break feed
		case ch <- sub:
		}
	}
	close(ch)
	wg.Wait()

	stats := Stats{
		Users:       len(subs),
		Submissions: int(accepted.Load()),
		Duplicates:  int(duplicate.Load()),
		Failed:      int(failed.Load()),
		Duration:    time.Since(start),
	}
	log.Info(ctx, "alignment submission completed",
		logger.Int("accepted", stats.Submissions),
		logger.Int("duplicate", stats.Duplicates),
		logger.Int("failed", stats.Failed),
		logger.Duration("duration", stats.Duration),
	)
	return stats, ctx.Err()
}

func submitOne(ctx context.Context, client *http.Client, baseURL string, sub model.AlignmentSubmission) submitResult {
	body, err := json.Marshal(toBody(sub))
	if err != nil {
		return resultFailed
	}
	endpoint := baseURL + "/alignment/" + url.PathEscape(sub.UserID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return resultFailed
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return resultFailed
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusAccepted:
		return resultAccepted
	case http.StatusOK:
		return resultDuplicate
	default:
		return resultFailed
	}
}
