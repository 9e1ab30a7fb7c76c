package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"image-studio-client/internal/models"
)

const (
	EventImageProcessed  = "image:processed"
	EventProcessingError = "image:processing_error"
)

// Event is a terminal job notification. ImageKey is the correlation key.
type Event interface {
	ImageKey() string
	isEvent()
}

// JobSucceeded carries the stored result of a finished edit.
type JobSucceeded struct {
	JobID     string
	ImageID   string
	Result    models.ImageRecord
	Timestamp time.Time
}

func (e JobSucceeded) ImageKey() string { return e.ImageID }
func (JobSucceeded) isEvent()           {}

// JobFailed carries the backend's error text.
type JobFailed struct {
	JobID     string
	ImageID   string
	Error     string
	Timestamp time.Time
}

func (e JobFailed) ImageKey() string { return e.ImageID }
func (JobFailed) isEvent()           {}

type processedPayload struct {
	Success   bool   `json:"success"`
	JobID     string `json:"job_id"`
	Timestamp string `json:"timestamp"`
	Data      *struct {
		models.ImageRecord
		JobID string `json:"job_id"`
	} `json:"data"`
}

type processingErrorPayload struct {
	Success   bool   `json:"success"`
	JobID     string `json:"job_id"`
	Timestamp string `json:"timestamp"`
	Error     *struct {
		ImageID string `json:"image_id"`
		JobID   string `json:"job_id"`
		Error   string `json:"error"`
	} `json:"error"`
}

var errMalformedEvent = errors.New("malformed event payload")

// decodeEvent turns a named socket event into an Event. Unknown names return
// ok=false and no error.
func decodeEvent(name string, payload json.RawMessage) (Event, bool, error) {
	switch name {
	case EventImageProcessed:
		var p processedPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, true, fmt.Errorf("%w: %s: %v", errMalformedEvent, name, err)
		}
		if !p.Success || p.Data == nil {
			return nil, true, fmt.Errorf("%w: %s without data", errMalformedEvent, name)
		}
		imageID := p.Data.OriginalImageID
		if imageID == "" {
			imageID = p.Data.ID
		}
		if imageID == "" {
			return nil, true, fmt.Errorf("%w: %s without image id", errMalformedEvent, name)
		}
		jobID := p.JobID
		if jobID == "" {
			jobID = p.Data.JobID
		}
		return JobSucceeded{
			JobID:     jobID,
			ImageID:   imageID,
			Result:    p.Data.ImageRecord,
			Timestamp: parseTimestamp(p.Timestamp),
		}, true, nil

	case EventProcessingError:
		var p processingErrorPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, true, fmt.Errorf("%w: %s: %v", errMalformedEvent, name, err)
		}
		if p.Error == nil || p.Error.ImageID == "" {
			return nil, true, fmt.Errorf("%w: %s without image id", errMalformedEvent, name)
		}
		jobID := p.JobID
		if jobID == "" {
			jobID = p.Error.JobID
		}
		msg := p.Error.Error
		if msg == "" {
			msg = "image processing failed"
		}
		return JobFailed{
			JobID:     jobID,
			ImageID:   p.Error.ImageID,
			Error:     msg,
			Timestamp: parseTimestamp(p.Timestamp),
		}, true, nil

	default:
		return nil, false, nil
	}
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
