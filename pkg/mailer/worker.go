package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	mailtpl "github.com/oksasatya/cloudgames-users/pkg/mailer/templates"
)

// ErrBadJob marks a message that can never be delivered and must not be retried.
var ErrBadJob = errors.New("bad email job")

// Worker renders queued EmailJobs and hands them to a Sender.
type Worker struct {
	Sender  Sender
	AppName string
	Logger  *logrus.Logger
	Timeout time.Duration
}

func NewWorker(s Sender, appName string, logger *logrus.Logger) *Worker {
	if logger == nil {
		logger = logrus.New()
	}
	return &Worker{Sender: s, AppName: appName, Logger: logger, Timeout: 15 * time.Second}
}

// Process handles one message body. Errors wrapping ErrBadJob are permanent;
// anything else is a delivery failure worth retrying.
func (w *Worker) Process(ctx context.Context, body []byte) error {
	var job EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("%w: %v", ErrBadJob, err)
	}
	if strings.TrimSpace(job.To) == "" {
		return fmt.Errorf("%w: missing recipient", ErrBadJob)
	}

	subject, text, html := job.Subject, job.Text, job.HTML
	if job.Template != "" {
		data := make(map[string]any, len(job.Data)+1)
		for k, v := range job.Data {
			data[k] = v
		}
		if _, ok := data["AppName"]; !ok && w.AppName != "" {
			data["AppName"] = w.AppName
		}
		s, t, h, err := mailtpl.Render(job.Template, data)
		if err != nil {
			return fmt.Errorf("%w: render %s: %v", ErrBadJob, job.Template, err)
		}
		subject, text, html = s, t, h
	}
	if subject == "" || (text == "" && html == "") {
		return fmt.Errorf("%w: empty message", ErrBadJob)
	}

	c, cancel := context.WithTimeout(ctx, w.Timeout)
	defer cancel()
	if err := w.Sender.Send(c, job.To, subject, text, html); err != nil {
		w.Logger.WithError(err).WithField("template", job.Template).Warn("send failed")
		return err
	}
	w.Logger.WithField("template", job.Template).Info("email sent")
	return nil
}
