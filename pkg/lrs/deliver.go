// Package lrs delivers xAPI statements to Learning Record Stores.
package lrs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/tzrikka/slackxapi/pkg/metrics"
)

const (
	DefaultMaxAttempts   = 6
	DefaultRetryInterval = 5 * time.Second
	DefaultTimeout       = 10 * time.Second

	contentType = "application/json;charset=UTF-8"
	apiVersion  = "1.0.1"
	maxBodySize = 4096 // For error logging only.
)

// Target is an LRS endpoint. Inactive targets are skipped entirely.
type Target struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	Active   bool   `json:"active" yaml:"active"`
}

// UnmarshalYAML makes targets active unless configured otherwise.
func (t *Target) UnmarshalYAML(n *yaml.Node) error {
	type plain Target
	p := plain{Active: true}
	if err := n.Decode(&p); err != nil {
		return err
	}
	*t = Target(p)
	return nil
}

func (t Target) String() string {
	if t.Name != "" {
		return t.Name
	}
	return t.Endpoint
}

// Result of delivering a single statement to a single target.
type Result struct {
	Target    string
	Attempts  int
	Delivered bool
	Err       error
}

// Report summarizes the delivery of a single statement to all targets.
type Report struct {
	Results []Result
}

// Delivered reports whether at least one target accepted the statement.
func (r Report) Delivered() bool {
	for _, res := range r.Results {
		if res.Delivered {
			return true
		}
	}
	return false
}

// Deliverer sends statements with a bounded number of attempts per target,
// spaced by a fixed interval. It's safe for concurrent use.
type Deliverer struct {
	client      *http.Client
	maxAttempts int
	interval    time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

type Opt func(*Deliverer)

func WithMaxAttempts(n int) Opt {
	return func(d *Deliverer) {
		if n > 0 {
			d.maxAttempts = n
		}
	}
}

func WithRetryInterval(i time.Duration) Opt {
	return func(d *Deliverer) {
		d.interval = i
	}
}

func WithTimeout(t time.Duration) Opt {
	return func(d *Deliverer) {
		d.client.Timeout = t
	}
}

func WithHTTPClient(c *http.Client) Opt {
	return func(d *Deliverer) {
		d.client = c
	}
}

func NewDeliverer(opts ...Opt) *Deliverer {
	d := &Deliverer{
		client:      &http.Client{Timeout: DefaultTimeout},
		maxAttempts: DefaultMaxAttempts,
		interval:    DefaultRetryInterval,
		sleep:       sleep,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Deliver sends the statement to all the active targets, concurrently and
// independently: a failure to deliver to one target doesn't affect the others.
// Failures are logged and reported, never returned. If the context is canceled
// in the middle of retries, the report reflects the attempts made so far.
func (d *Deliverer) Deliver(ctx context.Context, statement []byte, targets []Target) Report {
	l := zerolog.Ctx(ctx)

	var active []Target
	for _, t := range targets {
		if t.Active {
			active = append(active, t)
		}
	}
	if len(active) == 0 {
		l.Warn().Int("configured_targets", len(targets)).Msg("no active LRS defined, cannot send xAPI statement")
		return Report{}
	}

	results := make([]Result, len(active))
	g := new(errgroup.Group)
	for i, t := range active {
		g.Go(func() error {
			results[i] = d.deliverTo(ctx, statement, t)
			return nil
		})
	}
	_ = g.Wait()

	return Report{Results: results}
}

func (d *Deliverer) deliverTo(ctx context.Context, statement []byte, t Target) Result {
	l := zerolog.Ctx(ctx).With().Str("lrs", t.String()).Logger()
	res := Result{Target: t.String()}

	for res.Attempts < d.maxAttempts {
		if res.Attempts > 0 {
			if err := d.sleep(ctx, d.interval); err != nil {
				res.Err = err
				break
			}
		}

		res.Attempts++
		metrics.DeliveryAttempts.WithLabelValues(t.String()).Inc()

		err := d.post(ctx, statement, t)
		if err == nil {
			res.Delivered = true
			res.Err = nil
			metrics.Deliveries.WithLabelValues(t.String(), "delivered").Inc()
			l.Info().Int("attempts", res.Attempts).Msg("successfully sent xAPI statement to LRS")
			return res
		}

		res.Err = err
		l.Warn().Err(err).Int("attempt", res.Attempts).Int("max_attempts", d.maxAttempts).
			Msg("failed to send xAPI statement to LRS")
	}

	metrics.Deliveries.WithLabelValues(t.String(), "failed").Inc()
	l.Error().Err(res.Err).Int("attempts", res.Attempts).Msg("giving up on sending xAPI statement to LRS")
	return res
}

// post sends a single HTTP request. Any non-200 response is a failure.
func (d *Deliverer) post(ctx context.Context, statement []byte, t Target) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint, bytes.NewReader(statement))
	if err != nil {
		return fmt.Errorf("failed to construct HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Experience-API-Version", apiVersion)
	if t.Username != "" || t.Password != "" {
		req.SetBasicAuth(t.Username, t.Password)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send HTTP request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if resp.StatusCode != http.StatusOK {
		msg := resp.Status
		if len(body) > 0 {
			msg = fmt.Sprintf("%s: %s", msg, string(body))
		}
		return fmt.Errorf("LRS error: %s", msg)
	}

	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
