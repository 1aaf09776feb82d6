package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/fsetools/fseparse/record"
)

const natsPublishTimeout = 5 * time.Second

// NatsWriter publishes records as JSON rows to a NATS JetStream subject.
type NatsWriter struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	subject string
}

func NewNatsWriter(url, subject string) (*NatsWriter, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), natsPublishTimeout)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      sanitizeStreamName(subject),
		Subjects:  []string{subject},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    24 * time.Hour,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream for %s: %w", subject, err)
	}

	return &NatsWriter{nc: nc, js: js, subject: subject}, nil
}

func (n *NatsWriter) Write(rec *record.Record) error {
	payload, err := json.Marshal(RowFor(rec))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), natsPublishTimeout)
	defer cancel()

	msg := &nats.Msg{
		Subject: n.subject,
		Data:    payload,
		Header:  nats.Header{"path": []string{rec.Path}},
	}
	if _, err := n.js.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", n.subject, err)
	}
	return nil
}

func (n *NatsWriter) Close() error {
	if n.nc != nil {
		n.nc.Close()
	}
	return nil
}

// JetStream stream names can't contain ".".
func sanitizeStreamName(subject string) string {
	return strings.ReplaceAll(subject, ".", "_")
}
