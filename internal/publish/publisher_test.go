package publish

import (
	"context"
	"errors"
	"testing"

	"github.com/confluentinc/confluent-kafka-go/kafka"

	"dagtemplate/internal/core"
)

type fakeProducer struct {
	sent       []*kafka.Message
	produceErr error
	deliverErr error
	silent     bool
}

func (f *fakeProducer) Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error {
	if f.produceErr != nil {
		return f.produceErr
	}
	f.sent = append(f.sent, msg)
	if f.silent {
		return nil
	}
	report := *msg
	report.TopicPartition.Error = f.deliverErr
	report.TopicPartition.Offset = kafka.Offset(len(f.sent) - 1)
	deliveryChan <- &report
	return nil
}

func testJob(t *testing.T) *core.Job {
	t.Helper()
	b := core.NewJob("nightly").Schedule("0 0 * * *")
	b.Shell("extract", "echo 1").Then(b.NoOp("done"))
	job, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return job
}

func header(m *kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestPublish(t *testing.T) {
	fp := &fakeProducer{}
	job := testJob(t)
	if err := NewPublisher(fp, "dags").Publish(context.Background(), job); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(fp.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(fp.sent))
	}
	m := fp.sent[0]
	if *m.TopicPartition.Topic != "dags" || string(m.Key) != "nightly" {
		t.Fatalf("unexpected topic/key: %s/%s", *m.TopicPartition.Topic, m.Key)
	}
	if header(m, HeaderVersion) != job.Version() || header(m, HeaderSchedule) != "0 0 * * *" {
		t.Fatalf("unexpected headers: %+v", m.Headers)
	}
	back, err := core.Decode(m.Value, core.FormatJSON)
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if back.Version() != job.Version() {
		t.Fatal("payload must describe the same definition")
	}
}

func TestPublishErrors(t *testing.T) {
	boom := errors.New("boom")
	job := testJob(t)

	err := NewPublisher(&fakeProducer{produceErr: boom}, "dags").Publish(context.Background(), job)
	if !errors.Is(err, boom) {
		t.Fatalf("expected produce error, got %v", err)
	}

	err = NewPublisher(&fakeProducer{deliverErr: boom}, "dags").Publish(context.Background(), job)
	if !errors.Is(err, boom) {
		t.Fatalf("expected delivery error, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = NewPublisher(&fakeProducer{silent: true}, "dags").Publish(ctx, job)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
